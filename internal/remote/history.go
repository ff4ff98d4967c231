package remote

// HistorySample is one {time, rank, hotness} point from the same-day series.
type HistorySample struct {
	Time    string `json:"time"`
	Rank    int    `json:"rank"`
	Hotness int    `json:"hotness"`
}

// HistoryDigest summarizes a keyword's same-day rank/hotness samples.
type HistoryDigest struct {
	TotalPoints int             `json:"total_points"`
	MinRank     int             `json:"min_rank"`
	MaxRank     int             `json:"max_rank"`
	MinHotness  int             `json:"min_hotness"`
	MaxHotness  int             `json:"max_hotness"`
	FirstTime   string          `json:"first_time"`
	LastTime    string          `json:"last_time"`
	Details     []HistorySample `json:"details"`
}

// buildDigest summarizes a non-empty, time-ordered sample list.
func buildDigest(samples []HistorySample) *HistoryDigest {
	d := &HistoryDigest{
		TotalPoints: len(samples),
		MinRank:     samples[0].Rank,
		MaxRank:     samples[0].Rank,
		MinHotness:  samples[0].Hotness,
		MaxHotness:  samples[0].Hotness,
		FirstTime:   samples[0].Time,
		LastTime:    samples[len(samples)-1].Time,
		Details:     samples,
	}
	for _, s := range samples[1:] {
		if s.Rank < d.MinRank {
			d.MinRank = s.Rank
		}
		if s.Rank > d.MaxRank {
			d.MaxRank = s.Rank
		}
		if s.Hotness < d.MinHotness {
			d.MinHotness = s.Hotness
		}
		if s.Hotness > d.MaxHotness {
			d.MaxHotness = s.Hotness
		}
	}
	return d
}
