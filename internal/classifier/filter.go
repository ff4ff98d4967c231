package classifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qyzhao/star-trends/internal/normalize"
)

// Fields attached to kept records.
const (
	ReasonField        = "filter_reason"
	ReasonDirect       = "direct_celebrity"
	ReasonInferred     = "inferred_celebrity"
	OriginalTitleField = "original_title"
	ReasoningField     = "inference_reasoning"
)

// Stats summarizes one filter run.
type Stats struct {
	Total int
	Kept  int
}

// Filter drives the two-stage classification over a record sequence. The
// oracle is the bottleneck, so processing is strictly sequential with an
// optional inter-request delay.
type Filter struct {
	direct   *TitleClassifier
	related  *RelatedClassifier
	enhanced bool
	delay    time.Duration
	logger   *zap.Logger

	// OnProgress, when set, is invoked after each record. Purely an
	// observability hook; it does not affect the outcome.
	OnProgress func(index, total int, kept bool, title string)
}

func NewFilter(oracle Oracle, enhanced bool, delay time.Duration, logger *zap.Logger) *Filter {
	return &Filter{
		direct:   NewTitleClassifier(oracle, logger),
		related:  NewRelatedClassifier(oracle, logger),
		enhanced: enhanced,
		delay:    delay,
		logger:   logger,
	}
}

// Run classifies every record and returns the kept subset in encounter
// order. Kept records are duplicates of the originals with the filter
// fields attached; inputs are never mutated.
func (f *Filter) Run(ctx context.Context, records []any) ([]any, Stats) {
	stats := Stats{Total: len(records)}
	var kept []any

	for i, record := range records {
		title, field, ok := normalize.ExtractTitle(record)
		if !ok {
			f.logger.Warn("record has no title field, dropping", zap.Int("index", i+1))
			f.report(i+1, stats.Total, false, "")
			continue
		}

		out, keep := f.classify(ctx, record.(map[string]any), title, field)
		if keep {
			kept = append(kept, out)
			stats.Kept++
		}

		f.logger.Info("record classified",
			zap.Int("index", i+1),
			zap.Int("total", stats.Total),
			zap.Bool("kept", keep),
			zap.String("title", truncate(title, 100)))
		f.report(i+1, stats.Total, keep, title)

		if i+1 < stats.Total && f.delay > 0 {
			select {
			case <-ctx.Done():
				return kept, stats
			case <-time.After(f.delay):
			}
		}
	}
	return kept, stats
}

// classify runs the state machine for one record: direct stage, then the
// inference stage when enhanced mode is on and the direct verdict was no.
func (f *Filter) classify(ctx context.Context, record map[string]any, title, field string) (map[string]any, bool) {
	if keep, _ := f.direct.ClassifyTitle(ctx, title); keep {
		out := normalize.CloneRecord(record)
		out[ReasonField] = ReasonDirect
		return out, true
	}

	if !f.enhanced {
		return nil, false
	}

	inf := f.related.Infer(ctx, title)
	if inf == nil {
		return nil, false
	}

	out := normalize.CloneRecord(record)
	out[OriginalTitleField] = title
	out[titleFieldFor(field)] = inf.Name
	out[ReasonField] = ReasonInferred
	out[ReasoningField] = inf.Reasoning
	return out, true
}

// titleFieldFor picks the field the inferred name overwrites: the field the
// title was extracted from, except positional raw_data payloads, which get
// a proper title field instead.
func titleFieldFor(field string) string {
	if field == "" || field == "raw_data" {
		return "title"
	}
	return field
}

func (f *Filter) report(index, total int, kept bool, title string) {
	if f.OnProgress != nil {
		f.OnProgress(index, total, kept, title)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
