// Package snapshot persists pipeline data as flat JSON files: the raw dated
// dataset, an optional simplified companion, and the filtered output.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/qyzhao/star-trends/internal/fetcher"
)

// SimplifiedItem is one row of the simplified companion snapshot.
type SimplifiedItem struct {
	Rank     int    `json:"rank"`
	Title    string `json:"title"`
	HotValue int    `json:"hot_value"`
	URL      string `json:"url"`
}

// Store writes and reads snapshot files.
type Store struct {
	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

// LoadJSON reads and decodes an arbitrary JSON document.
func (s *Store) LoadJSON(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: failed to read %s: %w", path, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("snapshot: failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// SaveRaw persists the aggregated dataset. When history was requested, a
// companion "<stem>_simplified.json" file is emitted alongside it.
func (s *Store) SaveRaw(data fetcher.Dataset, path string, withHistory bool) error {
	if err := s.writeJSON(data, path); err != nil {
		return err
	}
	if withHistory {
		if err := s.writeJSON(Simplify(data), simplifiedPath(path)); err != nil {
			return err
		}
	}
	return nil
}

// SaveFiltered persists the re-nested filtered output, backing up any
// existing file at the target path first.
func (s *Store) SaveFiltered(doc any, path string) error {
	s.backupExisting(path)
	return s.writeJSON(doc, path)
}

func (s *Store) writeJSON(doc any, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot: failed to create %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: failed to write %s: %w", path, err)
	}

	s.logger.Info("snapshot written", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// backupExisting copies an existing file to <path>.bak. Best effort: a
// failed backup is logged, not fatal.
func (s *Store) backupExisting(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	backupPath := path + ".bak"
	dst, err := os.Create(backupPath)
	if err != nil {
		s.logger.Warn("failed to create backup", zap.String("path", backupPath), zap.Error(err))
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		s.logger.Warn("failed to write backup", zap.String("path", backupPath), zap.Error(err))
		return
	}
	s.logger.Info("backed up existing file", zap.String("path", backupPath))
}

// Simplify reduces a dated dataset to rank/title/hot_value/url rows per
// date, in original rank order. Only per-date containers carrying an items
// list contribute; flat day lists have no hotness data to surface.
func Simplify(data fetcher.Dataset) map[string][]SimplifiedItem {
	out := make(map[string][]SimplifiedItem, len(data))
	for date, day := range data {
		switch d := day.(type) {
		case *fetcher.DayData:
			rows := make([]SimplifiedItem, 0, len(d.Items))
			for _, it := range d.Items {
				hot := 0
				if it.History != nil {
					hot = it.History.MaxHotness
				}
				rows = append(rows, SimplifiedItem{
					Rank:     it.Rank,
					Title:    it.Keyword,
					HotValue: hot,
				})
			}
			out[date] = rows
		case map[string]any:
			if items, ok := d["items"].([]any); ok {
				out[date] = simplifyGeneric(items)
			}
		}
	}
	return out
}

// simplifyGeneric handles day containers re-read from disk, where items are
// generic JSON maps.
func simplifyGeneric(items []any) []SimplifiedItem {
	rows := make([]SimplifiedItem, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		title, _ := firstString(m, "keyword", "word", "title")
		hot := 0
		if hist, ok := m["history"].(map[string]any); ok {
			hot = asInt(hist["max_hotness"])
		}
		if hot == 0 {
			hot = asInt(m["num"])
		}
		url, _ := m["url"].(string)

		rank := asInt(m["rank"])
		if rank == 0 {
			rank = i + 1
		}

		rows = append(rows, SimplifiedItem{
			Rank:     rank,
			Title:    title,
			HotValue: hot,
			URL:      url,
		})
	}
	return rows
}

func simplifiedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_simplified" + ext
}

func firstString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func asInt(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}
