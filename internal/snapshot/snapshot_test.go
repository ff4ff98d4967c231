package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/qyzhao/star-trends/internal/fetcher"
	"github.com/qyzhao/star-trends/internal/remote"
)

func TestSaveRawWritesSimplifiedCompanion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.json")

	data := fetcher.Dataset{
		"2025-12-20": &fetcher.DayData{
			Date:       "2025-12-20",
			TimeID:     "1",
			TotalItems: 2,
			Items: []fetcher.RawItem{
				{Rank: 1, Keyword: "topic a", History: &remote.HistoryDigest{MaxHotness: 100}},
				{Rank: 2, Keyword: "topic b", History: &remote.HistoryDigest{MaxHotness: 50}},
			},
		},
	}

	store := NewStore(zap.NewNop())
	if err := store.SaveRaw(data, path, true); err != nil {
		t.Fatalf("SaveRaw returned error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected raw snapshot at %s: %v", path, err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "raw_simplified.json"))
	if err != nil {
		t.Fatalf("Expected simplified companion file: %v", err)
	}

	var simplified map[string][]SimplifiedItem
	if err := json.Unmarshal(raw, &simplified); err != nil {
		t.Fatalf("Failed to parse simplified output: %v", err)
	}

	rows := simplified["2025-12-20"]
	if len(rows) != 2 {
		t.Fatalf("Expected 2 simplified rows, got %d", len(rows))
	}
	if rows[0].Rank != 1 || rows[0].Title != "topic a" || rows[0].HotValue != 100 {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}
	if rows[1].Rank != 2 || rows[1].HotValue != 50 {
		t.Errorf("Unexpected second row: %+v", rows[1])
	}
}

func TestSaveRawWithoutHistorySkipsSimplified(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.json")

	data := fetcher.Dataset{
		"2025-12-20": []any{[]any{"topic a", float64(100)}},
	}

	store := NewStore(zap.NewNop())
	if err := store.SaveRaw(data, path, false); err != nil {
		t.Fatalf("SaveRaw returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "raw_simplified.json")); !os.IsNotExist(err) {
		t.Fatal("Expected no simplified companion without history")
	}
}

func TestSimplifyGenericDayContainers(t *testing.T) {
	data := fetcher.Dataset{
		"2025-12-20": map[string]any{
			"items": []any{
				map[string]any{
					"rank":    float64(1),
					"keyword": "topic a",
					"history": map[string]any{"max_hotness": float64(100)},
				},
				map[string]any{
					"title": "topic b",
					"num":   float64(42),
					"url":   "https://example.com/b",
				},
			},
		},
	}

	simplified := Simplify(data)
	rows := simplified["2025-12-20"]
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].HotValue != 100 || rows[0].Title != "topic a" {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}
	if rows[1].Rank != 2 || rows[1].HotValue != 42 || rows[1].URL != "https://example.com/b" {
		t.Errorf("Unexpected second row: %+v", rows[1])
	}
}

func TestSaveFilteredBacksUpExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filtered.json")

	if err := os.WriteFile(path, []byte(`{"old": true}`), 0o644); err != nil {
		t.Fatalf("Failed to seed existing file: %v", err)
	}

	store := NewStore(zap.NewNop())
	if err := store.SaveFiltered(map[string]any{"new": true}, path); err != nil {
		t.Fatalf("SaveFiltered returned error: %v", err)
	}

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("Expected backup file: %v", err)
	}
	if string(backup) != `{"old": true}` {
		t.Errorf("Backup does not preserve previous content: %s", backup)
	}
}

func TestLoadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	store := NewStore(zap.NewNop())
	if err := store.SaveFiltered([]any{map[string]any{"title": "A"}}, path); err != nil {
		t.Fatalf("SaveFiltered returned error: %v", err)
	}

	doc, err := store.LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON returned error: %v", err)
	}
	list, ok := doc.([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("Unexpected document: %v", doc)
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	store := NewStore(zap.NewNop())
	if _, err := store.LoadJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
