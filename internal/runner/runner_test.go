package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/qyzhao/star-trends/internal/fetcher"
	"github.com/qyzhao/star-trends/internal/snapshot"
)

type fakeFetcher struct {
	data fetcher.Dataset
	err  error
}

func (f *fakeFetcher) FetchRange(ctx context.Context, start, end string, workers int, withHistory bool) (fetcher.Dataset, error) {
	return f.data, f.err
}

// yesNoOracle answers YES for titles in its keep set.
type yesNoOracle struct {
	keep map[string]bool
}

func (o *yesNoOracle) Complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	if o.keep[user] {
		return "YES", nil
	}
	return "NO", nil
}

func TestFetchAndProcessEmptyFetchIsFatal(t *testing.T) {
	dir := t.TempDir()
	r := New(
		&fakeFetcher{data: fetcher.Dataset{}},
		snapshot.NewStore(zap.NewNop()),
		&yesNoOracle{},
		zap.NewNop(),
	)

	_, err := r.FetchAndProcess(context.Background(), Options{
		Start:      "2025-12-20",
		End:        "2025-12-20",
		RawPath:    filepath.Join(dir, "raw.json"),
		OutputPath: filepath.Join(dir, "out.json"),
		Workers:    2,
	})
	if !errors.Is(err, ErrEmptyFetch) {
		t.Fatalf("Expected ErrEmptyFetch, got %v", err)
	}
}

func TestFetchAndProcessEndToEnd(t *testing.T) {
	dir := t.TempDir()

	data := fetcher.Dataset{
		"2025-12-20": []any{
			[]any{"Concert by X", float64(100)},
			[]any{"Generic Monday news", float64(50)},
		},
	}

	r := New(
		&fakeFetcher{data: data},
		snapshot.NewStore(zap.NewNop()),
		&yesNoOracle{keep: map[string]bool{"Concert by X": true}},
		zap.NewNop(),
	)

	rawPath := filepath.Join(dir, "raw.json")
	outPath := filepath.Join(dir, "out.json")

	result, err := r.FetchAndProcess(context.Background(), Options{
		Start:      "2025-12-20",
		End:        "2025-12-20",
		RawPath:    rawPath,
		OutputPath: outPath,
		Workers:    2,
	})
	if err != nil {
		t.Fatalf("FetchAndProcess returned error: %v", err)
	}

	if result.Total != 2 || result.Kept != 1 || result.Filtered != 1 {
		t.Fatalf("Unexpected result: %+v", result)
	}
	if result.OutputPath != outPath {
		t.Errorf("Unexpected output path %q", result.OutputPath)
	}

	// The raw snapshot is date-indexed, so the filtered output must be too.
	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Failed to parse output: %v", err)
	}

	day, ok := out["2025-12-20"].([]any)
	if !ok {
		t.Fatalf("Expected per-date list in output, got %T", out["2025-12-20"])
	}
	if len(day) != 1 {
		t.Fatalf("Expected 1 kept record, got %d", len(day))
	}

	rec := day[0].(map[string]any)
	if rec["filter_reason"] != "direct_celebrity" {
		t.Errorf("Expected direct_celebrity reason, got %v", rec["filter_reason"])
	}
}

func TestFilterFileFlatList(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.json")
	outPath := filepath.Join(dir, "out.json")

	input := `[{"title": "Concert by X"}, {"title": "Generic Monday news"}]`
	if err := os.WriteFile(inputPath, []byte(input), 0o644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	r := New(
		&fakeFetcher{},
		snapshot.NewStore(zap.NewNop()),
		&yesNoOracle{keep: map[string]bool{"Concert by X": true}},
		zap.NewNop(),
	)

	result, err := r.FilterFile(context.Background(), inputPath, outPath, false, 0)
	if err != nil {
		t.Fatalf("FilterFile returned error: %v", err)
	}
	if result.Total != 2 || result.Kept != 1 {
		t.Fatalf("Unexpected result: %+v", result)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	var out []any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Failed to parse output: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Expected 1 kept record, got %d", len(out))
	}
	rec := out[0].(map[string]any)
	if rec["title"] != "Concert by X" || rec["filter_reason"] != "direct_celebrity" {
		t.Errorf("Unexpected kept record: %v", rec)
	}
}

func TestFilterFileUnsupportedShapeIsFatal(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.json")
	if err := os.WriteFile(inputPath, []byte(`"just a string"`), 0o644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	r := New(&fakeFetcher{}, snapshot.NewStore(zap.NewNop()), &yesNoOracle{}, zap.NewNop())

	if _, err := r.FilterFile(context.Background(), inputPath, filepath.Join(dir, "out.json"), false, 0); err == nil {
		t.Fatal("Expected fatal error for unsupported structure")
	}
}

func TestFetchAndProcessPersistFailureIsFatal(t *testing.T) {
	dir := t.TempDir()

	r := New(
		&fakeFetcher{data: fetcher.Dataset{"2025-12-20": []any{map[string]any{"title": "A"}}}},
		snapshot.NewStore(zap.NewNop()),
		&yesNoOracle{},
		zap.NewNop(),
	)

	// An unwritable raw path (a directory) must abort the run.
	rawPath := filepath.Join(dir, "rawdir")
	if err := os.Mkdir(rawPath, 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	_, err := r.FetchAndProcess(context.Background(), Options{
		Start:      "2025-12-20",
		End:        "2025-12-20",
		RawPath:    rawPath,
		OutputPath: filepath.Join(dir, "out.json"),
		Workers:    1,
	})
	if err == nil {
		t.Fatal("Expected fatal persistence error")
	}
}
