// Package runner sequences the pipeline: fetch, persist raw, normalize,
// classify, re-nest, persist filtered.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qyzhao/star-trends/internal/classifier"
	"github.com/qyzhao/star-trends/internal/fetcher"
	"github.com/qyzhao/star-trends/internal/normalize"
	"github.com/qyzhao/star-trends/internal/snapshot"
)

// ErrEmptyFetch is returned when the fetch stage yields no dates at all.
var ErrEmptyFetch = errors.New("runner: fetch produced no data")

// Fetcher is the fetch stage consumed by the runner.
type Fetcher interface {
	FetchRange(ctx context.Context, start, end string, workers int, withHistory bool) (fetcher.Dataset, error)
}

// Options configures one pipeline run.
type Options struct {
	Start       string
	End         string
	RawPath     string
	OutputPath  string
	WithHistory bool
	Workers     int
	Enhanced    bool
	Delay       time.Duration
}

// Result summarizes a completed run.
type Result struct {
	Total      int
	Kept       int
	Filtered   int
	OutputPath string
}

// Runner is the single external entry point of the pipeline.
type Runner struct {
	fetcher Fetcher
	store   *snapshot.Store
	oracle  classifier.Oracle
	logger  *zap.Logger
}

func New(f Fetcher, store *snapshot.Store, oracle classifier.Oracle, logger *zap.Logger) *Runner {
	return &Runner{
		fetcher: f,
		store:   store,
		oracle:  oracle,
		logger:  logger,
	}
}

// FetchAndProcess runs the full pipeline once. It fails fatally when the
// fetch stage yields zero dates or when a snapshot cannot be persisted;
// per-date fetch failures and oracle failures are absorbed upstream.
func (r *Runner) FetchAndProcess(ctx context.Context, opts Options) (*Result, error) {
	log := r.logger.With(zap.String("run_id", uuid.NewString()))

	log.Info("starting fetch",
		zap.String("start", opts.Start),
		zap.String("end", opts.End),
		zap.Int("workers", opts.Workers),
		zap.Bool("with_history", opts.WithHistory))

	data, err := r.fetcher.FetchRange(ctx, opts.Start, opts.End, opts.Workers, opts.WithHistory)
	if err != nil {
		return nil, fmt.Errorf("runner: fetch failed: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFetch
	}

	if err := r.store.SaveRaw(data, opts.RawPath, opts.WithHistory); err != nil {
		return nil, fmt.Errorf("runner: failed to persist raw snapshot: %w", err)
	}

	return r.filterSnapshot(ctx, log, opts.RawPath, opts.OutputPath, opts.Enhanced, opts.Delay)
}

// FilterFile classifies an existing snapshot without fetching: the
// standalone filter pass over a previously saved raw file.
func (r *Runner) FilterFile(ctx context.Context, inputPath, outputPath string, enhanced bool, delay time.Duration) (*Result, error) {
	log := r.logger.With(zap.String("run_id", uuid.NewString()))
	return r.filterSnapshot(ctx, log, inputPath, outputPath, enhanced, delay)
}

func (r *Runner) filterSnapshot(ctx context.Context, log *zap.Logger, inputPath, outputPath string, enhanced bool, delay time.Duration) (*Result, error) {
	doc, err := r.store.LoadJSON(inputPath)
	if err != nil {
		return nil, fmt.Errorf("runner: failed to load snapshot: %w", err)
	}

	records, shape, err := normalize.Flatten(doc, log)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	log.Info("snapshot normalized",
		zap.Int("records", len(records)),
		zap.String("shape", shape.String()))

	filter := classifier.NewFilter(r.oracle, enhanced, delay, log)
	kept, stats := filter.Run(ctx, records)
	log.Info("classification complete",
		zap.Int("total", stats.Total),
		zap.Int("kept", stats.Kept))

	out := normalize.Renest(kept, shape, doc, log)
	if err := r.store.SaveFiltered(out, outputPath); err != nil {
		return nil, fmt.Errorf("runner: failed to persist filtered output: %w", err)
	}

	return &Result{
		Total:      stats.Total,
		Kept:       stats.Kept,
		Filtered:   stats.Total - stats.Kept,
		OutputPath: outputPath,
	}, nil
}
