// Package fetcher fans the per-date fetch out over a bounded worker pool and
// aggregates results keyed by date, tolerating partial failure.
package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qyzhao/star-trends/internal/remote"
	"github.com/qyzhao/star-trends/internal/retry"
)

const dateLayout = "2006-01-02"

// RawItem is one ranked entry for a date, optionally enriched with its
// same-day history digest.
type RawItem struct {
	Rank    int                   `json:"rank"`
	Keyword string                `json:"keyword"`
	RawData any                   `json:"raw_data"`
	History *remote.HistoryDigest `json:"history"`
}

// DayData is the per-date container produced when history enrichment is on.
type DayData struct {
	Date       string    `json:"date"`
	TimeID     string    `json:"timeid"`
	ActualTime string    `json:"actual_time"`
	TotalItems int       `json:"total_items"`
	Items      []RawItem `json:"items"`
}

// Dataset maps each successfully fetched date to its result: a flat item
// list without history, or a *DayData container with it. Failed dates are
// simply absent, never present with a placeholder.
type Dataset map[string]any

// RangeFetcher runs the date-range fetch against the remote API.
type RangeFetcher struct {
	client       *remote.Client
	logger       *zap.Logger
	retry        retry.Config
	historyDelay time.Duration
}

func NewRangeFetcher(client *remote.Client, logger *zap.Logger) *RangeFetcher {
	return &RangeFetcher{
		client:       client,
		logger:       logger,
		retry:        retry.DefaultConfig(),
		historyDelay: 100 * time.Millisecond,
	}
}

// FetchRange fetches every calendar date in [start, end] inclusive using at
// most workers concurrent tasks. It returns whatever subset of dates
// succeeded; an empty dataset is a valid result and never an error here.
func (f *RangeFetcher) FetchRange(ctx context.Context, start, end string, workers int, withHistory bool) (Dataset, error) {
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("fetcher: invalid start date %q: %w", start, err)
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("fetcher: invalid end date %q: %w", end, err)
	}

	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}

	if workers <= 0 {
		workers = 1
	}

	var (
		mu  sync.Mutex
		out = make(Dataset)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, date := range dates {
		date := date
		g.Go(func() error {
			day, err := f.fetchDay(ctx, date, withHistory)
			if err != nil {
				f.logger.Warn("date fetch failed",
					zap.String("date", date),
					zap.Error(err))
				return nil // partial failure is tolerated
			}

			mu.Lock()
			out[date] = day
			mu.Unlock()

			f.logger.Info("date fetched", zap.String("date", date))
			return nil
		})
	}

	_ = g.Wait()

	f.logger.Info("range fetch complete",
		zap.Int("requested", len(dates)),
		zap.Int("succeeded", len(out)),
		zap.Int("failed", len(dates)-len(out)))
	return out, nil
}

// fetchDay performs the two-step fetch for one date, with fixed-count retry
// over the whole sequence. Each attempt uses a fresh transport session.
func (f *RangeFetcher) fetchDay(ctx context.Context, date string, withHistory bool) (any, error) {
	var result any

	err := retry.Do(ctx, f.retry, func(ctx context.Context) error {
		session := remote.NewSession()
		defer session.Close()

		timeID, actualTime, err := f.client.ResolveIndexToken(ctx, session, date)
		if err != nil {
			return fmt.Errorf("resolve index token: %w", err)
		}

		items, err := f.client.FetchRankedItems(ctx, session, timeID)
		if err != nil {
			return fmt.Errorf("fetch ranked items: %w", err)
		}

		if !withHistory {
			result = items
			return nil
		}

		result = f.enrich(ctx, session, date, timeID, actualTime, items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// enrich attaches a history digest to each item, strictly sequentially with
// a pacing delay between calls so the remote is not hammered.
func (f *RangeFetcher) enrich(ctx context.Context, session *remote.Session, date, timeID, actualTime string, items []any) *DayData {
	enriched := make([]RawItem, 0, len(items))
	for i, item := range items {
		keyword := keywordOf(item)

		digest, err := f.client.FetchKeywordHistory(ctx, session, keyword, date)
		if err != nil {
			f.logger.Debug("history fetch failed",
				zap.String("date", date),
				zap.String("keyword", keyword),
				zap.Error(err))
		}

		enriched = append(enriched, RawItem{
			Rank:    i + 1,
			Keyword: keyword,
			RawData: item,
			History: digest,
		})

		select {
		case <-ctx.Done():
			return dayData(date, timeID, actualTime, enriched)
		case <-time.After(f.historyDelay):
		}
	}
	return dayData(date, timeID, actualTime, enriched)
}

func dayData(date, timeID, actualTime string, items []RawItem) *DayData {
	return &DayData{
		Date:       date,
		TimeID:     timeID,
		ActualTime: actualTime,
		TotalItems: len(items),
		Items:      items,
	}
}

// keywordOf extracts the display keyword from a raw positional payload: the
// first element when the payload is a list, else the payload itself.
func keywordOf(item any) string {
	if arr, ok := item.([]any); ok && len(arr) > 0 {
		return fmt.Sprint(arr[0])
	}
	return fmt.Sprint(item)
}
