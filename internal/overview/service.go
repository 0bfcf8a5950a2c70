// Package overview builds the dashboard summary: member totals per status,
// loaded with a single one-row page request and cached per user.
package overview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/memberdash/internal/collection"
	"github.com/odyssey-erp/memberdash/internal/listquery"
	"github.com/odyssey-erp/memberdash/internal/platform/cache"
)

// Fetcher loads one page from the collection endpoint.
type Fetcher interface {
	FetchPage(ctx context.Context, token string, query listquery.Query) (collection.Result, error)
}

// Observer counts where summaries came from.
type Observer interface {
	ObserveOverviewLoad(source string)
}

// Summary is what the overview cards and chart show.
type Summary struct {
	Total     int       `json:"total"`
	Active    int       `json:"active"`
	Inactive  int       `json:"inactive"`
	Pending   int       `json:"pending"`
	FetchedAt time.Time `json:"fetched_at"`
}

// summaryQuery asks for the smallest page; only totals are used.
var summaryQuery = listquery.Build(listquery.Filter{}, listquery.Sort{}, listquery.Page{Page: 1, Limit: 1})

// Service loads summaries through the cache. Concurrent loads for the same
// user share one remote request.
type Service struct {
	fetcher  Fetcher
	cache    *cache.JSON
	logger   *slog.Logger
	observer Observer
	group    singleflight.Group
	now      func() time.Time
}

// NewService wires a Fetcher with a cache. cache may be nil.
func NewService(fetcher Fetcher, store *cache.JSON, logger *slog.Logger, observer Observer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, cache: store, logger: logger, observer: observer, now: time.Now}
}

// Summary returns the counts visible to userKey using token.
func (s *Service) Summary(ctx context.Context, userKey, token string) (Summary, error) {
	key := s.cache.Key("overview", userKey)

	var cached Summary
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("overview cache read", slog.Any("error", err))
	}
	if hit {
		s.observe("cache")
		return cached, nil
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.load(context.WithoutCancel(ctx), key, token)
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// Invalidate drops the cached summary for userKey.
func (s *Service) Invalidate(ctx context.Context, userKey string) error {
	return s.cache.Delete(ctx, s.cache.Key("overview", userKey))
}

func (s *Service) load(ctx context.Context, key, token string) (Summary, error) {
	result, err := s.fetcher.FetchPage(ctx, token, summaryQuery)
	if err != nil {
		return Summary{}, fmt.Errorf("overview: load summary: %w", err)
	}
	s.observe("remote")
	summary := Summary{
		Total:     result.Pagination.Total,
		Active:    result.Counts.ActiveCount,
		Inactive:  result.Counts.InactiveCount,
		Pending:   result.Counts.PendingCount,
		FetchedAt: s.now().UTC(),
	}
	if err := s.cache.Set(ctx, key, summary); err != nil {
		s.logger.Warn("overview cache write", slog.Any("error", err))
	}
	return summary, nil
}

func (s *Service) observe(source string) {
	if s.observer != nil {
		s.observer.ObserveOverviewLoad(source)
	}
}
