package overview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/memberdash/internal/collection"
	"github.com/odyssey-erp/memberdash/internal/listquery"
	"github.com/odyssey-erp/memberdash/internal/platform/cache"
)

type stubFetcher struct {
	calls   atomic.Int32
	result  collection.Result
	err     error
	release chan struct{}
	mu      sync.Mutex
	queries []listquery.Query
	tokens  []string
}

func (f *stubFetcher) FetchPage(ctx context.Context, token string, q listquery.Query) (collection.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type countingObserver struct {
	mu      sync.Mutex
	sources []string
}

func (o *countingObserver) ObserveOverviewLoad(source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = append(o.sources, source)
}

func sampleResult() collection.Result {
	return collection.Result{
		Rows:       []collection.Record{{ID: "1"}},
		Counts:     collection.Counts{ActiveCount: 7, PendingCount: 2, InactiveCount: 3},
		Pagination: collection.Pagination{Total: 12, Page: 1, Limit: 1, TotalPages: 12},
	}
}

func newTestService(t *testing.T, f Fetcher, obs Observer) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(f, cache.NewJSON(client, "memberdash", time.Minute), nil, obs)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, mr
}

func TestSummaryRequestsSingleRowPage(t *testing.T) {
	f := &stubFetcher{result: sampleResult()}
	svc, _ := newTestService(t, f, nil)

	got, err := svc.Summary(context.Background(), "u1", "tok")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 12, Active: 7, Inactive: 3, Pending: 2, FetchedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, got)

	require.Len(t, f.queries, 1)
	assert.Equal(t, "page=1&limit=1", f.queries[0].Encode())
	assert.Equal(t, []string{"tok"}, f.tokens)
}

func TestSummaryServedFromCache(t *testing.T) {
	f := &stubFetcher{result: sampleResult()}
	obs := &countingObserver{}
	svc, mr := newTestService(t, f, obs)
	ctx := context.Background()

	_, err := svc.Summary(ctx, "u1", "tok")
	require.NoError(t, err)
	_, err = svc.Summary(ctx, "u1", "tok")
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, []string{"remote", "cache"}, obs.sources)
	assert.True(t, mr.Exists("memberdash:overview:u1"))

	_, err = svc.Summary(ctx, "u2", "tok2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.calls.Load(), "cache is per user")

	mr.FastForward(2 * time.Minute)
	_, err = svc.Summary(ctx, "u1", "tok")
	require.NoError(t, err)
	assert.EqualValues(t, 3, f.calls.Load(), "entry expires after ttl")
}

func TestInvalidateForcesReload(t *testing.T) {
	f := &stubFetcher{result: sampleResult()}
	svc, _ := newTestService(t, f, nil)
	ctx := context.Background()

	_, err := svc.Summary(ctx, "u1", "tok")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, "u1"))
	_, err = svc.Summary(ctx, "u1", "tok")
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.calls.Load())
}

func TestConcurrentSummariesShareOneRequest(t *testing.T) {
	f := &stubFetcher{result: sampleResult(), release: make(chan struct{})}
	svc, _ := newTestService(t, f, nil)

	var wg sync.WaitGroup
	results := make([]Summary, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := svc.Summary(context.Background(), "u1", "tok")
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the other callers time to join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.LessOrEqual(t, f.calls.Load(), int32(2))
	for _, s := range results {
		assert.Equal(t, 12, s.Total)
	}
}

func TestSummaryErrorIsNotCached(t *testing.T) {
	f := &stubFetcher{err: &collection.AuthError{Status: 401}}
	svc, mr := newTestService(t, f, nil)

	_, err := svc.Summary(context.Background(), "u1", "tok")
	require.Error(t, err)
	assert.True(t, collection.IsAuth(err))
	assert.False(t, mr.Exists("memberdash:overview:u1"))
}

func TestSummaryHonoursCallerCancellation(t *testing.T) {
	f := &stubFetcher{result: sampleResult(), release: make(chan struct{})}
	defer close(f.release)
	svc, _ := newTestService(t, f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Summary(ctx, "u1", "tok")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSummaryWithoutCache(t *testing.T) {
	f := &stubFetcher{result: sampleResult()}
	svc := NewService(f, nil, nil, nil)
	_, err := svc.Summary(context.Background(), "u1", "tok")
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), "u1", "tok")
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.calls.Load())
}
