// Package liststate implements the member list controller: it owns filter,
// sort and paging state, debounces filter input, issues fetches and applies
// only the response of the most recently issued request.
package liststate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/odyssey-erp/memberdash/internal/collection"
	"github.com/odyssey-erp/memberdash/internal/listquery"
)

// DefaultDebounce is the quiescence window applied to filter and sort input.
const DefaultDebounce = 3 * time.Second

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("liststate: controller closed")

// Fetcher loads one page from the collection endpoint.
type Fetcher interface {
	FetchPage(ctx context.Context, token string, query listquery.Query) (collection.Result, error)
}

// TokenFunc returns the current bearer token. The controller only reads it;
// it must not call back into the controller.
type TokenFunc func() string

// Timer is a cancellable scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Observer is told about completions dropped because a newer request was
// issued after them.
type Observer interface {
	ObserveStaleDiscard()
}

// Options configures a Controller.
type Options struct {
	Debounce  time.Duration
	Scheduler Scheduler
	Logger    *slog.Logger
	Observer  Observer
	// OnChange is called with a copy of the state after every transition.
	OnChange func(State)
}

// Controller is safe for concurrent use. All mutations go through Dispatch.
type Controller struct {
	fetcher   Fetcher
	token     TokenFunc
	scheduler Scheduler
	debounce  time.Duration
	logger    *slog.Logger
	observer  Observer
	onChange  func(State)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	state  State
	seq    uint64
	gen    uint64
	timer  Timer
	closed bool
}

// New creates a controller in its initial state. Call Mount to start the
// first fetch.
func New(fetcher Fetcher, token TokenFunc, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Scheduler == nil {
		opts.Scheduler = wallClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if token == nil {
		token = func() string { return "" }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		fetcher:   fetcher,
		token:     token,
		scheduler: opts.Scheduler,
		debounce:  opts.Debounce,
		logger:    opts.Logger,
		observer:  opts.Observer,
		onChange:  opts.OnChange,
		ctx:       ctx,
		cancel:    cancel,
		state:     Initial(),
	}
}

// Mount issues the initial fetch.
func (c *Controller) Mount() error { return c.Dispatch(Mount()) }

// OnSearchChange schedules a debounced fetch with new search text.
func (c *Controller) OnSearchChange(search string) error { return c.Dispatch(SearchChanged(search)) }

// OnStatusChange schedules a debounced fetch with a new status filter.
func (c *Controller) OnStatusChange(status listquery.Status) error {
	return c.Dispatch(StatusChanged(status))
}

// OnSortToggle schedules a debounced fetch after toggling field.
func (c *Controller) OnSortToggle(field string) error { return c.Dispatch(SortToggled(field)) }

// OnPageChange fetches page immediately.
func (c *Controller) OnPageChange(page int) error { return c.Dispatch(PageChanged(page)) }

// OnLimitChange switches page size, resets to page 1 and fetches immediately.
func (c *Controller) OnLimitChange(limit int) error { return c.Dispatch(LimitChanged(limit)) }

// Refresh re-fetches the current state immediately.
func (c *Controller) Refresh() error { return c.Dispatch(Refresh()) }

// Dispatch applies a and runs the resulting effect.
func (c *Controller) Dispatch(a Action) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	next, eff, err := reduce(c.state, a)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = next
	switch eff {
	case effectFetchNow:
		// The immediate request carries the full current state, so it
		// supersedes any debounced one still waiting.
		c.cancelPendingLocked()
		c.issueLocked()
	case effectFetchDebounced:
		c.scheduleLocked()
	}
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.notify(snapshot)
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Close stops the pending debounce timer and drops every later completion.
// In-flight requests are cancelled through their context.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancelPendingLocked()
	c.mu.Unlock()
	c.cancel()
}

// Wait blocks until every issued fetch has completed.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) scheduleLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.state.Pending = true
	c.timer = c.scheduler.AfterFunc(c.debounce, func() { c.fire(gen) })
}

func (c *Controller) cancelPendingLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// A timer that already fired and is waiting for the lock sees a stale
	// generation and does nothing.
	c.gen++
	c.state.Pending = false
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state.Pending = false
	c.issueLocked()
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Controller) issueLocked() {
	c.seq++
	seq := c.seq
	c.state.Seq = seq
	c.state.Loading = true
	c.state.Phase = PhaseLoading
	query := c.state.Query()
	token := c.token()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result, err := c.fetcher.FetchPage(c.ctx, token, query)
		c.complete(seq, result, err)
	}()
}

func (c *Controller) complete(seq uint64, result collection.Result, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if seq != c.seq {
		latest := c.seq
		c.mu.Unlock()
		c.logger.Debug("discard stale list response", slog.Uint64("seq", seq), slog.Uint64("latest", latest))
		if c.observer != nil {
			c.observer.ObserveStaleDiscard()
		}
		return
	}

	c.state.Loading = false
	if err != nil {
		c.state.Phase = PhaseFailed
		c.state.Error = UserMessage(err)
		c.state.ErrorKind = kindOf(err)
		c.logger.Warn("fetch list page", slog.Uint64("seq", seq), slog.Any("error", err))
	} else {
		c.state.Phase = PhaseSuccess
		c.state.Error = ""
		c.state.ErrorKind = ErrorNone
		c.state.Rows = result.Rows
		if c.state.Rows == nil {
			c.state.Rows = []collection.Record{}
		}
		c.state.Counts = result.Counts
		c.state.Pagination.Total = result.Pagination.Total
		c.state.Pagination.TotalPages = result.Pagination.TotalPages
		c.state.Applied = seq
	}
	snapshot := c.state.clone()
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
