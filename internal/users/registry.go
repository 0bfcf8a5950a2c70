package users

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/memberdash/internal/liststate"
)

// DefaultIdleTTL is how long an unused controller survives.
const DefaultIdleTTL = 30 * time.Minute

// Gauge reports the number of live controllers.
type Gauge interface {
	SetControllers(n int)
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Debounce  time.Duration
	IdleTTL   time.Duration
	Scheduler liststate.Scheduler
	Logger    *slog.Logger
	Observer  liststate.Observer
	Gauge     Gauge
}

type entry struct {
	id       string
	ctrl     *liststate.Controller
	token    atomic.Value
	lastSeen time.Time
}

func (e *entry) readToken() string {
	s, _ := e.token.Load().(string)
	return s
}

// Registry owns one list controller per browser session.
type Registry struct {
	fetcher liststate.Fetcher
	cfg     RegistryConfig
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry constructs a Registry whose controllers load pages through fetcher.
func NewRegistry(fetcher liststate.Fetcher, cfg RegistryConfig) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		fetcher: fetcher,
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Acquire returns the controller for sessionID, creating and mounting it on
// first use. token becomes the bearer credential for later fetches.
func (r *Registry) Acquire(sessionID, token string) *liststate.Controller {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if ok {
		e.token.Store(token)
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.ctrl
	}

	e = &entry{id: uuid.NewString(), lastSeen: r.now()}
	e.token.Store(token)
	e.ctrl = liststate.New(r.fetcher, e.readToken, liststate.Options{
		Debounce:  r.cfg.Debounce,
		Scheduler: r.cfg.Scheduler,
		Logger:    r.cfg.Logger.With(slog.String("controller", e.id)),
		Observer:  r.cfg.Observer,
	})
	r.entries[sessionID] = e
	n := len(r.entries)
	r.mu.Unlock()

	r.report(n)
	r.cfg.Logger.Debug("list controller created", slog.String("controller", e.id))
	// A fresh controller never fails to mount.
	_ = e.ctrl.Mount()
	return e.ctrl
}

// Lookup returns the controller for sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*liststate.Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	return e.ctrl, true
}

// Release closes and forgets the controller for sessionID.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if ok {
		delete(r.entries, sessionID)
	}
	n := len(r.entries)
	r.mu.Unlock()
	if !ok {
		return
	}
	e.ctrl.Close()
	r.report(n)
	r.cfg.Logger.Debug("list controller released", slog.String("controller", e.id))
}

// Sweep closes controllers idle for longer than the configured TTL and
// returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.cfg.IdleTTL)
	var stale []*entry
	r.mu.Lock()
	for sid, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e)
			delete(r.entries, sid)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()

	for _, e := range stale {
		e.ctrl.Close()
	}
	if len(stale) > 0 {
		r.report(n)
		r.cfg.Logger.Info("swept idle list controllers", slog.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps on an interval until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.cfg.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close shuts every controller down and waits for their fetches.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, e)
	}
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range all {
		e.ctrl.Close()
	}
	for _, e := range all {
		e.ctrl.Wait()
	}
	r.report(0)
}

func (r *Registry) report(n int) {
	if r.cfg.Gauge != nil {
		r.cfg.Gauge.SetControllers(n)
	}
}
