package selector

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/mwrobel/domo/internal/llm"
)

// BackendConfig describes one LLM backend the selector can dispatch to.
// Loaded once at startup; only the enabled flag changes afterwards.
type BackendConfig struct {
	Name             string
	Levels           []Complexity
	MaxTokens        int
	CostPerToken     float64
	Priority         int // lower means preferred
	ConcurrencyLimit int64
	Description      string
}

// Backend pairs a provider with its config, concurrency slots and stats.
type Backend struct {
	cfg      BackendConfig
	provider llm.Provider

	enabled  atomic.Bool
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	stats    *UsageStats
}

// NewBackend wires a provider to a backend config.
func NewBackend(cfg BackendConfig, provider llm.Provider) *Backend {
	if cfg.ConcurrencyLimit < 1 {
		cfg.ConcurrencyLimit = 1
	}
	b := &Backend{
		cfg:      cfg,
		provider: provider,
		sem:      semaphore.NewWeighted(cfg.ConcurrencyLimit),
		stats:    &UsageStats{},
	}
	b.enabled.Store(true)
	return b
}

// Name returns the backend's configured name.
func (b *Backend) Name() string { return b.cfg.Name }

// Priority returns the backend's selection priority (lower wins).
func (b *Backend) Priority() int { return b.cfg.Priority }

// Enabled reports whether the backend accepts traffic.
func (b *Backend) Enabled() bool { return b.enabled.Load() }

// SetEnabled toggles the backend, e.g. from a health check.
func (b *Backend) SetEnabled(v bool) { b.enabled.Store(v) }

// Stats returns the backend's usage counters.
func (b *Backend) Stats() *UsageStats { return b.stats }

// Supports reports whether the backend handles the given complexity tier.
func (b *Backend) Supports(level Complexity) bool {
	for _, l := range b.cfg.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// tryAcquire attempts to take a concurrency slot without blocking.
// The returned release function is a no-op when acquisition failed.
func (b *Backend) tryAcquire() (release func(), ok bool) {
	if !b.sem.TryAcquire(1) {
		return func() {}, false
	}
	b.inFlight.Add(1)
	return func() {
		b.inFlight.Add(-1)
		b.sem.Release(1)
	}, true
}

// FreeSlots returns how many concurrency slots are currently available.
func (b *Backend) FreeSlots() int64 {
	free := b.cfg.ConcurrencyLimit - b.inFlight.Load()
	if free < 0 {
		free = 0
	}
	return free
}

// Status is the externally visible snapshot of one backend.
type Status struct {
	Name           string       `json:"name"`
	Enabled        bool         `json:"enabled"`
	Priority       int          `json:"priority"`
	AvailableSlots int64        `json:"available_slots"`
	MaxConcurrency int64        `json:"max_concurrency"`
	Levels         []string     `json:"complexity_levels"`
	Description    string       `json:"description,omitempty"`
	Stats          StatsSnapshot `json:"stats"`
}

// Status returns the backend's current status snapshot.
func (b *Backend) Status() Status {
	levels := make([]string, len(b.cfg.Levels))
	for i, l := range b.cfg.Levels {
		levels[i] = l.String()
	}
	return Status{
		Name:           b.cfg.Name,
		Enabled:        b.Enabled(),
		Priority:       b.cfg.Priority,
		AvailableSlots: b.FreeSlots(),
		MaxConcurrency: b.cfg.ConcurrencyLimit,
		Levels:         levels,
		Description:    b.cfg.Description,
		Stats:          b.stats.Snapshot(),
	}
}
