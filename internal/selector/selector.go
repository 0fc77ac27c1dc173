// Package selector routes completion requests to one of several configured
// LLM backends based on estimated request complexity, enforcing per-backend
// concurrency limits, response caching and retry-with-fallback escalation.
package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mwrobel/domo/internal/llm"
)

// ErrNoBackend is returned when no enabled backend supports the request.
var ErrNoBackend = errors.New("selector: no backend available")

const (
	defaultCacheSize   = 1000
	defaultCacheTTL    = time.Hour
	defaultMaxRetries  = 2
	defaultBackoffBase = 500 * time.Millisecond
	defaultCallTimeout = 90 * time.Second
)

// Options tunes a single Chat call.
type Options struct {
	// ForceComplexity skips scoring and uses the given tier.
	ForceComplexity *Complexity
	// Backend pins the request to a named backend, bypassing selection.
	Backend string
	// NoCache disables the response cache for this call.
	NoCache bool
}

// Result carries a completion plus selection metadata.
type Result struct {
	Response   llm.CompletionResponse
	Backend    string
	Complexity Complexity
	Score      float64
	Cached     bool
	// Err is set by ChatWithFallback when every tier failed; Chat returns
	// errors in the usual way instead.
	Err error
}

// Selector scores requests and dispatches them to the best available backend.
type Selector struct {
	backends []*Backend // sorted by priority, ascending
	scorer   *Scorer
	cache    *responseCache
	logger   *slog.Logger

	maxRetries  int
	backoffBase time.Duration
	callTimeout time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// Config tunes a Selector.
type Config struct {
	Scorer      *Scorer
	CacheSize   int
	CacheTTL    time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// New creates a selector over the given backends.
func New(backends []*Backend, cfg Config) *Selector {
	sorted := make([]*Backend, len(backends))
	copy(sorted, backends)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	if cfg.Scorer == nil {
		cfg.Scorer = NewScorer(nil, nil)
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Selector{
		backends:    sorted,
		scorer:      cfg.Scorer,
		cache:       newResponseCache(cfg.CacheSize, cfg.CacheTTL),
		logger:      cfg.Logger,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		callTimeout: cfg.CallTimeout,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// Backends returns the selector's backends in priority order.
func (s *Selector) Backends() []*Backend {
	out := make([]*Backend, len(s.backends))
	copy(out, s.backends)
	return out
}

// Statuses returns a snapshot of every backend for the models API.
func (s *Selector) Statuses() []Status {
	out := make([]Status, 0, len(s.backends))
	for _, b := range s.backends {
		out = append(out, b.Status())
	}
	return out
}

func (s *Selector) byName(name string) *Backend {
	for _, b := range s.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// classify scores the request unless a tier is forced.
func (s *Selector) classify(req llm.CompletionRequest, opts Options) (Complexity, float64) {
	if opts.ForceComplexity != nil {
		return *opts.ForceComplexity, -1
	}
	score, level := s.scorer.Score(req.UserContent(), req.SystemContent())
	return level, score
}

// pick chooses the lowest-priority-number enabled backend that supports the
// tier and has a free concurrency slot. If every qualifying backend is
// saturated, the top-priority one is used anyway without holding a slot:
// latency over fairness.
func (s *Selector) pick(level Complexity) (*Backend, func(), error) {
	var first *Backend
	for _, b := range s.backends {
		if !b.Enabled() || !b.Supports(level) {
			continue
		}
		if first == nil {
			first = b
		}
		if release, ok := b.tryAcquire(); ok {
			return b, release, nil
		}
	}
	if first != nil {
		return first, func() {}, nil
	}
	return nil, nil, fmt.Errorf("%w for complexity %s", ErrNoBackend, level)
}

// Chat dispatches one completion request. Backend selection is by complexity
// unless pinned via opts. Identical non-streaming requests within the cache
// TTL are served from cache without touching a backend.
func (s *Selector) Chat(ctx context.Context, req llm.CompletionRequest, opts Options) (Result, error) {
	level, score := s.classify(req, opts)

	var backend *Backend
	var release func()
	if opts.Backend != "" {
		backend = s.byName(opts.Backend)
		if backend == nil || !backend.Enabled() {
			return Result{}, fmt.Errorf("%w: %q", ErrNoBackend, opts.Backend)
		}
		var ok bool
		if release, ok = backend.tryAcquire(); !ok {
			release = func() {}
		}
	} else {
		var err error
		backend, release, err = s.pick(level)
		if err != nil {
			return Result{}, err
		}
	}
	defer release()

	res := Result{Backend: backend.Name(), Complexity: level, Score: score}

	key := cacheKey(backend.Name(), req)
	if !opts.NoCache {
		if cached, ok := s.cache.get(key); ok {
			res.Response = cached
			res.Cached = true
			return res, nil
		}
	}

	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	resp, err := backend.provider.Complete(cctx, req)
	latency := time.Since(start)
	if err != nil {
		backend.Stats().RecordFailure(err)
		return Result{}, fmt.Errorf("backend %s: %w", backend.Name(), err)
	}
	backend.Stats().RecordSuccess(latency)

	if !opts.NoCache {
		s.cache.put(key, *resp)
	}
	res.Response = *resp
	return res, nil
}

// ChatStream dispatches a streaming completion through the selected backend.
// Streaming responses bypass the cache.
func (s *Selector) ChatStream(ctx context.Context, req llm.CompletionRequest, opts Options, h llm.StreamHandler) (Result, error) {
	level, score := s.classify(req, opts)
	backend, release, err := s.pick(level)
	if err != nil {
		return Result{}, err
	}
	defer release()

	start := time.Now()
	var resp *llm.CompletionResponse
	if sp, ok := backend.provider.(llm.StreamingProvider); ok {
		resp, err = sp.CompleteStream(ctx, req, h)
	} else {
		resp, err = llm.CompleteStreamFallback(ctx, backend.provider, req, h)
	}
	if err != nil {
		backend.Stats().RecordFailure(err)
		return Result{}, fmt.Errorf("backend %s: %w", backend.Name(), err)
	}
	backend.Stats().RecordSuccess(time.Since(start))
	return Result{Response: *resp, Backend: backend.Name(), Complexity: level, Score: score}, nil
}

// fallbackFor returns the best enabled backend with a strictly lower
// priority (higher priority number) than the given one, or nil.
func (s *Selector) fallbackFor(primary *Backend, level Complexity) *Backend {
	for _, b := range s.backends {
		if !b.Enabled() || b == primary {
			continue
		}
		if b.Priority() > primary.Priority() && b.Supports(level) {
			return b
		}
	}
	return nil
}

// ChatWithFallback escalates on failure: retry the primary backend with
// exponential backoff, then switch to a strictly lower-priority backend,
// and if that also fails return a Result carrying the terminal error so
// upstream code can degrade gracefully instead of unwinding. The
// concurrency slot is never held across a retry or fallback boundary.
func (s *Selector) ChatWithFallback(ctx context.Context, req llm.CompletionRequest, opts Options) Result {
	level, score := s.classify(req, opts)
	forced := Options{ForceComplexity: &level, NoCache: opts.NoCache}

	primaryName := opts.Backend
	if primaryName == "" {
		b, release, err := s.pick(level)
		if err != nil {
			return Result{Complexity: level, Score: score, Err: err}
		}
		release()
		primaryName = b.Name()
	}
	forced.Backend = primaryName

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := s.backoffBase * (1 << (attempt - 1))
			if err := s.sleep(ctx, backoff); err != nil {
				return Result{Complexity: level, Score: score, Err: err}
			}
		}
		res, err := s.Chat(ctx, req, forced)
		if err == nil {
			res.Score = score
			return res
		}
		lastErr = err
		s.logger.Warn("backend call failed",
			"backend", primaryName, "attempt", attempt+1, "error", err)
	}

	primary := s.byName(primaryName)
	if primary != nil {
		if fb := s.fallbackFor(primary, level); fb != nil {
			s.logger.Warn("falling back to secondary backend",
				"primary", primaryName, "fallback", fb.Name())
			forced.Backend = fb.Name()
			res, err := s.Chat(ctx, req, forced)
			if err == nil {
				res.Score = score
				return res
			}
			lastErr = err
		}
	}

	return Result{Backend: primaryName, Complexity: level, Score: score, Err: lastErr}
}
