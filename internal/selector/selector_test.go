package selector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mwrobel/domo/internal/llm"
)

var _ llm.Provider = (*fakeProvider)(nil)

type fakeProvider struct {
	name    string
	content string

	mu        sync.Mutex
	calls     int
	failFirst int
	failAll   bool
}

func (p *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()
	if p.failAll || n <= p.failFirst {
		return nil, errors.New("provider unavailable")
	}
	return &llm.CompletionResponse{Content: p.content, Model: p.name}, nil
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func allLevels() []Complexity {
	return []Complexity{Simple, Standard, Complex, Critical}
}

func newTestSelector(backends ...*Backend) *Selector {
	s := New(backends, Config{MaxRetries: 2})
	s.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return s
}

func TestScoreShortQueryIsSimple(t *testing.T) {
	scorer := NewScorer(nil, nil)
	query := strings.Repeat("a", 49)

	score, level := scorer.Score(query, "")
	if level != Simple {
		t.Errorf("expected Simple for 49-char query, got %v (score %.3f)", level, score)
	}
}

func TestCriticalKeywordRaisesTier(t *testing.T) {
	scorer := NewScorer(nil, nil)
	query := "pilne " + strings.Repeat("a", 40)
	if len(query) >= 50 {
		t.Fatalf("test query must stay under 50 chars, got %d", len(query))
	}

	_, level := scorer.Score(query, "")
	if level < Standard {
		t.Errorf("expected at least Standard with a critical keyword, got %v", level)
	}
}

func TestScoreStructuralSignals(t *testing.T) {
	scorer := NewScorer(nil, nil)

	// Long query with code syntax, many lines, decimals and stacked
	// keywords should land in the top tiers.
	query := "przeanalizuj i zoptymalizuj ten kod, to pilne i krytyczne:\n" +
		"func f(x []int) {\n  y := 1.5\n  z := 2.25\n  print(x, y, z)\n}\n" +
		strings.Repeat("dodatkowy kontekst zapytania ", 8)

	score, level := scorer.Score(query, "")
	if level < Complex {
		t.Errorf("expected at least Complex, got %v (score %.3f)", level, score)
	}
}

func TestBucketScoreBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Complexity
	}{
		{0.0, Simple},
		{0.29, Simple},
		{0.30, Standard},
		{0.59, Standard},
		{0.60, Complex},
		{0.84, Complex},
		{0.85, Critical},
		{1.0, Critical},
	}
	for _, tt := range tests {
		if got := BucketScore(tt.score); got != tt.want {
			t.Errorf("BucketScore(%.2f) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestParseComplexity(t *testing.T) {
	for _, name := range []string{"simple", "Standard", "COMPLEX", "critical"} {
		if _, ok := ParseComplexity(name); !ok {
			t.Errorf("ParseComplexity(%q) failed", name)
		}
	}
	if _, ok := ParseComplexity("extreme"); ok {
		t.Error("ParseComplexity accepted unknown tier")
	}
}

func TestChatPrefersLowerPriority(t *testing.T) {
	p1 := &fakeProvider{name: "primary", content: "from-primary"}
	p2 := &fakeProvider{name: "secondary", content: "from-secondary"}
	b1 := NewBackend(BackendConfig{Name: "primary", Priority: 1, ConcurrencyLimit: 2, Levels: allLevels()}, p1)
	b2 := NewBackend(BackendConfig{Name: "secondary", Priority: 2, ConcurrencyLimit: 2, Levels: allLevels()}, p2)
	s := newTestSelector(b2, b1)

	res, err := s.Chat(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "cześć"}},
	}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Backend != "primary" {
		t.Errorf("expected primary backend, got %q", res.Backend)
	}
	if p2.callCount() != 0 {
		t.Errorf("secondary should not be called, got %d calls", p2.callCount())
	}
}

func TestChatSaturatedBackendFallsThrough(t *testing.T) {
	p1 := &fakeProvider{name: "primary", content: "from-primary"}
	p2 := &fakeProvider{name: "secondary", content: "from-secondary"}
	b1 := NewBackend(BackendConfig{Name: "primary", Priority: 1, ConcurrencyLimit: 1, Levels: allLevels()}, p1)
	b2 := NewBackend(BackendConfig{Name: "secondary", Priority: 2, ConcurrencyLimit: 1, Levels: allLevels()}, p2)
	s := newTestSelector(b1, b2)

	release, ok := b1.tryAcquire()
	if !ok {
		t.Fatal("failed to occupy primary slot")
	}
	defer release()

	res, err := s.Chat(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "cześć"}},
	}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Backend != "secondary" {
		t.Errorf("expected overflow to secondary, got %q", res.Backend)
	}
}

func TestChatAllSaturatedUsesTopPriorityAnyway(t *testing.T) {
	p1 := &fakeProvider{name: "primary", content: "from-primary"}
	b1 := NewBackend(BackendConfig{Name: "primary", Priority: 1, ConcurrencyLimit: 1, Levels: allLevels()}, p1)
	s := newTestSelector(b1)

	release, ok := b1.tryAcquire()
	if !ok {
		t.Fatal("failed to occupy primary slot")
	}
	defer release()

	// Latency over fairness: the call proceeds without a free slot
	// instead of queueing indefinitely.
	res, err := s.Chat(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "cześć"}},
	}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Backend != "primary" {
		t.Errorf("expected primary backend, got %q", res.Backend)
	}
}

func TestChatNoQualifyingBackend(t *testing.T) {
	p1 := &fakeProvider{name: "tiny", content: "x"}
	b1 := NewBackend(BackendConfig{Name: "tiny", Priority: 1, ConcurrencyLimit: 1, Levels: []Complexity{Simple}}, p1)
	s := newTestSelector(b1)

	forced := Critical
	_, err := s.Chat(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "cześć"}},
	}, Options{ForceComplexity: &forced})
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend, got %v", err)
	}
}

func TestChatCachesIdenticalRequests(t *testing.T) {
	p1 := &fakeProvider{name: "primary", content: "odpowiedź"}
	b1 := NewBackend(BackendConfig{Name: "primary", Priority: 1, ConcurrencyLimit: 2, Levels: allLevels()}, p1)
	s := newTestSelector(b1)

	req := llm.CompletionRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "cześć"}}}

	first, err := s.Chat(context.Background(), req, Options{})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.Cached {
		t.Error("first call must not be cached")
	}

	second, err := s.Chat(context.Background(), req, Options{})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !second.Cached {
		t.Error("second identical call should hit the cache")
	}
	if p1.callCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", p1.callCount())
	}
	if second.Response.Content != "odpowiedź" {
		t.Errorf("unexpected cached content %q", second.Response.Content)
	}
}

func TestResponseCacheEviction(t *testing.T) {
	c := newResponseCache(2, time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.put("a", llm.CompletionResponse{Content: "a"})
	now = now.Add(time.Second)
	c.put("b", llm.CompletionResponse{Content: "b"})
	now = now.Add(time.Second)
	c.put("c", llm.CompletionResponse{Content: "c"})

	if _, ok := c.get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.get("c"); !ok {
		t.Error("newest entry missing")
	}
	if c.len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.len())
	}

	now = now.Add(2 * time.Hour)
	if _, ok := c.get("c"); ok {
		t.Error("expired entry should not be served")
	}
}

func TestChatWithFallbackRetriesThenEscalates(t *testing.T) {
	p1 := &fakeProvider{name: "primary", failAll: true}
	p2 := &fakeProvider{name: "secondary", content: "from-secondary"}
	b1 := NewBackend(BackendConfig{Name: "primary", Priority: 1, ConcurrencyLimit: 2, Levels: allLevels()}, p1)
	b2 := NewBackend(BackendConfig{Name: "secondary", Priority: 2, ConcurrencyLimit: 2, Levels: allLevels()}, p2)
	s := newTestSelector(b1, b2)

	res := s.ChatWithFallback(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "cześć"}},
	}, Options{})
	if res.Err != nil {
		t.Fatalf("expected fallback success, got error: %v", res.Err)
	}
	if res.Backend != "secondary" {
		t.Errorf("expected secondary backend, got %q", res.Backend)
	}
	// 1 initial try + 2 retries on the primary.
	if p1.callCount() != 3 {
		t.Errorf("expected 3 primary attempts, got %d", p1.callCount())
	}
	if p2.callCount() != 1 {
		t.Errorf("expected 1 fallback attempt, got %d", p2.callCount())
	}
}

func TestChatWithFallbackAllTiersFail(t *testing.T) {
	p1 := &fakeProvider{name: "primary", failAll: true}
	p2 := &fakeProvider{name: "secondary", failAll: true}
	b1 := NewBackend(BackendConfig{Name: "primary", Priority: 1, ConcurrencyLimit: 2, Levels: allLevels()}, p1)
	b2 := NewBackend(BackendConfig{Name: "secondary", Priority: 2, ConcurrencyLimit: 2, Levels: allLevels()}, p2)
	s := newTestSelector(b1, b2)

	res := s.ChatWithFallback(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "cześć"}},
	}, Options{})
	if res.Err == nil {
		t.Fatal("expected terminal error when every tier fails")
	}
}

func TestStatusesReportSlots(t *testing.T) {
	p1 := &fakeProvider{name: "primary", content: "x"}
	b1 := NewBackend(BackendConfig{Name: "primary", Priority: 1, ConcurrencyLimit: 3, Levels: allLevels()}, p1)
	s := newTestSelector(b1)

	release, _ := b1.tryAcquire()
	defer release()

	statuses := s.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	st := statuses[0]
	if st.AvailableSlots != 2 {
		t.Errorf("expected 2 free slots, got %d", st.AvailableSlots)
	}
	if st.MaxConcurrency != 3 {
		t.Errorf("expected max concurrency 3, got %d", st.MaxConcurrency)
	}
	if !st.Enabled {
		t.Error("expected backend enabled")
	}
}

func TestStatsAccounting(t *testing.T) {
	stats := &UsageStats{}
	stats.RecordSuccess(100 * time.Millisecond)
	stats.RecordSuccess(300 * time.Millisecond)
	stats.RecordFailure(errors.New("boom"))

	snap := stats.Snapshot()
	if snap.TotalRequests != 3 {
		t.Errorf("expected 3 requests, got %d", snap.TotalRequests)
	}
	if snap.AverageLatency != 200*time.Millisecond {
		t.Errorf("expected 200ms average, got %v", snap.AverageLatency)
	}
	if snap.LastError != "boom" {
		t.Errorf("expected last error recorded, got %q", snap.LastError)
	}
	want := 2.0 / 3.0
	if diff := snap.SuccessRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected success rate %.3f, got %.3f", want, snap.SuccessRate)
	}
}
