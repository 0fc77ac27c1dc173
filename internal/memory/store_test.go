package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mwrobel/domo/internal/llm"
	"github.com/mwrobel/domo/internal/selector"
)

// keywordEmbedder maps texts onto fixed orthogonal axes so similarity is
// 1.0 for same-topic texts and 0.0 across topics.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		switch {
		case strings.Contains(lower, "kawa") || strings.Contains(lower, "kawę"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(lower, "pies") || strings.Contains(lower, "psa"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (keywordEmbedder) Dimensions() int { return 3 }
func (keywordEmbedder) Name() string    { return "keyword-test" }

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 13, 12, 0, 0, 0, time.UTC)
	opts = append(opts, WithStoreClock(func() time.Time { return now }))
	s, err := NewStore(keywordEmbedder{}, opts...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, &now
}

func TestIngestAndSearch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Ingest(ctx, "Uwielbiam kawę z mlekiem", 7); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if _, err := s.Ingest(ctx, "Mój pies wabi się Burek", 6); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := s.Search(ctx, "kawa", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d", len(results))
	}
	got := results[0].Entry
	if !strings.Contains(got.Text, "kawę") {
		t.Errorf("retrieved wrong memory: %q", got.Text)
	}
	if got.AccessCount != 1 || got.LastAccess.IsZero() {
		t.Errorf("expected access bookkeeping bumped, got count=%d last=%v",
			got.AccessCount, got.LastAccess)
	}
}

func TestSearchRanksByWeightedScore(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	old, err := s.Ingest(ctx, "kawa rano, stara notatka", 3)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	*now = now.Add(30 * 24 * time.Hour)
	fresh, err := s.Ingest(ctx, "kawa tylko bezkofeinowa, ważne", 9)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := s.Search(ctx, "kawa", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entry.ID != fresh.ID {
		t.Errorf("expected fresh high-importance entry first, got %q", results[0].Entry.Text)
	}
	if results[1].Entry.ID != old.ID {
		t.Errorf("expected decayed entry second, got %q", results[1].Entry.Text)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not ordered: %v vs %v", results[0].Score, results[1].Score)
	}
}

func TestWeightedScoreDecayCompounding(t *testing.T) {
	p := DefaultDecayParams()
	now := time.Now()
	age := 14 * 24 * time.Hour

	low := Entry{Importance: 1, CreatedAt: now.Add(-age)}
	high := Entry{Importance: 9, CreatedAt: now.Add(-age)}

	// Relative retention: important entries must decay slower, not just
	// score higher.
	lowRetention := p.WeightedScore(low, now) / low.Importance
	highRetention := p.WeightedScore(high, now) / high.Importance
	if highRetention <= lowRetention {
		t.Errorf("importance must slow decay: retention %v vs %v", highRetention, lowRetention)
	}

	// Access count compounds into the half-life too.
	accessed := Entry{Importance: 1, CreatedAt: now.Add(-age), AccessCount: 20}
	accessedRetention := p.WeightedScore(accessed, now) / accessed.Importance
	if accessedRetention <= lowRetention {
		t.Errorf("access count must slow decay: retention %v vs %v", accessedRetention, lowRetention)
	}
}

func TestWeightedScoreRecencyBonus(t *testing.T) {
	p := DefaultDecayParams()
	now := time.Now()

	cold := Entry{Importance: 5, CreatedAt: now.Add(-48 * time.Hour), LastAccess: now.Add(-47 * time.Hour)}
	warm := Entry{Importance: 5, CreatedAt: now.Add(-48 * time.Hour), LastAccess: now.Add(-time.Hour)}
	// Identical except for last access: only warm is inside the window,
	// and the access-count term is equal, so the bonus is the whole gap.
	if p.WeightedScore(warm, now) <= p.WeightedScore(cold, now) {
		t.Error("expected recency bonus for recently accessed entry")
	}
}

func TestPruneDropsLowestScores(t *testing.T) {
	s, _ := newTestStore(t, WithMaxMemories(10))
	ctx := context.Background()

	// Two throwaway memories, then fill with important ones. The 10th
	// insert crosses the 90% trigger and prunes down to 8.
	s.Ingest(ctx, "kawa notatka 1", 0)
	s.Ingest(ctx, "kawa notatka 2", 1)
	for i := 0; i < 8; i++ {
		s.Ingest(ctx, fmt.Sprintf("kawa ważna notatka %d", i), 8)
	}

	if got := s.Len(); got != 8 {
		t.Fatalf("expected prune down to 8 entries, got %d", got)
	}
	results, err := s.Search(ctx, "kawa", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Entry.Importance < 8 {
			t.Errorf("low-importance entry survived prune: %q", r.Entry.Text)
		}
	}
}

func TestPruneRateLimited(t *testing.T) {
	s, now := newTestStore(t, WithMaxMemories(10))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.Ingest(ctx, fmt.Sprintf("kawa notatka %d", i), 5)
	}
	if got := s.Len(); got != 8 {
		t.Fatalf("expected first prune to 8, got %d", got)
	}

	// Further insertions within the hour must not prune again.
	for i := 0; i < 4; i++ {
		s.Ingest(ctx, fmt.Sprintf("pies notatka %d", i), 5)
	}
	if got := s.Len(); got != 12 {
		t.Fatalf("expected prune rate-limited, got %d entries", got)
	}

	*now = now.Add(2 * time.Hour)
	s.Ingest(ctx, "kawa po godzinie", 5)
	if got := s.Len(); got != 8 {
		t.Errorf("expected prune after interval, got %d entries", got)
	}
}

type fakeScorerDispatcher struct {
	content string
	err     error
}

func (d *fakeScorerDispatcher) ChatWithFallback(ctx context.Context, req llm.CompletionRequest, opts selector.Options) selector.Result {
	if d.err != nil {
		return selector.Result{Err: d.err}
	}
	return selector.Result{Response: llm.CompletionResponse{Content: d.content}}
}

func TestImportanceScorer(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
		want    float64
	}{
		{"parsed", `{"waznosc": 7}`, nil, 7},
		{"clamped high", `{"waznosc": 15}`, nil, 10},
		{"clamped low", `{"waznosc": -2}`, nil, 0},
		{"unparseable", "nie wiem", nil, DefaultImportance},
		{"provider failure", "", errors.New("down"), DefaultImportance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewImportanceScorer(&fakeScorerDispatcher{content: tt.content, err: tt.err}, nil)
			if got := sc.Score(context.Background(), "mam alergię na orzechy"); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}
