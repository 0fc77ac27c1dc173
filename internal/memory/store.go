package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/mwrobel/domo/internal/embeddings"
)

const collectionName = "memories"

const (
	// DefaultMaxMemories bounds the store before pruning kicks in.
	DefaultMaxMemories = 1000
	// DefaultMinSimilarity filters retrieval candidates.
	DefaultMinSimilarity = 0.7
	// Pruning triggers above this share of capacity and trims down to
	// pruneTargetRatio of it, lowest weighted score first.
	pruneTriggerRatio = 0.9
	pruneTargetRatio  = 0.8
	// pruneInterval rate-limits pruning regardless of insertion volume.
	pruneInterval = time.Hour
)

// Scorer rates a text's importance in [0,10].
type Scorer interface {
	Score(ctx context.Context, text string) float64
}

// Store is the long-term memory store: entries live in memory, with a
// chromem-go collection as the similarity index over their embeddings.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	scorer     Scorer
	params     DecayParams

	minSimilarity float32
	maxMemories   int
	lastPrune     time.Time

	logger *slog.Logger
	now    func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithScorer enables LLM importance estimation for unscored entries.
func WithScorer(s Scorer) StoreOption {
	return func(st *Store) { st.scorer = s }
}

// WithMaxMemories overrides the capacity bound.
func WithMaxMemories(n int) StoreOption {
	return func(st *Store) {
		if n > 0 {
			st.maxMemories = n
		}
	}
}

// WithMinSimilarity overrides the retrieval similarity threshold.
func WithMinSimilarity(v float32) StoreOption {
	return func(st *Store) { st.minSimilarity = v }
}

// WithDecayParams overrides the decay tuning.
func WithDecayParams(p DecayParams) StoreOption {
	return func(st *Store) { st.params = p }
}

// WithStoreLogger sets the store's logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(st *Store) { st.logger = l }
}

// WithStoreClock overrides the store's time source. Used in tests.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(st *Store) { st.now = now }
}

// NewStore creates a long-term memory store over the given embedder.
func NewStore(embedder embeddings.Embedder, opts ...StoreOption) (*Store, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("creating memory collection: %w", err)
	}

	s := &Store{
		entries:       make(map[string]*Entry),
		db:            db,
		collection:    col,
		embedder:      embedder,
		params:        DefaultDecayParams(),
		minSimilarity: DefaultMinSimilarity,
		maxMemories:   DefaultMaxMemories,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Ingest embeds and stores one utterance. A negative importance asks the
// store to estimate it; without a scorer the default applies.
func (s *Store) Ingest(ctx context.Context, text string, importance float64) (Entry, error) {
	if importance < 0 {
		if s.scorer != nil {
			importance = s.scorer.Score(ctx, text)
		} else {
			importance = DefaultImportance
		}
	}
	importance = clampImportance(importance)

	vec, err := embeddings.EmbedOne(ctx, s.embedder, text)
	if err != nil {
		return Entry{}, fmt.Errorf("embedding memory: %w", err)
	}

	entry := Entry{
		ID:         uuid.NewString(),
		Text:       text,
		Embedding:  vec,
		Importance: importance,
		CreatedAt:  s.now(),
	}

	if err := s.collection.AddDocuments(ctx, []chromem.Document{{
		ID:        entry.ID,
		Content:   text,
		Embedding: vec,
	}}, 1); err != nil {
		return Entry{}, fmt.Errorf("indexing memory: %w", err)
	}

	s.mu.Lock()
	s.entries[entry.ID] = &entry
	s.mu.Unlock()

	s.maybePrune(ctx)
	return entry, nil
}

// Search retrieves up to limit memories relevant to the query: similarity
// filtered at the threshold, then re-ranked by the decayed weighted score.
// Returned entries get their access bookkeeping bumped.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	// Over-fetch so the re-rank has candidates beyond the first page.
	fetch := limit * 3
	if fetch > count {
		fetch = count
	}

	hits, err := s.collection.Query(ctx, query, fetch, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}

	now := s.now()
	s.mu.Lock()
	var results []Result
	for _, h := range hits {
		if h.Similarity < s.minSimilarity {
			continue
		}
		entry, ok := s.entries[h.ID]
		if !ok {
			continue
		}
		results = append(results, Result{
			Entry:      *entry,
			Similarity: h.Similarity,
			Score:      s.params.WeightedScore(*entry, now),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	// Retrieval is the only mutation entries ever see.
	for i := range results {
		entry := s.entries[results[i].Entry.ID]
		entry.AccessCount++
		entry.LastAccess = now
		results[i].Entry = *entry
	}
	s.mu.Unlock()

	return results, nil
}

// maybePrune drops the lowest-weighted entries once the store crosses the
// trigger ratio, down to the target capacity. Runs at most once per
// pruneInterval of wall clock.
func (s *Store) maybePrune(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	trigger := int(float64(s.maxMemories) * pruneTriggerRatio)
	if len(s.entries) <= trigger || now.Sub(s.lastPrune) < pruneInterval {
		s.mu.Unlock()
		return
	}
	s.lastPrune = now

	type scored struct {
		id    string
		score float64
	}
	all := make([]scored, 0, len(s.entries))
	for id, e := range s.entries {
		all = append(all, scored{id: id, score: s.params.WeightedScore(*e, now)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score < all[j].score })

	target := int(float64(s.maxMemories) * pruneTargetRatio)
	toRemove := len(all) - target
	if toRemove <= 0 {
		s.mu.Unlock()
		return
	}
	ids := make([]string, 0, toRemove)
	for _, sc := range all[:toRemove] {
		ids = append(ids, sc.id)
		delete(s.entries, sc.id)
	}
	remaining := len(s.entries)
	s.mu.Unlock()

	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		s.logger.Warn("pruning memory index failed", "error", err)
	}
	s.logger.Info("pruned long-term memory", "removed", len(ids), "remaining", remaining)
}
