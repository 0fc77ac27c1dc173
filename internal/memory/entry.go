// Package memory implements the long-term, importance-weighted conversation
// memory: embedded entries indexed for similarity search, re-ranked by a
// decayed score and pruned under capacity pressure.
package memory

import "time"

// Entry is one long-term memory. Entries are immutable after creation
// except for the access bookkeeping updated on retrieval.
type Entry struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"-"`
	Importance  float64   `json:"importance"` // 0..10
	CreatedAt   time.Time `json:"created_at"`
	AccessCount int       `json:"access_count"`
	LastAccess  time.Time `json:"last_access"`
}

// Result is one retrieval hit: the entry, its raw similarity to the query
// and the decayed weighted score used for ranking.
type Result struct {
	Entry      Entry   `json:"entry"`
	Similarity float32 `json:"similarity"`
	Score      float64 `json:"score"`
}
