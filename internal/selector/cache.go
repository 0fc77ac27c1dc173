package selector

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mwrobel/domo/internal/llm"
)

// responseCache short-circuits repeated identical non-streaming requests.
// Bounded size with oldest-entry eviction and a fixed TTL.
type responseCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	response llm.CompletionResponse
	storedAt time.Time
}

func newResponseCache(maxSize int, ttl time.Duration) *responseCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &responseCache{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// cacheKey derives a stable key from backend name, messages and options.
func cacheKey(backend string, req llm.CompletionRequest) string {
	var sb strings.Builder
	sb.WriteString(backend)
	for _, m := range req.Messages {
		fmt.Fprintf(&sb, "|%s:%s", m.Role, m.Content)
	}
	fmt.Fprintf(&sb, "|max=%d|temp=%.3f|json=%t", req.MaxTokens, req.Temperature, req.JSONMode)
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func (c *responseCache) get(key string) (llm.CompletionResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return llm.CompletionResponse{}, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return llm.CompletionResponse{}, false
	}
	return e.response, true
}

func (c *responseCache) put(key string, resp llm.CompletionResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{response: resp, storedAt: c.now()}
}

// evictLocked drops expired entries first, then the oldest entry if still full.
func (c *responseCache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
