package session

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultMaxContexts bounds the number of live sessions.
	DefaultMaxContexts = 1000
	// DefaultCleanupThreshold is the size Cleanup trims down to.
	DefaultCleanupThreshold = 800
)

// Manager is the bounded short-term session store. Access moves a session
// to the most-recently-used position; inserting past the limit evicts the
// least-recently-used session. Get on a missing key creates a fresh session.
type Manager struct {
	mu          sync.Mutex
	maxContexts int
	cleanupAt   int
	order       *list.List // front = most recently used, values are *Session
	elems       map[string]*list.Element
	now         func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the manager's time source. Used in tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager. Non-positive limits fall back to
// the defaults.
func NewManager(maxContexts, cleanupThreshold int, opts ...ManagerOption) *Manager {
	if maxContexts <= 0 {
		maxContexts = DefaultMaxContexts
	}
	if cleanupThreshold <= 0 || cleanupThreshold > maxContexts {
		cleanupThreshold = maxContexts * DefaultCleanupThreshold / DefaultMaxContexts
		if cleanupThreshold == 0 {
			cleanupThreshold = maxContexts
		}
	}
	m := &Manager{
		maxContexts: maxContexts,
		cleanupAt:   cleanupThreshold,
		order:       list.New(),
		elems:       make(map[string]*list.Element),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the session for id, creating it when missing, and marks it
// most recently used.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m *Manager) getLocked(id string) *Session {
	if elem, ok := m.elems[id]; ok {
		m.order.MoveToFront(elem)
		return elem.Value.(*Session)
	}

	s := newSession(id, m.now())
	m.elems[id] = m.order.PushFront(s)

	// Strict LRU: exceeding the bound evicts exactly the oldest sessions.
	for m.order.Len() > m.maxContexts {
		m.evictOldestLocked()
	}
	return s
}

func (m *Manager) evictOldestLocked() {
	oldest := m.order.Back()
	if oldest == nil {
		return
	}
	m.order.Remove(oldest)
	delete(m.elems, oldest.Value.(*Session).ID)
}

// WithSession runs fn with the session locked. Concurrent calls for the
// same id serialize, so clarification-state reads and writes inside fn are
// linearizable per session.
func (m *Manager) WithSession(id string, fn func(*Session) error) error {
	s := m.Get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// Has reports whether a session currently exists, without creating one or
// touching LRU order.
func (m *Manager) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.elems[id]
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if elem, ok := m.elems[id]; ok {
		m.order.Remove(elem)
		delete(m.elems, id)
	}
}

// Cleanup trims the store down to the cleanup threshold, oldest first.
// Intended for periodic maintenance.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for m.order.Len() > m.cleanupAt {
		m.evictOldestLocked()
		removed++
	}
	return removed
}
