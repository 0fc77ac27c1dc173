// Package session holds per-conversation state: bounded short-term contexts
// with LRU eviction, message history and the active clarification state.
package session

import (
	"sync"
	"time"

	"github.com/mwrobel/domo/internal/locator"
	"github.com/mwrobel/domo/internal/nlu"
)

// Message is one entry of a session's ordered history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ClarificationState is the persisted half of the disambiguation protocol:
// the original command's interpretation plus the candidates the user was
// asked to choose between. At most one per session; consumed on the next
// message.
type ClarificationState struct {
	Intent     string
	Entities   map[string]nlu.Value
	Candidates []locator.Candidate
	Awaiting   bool
}

// Session is one conversation's state. Owned exclusively by the Manager;
// mutate it only inside Manager.WithSession so concurrent requests on the
// same session serialize.
type Session struct {
	ID            string
	History       []Message
	Clarification *ClarificationState
	AgentState    map[string]any
	CreatedAt     time.Time
	LastUpdated   time.Time

	mu sync.Mutex
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:          id,
		AgentState:  make(map[string]any),
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// AddMessage appends to the session's history.
func (s *Session) AddMessage(role, content string, now time.Time) {
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: now})
	s.LastUpdated = now
}

// BeginClarification records a pending disambiguation. The invariant holds:
// awaiting is true iff candidates are present and unresolved.
func (s *Session) BeginClarification(intent string, entities map[string]nlu.Value, candidates []locator.Candidate) {
	s.Clarification = &ClarificationState{
		Intent:     intent,
		Entities:   entities,
		Candidates: candidates,
		Awaiting:   true,
	}
}

// TakeClarification consumes the pending clarification state, clearing it
// regardless of how resolution turns out.
func (s *Session) TakeClarification() *ClarificationState {
	c := s.Clarification
	s.Clarification = nil
	return c
}

// AwaitingClarification reports whether the session waits for the user to
// pick a candidate.
func (s *Session) AwaitingClarification() bool {
	return s.Clarification != nil && s.Clarification.Awaiting
}
