package selector

import (
	"sync"
	"time"
)

// UsageStats holds running counters for one backend. Updated on every call;
// used for observability and tie-breaking, never for correctness.
type UsageStats struct {
	mu            sync.Mutex
	totalRequests int64
	successes     int64
	failures      int64
	totalLatency  time.Duration
	lastError     string
	lastUsed      time.Time
}

// StatsSnapshot is a point-in-time copy of a backend's counters.
type StatsSnapshot struct {
	TotalRequests  int64         `json:"total_requests"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	SuccessRate    float64       `json:"success_rate"`
	AverageLatency time.Duration `json:"average_latency"`
	LastError      string        `json:"last_error,omitempty"`
	LastUsed       time.Time     `json:"last_used"`
}

// RecordSuccess accounts one successful call and its latency.
func (s *UsageStats) RecordSuccess(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
	s.successes++
	s.totalLatency += latency
	s.lastUsed = time.Now()
}

// RecordFailure accounts one failed call.
func (s *UsageStats) RecordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
	s.failures++
	if err != nil {
		s.lastError = err.Error()
	}
	s.lastUsed = time.Now()
}

// Snapshot returns a copy of the current counters.
func (s *UsageStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		TotalRequests: s.totalRequests,
		Successes:     s.successes,
		Failures:      s.failures,
		LastError:     s.lastError,
		LastUsed:      s.lastUsed,
		SuccessRate:   1.0,
	}
	if s.totalRequests > 0 {
		snap.SuccessRate = float64(s.successes) / float64(s.totalRequests)
	}
	if s.successes > 0 {
		snap.AverageLatency = s.totalLatency / time.Duration(s.successes)
	}
	return snap
}
