// Package breaker implements a circuit breaker that protects downstream
// agents from repeated calls to a failing dependency.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the current state of a circuit breaker.
type State int

const (
	// Closed is the normal state: calls pass through.
	Closed State = iota
	// Open means the breaker rejects calls without invoking the operation.
	Open
	// HalfOpen admits a single probe call after the reset timeout elapsed.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker rejects a call without invoking it.
var ErrOpen = errors.New("breaker: circuit open")

// Breaker is a circuit breaker. It counts consecutive failures and, once
// the threshold is reached, rejects calls until the reset timeout elapses.
// The transition from Open to HalfOpen is lazy: it happens on the next
// call after the timeout, not on a background timer.
type Breaker struct {
	failMax      int
	resetTimeout time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock overrides the breaker's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a circuit breaker that opens after failMax consecutive
// failures and allows a probe call after resetTimeout.
func New(failMax int, resetTimeout time.Duration, opts ...Option) *Breaker {
	if failMax < 1 {
		failMax = 1
	}
	b := &Breaker{
		failMax:      failMax,
		resetTimeout: resetTimeout,
		state:        Closed,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the breaker's current state, applying the lazy
// Open -> HalfOpen transition if the reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// currentState must be called with b.mu held.
func (b *Breaker) currentState() State {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.resetTimeout {
		b.state = HalfOpen
	}
	return b.state
}

// Call invokes fn under the breaker's protection. If the breaker is open
// it returns ErrOpen without invoking fn. Half-open admits exactly one
// in-flight probe; concurrent callers get ErrOpen until it settles. A
// failed probe re-opens the breaker immediately; a success closes it and
// resets the failure count. State accounting is atomic with respect to
// concurrent callers, though fn itself runs outside the lock.
func (b *Breaker) Call(fn func() error) error {
	b.mu.Lock()
	probe := false
	switch b.currentState() {
	case Open:
		b.mu.Unlock()
		return ErrOpen
	case HalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
		probe = true
	case Closed:
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}
	if err != nil {
		b.failures++
		if b.state == HalfOpen || b.failures >= b.failMax {
			b.state = Open
			b.openedAt = b.now()
		}
		return err
	}
	b.failures = 0
	b.state = Closed
	return nil
}
