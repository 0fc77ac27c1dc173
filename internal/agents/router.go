package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mwrobel/domo/internal/breaker"
)

// User-facing failure texts.
const (
	msgUnavailable = "Usługa jest chwilowo niedostępna. Spróbuj ponownie za chwilę."
	msgFailed      = "Coś poszło nie tak. Spróbuj ponownie."
)

// Router maps intent types to registered agents. Dispatch goes through one
// circuit breaker shared by the whole router: a persistently failing
// dependency trips dispatch for every intent on this router, trading
// isolation for a single unavailability signal.
type Router struct {
	mu       sync.RWMutex
	agents   map[string]Agent
	fallback Agent
	breaker  *breaker.Breaker
	logger   *slog.Logger
}

// NewRouter creates a router with the given fallback agent for unmapped
// intent types.
func NewRouter(fallback Agent, br *breaker.Breaker, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		agents:   make(map[string]Agent),
		fallback: fallback,
		breaker:  br,
		logger:   logger,
	}
}

// Register maps an intent type to an agent.
func (r *Router) Register(intentType string, a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[intentType] = a
}

func (r *Router) lookup(intentType string) Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.agents[intentType]; ok {
		return a
	}
	return r.fallback
}

// Route dispatches the request to the agent registered for its intent,
// falling back to the general agent for unmapped types. Agent errors,
// panics and breaker rejections all come back as a failed Response; Route
// never returns an error or lets a panic escape.
func (r *Router) Route(ctx context.Context, req Request) Response {
	agent := r.lookup(req.Intent.Type)
	if agent == nil {
		return Response{
			Success:  false,
			Text:     msgFailed,
			Error:    fmt.Sprintf("no agent for intent type %q", req.Intent.Type),
			Severity: SeverityError,
		}
	}

	var resp Response
	err := r.breaker.Call(func() (callErr error) {
		defer func() {
			if rec := recover(); rec != nil {
				callErr = fmt.Errorf("agent %s panicked: %v", agent.Name(), rec)
			}
		}()
		resp, callErr = agent.Process(ctx, req)
		return callErr
	})

	switch {
	case errors.Is(err, breaker.ErrOpen):
		return Response{
			Success:  false,
			Text:     msgUnavailable,
			Error:    err.Error(),
			Severity: SeverityWarning,
		}
	case err != nil:
		r.logger.Error("agent dispatch failed", "agent", agent.Name(), "intent", req.Intent.Type, "error", err)
		return Response{
			Success:  false,
			Text:     msgFailed,
			Error:    err.Error(),
			Severity: SeverityError,
		}
	}
	return resp
}
