// Package agents defines capability agents and the router that maps a
// resolved intent to one of them behind a circuit breaker.
package agents

import (
	"context"

	"github.com/mwrobel/domo/internal/llm"
	"github.com/mwrobel/domo/internal/nlu"
	"github.com/mwrobel/domo/internal/selector"
)

// Severity tags a failed response for the caller's retry policy.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Request is the input to a capability agent.
type Request struct {
	SessionID string
	Command   string
	Intent    nlu.IntentData
	// Context carries retrieved long-term memories and other background
	// the agent may weave into its answer.
	Context string
}

// Response is an agent's structured result. Success is false for any
// failure; Error and Severity describe it for logs and retry decisions.
type Response struct {
	Success  bool           `json:"success"`
	Text     string         `json:"text,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Severity Severity       `json:"severity,omitempty"`
}

// Agent is one unit of specialized behavior.
type Agent interface {
	Name() string
	Process(ctx context.Context, req Request) (Response, error)
}

// Dispatcher is the slice of the model selector conversational agents need.
type Dispatcher interface {
	ChatWithFallback(ctx context.Context, req llm.CompletionRequest, opts selector.Options) selector.Result
}
