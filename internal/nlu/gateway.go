// Package nlu turns free-form user commands into structured intents and
// entity bags via two single-shot LLM calls.
package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mwrobel/domo/internal/llm"
	"github.com/mwrobel/domo/internal/selector"
)

// DefaultConfidenceThreshold is the minimum intent confidence; anything
// below is treated as UNKNOWN.
const DefaultConfidenceThreshold = 0.5

// IntentData is the gateway's output: a classified intent plus its
// extracted entity bag.
type IntentData struct {
	Type       string
	Entities   map[string]Value
	Confidence float64
}

// IsUnknown reports whether the intent should short-circuit the pipeline
// with a "didn't understand" response.
func (d IntentData) IsUnknown() bool { return d.Type == IntentUnknown }

// Dispatcher is the slice of the model selector the gateway needs.
type Dispatcher interface {
	ChatWithFallback(ctx context.Context, req llm.CompletionRequest, opts selector.Options) selector.Result
}

// Gateway extracts intents and entities from user commands.
type Gateway struct {
	dispatcher Dispatcher
	threshold  float64
	logger     *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithConfidenceThreshold overrides the minimum intent confidence.
func WithConfidenceThreshold(t float64) Option {
	return func(g *Gateway) { g.threshold = t }
}

// WithLogger sets the gateway's logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway creates a gateway over the given dispatcher.
func NewGateway(d Dispatcher, opts ...Option) *Gateway {
	g := &Gateway{
		dispatcher: d,
		threshold:  DefaultConfidenceThreshold,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ExtractIntent classifies a command. It never returns an error: provider
// failures, unparseable output and low confidence all collapse to UNKNOWN.
func (g *Gateway) ExtractIntent(ctx context.Context, text string) (string, float64) {
	res := g.dispatcher.ChatWithFallback(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: intentPrompt},
			{Role: llm.RoleUser, Content: text},
		},
		Temperature: 0,
		JSONMode:    true,
	}, selector.Options{})
	if res.Err != nil {
		g.logger.Warn("intent extraction failed", "error", res.Err)
		return IntentUnknown, 0
	}

	jsonStr, ok := ExtractJSON(res.Response.Content)
	if !ok {
		return IntentUnknown, 0
	}
	var parsed struct {
		Intent     string  `json:"intencja"`
		Confidence float64 `json:"pewnosc"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		g.logger.Warn("intent JSON unparseable", "error", err)
		return IntentUnknown, 0
	}
	if parsed.Intent == "" {
		return IntentUnknown, 0
	}
	if parsed.Confidence < g.threshold {
		return IntentUnknown, parsed.Confidence
	}
	return parsed.Intent, parsed.Confidence
}

// ExtractEntities pulls the intent-specific entity bag out of a command.
// Failures yield an empty bag, never an error.
func (g *Gateway) ExtractEntities(ctx context.Context, text, intentType string) map[string]Value {
	res := g.dispatcher.ChatWithFallback(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: entityPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Intencja: %s\nPolecenie: %s", intentType, text)},
		},
		Temperature: 0,
		JSONMode:    true,
	}, selector.Options{})
	if res.Err != nil {
		g.logger.Warn("entity extraction failed", "intent", intentType, "error", res.Err)
		return map[string]Value{}
	}
	return ParseEntities(res.Response.Content)
}

// Interpret runs intent classification followed by entity extraction.
// An UNKNOWN intent skips the entity call.
func (g *Gateway) Interpret(ctx context.Context, text string) IntentData {
	intent, confidence := g.ExtractIntent(ctx, text)
	data := IntentData{Type: intent, Confidence: confidence, Entities: map[string]Value{}}
	if data.IsUnknown() {
		return data
	}
	data.Entities = g.ExtractEntities(ctx, text, intent)
	return data
}
