// Package clarify implements the disambiguation protocol: turning multiple
// candidate records into an enumerated question and reconciling the user's
// reply with exactly one candidate.
package clarify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mwrobel/domo/internal/llm"
	"github.com/mwrobel/domo/internal/locator"
	"github.com/mwrobel/domo/internal/selector"
)

// User-facing messages of the clarification flow.
const (
	MsgNotFound  = "Niestety, nie znalazłem niczego pasującego do Twojego opisu."
	MsgDone      = "Gotowe, operacja została wykonana na wybranym przez Ciebie obiekcie."
	MsgCancelled = "Niestety, nie udało mi się zrozumieć Twojego wyboru. Zacznijmy od nowa."
)

const resolverSystemPrompt = "Jesteś precyzyjnym systemem AI. Zawsze zwracaj tylko i wyłącznie obiekt JSON."

// Question builds the clarifying question: a 1-based enumeration of the
// candidate labels, in locator order. Deterministic for fixed input.
func Question(candidates []locator.Candidate) string {
	if len(candidates) == 0 {
		return "Nie znalazłem żadnych pasujących elementów. Czy możesz podać więcej szczegółów?"
	}
	var sb strings.Builder
	sb.WriteString("Znalazłem kilka pasujących opcji. Proszę, wybierz jedną:\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Label)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func resolverPrompt(candidates []locator.Candidate, userReply string) string {
	return fmt.Sprintf(`Twoim jedynym zadaniem jest analiza odpowiedzi użytkownika i ścisłe dopasowanie jej do jednej z przedstawionych mu wcześniej opcji. Zwróć obiekt JSON z jednym kluczem: 'wybrany_indeks'. Indeks jest numerem opcji z listy (zaczynając od 1). Jeśli nie jesteś w stanie jednoznacznie dopasować odpowiedzi, zwróć null. Nie dodawaj żadnych wyjaśnień ani tekstu poza JSON-em.

### PRZYKŁAD
Kontekst:
1. Paragon ze sklepu 'Lidl' z dnia 2025-06-11.
2. Paragon ze sklepu 'Żabka' z dnia 2025-06-13.
Odpowiedź użytkownika do analizy:
"ten pierwszy, z lidla"

Ty:
{"wybrany_indeks": 1}
---
### ZADANIE DO WYKONANIA
Kontekst:
%s

Odpowiedź użytkownika do analizy:
"%s"

Ty:
`, Question(candidates), userReply)
}

// Dispatcher is the slice of the model selector the resolver needs.
type Dispatcher interface {
	ChatWithFallback(ctx context.Context, req llm.CompletionRequest, opts selector.Options) selector.Result
}

// Resolver reconciles a clarification reply with one candidate.
type Resolver struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewResolver creates a resolver over the given dispatcher.
func NewResolver(d Dispatcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{dispatcher: d, logger: logger}
}

// Resolve maps the user's reply to a 0-based candidate index. Any failure
// to resolve unambiguously (null, out of range, unparseable output,
// provider error) returns ok=false; the caller must treat that as a
// terminal cancellation, never a re-prompt.
func (r *Resolver) Resolve(ctx context.Context, candidates []locator.Candidate, userReply string) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}

	res := r.dispatcher.ChatWithFallback(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: resolverSystemPrompt},
			{Role: llm.RoleUser, Content: resolverPrompt(candidates, userReply)},
		},
		Temperature: 0,
		JSONMode:    true,
	}, selector.Options{})
	if res.Err != nil {
		r.logger.Warn("clarification resolution failed", "error", res.Err)
		return 0, false
	}

	raw := strings.TrimSpace(res.Response.Content)
	if raw == "null" {
		return 0, false
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return 0, false
	}

	var parsed struct {
		Index *float64 `json:"wybrany_indeks"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return 0, false
	}
	if parsed.Index == nil {
		return 0, false
	}
	idx := int(*parsed.Index)
	if float64(idx) != *parsed.Index || idx < 1 || idx > len(candidates) {
		return 0, false
	}
	return idx - 1, true
}
