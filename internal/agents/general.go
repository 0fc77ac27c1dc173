package agents

import (
	"context"
	"fmt"

	"github.com/mwrobel/domo/internal/llm"
	"github.com/mwrobel/domo/internal/selector"
)

const generalSystemPrompt = `Jesteś pomocnym asystentem prowadzącym swobodne konwersacje.
Twoim zadaniem jest udzielanie dokładnych, pomocnych i aktualnych odpowiedzi na pytania użytkownika.
Odpowiadaj zwięźle i w języku polskim, chyba że użytkownik prosi o inną wersję językową.`

// GeneralAgent handles free-form conversation. Retrieved background (long
// term memories, recent history) arrives in Request.Context and is injected
// as a second system message so the model treats it as reference material
// rather than part of the user's question.
type GeneralAgent struct {
	dispatcher Dispatcher
}

func NewGeneralAgent(d Dispatcher) *GeneralAgent {
	return &GeneralAgent{dispatcher: d}
}

func (a *GeneralAgent) Name() string { return "general" }

func (a *GeneralAgent) Process(ctx context.Context, req Request) (Response, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: generalSystemPrompt},
	}
	if req.Context != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf("DOSTĘPNE INFORMACJE:\n%s\n\nUżyj tych informacji do udzielenia dokładnej odpowiedzi.", req.Context),
		})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Command})

	res := a.dispatcher.ChatWithFallback(ctx, llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
	}, selector.Options{})
	if res.Err != nil {
		return Response{}, fmt.Errorf("general agent completion: %w", res.Err)
	}

	return Response{
		Success: true,
		Text:    res.Response.Content,
		Data: map[string]any{
			"backend":    res.Backend,
			"complexity": res.Complexity.String(),
		},
		Severity: SeverityInfo,
	}, nil
}
