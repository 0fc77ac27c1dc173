package memory

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mwrobel/domo/internal/llm"
	"github.com/mwrobel/domo/internal/nlu"
	"github.com/mwrobel/domo/internal/selector"
)

// DefaultImportance is assumed when scoring is unavailable or fails.
const DefaultImportance = 5.0

const importancePrompt = `Oceń ważność poniższej informacji dla przyszłych rozmów z użytkownikiem w skali od 0 do 10, gdzie 0 oznacza informację bez znaczenia, a 10 informację krytyczną (np. alergie, stałe preferencje). Zwróć tylko i wyłącznie obiekt JSON w formacie {"waznosc": liczba}.`

// Dispatcher is the slice of the model selector the scorer needs.
type Dispatcher interface {
	ChatWithFallback(ctx context.Context, req llm.CompletionRequest, opts selector.Options) selector.Result
}

// ImportanceScorer estimates entry importance with a single LLM call.
type ImportanceScorer struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewImportanceScorer creates a scorer over the given dispatcher.
func NewImportanceScorer(d Dispatcher, logger *slog.Logger) *ImportanceScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportanceScorer{dispatcher: d, logger: logger}
}

// Score rates a text's importance in [0,10]. Failures fall back to
// DefaultImportance, never an error.
func (s *ImportanceScorer) Score(ctx context.Context, text string) float64 {
	res := s.dispatcher.ChatWithFallback(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: importancePrompt},
			{Role: llm.RoleUser, Content: text},
		},
		Temperature: 0,
		JSONMode:    true,
	}, selector.Options{})
	if res.Err != nil {
		s.logger.Warn("importance scoring failed", "error", res.Err)
		return DefaultImportance
	}

	jsonStr, ok := nlu.ExtractJSON(res.Response.Content)
	if !ok {
		return DefaultImportance
	}
	var parsed struct {
		Importance float64 `json:"waznosc"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return DefaultImportance
	}
	return clampImportance(parsed.Importance)
}

func clampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
