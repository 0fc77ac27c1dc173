package agents

import (
	"context"
	"fmt"

	"github.com/mwrobel/domo/internal/nlu"
)

// Summarizer produces a spending report from the stored purchases.
type Summarizer interface {
	SpendingSummary(ctx context.Context, entities map[string]nlu.Value) (string, error)
}

// SummaryAgent answers spending-summary questions straight from the
// database, no model call involved.
type SummaryAgent struct {
	summarizer Summarizer
}

func NewSummaryAgent(s Summarizer) *SummaryAgent {
	return &SummaryAgent{summarizer: s}
}

func (a *SummaryAgent) Name() string { return "summary" }

func (a *SummaryAgent) Process(ctx context.Context, req Request) (Response, error) {
	text, err := a.summarizer.SpendingSummary(ctx, req.Intent.Entities)
	if err != nil {
		return Response{}, fmt.Errorf("spending summary: %w", err)
	}
	return Response{
		Success:  true,
		Text:     text,
		Severity: SeverityInfo,
	}, nil
}
