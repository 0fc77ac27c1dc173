// Package orchestrator wires the interpretation pipeline together: intent
// recognition, candidate search, disambiguation, agent dispatch and memory.
// One call handles one user message and always produces a user-facing reply;
// internal failures are logged and collapsed into a generic Polish message.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mwrobel/domo/internal/agents"
	"github.com/mwrobel/domo/internal/clarify"
	"github.com/mwrobel/domo/internal/locator"
	"github.com/mwrobel/domo/internal/memory"
	"github.com/mwrobel/domo/internal/nlu"
	"github.com/mwrobel/domo/internal/session"
)

// User-facing replies outside the clarification flow.
const (
	MsgUnknown    = "Przepraszam, nie potrafię pomóc w tej kwestii. Skupmy się na wydatkach."
	MsgAdded      = "Pomyślnie dodałem nowy paragon i jego produkty."
	MsgAddFailed  = "Wystąpił błąd podczas dodawania paragonu."
	MsgActionDone = "Gotowe, operacja wykonana."
	MsgFailed     = "Coś poszło nie tak. Spróbuj ponownie."
)

const defaultStepTimeout = 30 * time.Second

// Interpreter resolves a raw command into intent and entities.
type Interpreter interface {
	Interpret(ctx context.Context, text string) nlu.IntentData
}

// Resolver maps a clarification reply onto the remembered candidate list.
type Resolver interface {
	Resolve(ctx context.Context, candidates []locator.Candidate, userReply string) (int, bool)
}

// Router dispatches conversational intents to capability agents.
type Router interface {
	Route(ctx context.Context, req agents.Request) agents.Response
}

// Memories is the long-term memory surface the pipeline uses.
type Memories interface {
	Ingest(ctx context.Context, text string, importance float64) (memory.Entry, error)
	Search(ctx context.Context, query string, limit int) ([]memory.Result, error)
}

// History persists conversation turns durably, alongside the in-memory
// session. Best effort: persistence failures never fail the request.
type History interface {
	EnsureSession(ctx context.Context, sessionID, userID string) error
	AddMessage(ctx context.Context, sessionID, role, content string) error
}

// Reply is the outcome of one handled message.
type Reply struct {
	Text string `json:"text"`
	// Intent is the recognized intent type, or "" inside the
	// clarification flow.
	Intent string `json:"intent,omitempty"`
	// Clarifying is true when Text is a question the user must answer
	// before the original command proceeds.
	Clarifying bool `json:"clarifying,omitempty"`
}

// Orchestrator runs the message pipeline. Memory and history are optional;
// a nil value disables that concern.
type Orchestrator struct {
	interp   Interpreter
	loc      locator.Locator
	resolver Resolver
	router   Router
	sessions *session.Manager
	memories Memories
	history  History

	stepTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Orchestrator)

// WithStepTimeout bounds each external call (model, database, memory).
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stepTimeout = d }
}

func WithMemories(m Memories) Option {
	return func(o *Orchestrator) { o.memories = m }
}

func WithHistory(h History) Option {
	return func(o *Orchestrator) { o.history = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(interp Interpreter, loc locator.Locator, resolver Resolver, router Router, sessions *session.Manager, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		interp:      interp,
		loc:         loc,
		resolver:    resolver,
		router:      router,
		sessions:    sessions,
		stepTimeout: defaultStepTimeout,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle processes one user message within its session. Concurrent calls
// for the same session serialize; the second caller observes the state the
// first one committed, so a pending clarification is resolved exactly once.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, command string) (reply Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("pipeline panicked", "session", sessionID, "panic", rec)
			reply = Reply{Text: MsgFailed}
		}
	}()

	command = strings.TrimSpace(command)
	err := o.sessions.WithSession(sessionID, func(s *session.Session) error {
		s.AddMessage("user", command, o.now())
		reply = o.process(ctx, s, command)
		s.AddMessage("assistant", reply.Text, o.now())
		return nil
	})
	if err != nil {
		o.logger.Error("session handling failed", "session", sessionID, "error", err)
		reply = Reply{Text: MsgFailed}
	}

	o.persistTurn(ctx, sessionID, command, reply.Text)
	return reply
}

func (o *Orchestrator) process(ctx context.Context, s *session.Session, command string) Reply {
	if s.AwaitingClarification() {
		return o.finishClarification(ctx, s, command)
	}

	sctx, cancel := o.step(ctx)
	intent := o.interp.Interpret(sctx, command)
	cancel()

	if intent.IsUnknown() {
		return Reply{Text: MsgUnknown, Intent: nlu.IntentUnknown}
	}

	switch intent.Type {
	case nlu.IntentAddPurchase:
		return o.addPurchase(ctx, intent)
	case nlu.IntentUpdateItem, nlu.IntentDeleteItem, nlu.IntentUpdatePurchase, nlu.IntentDeletePurchase:
		return o.locateAndAct(ctx, s, intent)
	default:
		return o.dispatch(ctx, s, command, intent)
	}
}

// finishClarification consumes the pending candidate list no matter how
// resolution turns out; a second ambiguous command starts from scratch.
func (o *Orchestrator) finishClarification(ctx context.Context, s *session.Session, reply string) Reply {
	state := s.TakeClarification()

	sctx, cancel := o.step(ctx)
	idx, ok := o.resolver.Resolve(sctx, state.Candidates, reply)
	cancel()
	if !ok {
		return Reply{Text: clarify.MsgCancelled}
	}

	sctx, cancel = o.step(ctx)
	err := o.loc.ExecuteAction(sctx, state.Intent, state.Candidates[idx], state.Entities)
	cancel()
	if err != nil {
		o.logger.Error("clarified action failed", "session", s.ID, "intent", state.Intent, "target", state.Candidates[idx].ID, "error", err)
		return Reply{Text: MsgFailed}
	}
	return Reply{Text: clarify.MsgDone}
}

func (o *Orchestrator) addPurchase(ctx context.Context, intent nlu.IntentData) Reply {
	sctx, cancel := o.step(ctx)
	defer cancel()
	if err := o.loc.CreatePurchase(sctx, intent.Entities); err != nil {
		o.logger.Error("create purchase failed", "error", err)
		return Reply{Text: MsgAddFailed, Intent: intent.Type}
	}
	return Reply{Text: MsgAdded, Intent: intent.Type}
}

func (o *Orchestrator) locateAndAct(ctx context.Context, s *session.Session, intent nlu.IntentData) Reply {
	sctx, cancel := o.step(ctx)
	candidates, err := o.loc.FindCandidates(sctx, intent.Type, intent.Entities)
	cancel()
	if err != nil {
		o.logger.Error("candidate search failed", "intent", intent.Type, "error", err)
		return Reply{Text: MsgFailed, Intent: intent.Type}
	}

	switch len(candidates) {
	case 0:
		return Reply{Text: clarify.MsgNotFound, Intent: intent.Type}
	case 1:
		sctx, cancel := o.step(ctx)
		defer cancel()
		if err := o.loc.ExecuteAction(sctx, intent.Type, candidates[0], intent.Entities); err != nil {
			o.logger.Error("action failed", "intent", intent.Type, "target", candidates[0].ID, "error", err)
			return Reply{Text: MsgFailed, Intent: intent.Type}
		}
		return Reply{Text: MsgActionDone, Intent: intent.Type}
	default:
		s.BeginClarification(intent.Type, intent.Entities, candidates)
		return Reply{Text: clarify.Question(candidates), Intent: intent.Type, Clarifying: true}
	}
}

// dispatch routes conversational intents (chat, weather, summary) through
// the agent router, enriched with retrieved long-term memories.
func (o *Orchestrator) dispatch(ctx context.Context, s *session.Session, command string, intent nlu.IntentData) Reply {
	req := agents.Request{
		SessionID: s.ID,
		Command:   command,
		Intent:    intent,
		Context:   o.recall(ctx, command),
	}

	sctx, cancel := o.step(ctx)
	resp := o.router.Route(sctx, req)
	cancel()

	if intent.Type == nlu.IntentChat {
		o.remember(ctx, command)
	}
	if resp.Text == "" {
		return Reply{Text: MsgFailed, Intent: intent.Type}
	}
	return Reply{Text: resp.Text, Intent: intent.Type}
}

// recall returns the top matching long-term memories as agent context.
func (o *Orchestrator) recall(ctx context.Context, query string) string {
	if o.memories == nil {
		return ""
	}
	sctx, cancel := o.step(ctx)
	defer cancel()
	results, err := o.memories.Search(sctx, query, 3)
	if err != nil {
		o.logger.Warn("memory search failed", "error", err)
		return ""
	}
	if len(results) == 0 {
		return ""
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, "- "+r.Entry.Text)
	}
	return "Zapamiętane informacje o użytkowniku:\n" + strings.Join(lines, "\n")
}

// remember stores a conversational turn; importance comes from the scorer.
func (o *Orchestrator) remember(ctx context.Context, text string) {
	if o.memories == nil {
		return
	}
	sctx, cancel := o.step(ctx)
	defer cancel()
	if _, err := o.memories.Ingest(sctx, text, -1); err != nil {
		o.logger.Warn("memory ingest failed", "error", err)
	}
}

func (o *Orchestrator) persistTurn(ctx context.Context, sessionID, command, reply string) {
	if o.history == nil {
		return
	}
	sctx, cancel := o.step(ctx)
	defer cancel()
	if err := o.history.EnsureSession(sctx, sessionID, ""); err != nil {
		o.logger.Warn("session persistence failed", "session", sessionID, "error", err)
		return
	}
	if err := o.history.AddMessage(sctx, sessionID, "user", command); err != nil {
		o.logger.Warn("message persistence failed", "session", sessionID, "error", err)
		return
	}
	if err := o.history.AddMessage(sctx, sessionID, "assistant", reply); err != nil {
		o.logger.Warn("message persistence failed", "session", sessionID, "error", err)
	}
}

func (o *Orchestrator) step(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.stepTimeout)
}
