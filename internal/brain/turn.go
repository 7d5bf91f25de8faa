// Package brain implements the bounded reason-and-act loop that drives one
// agent's turn (spec.md §4.2): assemble model input, issue a single
// completion call, scan for a tool invocation, dispatch it, and repeat
// until the model produces a final answer or the iteration cap is hit.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/provider"
	"github.com/haasonsaas/nexus/internal/skills"
	"github.com/haasonsaas/nexus/internal/storage"
	"github.com/haasonsaas/nexus/pkg/models"
)

// DefaultMaxIterations bounds a turn's model-call count (spec.md §4.2
// "Bound"). A turn that reaches the cap without a final answer fails
// without leaving a dangling assistant message.
const DefaultMaxIterations = 10

// DefaultSessionWindow is how many recent messages are folded into the
// model input alongside recalled memory (spec.md §4.2 step 1).
const DefaultSessionWindow = 40

// Config configures one agent's brain. All fields are set once at agent
// construction and shared across turns.
type Config struct {
	AgentName      string
	Persona        string
	Model          string
	MaxIterations  int
	SessionWindow  int
	MaxTokens      int
	DispatchCtx    *skills.DispatchContext
}

// Brain runs turns for one agent against its own store, recall manager,
// skill catalog, and model provider.
type Brain struct {
	cfg      Config
	store    *storage.Store
	memory   *memory.Manager
	catalog  *skills.Catalog
	provider provider.Provider
	log      *observability.Logger
}

// New builds a brain for one agent. The caller owns the lifetime of every
// dependency passed in (store, memory manager, catalog, provider).
func New(cfg Config, store *storage.Store, mem *memory.Manager, catalog *skills.Catalog, prov provider.Provider, log *observability.Logger) *Brain {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.SessionWindow <= 0 {
		cfg.SessionWindow = DefaultSessionWindow
	}
	return &Brain{cfg: cfg, store: store, memory: mem, catalog: catalog, provider: prov, log: log.Component("brain")}
}

// Result is the outcome of a completed (or failed) turn.
type Result struct {
	FinalResponse string
	Iterations    int
	Failed        bool // hit the iteration cap without a final answer
}

// RunTurn executes one bounded reason-act loop for the given trigger prompt,
// emitting a TurnEvent for each step of spec.md §9's streamed sequence.
// A cancelled ctx stops the loop before any further model call or
// dispatch; only the user message already appended survives (spec.md §5
// "a cancelled turn commits nothing but the user message").
func (b *Brain) RunTurn(ctx context.Context, trig models.Trigger, emit func(models.TurnEvent)) (Result, error) {
	if b.cfg.DispatchCtx != nil {
		b.cfg.DispatchCtx.DelegationDepth = trig.DelegationDepth
	}

	userMsg := &models.Message{Role: models.RoleUser, Content: trig.Prompt}
	if _, err := b.store.AppendTurn(ctx, userMsg); err != nil {
		return Result{}, fmt.Errorf("brain: append user message: %w", err)
	}

	var pending []*models.Message // tool-result messages accumulated this turn, committed together with the final answer

	for iter := 1; iter <= b.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{Iterations: iter - 1}, err
		}

		req, err := b.assembleRequest(ctx, trig, pending)
		if err != nil {
			emit(models.TurnEvent{Type: models.EventError, Error: err.Error()})
			return Result{Iterations: iter}, err
		}

		emit(models.TurnEvent{Type: models.EventThinking})
		raw, err := b.provider.Complete(ctx, req)
		if err != nil {
			emit(models.TurnEvent{Type: models.EventError, Error: err.Error()})
			return Result{Iterations: iter}, fmt.Errorf("brain: model call: %w", err)
		}

		inv, ok := findFirstInvocation(raw)
		if !ok {
			return b.finish(ctx, raw, pending, iter, emit)
		}

		if err := ctx.Err(); err != nil {
			return Result{Iterations: iter - 1}, err
		}

		argsJSON, _ := json.Marshal(inv.Args)
		emit(models.TurnEvent{Type: models.EventSkillInvoke, ToolName: inv.Name, Args: argsJSON})

		obs := b.catalog.Dispatch(ctx, b.cfg.DispatchCtx, inv.Name, inv.Args)

		emit(models.TurnEvent{Type: models.EventSkillResult, ToolName: inv.Name, Content: obs.Text})

		pending = append(pending, &models.Message{
			Role:    models.RoleTool,
			Content: obs.Text,
			Invocation: &models.InvocationMeta{
				ToolName: inv.Name,
				Args:     json.RawMessage(argsJSON),
				IsError:  obs.IsError,
			},
		})
	}

	// Iteration cap reached: commit the user message and every tool
	// observation gathered so far, but no final assistant message
	// (spec.md §4.2 "Bound").
	if len(pending) > 0 {
		if _, err := b.store.AppendTurn(ctx, pending...); err != nil {
			return Result{Iterations: b.cfg.MaxIterations, Failed: true}, fmt.Errorf("brain: commit tool observations: %w", err)
		}
	}
	err := fmt.Errorf("brain: turn exceeded %d iterations without a final answer", b.cfg.MaxIterations)
	emit(models.TurnEvent{Type: models.EventError, Error: err.Error()})
	return Result{Iterations: b.cfg.MaxIterations, Failed: true}, err
}

// finish commits the final answer together with any tool observations
// gathered this turn, handles an [ANNOUNCE] marker, and emits the closing
// response/done events.
func (b *Brain) finish(ctx context.Context, raw string, pending []*models.Message, iter int, emit func(models.TurnEvent)) (Result, error) {
	final := &models.Message{Role: models.RoleAssistant, Content: raw}
	msgs := append(append([]*models.Message{}, pending...), final)
	if _, err := b.store.AppendTurn(ctx, msgs...); err != nil {
		emit(models.TurnEvent{Type: models.EventError, Error: err.Error()})
		return Result{Iterations: iter}, fmt.Errorf("brain: commit turn: %w", err)
	}

	if fact, ok := findAnnouncement(raw); ok {
		if _, err := b.memory.Announce(ctx, b.cfg.AgentName, strings.TrimSpace(fact)); err != nil {
			b.log.Warn("announce failed", "error", err)
		}
	}

	emit(models.TurnEvent{Type: models.EventResponse, Content: raw})
	emit(models.TurnEvent{Type: models.EventDone})
	return Result{FinalResponse: raw, Iterations: iter}, nil
}

// assembleRequest builds one model call's input: persona, recalled
// long-term facts and swarm announcements folded into the system prompt,
// plus the session window and this turn's accumulated tool results
// (spec.md §4.2 step 1, §4.5 "Retrieval").
func (b *Brain) assembleRequest(ctx context.Context, trig models.Trigger, pending []*models.Message) (provider.Request, error) {
	recent, err := b.store.RecentMessages(ctx, b.cfg.SessionWindow)
	if err != nil {
		return provider.Request{}, fmt.Errorf("assemble request: recent messages: %w", err)
	}

	facts, err := b.memory.Recall(ctx, trig.Prompt)
	if err != nil {
		return provider.Request{}, fmt.Errorf("assemble request: recall: %w", err)
	}
	announcements, err := b.memory.RecentAnnouncements(ctx)
	if err != nil {
		return provider.Request{}, fmt.Errorf("assemble request: announcements: %w", err)
	}

	system := b.buildSystemPrompt(facts, announcements)

	messages := make([]provider.Message, 0, len(recent)+len(pending))
	for _, m := range recent {
		messages = append(messages, provider.Message{Role: string(m.Role), Content: m.Content})
	}
	for _, m := range pending {
		messages = append(messages, provider.Message{Role: string(m.Role), Content: m.Content})
	}

	return provider.Request{
		Model:     b.cfg.Model,
		System:    system,
		Messages:  messages,
		MaxTokens: b.cfg.MaxTokens,
	}, nil
}

func (b *Brain) buildSystemPrompt(facts []*models.LongTermFact, announcements []*models.SharedFact) string {
	var sb strings.Builder
	sb.WriteString(b.cfg.Persona)
	sb.WriteString("\n\n")

	if len(facts) > 0 {
		sb.WriteString("Recalled facts:\n")
		for _, f := range facts {
			fmt.Fprintf(&sb, "- %s\n", f.Text)
		}
		sb.WriteString("\n")
	}
	if len(announcements) > 0 {
		sb.WriteString("Recent swarm announcements:\n")
		for _, a := range announcements {
			fmt.Fprintf(&sb, "- [%s] %s\n", a.SourceAgent, a.Text)
		}
		sb.WriteString("\n")
	}

	tools := b.catalog.List()
	if len(tools) > 0 {
		sb.WriteString("Available tools (invoke at most one per response, as <invoke name=\"tool\">args</invoke>):\n")
		for _, t := range tools {
			fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
		}
	}
	return sb.String()
}
