package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/haasonsaas/nexus/internal/brain"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Swarm is the process-wide registry of live agent actors (spec.md §3: "a
// swarm of named agent actors"). CreateAgent and RemoveAgent are the only
// paths that mutate membership; Dispatch (blocking) and TryDispatch
// (skip-if-busy) are the two paths a trigger takes to reach an actor's
// turn mutex.
type Swarm struct {
	mu     sync.RWMutex
	actors map[string]*Actor
	deps   *Deps
}

// NewSwarm builds an empty registry sharing deps across every actor it boots.
func NewSwarm(deps *Deps) *Swarm {
	return &Swarm{actors: make(map[string]*Actor), deps: deps}
}

// Boot seeds the swarm from the process configuration's declared agents
// (config.AgentConfig: "only used to seed the store on first boot;
// afterwards the supervisor is authoritative") and boots each to Ready.
func (s *Swarm) Boot(ctx context.Context, agents []config.AgentConfig) error {
	for _, cfg := range agents {
		def := models.Agent{
			Name:     cfg.Name,
			Persona:  cfg.Persona,
			Runtime:  runtimeKind(cfg.Runtime),
			Profile:  models.DefaultCapabilityProfile(),
			Provider: cfg.Provider,
			Model:    cfg.Model,
		}
		if _, err := s.CreateAgent(ctx, def); err != nil {
			return fmt.Errorf("swarm: boot agent %s: %w", cfg.Name, err)
		}
	}
	return nil
}

func runtimeKind(name string) models.RuntimeKind {
	switch models.RuntimeKind(name) {
	case models.RuntimeSandboxed, models.RuntimeWasm:
		return models.RuntimeKind(name)
	default:
		return models.RuntimeNative
	}
}

// CreateAgent wires, boots, and registers a new actor. It is the sole
// mutation path that adds a swarm member; an error leaves the swarm
// unchanged.
func (s *Swarm) CreateAgent(ctx context.Context, def models.Agent) (*Actor, error) {
	s.mu.Lock()
	if _, exists := s.actors[def.Name]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("swarm: agent %q already exists", def.Name)
	}
	s.mu.Unlock()

	a, err := newActor(def, s.deps)
	if err != nil {
		return nil, err
	}
	a.swarm = s
	if err := a.Boot(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.actors[def.Name] = a
	s.mu.Unlock()
	return a, nil
}

// RemoveAgent shuts an actor down and removes it from the registry. The
// reserved default agent can never be removed (models.DefaultAgentName).
func (s *Swarm) RemoveAgent(ctx context.Context, name string) error {
	if name == models.DefaultAgentName {
		return fmt.Errorf("swarm: %q is the reserved default agent and cannot be removed", name)
	}
	s.mu.Lock()
	a, ok := s.actors[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("swarm: agent %q not found", name)
	}
	delete(s.actors, name)
	s.mu.Unlock()

	return a.Shutdown(ctx)
}

// Deps returns the process-wide singletons shared by every actor in the
// swarm, for control-plane operations (vault, host proxy) that act on a
// named agent without going through its actor.
func (s *Swarm) Deps() *Deps { return s.deps }

// Lookup returns the named actor, if it exists.
func (s *Swarm) Lookup(name string) (*Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[name]
	return a, ok
}

// List returns every agent name currently registered.
func (s *Swarm) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.actors))
	for name := range s.actors {
		out = append(out, name)
	}
	return out
}

// Dispatch routes a trigger to its target agent's actor. This is the
// blocking trigger path (chat/control-plane turns and delegation): it
// blocks on the target's turn mutex rather than skipping. The scheduler
// and webhook ingress use TryDispatch, which skips a busy agent instead.
func (s *Swarm) Dispatch(ctx context.Context, trig models.Trigger, emit func(models.TurnEvent)) (brain.Result, error) {
	a, ok := s.Lookup(trig.Agent)
	if !ok {
		return brain.Result{}, fmt.Errorf("swarm: agent %q not found", trig.Agent)
	}
	return a.RunTurn(ctx, trig, emit)
}

// TryDispatch is the scheduler's fire path (spec.md §4.4): it never queues
// behind a busy agent. ok reports whether the turn was actually run; a
// false ok with a nil error means the agent was mid-turn and the fire was
// skipped, to be retried only on the job's next scheduled match.
func (s *Swarm) TryDispatch(ctx context.Context, trig models.Trigger, emit func(models.TurnEvent)) (result brain.Result, ok bool, err error) {
	a, found := s.Lookup(trig.Agent)
	if !found {
		return brain.Result{}, false, fmt.Errorf("swarm: agent %q not found", trig.Agent)
	}
	return a.TryRunTurn(ctx, trig, emit)
}

// ListJobs returns one agent's persisted cron jobs, satisfying
// cron.JobSource alongside List.
func (s *Swarm) ListJobs(ctx context.Context, agent string) ([]*models.ScheduledJob, error) {
	a, ok := s.Lookup(agent)
	if !ok {
		return nil, nil // the agent may have just been removed; the scheduler treats this as no jobs, not an error
	}
	return a.store.ListJobs(ctx)
}

// GetWebhook looks up a webhook registration on one agent's store,
// satisfying webhook.RegistrationSource.
func (s *Swarm) GetWebhook(ctx context.Context, agent, source string) (*models.WebhookRegistration, error) {
	a, ok := s.Lookup(agent)
	if !ok {
		return nil, nil // unknown agent: the handler reports "not registered", not an error
	}
	return a.store.GetWebhook(ctx, source)
}

// CronDispatcher adapts a Swarm to cron.AgentDispatcher, dropping the
// brain.Result and emit callback the scheduler has no use for.
type CronDispatcher struct {
	Swarm *Swarm
}

func (d CronDispatcher) TryDispatch(ctx context.Context, trig models.Trigger) (bool, error) {
	_, ran, err := d.Swarm.TryDispatch(ctx, trig, func(models.TurnEvent) {})
	return ran, err
}

// Shutdown tears down every actor in the swarm, used at process exit.
func (s *Swarm) Shutdown(ctx context.Context) {
	s.mu.RLock()
	actors := make([]*Actor, 0, len(s.actors))
	for _, a := range s.actors {
		actors = append(actors, a)
	}
	s.mu.RUnlock()

	for _, a := range actors {
		if err := a.Shutdown(ctx); err != nil {
			s.deps.Log.Warn("shutdown agent", "agent", a.def.Name, "error", err)
		}
	}
}
