package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/haasonsaas/nexus/internal/brain"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/hostproxy"
	"github.com/haasonsaas/nexus/internal/mcp"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/internal/memory/embeddings"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/provider"
	"github.com/haasonsaas/nexus/internal/sandbox"
	"github.com/haasonsaas/nexus/internal/skills"
	"github.com/haasonsaas/nexus/internal/storage"
	"github.com/haasonsaas/nexus/internal/vault"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Deps bundles the process-wide singletons every actor shares (spec.md §3:
// "process-wide singletons: host proxy, internal token, scheduler, swarm
// fact store, single vault").
type Deps struct {
	DataRoot        string
	Swarm           *storage.SwarmStore
	Vault           *vault.Vault
	Providers       *provider.Registry
	HostProxy       *hostproxy.Proxy
	Embedder        embeddings.Provider
	ControlPlaneURL string
	OSSandbox       sandbox.Executor
	WasmSandbox     sandbox.Executor
	Loop            config.LoopConfig
	Sandbox         config.SandboxConfig
	Memory          memory.Config
	Log             *observability.Logger
}

// Actor is one swarm member's live runtime: its store, recall manager, tool
// catalog, model provider, and brain, driven through the lifecycle states
// in state.go (spec.md §4.1).
type Actor struct {
	mu    sync.Mutex
	state State

	def       models.Agent
	home      string
	workspace string
	toolsDir  string

	store       *storage.Store
	memMgr      *memory.Manager
	catalog     *skills.Catalog
	prov        provider.Provider
	reason      *brain.Brain
	dc          *skills.DispatchContext
	toolServers *mcp.Manager // nil until connectToolServers registers at least one server

	deps  *Deps
	swarm *Swarm // back-reference set by Swarm.CreateAgent, used by delegate_task

	// turnMu is the single per-agent turn mutex (spec.md §3: "At most one
	// turn of the brain executes per agent at any instant. All triggers
	// serialize on that mutex."). Dispatch blocks on it; it is never
	// TryLock'd here (that skip-not-queue discipline belongs to the
	// scheduler, spec.md §4.4, not to general trigger dispatch).
	turnMu sync.Mutex

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	log *observability.Logger
}

// newActor wires one agent's dependencies and leaves it in StateInit.
// Callers must call Boot before RunTurn will accept triggers.
func newActor(def models.Agent, deps *Deps) (*Actor, error) {
	home := filepath.Join(deps.DataRoot, "agents", def.Name)
	workspace := filepath.Join(home, "workspace")
	toolsDir := filepath.Join(home, "tools")
	for _, dir := range []string{home, workspace, toolsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("agent %s: create %s: %w", def.Name, dir, err)
		}
	}

	store, err := storage.Open(filepath.Join(home, "agent.db"), def.Name, deps.Loop.SessionWindow)
	if err != nil {
		return nil, fmt.Errorf("agent %s: open store: %w", def.Name, err)
	}

	memMgr := memory.New(store, deps.Swarm, deps.Embedder, deps.Memory)
	catalog := skills.NewCatalog(toolsDir)

	prov, err := deps.Providers.Resolve(def.Provider)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("agent %s: resolve provider: %w", def.Name, err)
	}

	model := def.Model
	if model == "" {
		model = prov.DefaultModel()
	}

	a := &Actor{
		state:     StateInit,
		def:       def,
		home:      home,
		workspace: workspace,
		toolsDir:  toolsDir,
		store:     store,
		memMgr:    memMgr,
		catalog:   catalog,
		prov:      prov,
		deps:      deps,
		log:       deps.Log.Component("agent:" + def.Name),
	}

	a.dc = &skills.DispatchContext{
		AgentName:       def.Name,
		AgentHome:       home,
		AgentWorkspace:  workspace,
		ControlPlaneURL: deps.ControlPlaneURL,
		Vault:           deps.Vault,
		OSSandbox:       deps.OSSandbox,
		WasmSandbox:     deps.WasmSandbox,
		DefaultTimeout:  deps.Sandbox.DefaultTimeout,
		OutputCapBytes:  deps.Sandbox.OutputCapBytes,
		WasmEnabled:     deps.Sandbox.WasmEnabled && def.Runtime == models.RuntimeWasm,
	}

	a.reason = brain.New(brain.Config{
		AgentName:     def.Name,
		Persona:       def.Persona,
		Model:         model,
		MaxIterations: deps.Loop.MaxIterations,
		SessionWindow: deps.Loop.SessionWindow,
		DispatchCtx:   a.dc,
	}, store, memMgr, catalog, prov, deps.Log)

	return a, nil
}

// Boot drives the actor from Init to Ready (spec.md §4.1), loading its
// privileged built-ins and workspace tools along the way. A failure at any
// step moves the actor to StateFailed and is returned to the caller.
func (a *Actor) Boot(ctx context.Context) error {
	if err := a.advance(StateLoadPlugins); err != nil {
		return err
	}
	if err := registerBuiltins(a); err != nil {
		a.fail()
		return fmt.Errorf("agent %s: register builtins: %w", a.def.Name, err)
	}
	if err := a.catalog.ScanWorkspace(); err != nil {
		a.fail()
		return fmt.Errorf("agent %s: scan workspace tools: %w", a.def.Name, err)
	}
	if err := a.connectToolServers(ctx); err != nil {
		a.fail()
		return fmt.Errorf("agent %s: connect tool servers: %w", a.def.Name, err)
	}

	if err := a.advance(StateConnectChannels); err != nil {
		return err
	}
	// Chat channel adapters are a named non-goal; the state is still
	// traversed so the lifecycle shape matches spec.md §4.1's diagram.

	if err := a.advance(StateReady); err != nil {
		return err
	}
	return nil
}

// advance transitions the actor to `to`, failing it on an invalid edge.
func (a *Actor) advance(to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	next, err := transition(a.state, to)
	if err != nil {
		a.state = StateFailed
		return fmt.Errorf("agent %s: %w", a.def.Name, err)
	}
	a.state = next
	return nil
}

func (a *Actor) fail() {
	a.mu.Lock()
	a.state = StateFailed
	a.mu.Unlock()
}

// State reports the actor's current lifecycle state.
func (a *Actor) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// RunTurn dispatches one trigger through the brain, serialized on the
// actor's turn mutex (spec.md §3, §4.2 "Ordering and single-flight").
// Dispatch blocks until any in-flight turn finishes; it never skips one.
func (a *Actor) RunTurn(ctx context.Context, trig models.Trigger, emit func(models.TurnEvent)) (brain.Result, error) {
	if a.State() != StateReady {
		return brain.Result{}, fmt.Errorf("agent %s: not ready (state=%s)", a.def.Name, a.State())
	}

	a.turnMu.Lock()
	defer a.turnMu.Unlock()

	turnCtx, cancel := context.WithCancel(ctx)
	a.cancelMu.Lock()
	a.cancel = cancel
	a.cancelMu.Unlock()
	defer func() {
		a.cancelMu.Lock()
		a.cancel = nil
		a.cancelMu.Unlock()
		cancel()
	}()

	return a.reason.RunTurn(turnCtx, trig, emit)
}

// TryRunTurn is the scheduler's distinct discipline (spec.md §4.4 "Swallows
// overlap"): it never blocks. If a turn is already in flight it returns
// ok=false immediately instead of queuing behind RunTurn's blocking Lock.
func (a *Actor) TryRunTurn(ctx context.Context, trig models.Trigger, emit func(models.TurnEvent)) (result brain.Result, ok bool, err error) {
	if a.State() != StateReady {
		return brain.Result{}, false, fmt.Errorf("agent %s: not ready (state=%s)", a.def.Name, a.State())
	}
	if !a.turnMu.TryLock() {
		return brain.Result{}, false, nil
	}
	defer a.turnMu.Unlock()

	turnCtx, cancel := context.WithCancel(ctx)
	a.cancelMu.Lock()
	a.cancel = cancel
	a.cancelMu.Unlock()
	defer func() {
		a.cancelMu.Lock()
		a.cancel = nil
		a.cancelMu.Unlock()
		cancel()
	}()

	result, err = a.reason.RunTurn(turnCtx, trig, emit)
	return result, true, err
}

// Shutdown cancels any in-flight turn, waits for it to release the turn
// mutex (bounded by deps.Loop.CancelGracePeriod), and closes the actor's
// store (spec.md §4.2 "Cancellation").
func (a *Actor) Shutdown(ctx context.Context) error {
	if err := a.advance(StateShuttingDown); err != nil {
		return err
	}

	a.cancelMu.Lock()
	cancel := a.cancel
	a.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	released := make(chan struct{})
	go func() {
		a.turnMu.Lock()
		a.turnMu.Unlock()
		close(released)
	}()

	grace := a.deps.Loop.CancelGracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}
	select {
	case <-released:
	case <-time.After(grace):
		a.log.Warn("shutdown grace period elapsed with a turn still in flight")
	}

	if a.toolServers != nil {
		if err := a.toolServers.Stop(); err != nil {
			a.log.Warn("stop tool servers", "error", err)
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
	return a.advance(StateShutdown)
}

// Restart recycles a shut-down or failed actor back through Boot.
func (a *Actor) Restart(ctx context.Context) error {
	switch a.State() {
	case StateReady, StateLoadPlugins, StateConnectChannels:
		if err := a.Shutdown(ctx); err != nil {
			return err
		}
	case StateFailed:
		_ = a.store.Close() // best-effort: Boot may have failed before ever opening cleanly
	}

	store, err := storage.Open(filepath.Join(a.home, "agent.db"), a.def.Name, a.deps.Loop.SessionWindow)
	if err != nil {
		return fmt.Errorf("agent %s: reopen store: %w", a.def.Name, err)
	}
	a.store = store
	a.toolServers = nil
	a.dc.ExternalCaller = nil

	if err := a.advance(StateInit); err != nil {
		return err
	}
	return a.Boot(ctx)
}

// Def returns the actor's agent definition, for control-plane listings.
func (a *Actor) Def() models.Agent { return a.def }

// Store exposes the actor's per-agent persistence, for control-plane
// session/job/webhook/tool-server reads and mutations.
func (a *Actor) Store() *storage.Store { return a.store }

// Memory exposes the actor's recall manager, for control-plane memory reads.
func (a *Actor) Memory() *memory.Manager { return a.memMgr }

// Catalog exposes the actor's tool catalog, for control-plane tool listings.
func (a *Actor) Catalog() *skills.Catalog { return a.catalog }
