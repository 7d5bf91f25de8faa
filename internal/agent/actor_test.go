package agent

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/provider"
	"github.com/haasonsaas/nexus/pkg/models"
)

type noopEmbedder struct{}

func (noopEmbedder) Name() string   { return "noop" }
func (noopEmbedder) Dimension() int { return 1 }
func (noopEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0}, nil
}

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	reg, err := provider.NewRegistry(config.LLMConfig{
		DefaultProvider: "anthropic",
		Providers: map[string]config.LLMProviderConfig{
			"anthropic": {APIKey: "sk-ant-test"},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return &Deps{
		DataRoot:  t.TempDir(),
		Providers: reg,
		Embedder:  noopEmbedder{},
		Loop:      config.LoopConfig{},
		Sandbox:   config.SandboxConfig{},
		Memory:    memory.Config{},
		Log:       observability.NewLogger(observability.Config{}),
	}
}

func testAgentDef(name string) models.Agent {
	return models.Agent{
		Name:     name,
		Persona:  "a test agent",
		Runtime:  models.RuntimeNative,
		Profile:  models.DefaultCapabilityProfile(),
		Provider: "anthropic",
	}
}

func TestActorBootReachesReady(t *testing.T) {
	deps := newTestDeps(t)
	a, err := newActor(testAgentDef("alpha"), deps)
	if err != nil {
		t.Fatalf("newActor: %v", err)
	}
	t.Cleanup(func() { a.store.Close() })

	if err := a.Boot(context.Background()); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if a.State() != StateReady {
		t.Fatalf("expected state ready, got %s", a.State())
	}

	names := make(map[string]bool)
	for _, m := range a.catalog.List() {
		names[m.Name] = true
	}
	for _, want := range []string{"workspace_shell", "host_shell", "host_interpreter", "host_os_automation", "delegate_task", "remember_fact", "recall_facts"} {
		if !names[want] {
			t.Fatalf("expected builtin %q to be registered, got %v", want, names)
		}
	}
}

func TestActorRunTurnRejectedBeforeBoot(t *testing.T) {
	deps := newTestDeps(t)
	a, err := newActor(testAgentDef("alpha"), deps)
	if err != nil {
		t.Fatalf("newActor: %v", err)
	}
	t.Cleanup(func() { a.store.Close() })

	_, err = a.RunTurn(context.Background(), models.Trigger{Agent: "alpha", Prompt: "hi"}, func(models.TurnEvent) {})
	if err == nil {
		t.Fatalf("expected RunTurn to reject a not-ready actor")
	}
}

func TestActorShutdownThenRestartReboots(t *testing.T) {
	deps := newTestDeps(t)
	a, err := newActor(testAgentDef("alpha"), deps)
	if err != nil {
		t.Fatalf("newActor: %v", err)
	}
	if err := a.Boot(context.Background()); err != nil {
		t.Fatalf("Boot: %v", err)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if a.State() != StateShutdown {
		t.Fatalf("expected state shutdown, got %s", a.State())
	}

	if err := a.Restart(context.Background()); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	t.Cleanup(func() { a.store.Close() })
	if a.State() != StateReady {
		t.Fatalf("expected state ready after restart, got %s", a.State())
	}
}
