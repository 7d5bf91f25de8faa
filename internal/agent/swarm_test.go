package agent

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/pkg/models"
)

func TestSwarmBootSeedsConfiguredAgents(t *testing.T) {
	deps := newTestDeps(t)
	s := NewSwarm(deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	err := s.Boot(context.Background(), []config.AgentConfig{
		{Name: models.DefaultAgentName, Persona: "default persona", Provider: "anthropic"},
		{Name: "helper", Persona: "helper persona", Provider: "anthropic"},
	})
	if err != nil {
		t.Fatalf("Boot: %v", err)
	}

	got := s.List()
	if len(got) != 2 {
		t.Fatalf("expected 2 agents, got %v", got)
	}
	if _, ok := s.Lookup(models.DefaultAgentName); !ok {
		t.Fatalf("expected default agent to be registered")
	}
	if _, ok := s.Lookup("helper"); !ok {
		t.Fatalf("expected helper agent to be registered")
	}
}

func TestSwarmCreateAgentRejectsDuplicate(t *testing.T) {
	deps := newTestDeps(t)
	s := NewSwarm(deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	if _, err := s.CreateAgent(context.Background(), testAgentDef("alpha")); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if _, err := s.CreateAgent(context.Background(), testAgentDef("alpha")); err == nil {
		t.Fatalf("expected creating a duplicate agent to fail")
	}
}

func TestSwarmRemoveAgentProtectsDefault(t *testing.T) {
	deps := newTestDeps(t)
	s := NewSwarm(deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	def := testAgentDef(models.DefaultAgentName)
	if _, err := s.CreateAgent(context.Background(), def); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if err := s.RemoveAgent(context.Background(), models.DefaultAgentName); err == nil {
		t.Fatalf("expected removing the default agent to be rejected")
	}
}

func TestSwarmRemoveAgentRemovesCustomAgent(t *testing.T) {
	deps := newTestDeps(t)
	s := NewSwarm(deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	if _, err := s.CreateAgent(context.Background(), testAgentDef("alpha")); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	if err := s.RemoveAgent(context.Background(), "alpha"); err != nil {
		t.Fatalf("RemoveAgent: %v", err)
	}
	if _, ok := s.Lookup("alpha"); ok {
		t.Fatalf("expected agent to be gone after removal")
	}
}

func TestSwarmDispatchRejectsUnknownAgent(t *testing.T) {
	deps := newTestDeps(t)
	s := NewSwarm(deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	_, err := s.Dispatch(context.Background(), models.Trigger{Agent: "nobody", Prompt: "hi"}, func(models.TurnEvent) {})
	if err == nil {
		t.Fatalf("expected dispatch to an unknown agent to fail")
	}
}
