package agent

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/pkg/models"
)

func TestSwarmListJobsEmptyForFreshAgent(t *testing.T) {
	deps := newTestDeps(t)
	s := NewSwarm(deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	if _, err := s.CreateAgent(context.Background(), testAgentDef("alpha")); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	jobs, err := s.ListJobs(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs for a fresh agent, got %v", jobs)
	}
}

func TestSwarmListJobsUnknownAgentReturnsNil(t *testing.T) {
	deps := newTestDeps(t)
	s := NewSwarm(deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	jobs, err := s.ListJobs(context.Background(), "ghost")
	if err != nil || jobs != nil {
		t.Fatalf("expected (nil, nil) for an unknown agent, got (%v, %v)", jobs, err)
	}
}

func TestCronDispatcherSkipsUnknownAgent(t *testing.T) {
	deps := newTestDeps(t)
	s := NewSwarm(deps)
	t.Cleanup(func() { s.Shutdown(context.Background()) })

	d := CronDispatcher{Swarm: s}
	ran, err := d.TryDispatch(context.Background(), models.Trigger{Agent: "ghost", Prompt: "hi", Source: models.TriggerScheduler})
	if err == nil {
		t.Fatalf("expected dispatching to an unknown agent to error")
	}
	if ran {
		t.Fatalf("expected ran=false on error")
	}
}
