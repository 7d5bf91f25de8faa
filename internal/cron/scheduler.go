// Package cron implements the process-wide scheduler of spec.md §4.4: it
// owns a set of (agent, job) entries, fires each when its 6-field cron
// expression matches wall-clock time with second precision, and dispatches
// the fire through the swarm's non-blocking, skip-not-queue path.
package cron

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/pkg/models"
)

// JobSource lists the swarm's agents and their persisted cron jobs. The
// scheduler re-reads it on every refresh interval rather than caching
// indefinitely, since jobs are registered and removed through each agent's
// own store, not through the scheduler itself.
type JobSource interface {
	List() []string
	ListJobs(ctx context.Context, agent string) ([]*models.ScheduledJob, error)
}

// AgentDispatcher fires one synthetic trigger into an agent without
// blocking (spec.md §4.4 "swallows overlap"). ran is false exactly when the
// agent was already mid-turn; that is not an error, just a skip.
type AgentDispatcher interface {
	TryDispatch(ctx context.Context, trig models.Trigger) (ran bool, err error)
}

// Scheduler runs every registered cron job to completion or skip, once per
// tick, for as long as Run's context stays alive.
type Scheduler struct {
	source     JobSource
	dispatcher AgentDispatcher
	fireLog    FireLog
	log        *observability.Logger
	now        func() time.Time
	tick       time.Duration

	mu   sync.Mutex
	jobs map[string]*job // keyed by job.key()
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler)

// WithFireLog overrides the default in-memory fire log.
func WithFireLog(l FireLog) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.fireLog = l
		}
	}
}

// WithClock overrides the scheduler's notion of now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTick overrides the poll interval between due-job checks.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// New builds a scheduler over the given job source and dispatch path.
func New(source JobSource, dispatcher AgentDispatcher, log *observability.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:     source,
		dispatcher: dispatcher,
		fireLog:    NewMemoryFireLog(),
		log:        log.Component("cron"),
		now:        time.Now,
		tick:       time.Second,
		jobs:       make(map[string]*job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run polls for due jobs every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickOnce(ctx)
		}
	}
}

// tickOnce refreshes the job set from the store and fires everything due.
func (s *Scheduler) tickOnce(ctx context.Context) {
	s.refresh(ctx)

	now := s.now()
	s.mu.Lock()
	due := make([]*job, 0)
	for _, j := range s.jobs {
		if j.State == JobScheduled && !j.NextRun.IsZero() && !now.Before(j.NextRun) {
			j.State = JobFiring
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.fire(ctx, j, now)
	}
}

// refresh reconciles the scheduler's live job set against every agent's
// persisted jobs: new rows become Registered→Scheduled, rows that vanished
// are marked Removed and dropped, existing rows keep their NextRun/State
// untouched so an in-flight Firing job is never clobbered mid-tick.
func (s *Scheduler) refresh(ctx context.Context) {
	seen := make(map[string]bool)
	for _, agent := range s.source.List() {
		rows, err := s.source.ListJobs(ctx, agent)
		if err != nil {
			s.log.Warn("list jobs", "agent", agent, "error", err)
			continue
		}
		for _, row := range rows {
			s.upsert(row)
			seen[agent+"/"+row.Name] = true
		}
	}

	s.mu.Lock()
	for key, j := range s.jobs {
		if !seen[key] {
			j.State = JobRemoved
			delete(s.jobs, key)
		}
	}
	s.mu.Unlock()
}

func (s *Scheduler) upsert(row *models.ScheduledJob) {
	key := row.Agent + "/" + row.Name
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.jobs[key]
	if ok && existing.PromptTemplate == row.PromptTemplate && existing.Schedule.String() == row.CronExpr {
		return // unchanged
	}

	sched, err := ParseSchedule(row.CronExpr)
	j := &job{
		Agent:          row.Agent,
		Name:           row.Name,
		PromptTemplate: row.PromptTemplate,
		SourceTag:      row.SourceTag,
	}
	if err != nil {
		j.State = JobDisabled
		j.LastErr = err.Error()
		s.jobs[key] = j
		return
	}
	j.Schedule = sched
	j.State = JobScheduled
	j.NextRun = sched.Next(s.now())
	s.jobs[key] = j
}

func (s *Scheduler) fire(ctx context.Context, j *job, firedAt time.Time) {
	prompt, renderErr := renderTemplate(j.PromptTemplate, firedAt)

	fireID := uuid.NewString()
	var status FireStatus
	var fireErr error

	if renderErr != nil {
		status, fireErr = FireFailed, renderErr
	} else {
		ran, err := s.dispatcher.TryDispatch(ctx, models.Trigger{
			Agent:   j.Agent,
			Source:  models.TriggerScheduler,
			Prompt:  prompt,
			Payload: nil,
		})
		switch {
		case err != nil:
			status, fireErr = FireFailed, err
		case !ran:
			status = FireSkipped
		default:
			status = FireDispatched
		}
	}

	rec := &Fire{
		ID:      fireID,
		Agent:   j.Agent,
		Job:     j.Name,
		Status:  status,
		FiredAt: firedAt,
	}
	if fireErr != nil {
		rec.Error = fireErr.Error()
	}
	if err := s.fireLog.Append(ctx, rec); err != nil {
		s.log.Warn("append fire record", "agent", j.Agent, "job", j.Name, "error", err)
	}
	if fireErr != nil {
		s.log.Warn("cron job failed", "agent", j.Agent, "job", j.Name, "error", fireErr)
	}

	s.mu.Lock()
	j.LastRun = firedAt
	if fireErr != nil {
		j.LastErr = fireErr.Error()
	} else {
		j.LastErr = ""
	}
	j.State = JobDispatched // transient: this tick's fire already ran synchronously above
	j.NextRun = j.Schedule.Next(firedAt)
	j.State = JobScheduled
	s.mu.Unlock()
}

// renderTemplate expands a job's prompt template with the fire time, the
// only context a synthetic cron turn carries (spec.md §4.4 step 1).
func renderTemplate(text string, firedAt time.Time) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("cron").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	data := map[string]any{
		"now":  firedAt,
		"date": firedAt.Format("2006-01-02"),
		"time": firedAt.Format("15:04:05"),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Fires returns recorded fire history, optionally filtered by agent/job.
func (s *Scheduler) Fires(ctx context.Context, agent, jobName string, limit, offset int) ([]*Fire, error) {
	return s.fireLog.List(ctx, agent, jobName, limit, offset)
}

// JobSnapshot is a read-only view of one scheduler-tracked job, for
// operators inspecting scheduler state over the control plane.
type JobSnapshot struct {
	Agent    string
	Name     string
	State    JobState
	NextRun  time.Time
	LastRun  time.Time
	LastErr  string
}

// Jobs returns a snapshot of the scheduler's live job set, for inspection.
func (s *Scheduler) Jobs() []JobSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobSnapshot, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobSnapshot{
			Agent:   j.Agent,
			Name:    j.Name,
			State:   j.State,
			NextRun: j.NextRun,
			LastRun: j.LastRun,
			LastErr: j.LastErr,
		})
	}
	return out
}
