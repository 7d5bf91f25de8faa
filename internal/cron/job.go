package cron

import "time"

// JobState is one node of the job lifecycle diagram (spec.md §4.4):
//
//	Registered -> Scheduled -> Firing -> Dispatched -> Scheduled (next match)
//	                  |                      |
//	                  +---- Disabled --------+
//	Registered/Scheduled/Disabled -> Removed (terminal)
type JobState string

const (
	JobRegistered JobState = "registered"
	JobScheduled  JobState = "scheduled"
	JobFiring     JobState = "firing"
	JobDispatched JobState = "dispatched"
	JobDisabled   JobState = "disabled"
	JobRemoved    JobState = "removed"
)

// job is the scheduler's live view of one persisted models.ScheduledJob: the
// stored fields plus the runtime state the diagram above tracks. Removed
// when its (agent, name) no longer appears in the store's listing.
type job struct {
	Agent          string
	Name           string
	PromptTemplate string
	SourceTag      string

	Schedule Schedule
	State    JobState
	NextRun  time.Time
	LastRun  time.Time
	LastErr  string
}

func (j *job) key() string {
	return j.Agent + "/" + j.Name
}
