package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser enforces the 6-field "sec min hour dom month dow" form
// spec.md §4.4 requires for second-precision fire matching. Unlike
// robfig/cron's common 5-field convenience mode, the seconds field here is
// mandatory, not optional.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Schedule wraps one parsed 6-field cron expression.
type Schedule struct {
	expr     string
	schedule cron.Schedule
}

// ParseSchedule validates a 6-field cron expression and returns a Schedule
// that can compute successive fire times.
func ParseSchedule(expr string) (Schedule, error) {
	parsed, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("cron: invalid 6-field expression %q: %w", expr, err)
	}
	return Schedule{expr: expr, schedule: parsed}, nil
}

// Next returns the first fire time strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	return s.schedule.Next(now)
}

func (s Schedule) String() string { return s.expr }
