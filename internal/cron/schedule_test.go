package cron

import (
	"testing"
	"time"
)

func TestParseScheduleRejectsFiveFieldExpressions(t *testing.T) {
	if _, err := ParseSchedule("* * * * *"); err == nil {
		t.Fatalf("expected a 5-field expression to be rejected")
	}
}

func TestParseScheduleAcceptsSixFields(t *testing.T) {
	sched, err := ParseSchedule("0 */5 * * * *")
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 1, 0, time.UTC)
	next := sched.Next(now)
	if next.Minute() != 5 {
		t.Fatalf("expected next run at minute 5, got %v", next)
	}
}

func TestParseScheduleRejectsGarbage(t *testing.T) {
	if _, err := ParseSchedule("not a cron expression"); err == nil {
		t.Fatalf("expected an invalid expression to be rejected")
	}
}
