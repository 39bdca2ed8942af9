package model

import (
	"testing"
	"time"
)

func TestAccepting(t *testing.T) {
	for _, status := range []string{EventPublished, EventInProgress} {
		e := &Event{Status: status}
		if !e.Accepting() {
			t.Errorf("%s event should accept check-ins", status)
		}
	}
	for _, status := range []string{EventDraft, EventCompleted, EventCancelled} {
		e := &Event{Status: status}
		if e.Accepting() {
			t.Errorf("%s event should not accept check-ins", status)
		}
	}
}

func TestWithinCheckInWindow(t *testing.T) {
	starts := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	e := &Event{StartsAt: starts, EndsAt: starts.Add(4 * time.Hour)}

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"two hours early", starts.Add(-2 * time.Hour), true},
		{"just before window", starts.Add(-2*time.Hour - time.Minute), false},
		{"during event", starts.Add(time.Hour), true},
		{"two hours after end", e.EndsAt.Add(2 * time.Hour), true},
		{"past the window", e.EndsAt.Add(2*time.Hour + time.Minute), false},
	}
	for _, tc := range cases {
		if got := e.WithinCheckInWindow(tc.now); got != tc.want {
			t.Errorf("%s: WithinCheckInWindow = %v, want %v", tc.name, got, tc.want)
		}
	}
}
