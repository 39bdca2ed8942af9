package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCanCheckIn(t *testing.T) {
	cases := []struct {
		status string
		want   error
	}{
		{StatusAssigned, nil},
		{StatusActive, ErrAlreadyCheckedIn},
		{StatusCheckedIn, ErrAlreadyCheckedIn},
		{StatusCompleted, ErrAlreadyCheckedIn},
		{StatusAbsent, ErrAbsentLocked},
		{"GARBAGE", ErrInvalidTransition},
	}
	for _, tc := range cases {
		a := &Attendance{Status: tc.status}
		err := a.CanCheckIn()
		if tc.want == nil {
			if err != nil {
				t.Errorf("CanCheckIn from %s: unexpected error %v", tc.status, err)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Errorf("CanCheckIn from %s: got %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestCanCheckOut(t *testing.T) {
	cases := []struct {
		status string
		want   error
	}{
		{StatusActive, nil},
		{StatusCheckedIn, nil}, // legacy records must still complete
		{StatusCompleted, ErrAlreadyCheckedOut},
		{StatusAssigned, ErrNotCheckedIn},
		{StatusAbsent, ErrNotCheckedIn},
	}
	for _, tc := range cases {
		a := &Attendance{Status: tc.status}
		err := a.CanCheckOut()
		if tc.want == nil {
			if err != nil {
				t.Errorf("CanCheckOut from %s: unexpected error %v", tc.status, err)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Errorf("CanCheckOut from %s: got %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestDuration(t *testing.T) {
	in := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := in.Add(2*time.Hour + 30*time.Minute)

	a := &Attendance{}
	if _, ok := a.Duration(); ok {
		t.Fatal("Duration reported ok with no check times")
	}
	a.CheckIn.Time = &in
	if _, ok := a.Duration(); ok {
		t.Fatal("Duration reported ok with no check-out")
	}
	a.CheckOut.Time = &out
	d, ok := a.Duration()
	if !ok || d != 2*time.Hour+30*time.Minute {
		t.Fatalf("Duration = %v, %v", d, ok)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{2*time.Hour + 30*time.Minute, "2 hours 30 minutes"},
		{45 * time.Minute, "0 hours 45 minutes"},
		{8 * time.Hour, "8 hours 0 minutes"},
		{-time.Minute, "0 hours 0 minutes"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	in := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	recTime := in
	by := uint64(7)
	a := &Attendance{
		Status:  StatusActive,
		CheckIn: CheckDetail{Time: &recTime, Method: MethodQR, VerifiedBy: &by},
	}

	snap := a.Snapshot()

	later := in.Add(time.Hour)
	a.Status = StatusCompleted
	*a.CheckIn.Time = later
	*a.CheckIn.VerifiedBy = 99

	if snap.Status != StatusActive {
		t.Errorf("snapshot status mutated to %s", snap.Status)
	}
	if !snap.CheckIn.Time.Equal(in) {
		t.Errorf("snapshot check-in time mutated to %v", snap.CheckIn.Time)
	}
	if *snap.CheckIn.VerifiedBy != 7 {
		t.Errorf("snapshot verified-by mutated to %d", *snap.CheckIn.VerifiedBy)
	}
}

func TestAppendOverrideNote(t *testing.T) {
	a := &Attendance{}
	a.AppendOverrideNote("traffic jam on site access road")
	if a.Notes != "[Override: traffic jam on site access road]" {
		t.Fatalf("first note = %q", a.Notes)
	}

	a.AppendOverrideNote("second correction")
	if !strings.HasPrefix(a.Notes, "[Override: traffic jam") {
		t.Errorf("earlier note lost: %q", a.Notes)
	}
	if !strings.HasSuffix(a.Notes, "[Override: second correction]") {
		t.Errorf("new note missing: %q", a.Notes)
	}
	if strings.Count(a.Notes, "\n") != 1 {
		t.Errorf("notes not newline separated: %q", a.Notes)
	}
}
