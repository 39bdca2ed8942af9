package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oakinyemi/staff-event-attendance/internal/middleware"
	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

func overrideContext(t *testing.T, body string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/attendance/1/override", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	c.Set(middleware.CtxUserID, uint64(1))
	return c
}

// Validation failures must reject before any storage access; the
// handler here has no repositories wired at all.
func TestOverrideRejectsShortReason(t *testing.T) {
	h := &AdminAttendanceHandler{}
	c := overrideContext(t, `{"action":"CHECK_IN_OVERRIDE","reason":"short"}`)
	if err := h.Override(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec := c.Response(); rec.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Status)
	}
}

func TestOverrideRejectsUnknownAction(t *testing.T) {
	h := &AdminAttendanceHandler{}
	c := overrideContext(t, `{"action":"DELETE_EVERYTHING","reason":"a perfectly valid reason"}`)
	if err := h.Override(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec := c.Response(); rec.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Status)
	}
}

func TestApplyOverrideCheckIn(t *testing.T) {
	h := &AdminAttendanceHandler{}
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	// ABSENT is locked for normal transitions but not for overrides.
	a := &model.Attendance{Status: model.StatusAbsent}
	req := &overrideRequest{Action: model.ActionCheckInOverride, Reason: "arrived late, gate delay"}
	if err := h.applyOverride(a, req, 42, now); err != nil {
		t.Fatalf("applyOverride: %v", err)
	}
	if a.Status != model.StatusActive {
		t.Errorf("status = %s, want ACTIVE", a.Status)
	}
	if a.CheckIn.Time == nil || !a.CheckIn.Time.Equal(now) {
		t.Errorf("check-in time = %v, want %v", a.CheckIn.Time, now)
	}
	if a.CheckIn.Method != model.MethodOverride {
		t.Errorf("method = %s, want override", a.CheckIn.Method)
	}
	if a.CheckIn.VerifiedBy == nil || *a.CheckIn.VerifiedBy != 42 {
		t.Errorf("verified by = %v, want 42", a.CheckIn.VerifiedBy)
	}
}

func TestApplyOverrideCheckOutRequiresCheckIn(t *testing.T) {
	h := &AdminAttendanceHandler{}
	a := &model.Attendance{Status: model.StatusAssigned}
	req := &overrideRequest{Action: model.ActionCheckOutOverride, Reason: "forgot to scan on exit"}
	err := h.applyOverride(a, req, 42, time.Now().UTC())
	if !errors.Is(err, model.ErrNotCheckedIn) {
		t.Fatalf("got %v, want ErrNotCheckedIn", err)
	}
}

func TestApplyOverrideCheckOutBeforeCheckIn(t *testing.T) {
	h := &AdminAttendanceHandler{}
	in := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	a := &model.Attendance{
		Status:  model.StatusActive,
		CheckIn: model.CheckDetail{Time: &in, Method: model.MethodQR},
	}
	req := &overrideRequest{
		Action:       model.ActionCheckOutOverride,
		Reason:       "manual correction of exit time",
		CheckOutTime: in.Add(-time.Hour).Format(time.RFC3339),
	}
	err := h.applyOverride(a, req, 42, time.Now().UTC())
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestApplyOverrideStatusChange(t *testing.T) {
	h := &AdminAttendanceHandler{}
	now := time.Now().UTC()

	a := &model.Attendance{Status: model.StatusActive}
	bad := &overrideRequest{Action: model.ActionStatusChange, Reason: "correcting a data entry issue", NewStatus: "NONSENSE"}
	if err := h.applyOverride(a, bad, 42, now); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}

	good := &overrideRequest{Action: model.ActionStatusChange, Reason: "correcting a data entry issue", NewStatus: model.StatusAssigned}
	if err := h.applyOverride(a, good, 42, now); err != nil {
		t.Fatalf("applyOverride: %v", err)
	}
	if a.Status != model.StatusAssigned {
		t.Errorf("status = %s, want ASSIGNED", a.Status)
	}
}

func TestApplyOverrideMarkAbsent(t *testing.T) {
	h := &AdminAttendanceHandler{}
	a := &model.Attendance{Status: model.StatusAssigned}
	req := &overrideRequest{Action: model.ActionMarkAbsent, Reason: "no-show confirmed by supervisor"}
	if err := h.applyOverride(a, req, 42, time.Now().UTC()); err != nil {
		t.Fatalf("applyOverride: %v", err)
	}
	if a.Status != model.StatusAbsent {
		t.Errorf("status = %s, want ABSENT", a.Status)
	}
}
