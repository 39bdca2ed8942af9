package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oakinyemi/staff-event-attendance/internal/config"
	"github.com/oakinyemi/staff-event-attendance/internal/model"
	"github.com/oakinyemi/staff-event-attendance/internal/queue"
	"github.com/oakinyemi/staff-event-attendance/internal/repository"
	qp "github.com/oakinyemi/staff-event-attendance/internal/service"
)

// StaffAttendanceHandler serves the staff-facing scan endpoints. Both
// check-in and check-out take only the scanned token; the event is
// derived from the token, never from client input.
type StaffAttendanceHandler struct {
	Cfg          config.Config
	Events       *repository.EventRepo
	Participants *repository.ParticipantRepo
	Attendance   *repository.AttendanceRepo
	QRCodes      *repository.QRCodeRepo
}

type scanRequest struct {
	QRToken string `json:"qr_token"`
}

// CheckIn validates a scanned token and moves the caller's attendance
// ASSIGNED -> ACTIVE. The status flip is a single conditional update, so
// two concurrent scans of the same token resolve to one winner and one
// already-checked-in conflict.
func (h *StaffAttendanceHandler) CheckIn(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req scanRequest
	if err := c.Bind(&req); err != nil || req.QRToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr_token is required"})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()

	eventID, err := resolveQRToken(c, h.QRCodes, h.Cfg.QRSecret, req.QRToken, now)
	if err != nil {
		return writeDomainErr(c, err)
	}

	event, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if !event.Accepting() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event is not accepting check-ins"})
	}
	if !event.WithinCheckInWindow(now) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "outside the check-in window for this event"})
	}

	approved, err := h.Participants.HasApproved(ctx, eventID, staffID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if !approved {
		return writeDomainErr(c, model.ErrNotApproved)
	}

	attendance, err := h.Attendance.GetByPair(ctx, eventID, staffID)
	if errors.Is(err, model.ErrNotFound) {
		// Approved before attendance rows existed for this event.
		// Create the ASSIGNED row now; the unique index makes this
		// safe against a concurrent scan doing the same.
		attendance, err = h.createAssigned(ctx, eventID, staffID)
	}
	if err != nil {
		return writeDomainErr(c, err)
	}

	if err := h.Attendance.CheckIn(ctx, attendance.ID, model.MethodQR, nil, now); err != nil {
		return writeDomainErr(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "checked in",
		"attendance_id": attendance.ID,
		"event_id":      eventID,
		"status":        model.StatusActive,
		"check_in_time": now.Format(time.RFC3339),
	})
}

func (h *StaffAttendanceHandler) createAssigned(ctx context.Context, eventID, staffID uint64) (*model.Attendance, error) {
	p, err := h.Participants.GetByPair(ctx, eventID, staffID)
	if err != nil {
		return nil, err
	}
	tx, err := h.Attendance.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	a, err := h.Attendance.CreateAssignedTx(ctx, tx, eventID, staffID, p.RoleID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return a, nil
}

// CheckOut validates a scanned token and moves the caller's attendance
// ACTIVE -> COMPLETED, then emits a completion message for the payment
// pipeline. Publishing is best effort: a broker outage never rolls back
// a completed shift.
func (h *StaffAttendanceHandler) CheckOut(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req scanRequest
	if err := c.Bind(&req); err != nil || req.QRToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr_token is required"})
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()

	eventID, err := resolveQRToken(c, h.QRCodes, h.Cfg.QRSecret, req.QRToken, now)
	if err != nil {
		return writeDomainErr(c, err)
	}

	attendance, err := h.Attendance.GetByPair(ctx, eventID, staffID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if err := h.Attendance.CheckOut(ctx, attendance.ID, model.MethodQR, nil, now); err != nil {
		return writeDomainErr(c, err)
	}

	resp := echo.Map{
		"message":        "checked out",
		"attendance_id":  attendance.ID,
		"event_id":       eventID,
		"status":         model.StatusCompleted,
		"check_out_time": now.Format(time.RFC3339),
	}
	if attendance.CheckIn.Time != nil {
		resp["duration"] = model.FormatDuration(now.Sub(*attendance.CheckIn.Time))
	}

	h.publishCompleted(c, attendance, now)
	return c.JSON(http.StatusOK, resp)
}

func (h *StaffAttendanceHandler) publishCompleted(c echo.Context, a *model.Attendance, checkedOut time.Time) {
	p, err := h.Participants.GetByPair(c.Request().Context(), a.EventID, a.StaffID)
	if err != nil {
		c.Logger().Warnf("completed event not published for attendance %d: %v", a.ID, err)
		return
	}
	msg := queue.AttendanceCompletedEvent{
		AttendanceID:   a.ID,
		EventID:        a.EventID,
		StaffID:        a.StaffID,
		RoleName:       p.RoleName,
		RolePriceCents: p.RolePriceCents,
		CheckOutAt:     checkedOut.Format(time.RFC3339),
		Method:         model.MethodQR,
		CompletedAt:    checkedOut.Format(time.RFC3339),
	}
	if a.CheckIn.Time != nil {
		msg.CheckInAt = a.CheckIn.Time.Format(time.RFC3339)
	}
	if err := qp.PublishAttendanceCompleted(c.Request().Context(), msg); err != nil {
		c.Logger().Warnf("publish attendance.completed: %v", err)
	}
}

// MyStatus returns the caller's attendance state for one event,
// including worked duration once both ends are recorded.
func (h *StaffAttendanceHandler) MyStatus(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	a, err := h.Attendance.GetByPair(c.Request().Context(), eventID, staffID)
	if err != nil {
		return writeDomainErr(c, err)
	}

	resp := echo.Map{
		"attendance_id": a.ID,
		"event_id":      a.EventID,
		"status":        a.Status,
		"overridden":    a.Overridden,
		"notes":         a.Notes,
	}
	if a.CheckIn.Time != nil {
		resp["check_in_time"] = a.CheckIn.Time.Format(time.RFC3339)
		resp["check_in_method"] = a.CheckIn.Method
	}
	if a.CheckOut.Time != nil {
		resp["check_out_time"] = a.CheckOut.Time.Format(time.RFC3339)
		resp["check_out_method"] = a.CheckOut.Method
	}
	if d, ok := a.Duration(); ok {
		resp["duration"] = model.FormatDuration(d)
	}
	return c.JSON(http.StatusOK, resp)
}
