package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
	"github.com/oakinyemi/staff-event-attendance/internal/queue"
	"github.com/oakinyemi/staff-event-attendance/internal/repository"
	qp "github.com/oakinyemi/staff-event-attendance/internal/service"
)

// AdminAttendanceHandler serves the admin monitoring and override
// endpoints. Every operation re-checks that the caller owns the event
// the attendance belongs to; ADMIN role alone grants nothing here.
type AdminAttendanceHandler struct {
	Events       *repository.EventRepo
	Participants *repository.ParticipantRepo
	Attendance   *repository.AttendanceRepo
	Overrides    *repository.OverrideRepo
}

// LiveStats returns per-status counts plus check-in and completion rates
// for one owned event.
func (h *AdminAttendanceHandler) LiveStats(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	if _, err := h.Events.GetOwned(ctx, eventID, adminID); err != nil {
		return writeDomainErr(c, err)
	}

	counts, err := h.Attendance.CountByStatus(ctx, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	approved, err := h.Participants.CountApproved(ctx, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}

	active := counts[model.StatusActive] + counts[model.StatusCheckedIn]
	completed := counts[model.StatusCompleted]
	checkedIn := active + completed
	resp := echo.Map{
		"event_id":       eventID,
		"approved":       approved,
		"assigned":       counts[model.StatusAssigned],
		"active":         active,
		"completed":      completed,
		"absent":         counts[model.StatusAbsent],
		"check_in_rate":  rate(checkedIn, approved),
		"completion_rate": rate(completed, approved),
	}
	return c.JSON(http.StatusOK, resp)
}

func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// Details lists attendance rows for an owned event with staff and role
// details, filterable by status and paginated.
func (h *AdminAttendanceHandler) Details(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	status := c.QueryParam("status")
	if status != "" && !model.ValidStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status filter"})
	}
	limit := queryInt(c, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request().Context()
	if _, err := h.Events.GetOwned(ctx, eventID, adminID); err != nil {
		return writeDomainErr(c, err)
	}
	rows, err := h.Attendance.ListByEvent(ctx, eventID, status, limit, offset)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id": eventID,
		"count":    len(rows),
		"rows":     rows,
	})
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

type overrideRequest struct {
	Action       string `json:"action"`
	Reason       string `json:"reason"`
	CheckInTime  string `json:"check_in_time"`  // RFC3339, optional
	CheckOutTime string `json:"check_out_time"` // RFC3339, optional
	NewStatus    string `json:"new_status"`     // STATUS_CHANGE only
}

// Override applies an admin correction to an attendance record and
// writes the audit entry in the same transaction, so no correction can
// ever exist without its audit trail. The record is marked overridden
// permanently regardless of action.
func (h *AdminAttendanceHandler) Override(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	attendanceID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendance id"})
	}

	var req overrideRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	return h.runOverride(c, adminID, attendanceID, &req)
}

// MarkAbsent is the dedicated no-show endpoint. It runs as a
// MARK_ABSENT override so the action lands in the audit trail like any
// other correction.
func (h *AdminAttendanceHandler) MarkAbsent(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	attendanceID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendance id"})
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req := &overrideRequest{Action: model.ActionMarkAbsent, Reason: body.Reason}
	return h.runOverride(c, adminID, attendanceID, req)
}

func (h *AdminAttendanceHandler) runOverride(c echo.Context, adminID, attendanceID uint64, req *overrideRequest) error {
	if !model.ValidOverrideAction(req.Action) {
		return writeDomainErr(c, fmt.Errorf("%w: unknown action %q", model.ErrValidation, req.Action))
	}
	if len(req.Reason) < model.MinOverrideReasonLen {
		return writeDomainErr(c, fmt.Errorf("%w: reason must be at least %d characters", model.ErrValidation, model.MinOverrideReasonLen))
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()

	a, err := h.Attendance.GetByID(ctx, attendanceID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if _, err := h.Events.GetOwned(ctx, a.EventID, adminID); err != nil {
		return writeDomainErr(c, err)
	}

	before := a.Snapshot()
	if err := h.applyOverride(a, req, adminID, now); err != nil {
		return writeDomainErr(c, err)
	}
	a.Overridden = true
	if req.Action == model.ActionMarkAbsent {
		a.Notes = req.Reason
	} else {
		a.AppendOverrideNote(req.Reason)
	}
	after := a.Snapshot()

	entry := &model.AttendanceOverride{
		AttendanceID: a.ID,
		AdminID:      adminID,
		Action:       req.Action,
		Reason:       req.Reason,
		Before:       before,
		After:        after,
		IPAddress:    c.RealIP(),
	}

	tx, err := h.Attendance.DB().BeginTx(ctx, nil)
	if err != nil {
		return writeDomainErr(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	if err := h.Attendance.SaveOverrideTx(ctx, tx, a); err != nil {
		return writeDomainErr(c, err)
	}
	if err := h.Overrides.CreateTx(ctx, tx, entry); err != nil {
		return writeDomainErr(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeDomainErr(c, err)
	}
	committed = true

	if req.Action == model.ActionCheckOutOverride {
		h.publishOverrideCompletion(c, a, now)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":       "override applied",
		"override_id":   entry.ID,
		"attendance_id": a.ID,
		"action":        req.Action,
		"status":        a.Status,
	})
}

// applyOverride mutates the in-memory record per the requested action.
// CHECK_IN_OVERRIDE bypasses every normal guard including ABSENT;
// CHECK_OUT_OVERRIDE still requires a recorded check-in because a shift
// cannot end before it started.
func (h *AdminAttendanceHandler) applyOverride(a *model.Attendance, req *overrideRequest, adminID uint64, now time.Time) error {
	switch req.Action {
	case model.ActionCheckInOverride:
		t, err := overrideTime(req.CheckInTime, now)
		if err != nil {
			return err
		}
		a.Status = model.StatusActive
		a.CheckIn = model.CheckDetail{Time: &t, Method: model.MethodOverride, VerifiedBy: &adminID}

	case model.ActionCheckOutOverride:
		if a.CheckIn.Time == nil {
			return model.ErrNotCheckedIn
		}
		t, err := overrideTime(req.CheckOutTime, now)
		if err != nil {
			return err
		}
		if t.Before(*a.CheckIn.Time) {
			return fmt.Errorf("%w: check-out cannot precede check-in", model.ErrValidation)
		}
		a.Status = model.StatusCompleted
		a.CheckOut = model.CheckDetail{Time: &t, Method: model.MethodOverride, VerifiedBy: &adminID}

	case model.ActionMarkAbsent:
		a.Status = model.StatusAbsent

	case model.ActionStatusChange:
		if !model.ValidStatus(req.NewStatus) {
			return fmt.Errorf("%w: unknown target status %q", model.ErrValidation, req.NewStatus)
		}
		a.Status = req.NewStatus
	}
	return nil
}

func overrideTime(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time must be RFC3339", model.ErrValidation)
	}
	return t.UTC(), nil
}

func (h *AdminAttendanceHandler) publishOverrideCompletion(c echo.Context, a *model.Attendance, now time.Time) {
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
		Method:         model.MethodOverride,
		CompletedAt:    now.Format(time.RFC3339),
	}
	if a.CheckIn.Time != nil {
		msg.CheckInAt = a.CheckIn.Time.Format(time.RFC3339)
	}
	if a.CheckOut.Time != nil {
		msg.CheckOutAt = a.CheckOut.Time.Format(time.RFC3339)
	}
	if err := qp.PublishAttendanceCompleted(c.Request().Context(), msg); err != nil {
		c.Logger().Warnf("publish attendance.completed: %v", err)
	}
}

// History lists the audit entries for one attendance record, newest
// first.
func (h *AdminAttendanceHandler) History(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	attendanceID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attendance id"})
	}

	ctx := c.Request().Context()
	a, err := h.Attendance.GetByID(ctx, attendanceID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if _, err := h.Events.GetOwned(ctx, a.EventID, adminID); err != nil {
		return writeDomainErr(c, err)
	}
	entries, err := h.Overrides.HistoryForAttendance(ctx, attendanceID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"attendance_id": attendanceID,
		"count":         len(entries),
		"overrides":     overrideViews(entries),
	})
}

// MyHistory lists the caller's own recent overrides across all events.
func (h *AdminAttendanceHandler) MyHistory(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := queryInt(c, "limit", 50)
	entries, err := h.Overrides.HistoryForAdmin(c.Request().Context(), adminID, limit)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":     len(entries),
		"overrides": overrideViews(entries),
	})
}

type overrideView struct {
	ID           uint64         `json:"id"`
	AttendanceID uint64         `json:"attendance_id"`
	AdminID      uint64         `json:"admin_id"`
	Action       string         `json:"action"`
	Reason       string         `json:"reason"`
	Before       model.Snapshot `json:"before"`
	After        model.Snapshot `json:"after"`
	IPAddress    string         `json:"ip_address"`
	CreatedAt    string         `json:"created_at"`
}

func overrideViews(entries []model.AttendanceOverride) []overrideView {
	out := make([]overrideView, 0, len(entries))
	for _, e := range entries {
		out = append(out, overrideView{
			ID:           e.ID,
			AttendanceID: e.AttendanceID,
			AdminID:      e.AdminID,
			Action:       e.Action,
			Reason:       e.Reason,
			Before:       e.Before,
			After:        e.After,
			IPAddress:    e.IPAddress,
			CreatedAt:    e.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

// CompletedForPayment lists completed attendance with the pay snapshot
// fields, the feed the payment pipeline reconciles against.
func (h *AdminAttendanceHandler) CompletedForPayment(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	if _, err := h.Events.GetOwned(ctx, eventID, adminID); err != nil {
		return writeDomainErr(c, err)
	}
	rows, err := h.Attendance.CompletedForEvent(ctx, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id": eventID,
		"count":    len(rows),
		"rows":     rows,
	})
}
