package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
	"github.com/oakinyemi/staff-event-attendance/internal/repository"
)

// ParticipantHandler serves the application lifecycle: staff apply to a
// role, admins approve or reject, staff may change role or withdraw.
// Every path that touches a role's slot count runs inside a transaction
// with the conditional increment, so capacity can never oversell.
type ParticipantHandler struct {
	Events       *repository.EventRepo
	Roles        *repository.RoleRepo
	Participants *repository.ParticipantRepo
	Attendance   *repository.AttendanceRepo
}

type applyRequest struct {
	RoleID uint64 `json:"role_id"`
}

// Apply creates an application for a role of a published event. The
// slot is reserved at application time; rejection or withdrawal gives
// it back.
func (h *ParticipantHandler) Apply(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req applyRequest
	if err := c.Bind(&req); err != nil || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role_id is required"})
	}

	ctx := c.Request().Context()

	event, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if event.Status != model.EventPublished {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event is not open for applications"})
	}
	role, err := h.Roles.GetForEvent(ctx, req.RoleID, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}

	tx, err := h.Participants.DB().BeginTx(ctx, nil)
	if err != nil {
		return writeDomainErr(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := h.Roles.ReserveSlotTx(ctx, tx, role.ID); err != nil {
		return writeDomainErr(c, err)
	}
	p, err := h.Participants.CreateTx(ctx, tx, eventID, staffID, role)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeDomainErr(c, err)
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{
		"participant_id": p.ID,
		"event_id":       eventID,
		"role_id":        role.ID,
		"role_name":      role.RoleName,
		"status":         p.Status,
	})
}

// Approve moves an application applied -> approved and creates the
// ASSIGNED attendance row in the same transaction.
func (h *ParticipantHandler) Approve(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	participantID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant id"})
	}

	ctx := c.Request().Context()

	p, err := h.Participants.GetByID(ctx, participantID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if _, err := h.Events.GetOwned(ctx, p.EventID, adminID); err != nil {
		return writeDomainErr(c, err)
	}

	tx, err := h.Participants.DB().BeginTx(ctx, nil)
	if err != nil {
		return writeDomainErr(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := h.Participants.TransitionTx(ctx, tx, p.ID, model.ParticipantApplied, model.ParticipantApproved); err != nil {
		return writeDomainErr(c, err)
	}
	a, err := h.Attendance.CreateAssignedTx(ctx, tx, p.EventID, p.StaffID, p.RoleID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeDomainErr(c, err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"participant_id": p.ID,
		"attendance_id":  a.ID,
		"status":         model.ParticipantApproved,
	})
}

// Reject moves an application applied -> rejected and releases the
// reserved slot.
func (h *ParticipantHandler) Reject(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	participantID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid participant id"})
	}

	ctx := c.Request().Context()

	p, err := h.Participants.GetByID(ctx, participantID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if _, err := h.Events.GetOwned(ctx, p.EventID, adminID); err != nil {
		return writeDomainErr(c, err)
	}

	tx, err := h.Participants.DB().BeginTx(ctx, nil)
	if err != nil {
		return writeDomainErr(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := h.Participants.TransitionTx(ctx, tx, p.ID, model.ParticipantApplied, model.ParticipantRejected); err != nil {
		return writeDomainErr(c, err)
	}
	if err := h.Roles.ReleaseSlotTx(ctx, tx, p.RoleID); err != nil {
		return writeDomainErr(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeDomainErr(c, err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"participant_id": p.ID,
		"status":         model.ParticipantRejected,
	})
}

type changeRoleRequest struct {
	RoleID uint64 `json:"role_id"`
}

// ChangeRole swaps a pending application to a different role of the
// same event. The new slot is reserved before the old one is released;
// if the new role is full the application stays where it was.
func (h *ParticipantHandler) ChangeRole(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role_id is required"})
	}

	ctx := c.Request().Context()

	p, err := h.Participants.GetByPair(ctx, eventID, staffID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if p.Status != model.ParticipantApplied {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only pending applications can change role"})
	}
	if p.RoleID == req.RoleID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "already applied to that role"})
	}
	newRole, err := h.Roles.GetForEvent(ctx, req.RoleID, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}

	tx, err := h.Participants.DB().BeginTx(ctx, nil)
	if err != nil {
		return writeDomainErr(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := h.Roles.ReserveSlotTx(ctx, tx, newRole.ID); err != nil {
		return writeDomainErr(c, err)
	}
	if err := h.Roles.ReleaseSlotTx(ctx, tx, p.RoleID); err != nil {
		return writeDomainErr(c, err)
	}
	if err := h.Participants.UpdateRoleTx(ctx, tx, p.ID, newRole); err != nil {
		return writeDomainErr(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeDomainErr(c, err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"participant_id": p.ID,
		"role_id":        newRole.ID,
		"role_name":      newRole.RoleName,
	})
}

// Withdraw cancels the caller's application, releases the slot and, if
// an attendance row already exists, marks it ABSENT with a note so the
// event report stays complete.
func (h *ParticipantHandler) Withdraw(c echo.Context) error {
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()

	p, err := h.Participants.GetByPair(ctx, eventID, staffID)
	if err != nil {
		return writeDomainErr(c, err)
	}

	tx, err := h.Participants.DB().BeginTx(ctx, nil)
	if err != nil {
		return writeDomainErr(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := h.Participants.CancelTx(ctx, tx, p.ID); err != nil {
		return writeDomainErr(c, err)
	}
	if err := h.Roles.ReleaseSlotTx(ctx, tx, p.RoleID); err != nil {
		return writeDomainErr(c, err)
	}
	a, err := h.Attendance.GetByPair(ctx, eventID, staffID)
	switch {
	case err == nil:
		if err := h.Attendance.MarkAbsentTx(ctx, tx, a.ID, "Application withdrawn by staff"); err != nil {
			return writeDomainErr(c, err)
		}
	case errors.Is(err, model.ErrNotFound):
		// Never approved, nothing to mark.
	default:
		return writeDomainErr(c, err)
	}
	if err := tx.Commit(); err != nil {
		return writeDomainErr(c, err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"participant_id": p.ID,
		"status":         model.ParticipantCancelled,
	})
}

// List returns all applications for an owned event grouped by role,
// with a per-role fill summary.
func (h *ParticipantHandler) List(c echo.Context) error {
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

	roles, err := h.Roles.ListByEvent(ctx, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	rows, err := h.Participants.ListByEvent(ctx, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}

	byRole := make(map[uint64][]repository.ParticipantRow, len(roles))
	for _, row := range rows {
		byRole[row.Participant.RoleID] = append(byRole[row.Participant.RoleID], row)
	}

	groups := make([]echo.Map, 0, len(roles))
	for _, role := range roles {
		members := byRole[role.ID]
		if members == nil {
			members = []repository.ParticipantRow{}
		}
		groups = append(groups, echo.Map{
			"role_id":      role.ID,
			"role_name":    role.RoleName,
			"price_cents":  role.PriceCents,
			"capacity":     role.Capacity,
			"filled_slots": role.FilledSlots,
			"participants": members,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id": eventID,
		"total":    len(rows),
		"roles":    groups,
	})
}
