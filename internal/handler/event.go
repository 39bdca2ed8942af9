package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
	"github.com/oakinyemi/staff-event-attendance/internal/repository"
)

// EventHandler is the minimal event directory: enough for admins to
// create events and roles and move them through the lifecycle. Events
// start as drafts and only accept applications once published.
type EventHandler struct {
	Events *repository.EventRepo
	Roles  *repository.RoleRepo
}

type createEventRequest struct {
	Title    string `json:"title"`
	StartsAt string `json:"starts_at"` // RFC3339
	EndsAt   string `json:"ends_at"`   // RFC3339
}

func (h *EventHandler) Create(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventRequest
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	starts, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}
	ends, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be RFC3339"})
	}
	if !ends.After(starts) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}

	id, err := h.Events.Create(c.Request().Context(), req.Title, adminID,
		starts.UTC().Format("2006-01-02 15:04:05"), ends.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"event_id": id, "status": model.EventDraft})
}

type addRoleRequest struct {
	RoleName   string `json:"role_name"`
	PriceCents uint32 `json:"price_cents"`
	Capacity   uint32 `json:"capacity"`
}

func (h *EventHandler) AddRole(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req addRoleRequest
	if err := c.Bind(&req); err != nil || req.RoleName == "" || req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role_name and a positive capacity are required"})
	}

	ctx := c.Request().Context()
	if _, err := h.Events.GetOwned(ctx, eventID, adminID); err != nil {
		return writeDomainErr(c, err)
	}
	id, err := h.Roles.Create(ctx, eventID, req.RoleName, req.PriceCents, req.Capacity)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"role_id": id, "event_id": eventID})
}

type eventStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves an owned event through its lifecycle. Ownership is
// part of the update predicate, so a non-owner's request changes zero
// rows and reads as not found.
func (h *EventHandler) UpdateStatus(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	switch req.Status {
	case model.EventPublished, model.EventInProgress, model.EventCompleted, model.EventCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown event status"})
	}

	if err := h.Events.UpdateStatus(c.Request().Context(), eventID, adminID, req.Status); err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "status": req.Status})
}

// ListMine returns the caller's events with their roles.
func (h *EventHandler) ListMine(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := c.Request().Context()
	events, err := h.Events.ListByOwner(ctx, adminID)
	if err != nil {
		return writeDomainErr(c, err)
	}

	out := make([]echo.Map, 0, len(events))
	for _, e := range events {
		roles, err := h.Roles.ListByEvent(ctx, e.ID)
		if err != nil {
			return writeDomainErr(c, err)
		}
		out = append(out, echo.Map{
			"event_id":  e.ID,
			"title":     e.Title,
			"status":    e.Status,
			"starts_at": e.StartsAt.Format(time.RFC3339),
			"ends_at":   e.EndsAt.Format(time.RFC3339),
			"roles":     roles,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(out), "events": out})
}

// Get returns one event with its roles, visible to any authenticated
// user so staff can browse published events.
func (h *EventHandler) Get(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	roles, err := h.Roles.ListByEvent(ctx, e.ID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id":  e.ID,
		"title":     e.Title,
		"status":    e.Status,
		"starts_at": e.StartsAt.Format(time.RFC3339),
		"ends_at":   e.EndsAt.Format(time.RFC3339),
		"roles":     roles,
	})
}
