package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/oakinyemi/staff-event-attendance/internal/config"
	"github.com/oakinyemi/staff-event-attendance/internal/model"
	"github.com/oakinyemi/staff-event-attendance/internal/repository"
	"github.com/oakinyemi/staff-event-attendance/internal/utils"
)

// QRHandler issues and manages check-in QR tokens for event admins.
type QRHandler struct {
	Cfg     config.Config
	Events  *repository.EventRepo
	QRCodes *repository.QRCodeRepo
}

type generateQRRequest struct {
	EventID    uint64 `json:"event_id"`
	TTLMinutes int    `json:"ttl_minutes"`
}

// Generate signs a fresh QR token for an owned event and persists it,
// deactivating any previously active code for the same event. TTL is
// clamped to the configured bounds; out-of-range requests are rejected
// rather than silently adjusted.
func (h *QRHandler) Generate(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req generateQRRequest
	if err := c.Bind(&req); err != nil || req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id is required"})
	}
	if req.TTLMinutes == 0 {
		req.TTLMinutes = config.QRTTLMinMinutes
	}
	if req.TTLMinutes < config.QRTTLMinMinutes || req.TTLMinutes > config.QRTTLMaxMinutes {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("ttl_minutes must be between %d and %d", config.QRTTLMinMinutes, config.QRTTLMaxMinutes),
		})
	}

	ctx := c.Request().Context()

	event, err := h.Events.GetOwned(ctx, req.EventID, adminID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if !event.Accepting() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event is not accepting check-ins"})
	}

	ttl := time.Duration(req.TTLMinutes) * time.Minute
	token, err := utils.SignQRToken(h.Cfg.QRSecret, event.ID, ttl)
	if err != nil {
		return writeDomainErr(c, err)
	}

	code, err := h.QRCodes.Issue(ctx, event.ID, token, time.Now().UTC().Add(ttl), adminID)
	if err != nil {
		return writeDomainErr(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"qr_code_id": code.ID,
		"event_id":   code.EventID,
		"token":      code.Token,
		"expires_at": code.ExpiresAt.Format(time.RFC3339),
	})
}

// GetActive returns the currently active code for an owned event, with
// the minutes left before it expires.
func (h *QRHandler) GetActive(c echo.Context) error {
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

	code, err := h.QRCodes.GetActiveByEvent(ctx, eventID)
	if err != nil {
		return writeDomainErr(c, err)
	}

	remaining := int(time.Until(code.ExpiresAt).Minutes())
	if remaining < 0 {
		remaining = 0
	}
	return c.JSON(http.StatusOK, echo.Map{
		"qr_code_id":        code.ID,
		"event_id":          code.EventID,
		"token":             code.Token,
		"expires_at":        code.ExpiresAt.Format(time.RFC3339),
		"remaining_minutes": remaining,
	})
}

// Deactivate revokes a code before its TTL. Scans presenting the token
// afterwards fail validation even though the signature is still good.
func (h *QRHandler) Deactivate(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	codeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid qr code id"})
	}

	ctx := c.Request().Context()

	code, err := h.QRCodes.GetByID(ctx, codeID)
	if err != nil {
		return writeDomainErr(c, err)
	}
	if _, err := h.Events.GetOwned(ctx, code.EventID, adminID); err != nil {
		return writeDomainErr(c, err)
	}
	if err := h.QRCodes.Deactivate(ctx, codeID); err != nil {
		return writeDomainErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "qr code deactivated"})
}

// resolveQRToken runs the full validation chain for a scanned token:
// signature and JWT expiry first, then the persisted record must exist,
// be the active one, and not be past its stored expiry. Returns the
// event the token admits to.
func resolveQRToken(c echo.Context, qrRepo *repository.QRCodeRepo, secret, token string, now time.Time) (uint64, error) {
	eventID, err := utils.VerifyQRToken(secret, token)
	if err != nil {
		return 0, err
	}
	code, err := qrRepo.GetActiveByToken(c.Request().Context(), token)
	if err != nil {
		return 0, err
	}
	if code.EventID != eventID {
		return 0, fmt.Errorf("%w: token does not match its record", model.ErrInvalidToken)
	}
	if code.Expired(now) {
		return 0, model.ErrTokenExpired
	}
	return eventID, nil
}
