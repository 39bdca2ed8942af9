// Package handler implements the HTTP surface. Handlers validate
// input, orchestrate repositories (opening transactions where several
// writes form one logical unit) and translate domain errors to status
// codes. No business invariant is enforced only here: the repositories'
// conditional updates are the authoritative guards.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/oakinyemi/staff-event-attendance/internal/middleware"
	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

// getUserID extracts the authenticated user's ID from the echo context,
// tolerating the numeric types a decoded JWT claim may carry.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get(middleware.CtxUserID)
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric path parameter, rejecting zero.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// writeDomainErr maps the sentinel error taxonomy onto status codes.
// Conflicts (already checked in, already applied, role full) are
// distinguishable from plain precondition failures so clients know
// whether retrying with different input makes sense. Anything outside
// the taxonomy is a storage or signing failure and surfaces as 500.
func writeDomainErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrPermissionDenied),
		errors.Is(err, model.ErrNotApproved),
		errors.Is(err, model.ErrAbsentLocked):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrAlreadyCheckedIn),
		errors.Is(err, model.ErrAlreadyCheckedOut),
		errors.Is(err, model.ErrAlreadyApplied),
		errors.Is(err, model.ErrRoleFull):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrNotCheckedIn),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrInvalidToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
