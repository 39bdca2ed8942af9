// Package router wires handlers to routes. Routes split into three
// surfaces: public health and auth endpoints, staff endpoints under
// /v1 requiring a valid access token, and admin endpoints additionally
// requiring the ADMIN role. Ownership of individual events is checked
// inside the handlers, not here.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/oakinyemi/staff-event-attendance/internal/handler"
	"github.com/oakinyemi/staff-event-attendance/internal/middleware"
	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

// Handlers bundles every handler the router needs.
type Handlers struct {
	Auth         *handler.AuthHandler
	Events       *handler.EventHandler
	Participants *handler.ParticipantHandler
	Staff        *handler.StaffAttendanceHandler
	Admin        *handler.AdminAttendanceHandler
	QR           *handler.QRHandler
}

// Register mounts all routes. scanLimiter guards the QR scan endpoints;
// authLimiter guards the credential endpoints. Either may be a no-op
// when rate limiting is disabled.
func Register(e *echo.Echo, h Handlers, scanLimiter, authLimiter echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	// Unauthenticated session endpoints.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register, authLimiter)
	auth.POST("/verify", h.Auth.Verify, authLimiter)
	auth.POST("/login", h.Auth.Login, authLimiter)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Everything under /v1 requires a valid access token.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(h.Auth.Cfg.JWTSecret))
	v1.Use(middleware.RequireRole(model.RoleStaff, model.RoleAdmin))

	v1.GET("/me", h.Auth.Me)
	v1.GET("/events/:id", h.Events.Get)

	// Staff application lifecycle and scan endpoints. Scans are rate
	// limited per user per route so a misbehaving client cannot hammer
	// the token validation path.
	v1.POST("/events/:id/apply", h.Participants.Apply)
	v1.POST("/events/:id/change-role", h.Participants.ChangeRole)
	v1.POST("/events/:id/withdraw", h.Participants.Withdraw)
	v1.POST("/attendance/check-in", h.Staff.CheckIn, scanLimiter)
	v1.POST("/attendance/check-out", h.Staff.CheckOut, scanLimiter)
	v1.GET("/attendance/events/:id/me", h.Staff.MyStatus)

	// Admin surface. RequireRole gates the role claim; each handler
	// still verifies event ownership before acting.
	admin := v1.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))

	admin.POST("/events", h.Events.Create)
	admin.GET("/events", h.Events.ListMine)
	admin.POST("/events/:id/roles", h.Events.AddRole)
	admin.PATCH("/events/:id/status", h.Events.UpdateStatus)

	admin.GET("/events/:id/participants", h.Participants.List)
	admin.POST("/participants/:id/approve", h.Participants.Approve)
	admin.POST("/participants/:id/reject", h.Participants.Reject)

	admin.POST("/qr", h.QR.Generate)
	admin.GET("/events/:id/qr", h.QR.GetActive)
	admin.POST("/qr/:id/deactivate", h.QR.Deactivate)

	admin.GET("/events/:id/attendance/stats", h.Admin.LiveStats)
	admin.GET("/events/:id/attendance", h.Admin.Details)
	admin.GET("/events/:id/attendance/completed", h.Admin.CompletedForPayment)
	admin.POST("/attendance/:id/override", h.Admin.Override)
	admin.POST("/attendance/:id/mark-absent", h.Admin.MarkAbsent)
	admin.GET("/attendance/:id/overrides", h.Admin.History)
	admin.GET("/overrides/mine", h.Admin.MyHistory)
}
