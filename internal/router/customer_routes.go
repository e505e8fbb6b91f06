package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-booking/internal/handler"
	"github.com/iliyamo/court-booking/internal/middleware"
	"github.com/iliyamo/court-booking/internal/model"
)

// RegisterCustomer registers the authenticated booking endpoints.
// Admins pass the role check too so they can inspect and cancel any
// booking through the same surface.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1/bookings")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))

	// Create runs the full admission path and honors Idempotency-Key.
	g.POST("", b.Create)
	g.GET("", b.List)
	g.GET("/:id", b.Get)
	g.POST("/:id/cancel", b.Cancel)
}
