package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-booking/internal/handler"
)

// RegisterPublic registers unauthenticated browse endpoints on the
// provided Echo instance: the per-day slot grid, point availability
// queries and pure price quotes.  These routes apply no JWT or role
// middleware so guests can explore before registering.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler) {
	// Availability grid for every enabled court on one calendar day.
	e.GET("/v1/slots/:date", p.Slots)
	// Point query: is this court (optionally plus equipment and coach)
	// free for an exact interval.
	e.GET("/v1/availability", p.Availability)
	// Pure quote through the price engine; nothing is reserved.
	e.GET("/v1/simulate-price", p.SimulatePrice)
}
