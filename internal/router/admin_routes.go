package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-booking/internal/handler"
	"github.com/iliyamo/court-booking/internal/middleware"
	"github.com/iliyamo/court-booking/internal/model"
)

// RegisterAdmin registers the catalog management endpoints under
// /v1/admin.  Every route requires a valid JWT carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.POST("/courts", a.CreateCourt)
	g.GET("/courts", a.ListCourts)
	g.GET("/courts/:id", a.GetCourt)
	g.PUT("/courts/:id", a.UpdateCourt)
	g.DELETE("/courts/:id", a.DeleteCourt)

	g.POST("/equipment", a.CreateEquipment)
	g.GET("/equipment", a.ListEquipment)
	g.PUT("/equipment/:id", a.UpdateEquipment)
	g.DELETE("/equipment/:id", a.DeleteEquipment)

	g.POST("/coaches", a.CreateCoach)
	g.GET("/coaches", a.ListCoaches)
	g.PUT("/coaches/:id", a.UpdateCoach)
	g.DELETE("/coaches/:id", a.DeleteCoach)
	g.GET("/coaches/:id/windows", a.ListCoachWindows)
	g.PUT("/coaches/:id/windows", a.ReplaceCoachWindows)

	g.POST("/rules", a.CreateRule)
	g.GET("/rules", a.ListRules)
	g.GET("/rules/:id", a.GetRule)
	g.PUT("/rules/:id", a.UpdateRule)
	g.DELETE("/rules/:id", a.DeleteRule)
}
