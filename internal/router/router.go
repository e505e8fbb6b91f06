package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/court-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/court-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/iliyamo/court-booking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// This endpoint can be used by load balancers or monitoring systems to
	// verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token and returns a new pair.
	g.POST("/refresh", a.Refresh)
	// Logout accepts either an Authorization header (revoke all sessions)
	// or a refresh_token body (revoke one session); it deliberately does
	// not require the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
	auth.GET("/me", a.Me)
}
