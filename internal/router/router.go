// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ordelia/floorplan-reservation/internal/handler"
	"github.com/ordelia/floorplan-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the staff authentication routes.  Token
// exchange lives under /v1/auth; /v1/me and logout-all sit behind the
// JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout with a refresh token in the body needs no JWT; the handler
	// falls back to the JWT identity only when the body is empty.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterFloorPlan registers the cacheable read-only floor plan routes.
// cacheMW is the Redis response cache; pass nil to serve uncached.
func RegisterFloorPlan(e *echo.Echo, p *handler.FloorPlanHandler, jwtSecret string, cacheMW echo.MiddlewareFunc) {
	g := e.Group("/v1/floor")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("OPERATOR", "MANAGER"))
	if cacheMW != nil {
		g.Use(cacheMW)
	}
	g.GET("/:date/units", p.Units)
	g.GET("/units/:id", p.Unit)
}

// RegisterFloorSession registers the interactive session command surface
// and its SSE event stream.  Everything here is per-staff state, so no
// response caching applies.
func RegisterFloorSession(e *echo.Echo, s *handler.FloorSessionHandler, jwtSecret string) {
	g := e.Group("/v1/session")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("OPERATOR", "MANAGER"))

	g.GET("", s.State)
	g.GET("/events", s.Events)
	g.PUT("/date", s.SetDate)
	g.PUT("/editor", s.SetEditorMode)

	g.POST("/selection", s.Select)
	g.DELETE("/selection", s.ClearSelection)
	g.DELETE("/selection/:id", s.Deselect)

	g.POST("/drag/start", s.DragStart)
	g.POST("/drag/move", s.DragMove)
	g.POST("/drag/end", s.DragEnd)
	g.POST("/drag/cancel", s.DragCancel)

	r := g.Group("/reassign")
	r.POST("/activate", s.ActivateReassign)
	r.POST("/deactivate", s.DeactivateReassign)
	r.POST("/cancel-to-conflict", s.CancelToConflict)
	r.POST("/collapse", s.CollapseReassign)
	r.POST("/expand", s.ExpandReassign)
	r.GET("/pool", s.Pool)
	r.POST("/entry", s.SelectEntry)
	r.POST("/assign", s.Assign)
	r.POST("/unassign", s.Unassign)
	r.POST("/undo", s.Undo)
}
