package server

import (
	"github.com/OFFIS-RIT/scholargraph/backend/internal/observability"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(observability.Handler()))

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Job routes
	apiRoutes.POST("/jobs/:kind", routes.EnqueueJobHandler)

	// Topic routes
	apiRoutes.GET("/topics", routes.GetTopicsHandler)
	apiRoutes.GET("/topics/depth", routes.GetTopicDepthHandler)
	apiRoutes.POST("/canonicalize", routes.CanonicalizeHandler)
}
