package router

import (
	"github.com/deppfellow/portfolio-backend/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes wires the routes that are not part of the API.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/", handler.Root)
	r.GET("/status", h.Health.CheckHealth)

	r.Static("/static", "static")
	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
}
