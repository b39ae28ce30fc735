package handler

import (
	"fmt"
	"net/http"
	"os"

	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
)

// OpenAPIUIPath is the docs page served on /docs. It loads
// /static/openapi.json in the browser.
const OpenAPIUIPath = "static/openapi.html"

type OpenAPIHandler struct {
	Handler
	path string
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
		path:    OpenAPIUIPath,
	}
}

// ServeOpenAPIUI reads the page on every request so edits show up without
// a restart.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	templateBytes, err := os.ReadFile(h.path)

	c.Response().Header().Set("Cache-Control", "no-cache")

	if err != nil {
		return fmt.Errorf("failed to read OpenAPI UI template: %w", err)
	}

	if err := c.HTML(http.StatusOK, string(templateBytes)); err != nil {
		return fmt.Errorf("failed to write HTML response: %w", err)
	}

	return nil
}
