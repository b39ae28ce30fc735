package router

import (
	"github.com/deppfellow/portfolio-backend/internal/handler"
	"github.com/deppfellow/portfolio-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// registerContactRoutes wires submission intake and the admin listing.
// /submit-contact is the path the existing front-end posts to.
func registerContactRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	limit := m.RateLimit.Limit()

	r.POST("/submit-contact", h.Contact.SubmitRoute(), limit)
	r.POST("/api/contact", h.Contact.SubmitRoute(), limit)

	admin := r.Group("/admin", m.Auth.AdminGuard())
	admin.GET("/messages", h.Contact.ListMessagesRoute())
}

func registerChatRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	r.POST("/api/chat", h.Chat.ChatRoute(), m.RateLimit.Limit())
}
