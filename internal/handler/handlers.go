package handler

import (
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/deppfellow/portfolio-backend/internal/service"
)

// Handlers groups every HTTP handler so the router receives one value.
type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	Contact *ContactHandler
	Chat    *ChatHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Contact: NewContactHandler(s, services.Contact),
		Chat:    NewChatHandler(s, services.Chat),
	}
}
