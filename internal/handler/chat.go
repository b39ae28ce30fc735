package handler

import (
	"context"
	"net/http"

	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
)

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

func (r *ChatRequest) Validate() error {
	return validate.Struct(r)
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatService is implemented by *service.ChatService.
type ChatService interface {
	Reply(ctx context.Context, message string) (string, error)
}

type ChatHandler struct {
	Handler
	chat ChatService
}

func NewChatHandler(s *server.Server, chat ChatService) *ChatHandler {
	return &ChatHandler{
		Handler: NewHandler(s),
		chat:    chat,
	}
}

func (h *ChatHandler) Chat(c echo.Context, req *ChatRequest) (*ChatResponse, error) {
	reply, err := h.chat.Reply(c.Request().Context(), req.Message)
	if err != nil {
		return nil, err
	}
	return &ChatResponse{Reply: reply}, nil
}

func (h *ChatHandler) ChatRoute() echo.HandlerFunc {
	return Handle(h.Handler, h.Chat, http.StatusOK, &ChatRequest{})
}
