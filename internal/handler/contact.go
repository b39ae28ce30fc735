package handler

import (
	"context"
	"net/http"

	"github.com/deppfellow/portfolio-backend/internal/model"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
)

// MessageReceived is the success message of a stored submission.
const MessageReceived = "Message Received"

type ContactRequest struct {
	Name    string  `json:"name" validate:"required,max=255"`
	Email   string  `json:"email" validate:"required,max=255"`
	Mobile  *string `json:"mobile" validate:"omitempty,max=32"`
	Message string  `json:"message" validate:"required,max=5000"`
}

func (r *ContactRequest) Validate() error {
	return validate.Struct(r)
}

type ContactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ContactService is implemented by *service.ContactService.
type ContactService interface {
	Submit(ctx context.Context, in model.NewSubmission) (*model.Submission, error)
	List(ctx context.Context) ([]model.Submission, error)
}

type ContactHandler struct {
	Handler
	contacts ContactService
}

func NewContactHandler(s *server.Server, contacts ContactService) *ContactHandler {
	return &ContactHandler{
		Handler:  NewHandler(s),
		contacts: contacts,
	}
}

// Submit stores one contact message. It answers as soon as the row is
// written; the email alert is sent in the background.
func (h *ContactHandler) Submit(c echo.Context, req *ContactRequest) (*ContactResponse, error) {
	_, err := h.contacts.Submit(c.Request().Context(), model.NewSubmission{
		Name:    req.Name,
		Email:   req.Email,
		Mobile:  req.Mobile,
		Message: req.Message,
	})
	if err != nil {
		return nil, err
	}

	return &ContactResponse{Success: true, Message: MessageReceived}, nil
}

// ListMessages returns every stored submission, newest first.
func (h *ContactHandler) ListMessages(c echo.Context, _ *EmptyRequest) ([]model.Submission, error) {
	return h.contacts.List(c.Request().Context())
}

// Routes used by the router.

func (h *ContactHandler) SubmitRoute() echo.HandlerFunc {
	return Handle(h.Handler, h.Submit, http.StatusOK, &ContactRequest{})
}

func (h *ContactHandler) ListMessagesRoute() echo.HandlerFunc {
	return Handle(h.Handler, h.ListMessages, http.StatusOK, &EmptyRequest{})
}
