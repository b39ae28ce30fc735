package service

import (
	"context"

	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/lib/ai"
	"github.com/rs/zerolog"
)

// MessageAssistantOffline is the only failure a chat caller ever sees.
const MessageAssistantOffline = ai.AssistantName + " is offline temporarily."

// Replier is implemented by *ai.Client.
type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
}

type ChatService struct {
	ai     Replier
	logger *zerolog.Logger
}

func NewChatService(replier Replier, logger *zerolog.Logger) *ChatService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ChatService{ai: replier, logger: logger}
}

// Reply relays message to the assistant. Any failure, a missing API key
// included, becomes a 503.
func (s *ChatService) Reply(ctx context.Context, message string) (string, error) {
	if s.ai == nil {
		return "", errs.NewServiceUnavailableError(MessageAssistantOffline).WithCause(ai.ErrNotConfigured)
	}

	reply, err := s.ai.Reply(ctx, message)
	if err != nil {
		return "", errs.NewServiceUnavailableError(MessageAssistantOffline).WithCause(err)
	}
	return reply, nil
}
