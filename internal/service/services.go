package service

import (
	"github.com/deppfellow/portfolio-backend/internal/repository"
	"github.com/deppfellow/portfolio-backend/internal/server"
)

type Services struct {
	Auth    *AuthService
	Contact *ContactService
	Chat    *ChatService
}

func NewServices(s *server.Server, repos *repository.Repositories) *Services {
	var notifier SubmissionNotifier
	if s.Notifier != nil {
		notifier = s.Notifier
	}

	return &Services{
		Auth:    NewAuthService(s),
		Contact: NewContactService(repos.Submissions, notifier, s.Logger),
		Chat:    NewChatService(s.AI, s.Logger),
	}
}
