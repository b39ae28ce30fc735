package service

import (
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/deppfellow/portfolio-backend/internal/server"
)

// AuthService registers the Clerk secret used by the admin guard. Without
// a secret Clerk is left unconfigured and the admin routes stay open.
type AuthService struct{}

func NewAuthService(s *server.Server) *AuthService {
	if key := s.Config.Auth.SecretKey; key != "" {
		clerk.SetKey(key)
	}
	return &AuthService{}
}
