package repository

import (
	"github.com/deppfellow/portfolio-backend/internal/server"
)

// Repositories groups every repository so services receive one value.
type Repositories struct {
	Submissions *SubmissionRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Submissions: NewSubmissionRepository(s.DB),
	}
}
