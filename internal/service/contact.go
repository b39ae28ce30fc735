package service

import (
	"context"

	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/model"
	"github.com/rs/zerolog"
)

const (
	MessageDatabaseError      = "Database Error"
	MessageDatabaseFetchError = "Database fetch error"
)

// SubmissionStore is implemented by *repository.SubmissionRepository.
type SubmissionStore interface {
	Insert(ctx context.Context, in model.NewSubmission) (*model.Submission, error)
	List(ctx context.Context) ([]model.Submission, error)
}

// SubmissionNotifier is implemented by *notify.Notifier. SubmissionReceived
// must return without waiting for delivery.
type SubmissionNotifier interface {
	SubmissionReceived(s model.Submission)
}

type ContactService struct {
	store    SubmissionStore
	notifier SubmissionNotifier
	logger   *zerolog.Logger
}

func NewContactService(store SubmissionStore, notifier SubmissionNotifier, logger *zerolog.Logger) *ContactService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ContactService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Submit persists the submission and then hands it to the notifier. The
// notification outcome never changes the result: once the row is stored
// the submission has succeeded.
func (s *ContactService) Submit(ctx context.Context, in model.NewSubmission) (*model.Submission, error) {
	stored, err := s.store.Insert(ctx, in)
	if err != nil {
		return nil, databaseError(MessageDatabaseError, err)
	}

	s.logger.Info().
		Int64("submission_id", stored.ID).
		Msg("contact submission stored")

	if s.notifier != nil {
		s.notifier.SubmissionReceived(*stored)
	}
	return stored, nil
}

// List returns every submission, newest first.
func (s *ContactService) List(ctx context.Context) ([]model.Submission, error) {
	submissions, err := s.store.List(ctx)
	if err != nil {
		return nil, databaseError(MessageDatabaseFetchError, err)
	}
	return submissions, nil
}

// databaseError hides the repository failure behind a fixed 500. The
// cause stays attached for the error handler's log line.
func databaseError(message string, err error) *errs.HTTPError {
	return errs.NewInternalServerError().WithMessage(message).WithCause(err)
}
