package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/hibiken/asynq"
)

// alertSender is the part of *email.Client the worker needs.
type alertSender interface {
	SendContactAlert(ctx context.Context, alert email.ContactAlert) error
}

func (j *JobService) handleContactAlertTask(ctx context.Context, t *asynq.Task) error {
	var alert email.ContactAlert
	if err := json.Unmarshal(t.Payload(), &alert); err != nil {
		return fmt.Errorf("failed to unmarshal contact alert payload: %v: %w", err, asynq.SkipRetry)
	}

	j.logger.Info().
		Str("type", "contact_alert").
		Str("from", alert.Email).
		Msg("Processing contact alert task")

	if err := j.emails.SendContactAlert(ctx, alert); err != nil {
		j.logger.Error().
			Str("type", "contact_alert").
			Str("from", alert.Email).
			Err(err).
			Msg("Failed to send contact alert")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	j.logger.Info().
		Str("type", "contact_alert").
		Str("from", alert.Email).
		Msg("Successfully sent contact alert")

	return nil
}
