package job

import (
	"encoding/json"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
)

const (
	// TaskContactAlert is the task type for the owner's new-message email.
	TaskContactAlert = "email:contact_alert"

	// QueueDefault is the only queue contact alerts use.
	QueueDefault = "default"
)

// NewContactAlertTask serializes alert into a task.
//
// MaxRetry(0) keeps delivery at most once: a failed alert is logged and
// dropped rather than mailed twice.
func NewContactAlertTask(alert email.ContactAlert, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal contact alert payload")
	}

	return asynq.NewTask(
		TaskContactAlert,
		payload,
		asynq.MaxRetry(0),
		asynq.Queue(QueueDefault),
		asynq.Timeout(timeout),
	), nil
}
