package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	got []email.ContactAlert
	err error
}

func (f *fakeSender) SendContactAlert(_ context.Context, alert email.ContactAlert) error {
	f.got = append(f.got, alert)
	return f.err
}

func newTestService(sender alertSender) (*JobService, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	return &JobService{emails: sender, logger: &logger, taskTimeout: time.Second}, &buf
}

func TestNewContactAlertTask(t *testing.T) {
	alert := email.ContactAlert{Name: "Ada", Email: "ada@example.com", Message: "hi"}

	task, err := NewContactAlertTask(alert, 30*time.Second)
	require.NoError(t, err)

	assert.Equal(t, TaskContactAlert, task.Type())
	var decoded email.ContactAlert
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, alert.Name, decoded.Name)
	assert.Equal(t, alert.Email, decoded.Email)
}

func TestHandleContactAlertTask_Sends(t *testing.T) {
	sender := &fakeSender{}
	svc, logs := newTestService(sender)
	task, err := NewContactAlertTask(email.ContactAlert{Name: "Ada", Email: "ada@example.com", Message: "hi"}, time.Second)
	require.NoError(t, err)

	require.NoError(t, svc.handleContactAlertTask(context.Background(), task))

	require.Len(t, sender.got, 1)
	assert.Equal(t, "Ada", sender.got[0].Name)
	assert.Contains(t, logs.String(), "Successfully sent contact alert")
}

func TestHandleContactAlertTask_FailureSkipsRetry(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	svc, logs := newTestService(sender)
	task, err := NewContactAlertTask(email.ContactAlert{Name: "Ada"}, time.Second)
	require.NoError(t, err)

	err = svc.handleContactAlertTask(context.Background(), task)

	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, sender.err)
	assert.Contains(t, logs.String(), "Failed to send contact alert")
}

func TestHandleContactAlertTask_BadPayload(t *testing.T) {
	sender := &fakeSender{}
	svc, _ := newTestService(sender)

	err := svc.handleContactAlertTask(context.Background(), asynq.NewTask(TaskContactAlert, []byte("{")))

	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, sender.got)
}
