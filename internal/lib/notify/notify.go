// Package notify delivers contact alerts off the request path.
//
// A delivery never blocks or fails the HTTP response that triggered it.
// Errors are logged and dropped, and nothing is retried.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/deppfellow/portfolio-backend/internal/model"
	"github.com/rs/zerolog"
)

// Dispatcher delivers one alert. *email.Client sends it directly,
// *job.JobService enqueues it.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert email.ContactAlert) error
}

// Notifier runs each delivery on its own goroutine and tracks them so
// Close can wait for the stragglers.
type Notifier struct {
	dispatcher Dispatcher
	name       string
	timeout    time.Duration
	logger     *zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New returns a Notifier. A nil dispatcher disables delivery; submissions
// are then only logged. name labels the dispatcher in logs.
func New(dispatcher Dispatcher, name string, timeout time.Duration, logger *zerolog.Logger) *Notifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Notifier{
		dispatcher: dispatcher,
		name:       name,
		timeout:    timeout,
		logger:     logger,
	}
}

// SubmissionReceived schedules an alert for s and returns immediately.
func (n *Notifier) SubmissionReceived(s model.Submission) {
	alert := email.ContactAlert{
		Name:       s.Name,
		Email:      s.Email,
		Message:    s.Message,
		ReceivedAt: s.Timestamp,
	}
	if s.Mobile != nil {
		alert.Mobile = *s.Mobile
	}

	log := n.logger.With().Int64("submission_id", s.ID).Str("dispatcher", n.name).Logger()

	if n.dispatcher == nil {
		log.Info().Msg("email alerts disabled, skipping notification")
		return
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		log.Warn().Msg("notifier closed, dropping notification")
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		n.deliver(alert, log)
	}()
}

func (n *Notifier) deliver(alert email.ContactAlert, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("notification panicked")
		}
	}()

	ctx := context.Background()
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := n.dispatcher.Dispatch(ctx, alert); err != nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("notification failed")
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("notification sent")
}

// Close stops accepting new notifications and waits for in-flight ones
// until ctx ends.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for pending notifications: %w", ctx.Err())
	}
}
