// Package job runs contact alerts through a Redis-backed Asynq queue.
//
// The HTTP side enqueues with Dispatch. The embedded Asynq server picks the
// task up and sends the email through the shared email client.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// JobService owns the Asynq client and worker server.
type JobService struct {
	Client *asynq.Client

	server      *asynq.Server
	emails      alertSender
	taskTimeout time.Duration
	logger      *zerolog.Logger
}

// NewJobService connects to cfg.Redis. The caller must check that Redis is
// configured.
func NewJobService(logger *zerolog.Logger, cfg *config.Config, emails *email.Client) *JobService {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			QueueDefault: 1,
		},
		Logger:   &asynqLogger{log: logger},
		LogLevel: asynq.WarnLevel,
	})

	return &JobService{
		Client:      asynq.NewClient(redisOpt),
		server:      server,
		emails:      emails,
		taskTimeout: cfg.Notify.DispatchTimeout,
		logger:      logger,
	}
}

// Start registers the handlers and starts the worker server in the
// background.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskContactAlert, j.handleContactAlertTask)

	j.logger.Info().Msg("Starting background job server")

	if err := j.server.Start(mux); err != nil {
		return errors.Wrap(err, "failed to start job server")
	}
	return nil
}

// Dispatch enqueues a contact alert. It returns once the task is stored in
// Redis, not once the email is sent.
func (j *JobService) Dispatch(ctx context.Context, alert email.ContactAlert) error {
	task, err := NewContactAlertTask(alert, j.taskTimeout)
	if err != nil {
		return err
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return errors.Wrap(err, "failed to enqueue contact alert")
	}

	j.logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("contact alert enqueued")
	return nil
}

// Stop shuts the worker down, waiting for in-flight tasks, and closes the
// client.
func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	j.server.Shutdown()
	if err := j.Client.Close(); err != nil {
		j.logger.Warn().Err(err).Msg("closing job client")
	}
}

// asynqLogger routes Asynq's internal logging to zerolog.
type asynqLogger struct {
	log *zerolog.Logger
}

func (l *asynqLogger) Debug(args ...any) { l.log.Debug().Str("component", "asynq").Msg(sprint(args)) }
func (l *asynqLogger) Info(args ...any)  { l.log.Info().Str("component", "asynq").Msg(sprint(args)) }
func (l *asynqLogger) Warn(args ...any)  { l.log.Warn().Str("component", "asynq").Msg(sprint(args)) }
func (l *asynqLogger) Error(args ...any) { l.log.Error().Str("component", "asynq").Msg(sprint(args)) }
func (l *asynqLogger) Fatal(args ...any) { l.log.Fatal().Str("component", "asynq").Msg(sprint(args)) }

func sprint(args []any) string {
	return fmt.Sprint(args...)
}
