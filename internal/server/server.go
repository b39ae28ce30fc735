// Package server builds the application container and owns its lifecycle.
//
// New wires every long-lived dependency once at start-up. Shutdown tears
// them down in reverse order of use: HTTP first, then pending
// notifications, the job worker, the database and Redis.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/database"
	"github.com/deppfellow/portfolio-backend/internal/lib/ai"
	"github.com/deppfellow/portfolio-backend/internal/lib/email"
	"github.com/deppfellow/portfolio-backend/internal/lib/job"
	"github.com/deppfellow/portfolio-backend/internal/lib/notify"
	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/portfolio-backend/internal/logger"
)

// RedisPingTimeout bounds the start-up Redis check.
const RedisPingTimeout = 5 * time.Second

// Server is the application container, not the HTTP server itself.
//
// Redis and Job are nil when Redis is not configured.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService

	DB    *database.Database
	Redis *redis.Client
	Job   *job.JobService

	Email    *email.Client
	AI       *ai.Client
	Notifier *notify.Notifier

	httpServer *http.Server
}

// New connects to every dependency and returns the container. Anything
// opened before a failure is closed again.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	s := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
	}
	ready := false
	defer func() {
		if !ready {
			s.closeResources()
		}
	}()

	var err error

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, logger, cfg); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	s.DB, err = database.New(cfg, logger, loggerService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := s.DB.StartKeepAlive(cfg.Database.KeepAliveInterval, cfg.Database.KeepAliveTimeout); err != nil {
		return nil, err
	}

	if cfg.Redis != nil {
		s.Redis = newRedisClient(ctx, cfg.Redis, logger, loggerService)
	}

	s.Email = email.NewClient(cfg, logger)

	var (
		dispatcher     notify.Dispatcher
		dispatcherName = "none"
	)
	switch {
	case !s.Email.Enabled():
		logger.Warn().Msg("no email transport configured, contact alerts are disabled")
	case s.Redis != nil && cfg.Notify.UseQueue:
		s.Job = job.NewJobService(logger, cfg, s.Email)
		if err := s.Job.Start(); err != nil {
			return nil, err
		}
		dispatcher, dispatcherName = s.Job, "queue"
	default:
		dispatcher, dispatcherName = s.Email, s.Email.Transport()
	}
	s.Notifier = notify.New(dispatcher, dispatcherName, cfg.Notify.DispatchTimeout, logger)

	s.AI, err = ai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !s.AI.Configured() {
		logger.Warn().Msg("no AI API key configured, /api/chat will answer 503")
	}

	ready = true
	return s, nil
}

func newRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if loggerService.GetApplication() != nil {
		client.AddHook(nrredis.NewHook(client.Options()))
	}

	pingCtx, cancel := context.WithTimeout(ctx, RedisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error().Err(err).Str("address", cfg.Address).Msg("failed to connect to Redis, continuing")
	}
	return client
}

// SetupHTTPServer configures the listener around handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  s.Config.Server.ReadTimeout,
		WriteTimeout: s.Config.Server.WriteTimeout,
		IdleTimeout:  s.Config.Server.IdleTimeout,
	}
}

// Start blocks serving HTTP. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones, drains
// pending notifications and releases every dependency. It keeps going past
// individual failures and reports them together.
func (s *Server) Shutdown(ctx context.Context) error {
	var errList []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errList = append(errList, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.Notifier != nil {
		if err := s.Notifier.Close(ctx); err != nil {
			errList = append(errList, err)
		}
	}

	errList = append(errList, s.closeResources()...)

	return errors.Join(errList...)
}

func (s *Server) closeResources() []error {
	var errList []error

	if s.Job != nil {
		s.Job.Stop()
		s.Job = nil
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errList = append(errList, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errList = append(errList, fmt.Errorf("failed to close redis client: %w", err))
		}
		s.Redis = nil
	}

	return errList
}
