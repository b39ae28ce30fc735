// Package database owns the PostgreSQL connection pool.
//
// Every unit of work goes through Database.WithConn, which passes an
// admission gate sized to the pool before touching it. When the gate is full
// the caller either waits or is turned away with ErrPoolBusy, depending on
// the configured queue mode.
//
// The package also wires query tracing (pgx tracelog, New Relic) and runs
// the periodic keep-alive probe.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	loggerConfig "github.com/deppfellow/portfolio-backend/internal/logger"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// DatabasePingTimeout is how long start-up waits for the first ping.
const DatabasePingTimeout = 10 * time.Second

// ErrPoolBusy is returned by WithConn in reject mode when every connection
// is already in use.
var ErrPoolBusy = errors.New("database: all connections are busy")

// Querier is the subset of *pgxpool.Pool the repositories use.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Database wraps the pool with its admission gate and keep-alive scheduler.
//
// Pool is nil when the Database was built around another Querier.
type Database struct {
	Pool *pgxpool.Pool

	q              Querier
	gate           *semaphore.Weighted
	rejectWhenBusy bool
	log            *zerolog.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
	closeOnce sync.Once
}

// Options configures a Database built with NewWithQuerier.
type Options struct {
	// MaxConns sizes the admission gate. Values below 1 are treated as 1.
	MaxConns int32

	// RejectWhenBusy makes WithConn fail fast instead of queueing.
	RejectWhenBusy bool
}

// NewWithQuerier builds a Database around any Querier. New uses it with a
// pgx pool; tests use it with fakes.
func NewWithQuerier(q Querier, opts Options, logger *zerolog.Logger) *Database {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	slots := int64(opts.MaxConns)
	if slots < 1 {
		slots = 1
	}

	return &Database{
		q:              q,
		gate:           semaphore.NewWeighted(slots),
		rejectWhenBusy: opts.RejectWhenBusy,
		log:            logger,
	}
}

// New creates the PostgreSQL connection pool, pings it and returns the
// gated Database.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	pgxPoolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx pool config: %w", err)
	}

	pgxPoolConfig.MaxConns = cfg.Database.MaxConns
	if cfg.Database.ConnMaxLifetime > 0 {
		pgxPoolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		pgxPoolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	}

	pgxPoolConfig.ConnConfig.Tracer = buildTracer(cfg, logger, loggerService)

	pool, err := pgxpool.NewWithConfig(context.Background(), pgxPoolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DatabasePingTimeout)
	defer cancel()
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := NewWithQuerier(pool, Options{
		MaxConns:       cfg.Database.MaxConns,
		RejectWhenBusy: cfg.Database.RejectWhenBusy(),
	}, logger)
	db.Pool = pool

	logger.Info().
		Int32("max_conns", cfg.Database.MaxConns).
		Str("queue_mode", cfg.Database.QueueMode).
		Msg("connected to the database")

	return db, nil
}

// buildTracer picks the pgx tracers for the environment. pgx takes a
// single tracer, so several are chained through multiTracer.
func buildTracer(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) pgx.QueryTracer {
	var tracers []any

	if loggerService.GetApplication() != nil {
		tracers = append(tracers, nrpgx5.NewTracer())
	}

	if cfg.Primary.Env == "local" {
		globalLevel := logger.GetLevel()
		tracers = append(tracers, &tracelog.TraceLog{
			Logger:   pgxzero.NewLogger(loggerConfig.NewPgxLogger(globalLevel)),
			LogLevel: tracelog.LogLevel(loggerConfig.GetPgxTraceLogLevel(globalLevel)),
		})
	}

	if obs := cfg.Observability; obs != nil && obs.Logging.SlowQueryThreshold > 0 {
		tracers = append(tracers, &slowQueryTracer{
			threshold: obs.Logging.SlowQueryThreshold,
			log:       logger,
		})
	}

	switch len(tracers) {
	case 0:
		return nil
	case 1:
		if t, ok := tracers[0].(pgx.QueryTracer); ok {
			return t
		}
	}
	return &multiTracer{tracers: tracers}
}

// WithConn runs fn once the admission gate admits the caller.
//
// In wait mode it blocks until a slot frees or ctx ends. In reject mode it
// returns ErrPoolBusy immediately when every slot is held. Exactly one slot
// is taken and released per call.
func (db *Database) WithConn(ctx context.Context, fn func(Querier) error) error {
	if err := db.acquire(ctx); err != nil {
		return err
	}
	defer db.gate.Release(1)

	return fn(db.q)
}

func (db *Database) acquire(ctx context.Context) error {
	if db.rejectWhenBusy {
		if !db.gate.TryAcquire(1) {
			return ErrPoolBusy
		}
		return nil
	}

	if err := db.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for a database connection: %w", err)
	}
	return nil
}

// Ping checks that the database answers, through the gate.
func (db *Database) Ping(ctx context.Context) error {
	return db.WithConn(ctx, func(q Querier) error {
		_, err := q.Exec(ctx, "SELECT 1")
		return err
	})
}

// Close stops the keep-alive scheduler, waits for a running probe and
// closes the pool. It is safe to call more than once.
func (db *Database) Close() error {
	db.closeOnce.Do(func() {
		db.StopKeepAlive()

		if db.Pool != nil {
			db.log.Info().Msg("closing database connection pool")
			db.Pool.Close()
		}
	})
	return nil
}
