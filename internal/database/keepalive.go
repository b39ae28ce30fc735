package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// StartKeepAlive schedules Probe every interval. Each probe is bounded by
// timeout. A second call while the scheduler runs is a no-op.
func (db *Database) StartKeepAlive(interval, timeout time.Duration) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.scheduler != nil {
		return nil
	}

	scheduler := cron.New(
		cron.WithLogger(cron.PrintfLogger(db.log)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	schedule := fmt.Sprintf("@every %s", interval)
	if _, err := scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = db.Probe(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling keep-alive %q: %w", schedule, err)
	}

	scheduler.Start()
	db.scheduler = scheduler

	db.log.Info().Dur("interval", interval).Msg("database keep-alive started")
	return nil
}

// StopKeepAlive stops the scheduler and waits for a running probe to finish.
func (db *Database) StopKeepAlive() {
	db.mu.Lock()
	scheduler := db.scheduler
	db.scheduler = nil
	db.mu.Unlock()

	if scheduler == nil {
		return
	}
	<-scheduler.Stop().Done()
}

// Probe issues a trivial query so idle connections are not reaped by
// intermediaries. Failures are logged as warnings and returned; they never
// affect request handling.
//
// In reject mode a full gate means the pool is in active use, so the probe
// is skipped.
func (db *Database) Probe(ctx context.Context) error {
	err := db.Ping(ctx)
	switch {
	case err == nil:
		db.log.Debug().Msg("database keep-alive ok")
	case errors.Is(err, ErrPoolBusy):
		db.log.Debug().Msg("database keep-alive skipped, pool busy")
		return nil
	default:
		db.log.Warn().Err(err).Msg("database keep-alive failed")
	}
	return err
}
