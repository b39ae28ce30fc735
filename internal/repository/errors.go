package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/portfolio-backend/internal/database"
	"github.com/deppfellow/portfolio-backend/internal/sqlerr"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConnection means no connection could be obtained: the gate turned
	// the caller away, the wait was cancelled, or the dial failed.
	ErrConnection = errors.New("database connection unavailable")

	// ErrInsert means a connection was obtained but the write failed.
	ErrInsert = errors.New("failed to store submission")

	// ErrQuery means a connection was obtained but a read failed.
	ErrQuery = errors.New("failed to query submissions")
)

// isConnectionFailure reports whether err happened before a statement
// could run, or because the server went away.
func isConnectionFailure(err error) bool {
	if errors.Is(err, database.ErrPoolBusy) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	return sqlerr.ErrCode(err).IsConnectionProblem()
}

// classify wraps err in ErrConnection or in fallback, keeping the cause in
// the chain for logging.
func classify(err, fallback error) error {
	if err == nil {
		return nil
	}
	if isConnectionFailure(err) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return fmt.Errorf("%w: %w", fallback, err)
}
