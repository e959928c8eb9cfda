package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// PostgreSQL error codes
const (
	pgErrUniqueViolation     = "23505" // unique_violation
	pgErrSerializationFailed = "40001" // serialization_failure
	pgErrDeadlockDetected    = "40P01" // deadlock_detected
)

// IsDuplicateKeyError checks if err is a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, pgErrUniqueViolation)
}

// IsRetryableTxError reports whether a transaction failed only because of
// contention and may be retried from the start.
func IsRetryableTxError(err error) bool {
	return hasCode(err, pgErrSerializationFailed) || hasCode(err, pgErrDeadlockDetected)
}

// IsNotFoundError checks if err indicates no rows found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
