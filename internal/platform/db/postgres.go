package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRetriesExhausted is returned when every connection attempt failed.
var ErrRetriesExhausted = errors.New("platform/db: all retry attempts exhausted")

// RetryPolicy bounds the startup connection loop. The delay is fixed between attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// DefaultRetryPolicy mirrors the production bootstrap: 5 attempts, 3s apart, 5s per attempt.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Delay: 3 * time.Second, Timeout: 5 * time.Second}

type connectFunc func(ctx context.Context, dsn string) (*pgxpool.Pool, error)

// New creates a new PostgreSQL connection pool and verifies it with a ping.
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}

// Connect opens the pool, retrying with a fixed delay until the policy is exhausted.
func Connect(ctx context.Context, dsn string, policy RetryPolicy, logger *slog.Logger) (*pgxpool.Pool, error) {
	return connect(ctx, dsn, policy, logger, New, sleep)
}

func connect(ctx context.Context, dsn string, policy RetryPolicy, logger *slog.Logger, dial connectFunc, wait func(context.Context, time.Duration) error) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Attempts <= 0 {
		policy.Attempts = DefaultRetryPolicy.Attempts
	}
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultRetryPolicy.Timeout
	}

	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
		pool, err := dial(attemptCtx, dsn)
		cancel()
		if err == nil {
			logger.Info("database connected", slog.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		logger.Error("database connection attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
		if attempt == policy.Attempts {
			break
		}
		if err := wait(ctx, policy.Delay); err != nil {
			return nil, fmt.Errorf("platform/db: connect aborted: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
