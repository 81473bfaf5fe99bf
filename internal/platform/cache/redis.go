package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client for the report cache and job queue. An
// unreachable server is reported but does not prevent startup: callers treat
// the cache as optional and fall back to the database.
func New(ctx context.Context, addr string, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		if logger != nil {
			logger.Warn("redis ping", slog.String("addr", addr), slog.Any("error", err))
		}
		return client, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}
