package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/smartexpense/smartexpense/internal/expenses"
)

// ExpenseLister returns a user's expenses.
type ExpenseLister interface {
	List(ctx context.Context, owner uuid.UUID) ([]expenses.Expense, error)
}

// Service computes and caches spending summaries.
type Service struct {
	lister  ExpenseLister
	cache   *Cache
	logger  *slog.Logger
	group   singleflight.Group
	timeout time.Duration
	now     func() time.Time
}

// summaryTimeout bounds a shared summary computation.
const summaryTimeout = 30 * time.Second

// NewService wires the expense source with the cache helper.
func NewService(lister ExpenseLister, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{lister: lister, cache: cache, logger: logger, timeout: summaryTimeout, now: time.Now}
}

// Summary returns the user's aggregated spending. Concurrent calls for the
// same user share one computation, which runs detached from any single
// caller's cancellation. Cache failures fall back to the database.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	ch := s.group.DoChan(userID.String(), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.summary(flightCtx, userID)
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

func (s *Service) summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	var loadErr error
	load := func(ctx context.Context) (any, error) {
		list, err := s.lister.List(ctx, userID)
		if err != nil {
			loadErr = err
			return nil, err
		}
		summary := Aggregate(list)
		summary.GeneratedAt = s.now().UTC()
		return summary, nil
	}

	key, err := s.cache.BuildKey(ctx, "summary", userID)
	if err == nil {
		var cached Summary
		if err = s.cache.FetchJSON(ctx, key, &cached, load); err == nil {
			return cached, nil
		}
		if loadErr != nil {
			return Summary{}, loadErr
		}
	}
	s.logger.Warn("report cache unavailable", slog.Any("error", err))

	value, err := load(ctx)
	if err != nil {
		return Summary{}, err
	}
	return value.(Summary), nil
}

// Invalidate forgets cached summaries for the user.
func (s *Service) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Invalidate(ctx, userID)
}
