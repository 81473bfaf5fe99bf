package reports

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartexpense/smartexpense/internal/expenses"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAggregate(t *testing.T) {
	list := []expenses.Expense{
		{Amount: 200, Category: "Travel", Date: day(2025, 2, 10)},
		{Amount: 499, Category: "Food", Date: day(2025, 1, 5)},
		{Amount: 100, Category: "Food", Date: day(2025, 2, 1)},
		{Amount: 50, Category: "", Date: day(2024, 12, 31)},
	}
	s := Aggregate(list)

	assert.Equal(t, 849.0, s.Total)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, []CategoryTotal{
		{Category: "Travel", Amount: 200},
		{Category: "Food", Amount: 599},
		{Category: "Uncategorized", Amount: 50},
	}, s.Categories)
	assert.Equal(t, []MonthTotal{
		{Month: "2024-12", Amount: 50},
		{Month: "2025-01", Amount: 499},
		{Month: "2025-02", Amount: 300},
	}, s.Months)
	assert.Equal(t, []float64{50, 549, 849}, s.Cumulative())
}

func TestAggregateUsesUTCMonth(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	s := Aggregate([]expenses.Expense{{Amount: 1, Category: "Food", Date: time.Date(2025, 2, 1, 2, 0, 0, 0, ist)}})
	assert.Equal(t, "2025-01", s.Months[0].Month)
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	assert.Zero(t, s.Total)
	assert.NotNil(t, s.Categories)
	assert.NotNil(t, s.Months)
}

type countingLister struct {
	calls atomic.Int32
	list  []expenses.Expense
	err   error
	delay time.Duration
}

func (c *countingLister) List(ctx context.Context, owner uuid.UUID) ([]expenses.Expense, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.list, c.err
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSummaryCachesUntilInvalidated(t *testing.T) {
	lister := &countingLister{list: []expenses.Expense{{Amount: 10, Category: "Food", Date: day(2025, 1, 1)}}}
	svc := NewService(lister, NewCache(newRedis(t), time.Minute), nil)
	ctx := context.Background()
	user := uuid.New()

	first, err := svc.Summary(ctx, user)
	require.NoError(t, err)
	second, err := svc.Summary(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)
	assert.EqualValues(t, 1, lister.calls.Load())

	lister.list = append(lister.list, expenses.Expense{Amount: 5, Category: "Food", Date: day(2025, 1, 2)})
	require.NoError(t, svc.Invalidate(ctx, user))

	third, err := svc.Summary(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 15.0, third.Total)
	assert.EqualValues(t, 2, lister.calls.Load())
}

func TestSummaryVersionsArePerUser(t *testing.T) {
	client := newRedis(t)
	cache := NewCache(client, time.Minute)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, cache.Invalidate(ctx, alice))
	va, err := cache.Version(ctx, alice)
	require.NoError(t, err)
	vb, err := cache.Version(ctx, bob)
	require.NoError(t, err)
	assert.EqualValues(t, 1, va)
	assert.EqualValues(t, 1, vb)

	key, err := cache.BuildKey(ctx, "summary", bob)
	require.NoError(t, err)
	assert.Equal(t, "reports:summary:"+bob.String()+":1", key)
}

func TestSummaryWithoutRedis(t *testing.T) {
	lister := &countingLister{}
	svc := NewService(lister, NewCache(nil, 0), nil)

	s, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, s.Total)
	_, err = svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 2, lister.calls.Load())
}

func TestSummaryFallsBackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	lister := &countingLister{list: []expenses.Expense{{Amount: 7, Category: "Food", Date: day(2025, 1, 1)}}}
	svc := NewService(lister, NewCache(client, time.Minute), nil)

	s, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.Total)
}

func TestSummaryPropagatesListError(t *testing.T) {
	boom := errors.New("db down")
	lister := &countingLister{err: boom}
	svc := NewService(lister, NewCache(newRedis(t), time.Minute), nil)

	_, err := svc.Summary(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, lister.calls.Load())
}

func TestSummaryCoalescesConcurrentCalls(t *testing.T) {
	lister := &countingLister{delay: 50 * time.Millisecond}
	svc := NewService(lister, NewCache(nil, 0), nil)
	user := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Summary(context.Background(), user)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, lister.calls.Load(), int32(8))
}

type gatedLister struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	ctxErr  atomic.Value
}

func (g *gatedLister) List(ctx context.Context, owner uuid.UUID) ([]expenses.Expense, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
	}
	<-g.release
	if err := ctx.Err(); err != nil {
		g.ctxErr.Store(err)
		return nil, err
	}
	return []expenses.Expense{{Amount: 42, Category: "Food", Date: day(2025, 1, 1)}}, nil
}

func TestSummarySurvivesCancelledSharingCaller(t *testing.T) {
	lister := &gatedLister{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(lister, NewCache(nil, 0), nil)
	user := uuid.New()

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Summary(ctxA, user)
		errA <- err
	}()
	<-lister.started

	type result struct {
		summary Summary
		err     error
	}
	resB := make(chan result, 1)
	go func() {
		s, err := svc.Summary(context.Background(), user)
		resB <- result{s, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(lister.release)
	got := <-resB
	require.NoError(t, got.err)
	assert.Equal(t, 42.0, got.summary.Total)
	assert.Nil(t, lister.ctxErr.Load())
}
