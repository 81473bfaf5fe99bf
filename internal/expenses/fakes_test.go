package expenses

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartexpense/smartexpense/internal/receipts"
	"github.com/smartexpense/smartexpense/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]Expense
	clock time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[uuid.UUID]Expense{}, clock: fixedNow}
}

func (m *memoryRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memoryRepo) Insert(ctx context.Context, e *Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.CreatedAt = m.tick()
	e.UpdatedAt = e.CreatedAt
	m.items[e.ID] = *e
	return nil
}

func (m *memoryRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Expense, 0)
	for _, e := range m.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &e, nil
}

func (m *memoryRepo) Update(ctx context.Context, e *Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[e.ID]; !ok {
		return shared.ErrNotFound
	}
	e.UpdatedAt = m.tick()
	m.items[e.ID] = *e
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type stubParser struct {
	parsed receipts.Parsed
	ok     bool
	calls  int
}

func (s *stubParser) Parse(ctx context.Context, upload receipts.Upload) (receipts.Parsed, bool) {
	s.calls++
	return s.parsed, s.ok
}

type countingInvalidator struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (c *countingInvalidator) Invalidate(ctx context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, userID)
	return nil
}
