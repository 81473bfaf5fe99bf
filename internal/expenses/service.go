package expenses

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/smartexpense/smartexpense/internal/receipts"
	"github.com/smartexpense/smartexpense/internal/shared"
)

// ReceiptParser extracts fields from a receipt image. ok is false whenever
// the parser could not be used.
type ReceiptParser interface {
	Parse(ctx context.Context, upload receipts.Upload) (receipts.Parsed, bool)
}

// Invalidator is notified after every change to a user's expenses.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// Service implements the expense use cases.
type Service struct {
	repo        Repository
	parser      ReceiptParser
	invalidator Invalidator
	observer    receipts.Observer
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds a Service. parser and invalidator may be nil.
func NewService(repo Repository, parser ReceiptParser, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		parser:      parser,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// WithObserver records receipt-less creates as skipped enrichments.
func (s *Service) WithObserver(o receipts.Observer) *Service {
	s.observer = o
	return s
}

// Create stores a new expense for owner, enriching it from the receipt when
// one is attached.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, fields CreateFields, receipt *receipts.Upload) (*Expense, error) {
	var (
		enrichment Enrichment
		ok         bool
	)
	if receipt != nil && s.parser != nil {
		var parsed receipts.Parsed
		parsed, ok = s.parser.Parse(ctx, *receipt)
		if ok {
			enrichment = EnrichmentFrom(parsed)
		}
	} else if s.observer != nil {
		s.observer.ObserveEnrichment(receipts.OutcomeSkipped, 0)
	}

	resolved, err := Resolve(fields, enrichment, ok, s.now())
	if err != nil {
		return nil, err
	}

	expense := &Expense{
		ID:          uuid.New(),
		UserID:      owner,
		Amount:      resolved.Amount,
		Currency:    resolved.Currency,
		Category:    resolved.Category,
		Description: resolved.Description,
		Merchant:    resolved.Merchant,
		Date:        resolved.Date,
	}
	if err := s.repo.Insert(ctx, expense); err != nil {
		return nil, err
	}
	s.invalidate(ctx, owner)
	s.logger.Info("expense created",
		slog.String("expense_id", expense.ID.String()),
		slog.Bool("enriched", ok))
	return expense, nil
}

// List returns the owner's expenses, newest first.
func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]Expense, error) {
	return s.repo.ListByUser(ctx, owner)
}

// Get returns one of the owner's expenses.
func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*Expense, error) {
	return s.owned(ctx, owner, id)
}

// Update applies input to one of the owner's expenses.
func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, input UpdateInput) (*Expense, error) {
	expense, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	input.Apply(expense)
	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, err
	}
	s.invalidate(ctx, owner)
	return expense, nil
}

// Delete removes one of the owner's expenses.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if _, err := s.owned(ctx, owner, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, owner)
	return nil
}

func (s *Service) owned(ctx context.Context, owner, id uuid.UUID) (*Expense, error) {
	expense, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense.UserID != owner {
		return nil, shared.ErrForbidden
	}
	return expense, nil
}

func (s *Service) invalidate(ctx context.Context, owner uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, owner); err != nil {
		s.logger.Warn("report cache invalidation failed", slog.Any("error", err))
	}
}
