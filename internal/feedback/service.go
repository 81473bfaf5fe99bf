package feedback

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/smartexpense/smartexpense/internal/shared"
)

// Notifier delivers stored feedback out of band.
type Notifier interface {
	NotifyFeedback(ctx context.Context, fb Feedback) error
}

// Service validates and records feedback.
type Service struct {
	repo      Repository
	notifier  Notifier
	validator *validator.Validate
	logger    *slog.Logger
}

// NewService constructs a Service. notifier may be nil.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, validator: shared.NewValidator(), logger: logger}
}

// Submit stores the caller's message and queues a notification. Queue
// failures are logged and do not fail the submission.
func (s *Service) Submit(ctx context.Context, caller shared.Identity, input SubmitInput) (*Feedback, error) {
	input.Message = strings.TrimSpace(input.Message)
	if err := shared.ValidateStruct(s.validator, input); err != nil {
		return nil, err
	}
	fb := &Feedback{
		ID:      uuid.New(),
		UserID:  caller.UserID,
		Email:   caller.Email,
		Message: input.Message,
	}
	if err := s.repo.Insert(ctx, fb); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyFeedback(ctx, *fb); err != nil {
			s.logger.Warn("enqueue feedback notification", slog.String("feedback_id", fb.ID.String()), slog.Any("error", err))
		}
	}
	return fb, nil
}
