package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/smartexpense/smartexpense/internal/jobs"
)

// FeedbackNotifyJob delivers feedback messages. Delivery is a structured log
// entry until a mail transport is configured.
type FeedbackNotifyJob struct {
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewFeedbackNotifyJob wires dependencies for the notify handler.
func NewFeedbackNotifyJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *FeedbackNotifyJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackNotifyJob{logger: logger, metrics: metrics}
}

// Handle processes TaskFeedbackNotify tasks.
func (j *FeedbackNotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskFeedbackNotify)
	var payload FeedbackNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	j.logger.Info("feedback received",
		slog.String("feedback_id", payload.FeedbackID.String()),
		slog.String("user_id", payload.UserID.String()),
		slog.String("email", payload.Email),
		slog.Int("length", len(payload.Message)),
	)
	return tracker.End(nil)
}
