package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFeedbackNotify delivers a submitted feedback message.
	TaskFeedbackNotify = "feedback:notify"
	// TaskParserHealth probes the receipt parser.
	TaskParserHealth = "parser:health"

	// ParserHealthCron runs the parser probe every five minutes.
	ParserHealthCron = "*/5 * * * *"
)

// FeedbackNotifyPayload describes a feedback message awaiting delivery.
type FeedbackNotifyPayload struct {
	FeedbackID uuid.UUID `json:"feedbackId"`
	UserID     uuid.UUID `json:"userId"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewFeedbackNotifyTask constructs an Asynq task.
func NewFeedbackNotifyTask(payload FeedbackNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFeedbackNotify, data, asynq.MaxRetry(5)), nil
}

// NewParserHealthTask constructs the periodic parser probe task.
func NewParserHealthTask() *asynq.Task {
	return asynq.NewTask(TaskParserHealth, nil, asynq.MaxRetry(0), asynq.Timeout(30*time.Second))
}
