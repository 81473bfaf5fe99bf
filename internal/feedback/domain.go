// Package feedback stores user feedback and hands it to the notifier queue.
package feedback

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is one message submitted by a user.
type Feedback struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user"`
	Email     string    `json:"-"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubmitInput is the payload accepted by Submit. Messages must be longer
// than ten characters once trimmed.
type SubmitInput struct {
	Message string `json:"message" validate:"required,min=11,max=2000"`
}
