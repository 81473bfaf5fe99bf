// Package expenses owns expense records and their receipt enrichment.
package expenses

import (
	"time"

	"github.com/google/uuid"
)

// Defaults applied when neither the client nor the receipt parser supply a value.
const (
	DefaultCategory = "Uncategorized"
	DefaultCurrency = "INR"

	MaxDescriptionLength = 500
	MaxReceiptBytes      = 10 << 20
)

// Expense is a single spending record owned by one user.
type Expense struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Merchant    string    `json:"merchant"`
	Date        time.Time `json:"date"`
	ReceiptURL  *string   `json:"receiptUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateFields are the raw client supplied values of a create request. Empty
// strings mean "not supplied".
type CreateFields struct {
	Amount      string
	Category    string
	Description string
	Merchant    string
	Date        string
	Currency    string
}

// Enrichment is what the receipt parser extracted, already normalised.
type Enrichment struct {
	Amount   *float64
	Category string
	Merchant string
	Currency string
	RawText  string
	Date     *time.Time
}

// Resolved holds the final attribute values of a new expense.
type Resolved struct {
	Amount      float64
	Category    string
	Description string
	Merchant    string
	Currency    string
	Date        time.Time
}

// UpdateInput carries a partial update. Nil fields are left untouched.
type UpdateInput struct {
	Amount      *float64
	Category    *string
	Description *string
	Merchant    *string
	Currency    *string
	Date        *time.Time
}

// Apply writes the non-nil fields of in onto e.
func (in UpdateInput) Apply(e *Expense) {
	if in.Amount != nil {
		e.Amount = *in.Amount
	}
	if in.Category != nil {
		e.Category = *in.Category
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Merchant != nil {
		e.Merchant = *in.Merchant
	}
	if in.Currency != nil {
		e.Currency = *in.Currency
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
}
