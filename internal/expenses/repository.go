package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartexpense/smartexpense/internal/platform/db"
	"github.com/smartexpense/smartexpense/internal/shared"
)

// Repository persists expenses.
type Repository interface {
	Insert(ctx context.Context, e *Expense) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Expense, error)
	Get(ctx context.Context, id uuid.UUID) (*Expense, error)
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const expenseColumns = `id, user_id, amount, currency, category, description, merchant, date, receipt_url, created_at, updated_at`

// Insert stores a new expense and fills the timestamps.
func (r *PGRepository) Insert(ctx context.Context, e *Expense) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (id, user_id, amount, currency, category, description, merchant, date, receipt_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		e.ID, e.UserID, e.Amount, e.Currency, e.Category, e.Description, e.Merchant, e.Date, e.ReceiptURL,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", db.TranslateWriteError(err))
	}
	return nil
}

// ListByUser returns the user's expenses, newest first.
func (r *PGRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Expense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE user_id = $1 ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := make([]Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// Get loads one expense by id regardless of owner.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Expense, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return &e, nil
}

// Update overwrites the mutable attributes of e and refreshes updated_at.
func (r *PGRepository) Update(ctx context.Context, e *Expense) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE expenses
		SET amount = $2, currency = $3, category = $4, description = $5, merchant = $6, date = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		e.ID, e.Amount, e.Currency, e.Category, e.Description, e.Merchant, e.Date,
	).Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		return fmt.Errorf("update expense: %w", db.TranslateWriteError(err))
	}
	return nil
}

// Delete removes an expense.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.Category, &e.Description,
		&e.Merchant, &e.Date, &e.ReceiptURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Expense{}, err
	}
	e.Date = e.Date.UTC()
	return e, nil
}

var _ Repository = (*PGRepository)(nil)
