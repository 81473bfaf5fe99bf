package feedback

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartexpense/smartexpense/internal/platform/db"
)

// Repository persists feedback.
type Repository interface {
	Insert(ctx context.Context, fb *Feedback) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert stores fb and fills its creation time.
func (r *PGRepository) Insert(ctx context.Context, fb *Feedback) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO feedback (id, user_id, message) VALUES ($1, $2, $3) RETURNING created_at`,
		fb.ID, fb.UserID, fb.Message,
	).Scan(&fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", db.TranslateWriteError(err))
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
