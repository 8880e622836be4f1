package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorhub/proctorhub-backend/internal/model"
)

// TestRepository handles test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a test by id, with its question count.
func (r *TestRepository) GetByID(ctx context.Context, id int64) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.subject, t.description, t.duration_minutes, t.pass_percentage,
		        t.is_active, t.is_published,
		        (SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id),
		        t.created_at, t.updated_at
		 FROM tests t
		 WHERE t.id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Subject, &t.Description, &t.DurationMinutes, &t.PassPercentage,
		&t.IsActive, &t.IsPublished, &t.QuestionCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}
