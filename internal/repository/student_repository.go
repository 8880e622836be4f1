package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorhub/proctorhub-backend/internal/model"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByUsername retrieves a student by username.
func (r *StudentRepository) GetByUsername(ctx context.Context, username string) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT id, username, full_name, password_hash, is_active, created_at
		 FROM students
		 WHERE username = $1`, username))
}

// GetByID retrieves a student by id.
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT id, username, full_name, password_hash, is_active, created_at
		 FROM students
		 WHERE id = $1`, id))
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	st := &model.Student{}
	err := row.Scan(&st.ID, &st.Username, &st.FullName, &st.PasswordHash, &st.IsActive, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return st, nil
}
