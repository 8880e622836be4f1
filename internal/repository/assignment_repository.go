package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorhub/proctorhub-backend/internal/model"
)

// AssignmentRepository handles assignment data access.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// GetByPair retrieves the assignment for a (student, test) pair.
func (r *AssignmentRepository) GetByPair(ctx context.Context, studentID, testID int64) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, test_id, assigned_date, due_date, status,
		        started_at, completed_at, time_spent_seconds
		 FROM assignments
		 WHERE student_id = $1 AND test_id = $2`, studentID, testID,
	).Scan(&a.ID, &a.StudentID, &a.TestID, &a.AssignedDate, &a.DueDate, &a.Status,
		&a.StartedAt, &a.CompletedAt, &a.TimeSpentSeconds)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// MarkInProgress flips an assignment to in_progress and stamps started_at.
// Only pending assignments transition; the status machine is monotonic.
func (r *AssignmentRepository) MarkInProgress(ctx context.Context, studentID, testID int64, startedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assignments
		 SET status = $1, started_at = $2
		 WHERE student_id = $3 AND test_id = $4 AND status = $5`,
		model.AssignmentStatusInProgress, startedAt, studentID, testID, model.AssignmentStatusPending)
	return err
}

// ExpireStale marks pending assignments whose due date has passed as
// expired. Returns the number of rows swept.
func (r *AssignmentRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assignments
		 SET status = $1
		 WHERE status = $2 AND due_date IS NOT NULL AND due_date < $3`,
		model.AssignmentStatusExpired, model.AssignmentStatusPending, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByStudent retrieves all assignments for a student, newest first.
func (r *AssignmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]model.Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, test_id, assigned_date, due_date, status,
		        started_at, completed_at, time_spent_seconds
		 FROM assignments
		 WHERE student_id = $1
		 ORDER BY assigned_date DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.StudentID, &a.TestID, &a.AssignedDate, &a.DueDate, &a.Status,
			&a.StartedAt, &a.CompletedAt, &a.TimeSpentSeconds); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
