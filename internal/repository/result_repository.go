package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorhub/proctorhub-backend/internal/model"
)

// ResultRepository handles result data access. The
// (student_id, test_id) unique constraint on results is the final backstop
// for the at-most-one-Result invariant.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// GetByPair retrieves the result for a (student, test) pair, or pgx.ErrNoRows.
func (r *ResultRepository) GetByPair(ctx context.Context, studentID, testID int64) (*model.Result, error) {
	return scanResult(r.pool.QueryRow(ctx,
		`SELECT id, student_id, test_id, total_questions, correct_answers, incorrect_answers,
		        unanswered, score, percentage, passed, time_taken_seconds, completed_at,
		        encrypted_answers, result_viewed, viewed_at
		 FROM results
		 WHERE student_id = $1 AND test_id = $2`, studentID, testID))
}

// CreateCompleting atomically inserts the result and transitions its
// assignment to completed. Returns inserted=false without error if a result
// for the pair already exists (a concurrent finalize won the race); the
// caller re-reads and returns the winner's row.
func (r *ResultRepository) CreateCompleting(ctx context.Context, res *model.Result) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO results (student_id, test_id, total_questions, correct_answers, incorrect_answers,
		                      unanswered, score, percentage, passed, time_taken_seconds, completed_at,
		                      encrypted_answers)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (student_id, test_id) DO NOTHING
		 RETURNING id`,
		res.StudentID, res.TestID, res.TotalQuestions, res.CorrectAnswers, res.IncorrectAnswers,
		res.Unanswered, res.Score, res.Percentage, res.Passed, res.TimeTakenSeconds, res.CompletedAt,
		res.EncryptedAnswers,
	).Scan(&res.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Duplicate pair: another finalize already committed.
			return false, nil
		}
		return false, fmt.Errorf("insert result: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE assignments
		 SET status = $1, completed_at = $2, time_spent_seconds = $3
		 WHERE student_id = $4 AND test_id = $5`,
		model.AssignmentStatusCompleted, res.CompletedAt, res.TimeTakenSeconds,
		res.StudentID, res.TestID)
	if err != nil {
		return false, fmt.Errorf("complete assignment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

// MarkViewed stamps a result as seen by the student.
func (r *ResultRepository) MarkViewed(ctx context.Context, studentID, testID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE results
		 SET result_viewed = TRUE, viewed_at = NOW()
		 WHERE student_id = $1 AND test_id = $2 AND NOT result_viewed`,
		studentID, testID)
	return err
}

func scanResult(row pgx.Row) (*model.Result, error) {
	res := &model.Result{}
	err := row.Scan(&res.ID, &res.StudentID, &res.TestID, &res.TotalQuestions, &res.CorrectAnswers,
		&res.IncorrectAnswers, &res.Unanswered, &res.Score, &res.Percentage, &res.Passed,
		&res.TimeTakenSeconds, &res.CompletedAt, &res.EncryptedAnswers, &res.ResultViewed, &res.ViewedAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}
