package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorhub/proctorhub-backend/internal/model"
)

// QuestionRepository handles encrypted question data access. Ciphertext
// goes in, ciphertext comes out; decryption belongs to the question store.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetByID retrieves a single question.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, question_number, encrypted_text, encrypted_options,
		        encrypted_correct_answer, encrypted_explanation, difficulty, points
		 FROM questions
		 WHERE id = $1`, id,
	).Scan(&q.ID, &q.TestID, &q.QuestionNumber, &q.EncryptedText, &q.EncryptedOptions,
		&q.EncryptedCorrectAnswer, &q.EncryptedExplanation, &q.Difficulty, &q.Points)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListByTest retrieves all questions for a test, ordered by question number.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, question_number, encrypted_text, encrypted_options,
		        encrypted_correct_answer, encrypted_explanation, difficulty, points
		 FROM questions
		 WHERE test_id = $1
		 ORDER BY question_number`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.QuestionNumber, &q.EncryptedText, &q.EncryptedOptions,
			&q.EncryptedCorrectAnswer, &q.EncryptedExplanation, &q.Difficulty, &q.Points); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListIDsByTest retrieves only the question ids for a test, in question
// number order. Used to build the per-session permutation without pulling
// ciphertext across the wire.
func (r *QuestionRepository) ListIDsByTest(ctx context.Context, testID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM questions WHERE test_id = $1 ORDER BY question_number`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Create inserts a new encrypted question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (test_id, question_number, encrypted_text, encrypted_options,
		                        encrypted_correct_answer, encrypted_explanation, difficulty, points)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		q.TestID, q.QuestionNumber, q.EncryptedText, q.EncryptedOptions,
		q.EncryptedCorrectAnswer, q.EncryptedExplanation, q.Difficulty, q.Points,
	).Scan(&q.ID)
}
