package model

import "time"

// Result is the immutable outcome of one attempt. At most one Result ever
// exists per (student, test); the grading engine creates it exactly once.
type Result struct {
	ID               int64     `json:"id"`
	StudentID        int64     `json:"student_id"`
	TestID           int64     `json:"test_id"`
	TotalQuestions   int       `json:"total_questions"`
	CorrectAnswers   int       `json:"correct_answers"`
	IncorrectAnswers int       `json:"incorrect_answers"`
	Unanswered       int       `json:"unanswered"`
	Score            float64   `json:"score"`
	Percentage       float64   `json:"percentage"`
	Passed           bool      `json:"passed"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
	// EncryptedAnswers is the student's final answer map, sealed with the
	// question-store cipher for later review.
	EncryptedAnswers []byte     `json:"-"`
	ResultViewed     bool       `json:"result_viewed"`
	ViewedAt         *time.Time `json:"viewed_at,omitempty"`
}

// Grade returns the letter grade for the result's percentage.
func (r *Result) Grade() string {
	switch {
	case r.Percentage >= 90:
		return "A"
	case r.Percentage >= 80:
		return "B"
	case r.Percentage >= 70:
		return "C"
	case r.Percentage >= 60:
		return "D"
	default:
		return "F"
	}
}
