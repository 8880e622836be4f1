package model

import "time"

// ExamSession is the ephemeral, server-owned record of one student's live
// attempt. It lives in the session store under a server-issued token with a
// TTL of duration + grace, and is destroyed on finalization or expiry.
// Timing decisions always re-derive from EndTime server-side; the client's
// clock is never authoritative.
type ExamSession struct {
	Token         string    `json:"token"`
	StudentID     int64     `json:"student_id"`
	TestID        int64     `json:"test_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	QuestionOrder []int64   `json:"question_order"`
}

// Expired reports whether the session's time box has elapsed at the given
// instant.
func (s *ExamSession) Expired(now time.Time) bool {
	return !now.Before(s.EndTime)
}

// RemainingSeconds returns the whole seconds left on the clock, never
// negative.
func (s *ExamSession) RemainingSeconds(now time.Time) int {
	remaining := s.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// InOrder reports whether questionID belongs to the session's permutation.
func (s *ExamSession) InOrder(questionID int64) bool {
	for _, id := range s.QuestionOrder {
		if id == questionID {
			return true
		}
	}
	return false
}

// RecordAnswerRequest is the payload for answering a question.
type RecordAnswerRequest struct {
	QuestionID     int64  `json:"question_id" binding:"required"`
	SelectedAnswer string `json:"selected_answer" binding:"required"`
	Position       int    `json:"position" binding:"omitempty,min=1"`
}

// RecordViolationRequest is the payload for reporting an integrity violation.
type RecordViolationRequest struct {
	ViolationType string `json:"violation_type" binding:"omitempty,max=120"`
}

// SessionState is the reload view of a live attempt: which questions have
// answers and how much time is left.
type SessionState struct {
	Token            string            `json:"token"`
	TestID           int64             `json:"test_id"`
	TotalQuestions   int               `json:"total_questions"`
	AnsweredCount    int               `json:"answered_count"`
	Answers          map[string]string `json:"answers"`
	RemainingSeconds int               `json:"remaining_seconds"`
	ViolationCount   int               `json:"violation_count"`
}
