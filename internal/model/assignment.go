package model

import "time"

// AssignmentStatus enumerates assignment states. Transitions are monotonic:
// pending → in_progress → completed, or pending → expired when the due date
// passes without a session ever starting.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusExpired    AssignmentStatus = "expired"
)

// Assignment links a student to a test. The (student_id, test_id) pair is
// unique. Created by scheduling; mutated only by the session lifecycle and
// the grading engine.
type Assignment struct {
	ID               int64            `json:"id"`
	StudentID        int64            `json:"student_id"`
	TestID           int64            `json:"test_id"`
	AssignedDate     time.Time        `json:"assigned_date"`
	DueDate          *time.Time       `json:"due_date,omitempty"`
	Status           AssignmentStatus `json:"status"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	TimeSpentSeconds *int             `json:"time_spent_seconds,omitempty"`
}
