package model

import "time"

// Test represents a proctored test definition. It is immutable while any
// attempt against it is in progress.
type Test struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Subject         string    `json:"subject"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	PassPercentage  float64   `json:"pass_percentage"`
	IsActive        bool      `json:"is_active"`
	IsPublished     bool      `json:"is_published"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Available reports whether students may start an attempt right now.
func (t *Test) Available() bool {
	return t.IsActive && t.IsPublished
}

// Duration returns the test's time box.
func (t *Test) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}
