package service

import (
	"context"
	"time"

	"github.com/proctorhub/proctorhub-backend/internal/model"
)

// Repository interfaces consumed by the engine services. The pgx-backed
// implementations live in internal/repository; tests substitute stubs.

// TestRepo provides test lookups.
type TestRepo interface {
	GetByID(ctx context.Context, id int64) (*model.Test, error)
}

// QuestionRepo provides encrypted question access.
type QuestionRepo interface {
	GetByID(ctx context.Context, id int64) (*model.Question, error)
	ListByTest(ctx context.Context, testID int64) ([]model.Question, error)
	ListIDsByTest(ctx context.Context, testID int64) ([]int64, error)
	Create(ctx context.Context, q *model.Question) error
}

// AssignmentRepo provides assignment access for the session lifecycle.
type AssignmentRepo interface {
	GetByPair(ctx context.Context, studentID, testID int64) (*model.Assignment, error)
	MarkInProgress(ctx context.Context, studentID, testID int64, startedAt time.Time) error
}

// ResultRepo provides result access for the grading engine.
type ResultRepo interface {
	GetByPair(ctx context.Context, studentID, testID int64) (*model.Result, error)
	CreateCompleting(ctx context.Context, res *model.Result) (bool, error)
}
