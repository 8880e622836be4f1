package service

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/proctorhub/proctorhub-backend/internal/audit"
	"github.com/proctorhub/proctorhub-backend/internal/crypto"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/proctorhub/proctorhub-backend/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// In-memory repository stubs backing the engine services in tests. The
// session store runs against miniredis; everything else is a map.

type pair struct{ studentID, testID int64 }

type stubTestRepo struct {
	tests map[int64]*model.Test
}

func (r *stubTestRepo) GetByID(_ context.Context, id int64) (*model.Test, error) {
	t, ok := r.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

type stubQuestionRepo struct {
	questions []model.Question
	nextID    int64
}

func (r *stubQuestionRepo) GetByID(_ context.Context, id int64) (*model.Question, error) {
	for i := range r.questions {
		if r.questions[i].ID == id {
			return &r.questions[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubQuestionRepo) ListByTest(_ context.Context, testID int64) ([]model.Question, error) {
	var out []model.Question
	for _, q := range r.questions {
		if q.TestID == testID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *stubQuestionRepo) ListIDsByTest(_ context.Context, testID int64) ([]int64, error) {
	var ids []int64
	for _, q := range r.questions {
		if q.TestID == testID {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}

func (r *stubQuestionRepo) Create(_ context.Context, q *model.Question) error {
	r.nextID++
	q.ID = 100 + r.nextID
	r.questions = append(r.questions, *q)
	return nil
}

type stubAssignmentRepo struct {
	assignments map[pair]*model.Assignment
}

func (r *stubAssignmentRepo) GetByPair(_ context.Context, studentID, testID int64) (*model.Assignment, error) {
	a, ok := r.assignments[pair{studentID, testID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *stubAssignmentRepo) MarkInProgress(_ context.Context, studentID, testID int64, startedAt time.Time) error {
	a, ok := r.assignments[pair{studentID, testID}]
	if ok && a.Status == model.AssignmentStatusPending {
		a.Status = model.AssignmentStatusInProgress
		a.StartedAt = &startedAt
	}
	return nil
}

type stubResultRepo struct {
	mu      sync.Mutex
	results map[pair]*model.Result
	nextID  int64

	// conflictWith, when set, makes the next CreateCompleting lose the
	// insert race to this row.
	conflictWith *model.Result

	assignments *stubAssignmentRepo
}

func (r *stubResultRepo) GetByPair(_ context.Context, studentID, testID int64) (*model.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[pair{studentID, testID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *res
	return &cp, nil
}

func (r *stubResultRepo) CreateCompleting(_ context.Context, res *model.Result) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pair{res.StudentID, res.TestID}
	if r.conflictWith != nil {
		r.results[key] = r.conflictWith
		r.conflictWith = nil
		return false, nil
	}
	if _, ok := r.results[key]; ok {
		return false, nil
	}

	r.nextID++
	res.ID = r.nextID
	cp := *res
	r.results[key] = &cp

	if r.assignments != nil {
		if a, ok := r.assignments.assignments[key]; ok {
			a.Status = model.AssignmentStatusCompleted
			a.CompletedAt = &res.CompletedAt
			spent := res.TimeTakenSeconds
			a.TimeSpentSeconds = &spent
		}
	}
	return true, nil
}

func (r *stubResultRepo) MarkViewed(_ context.Context, studentID, testID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.results[pair{studentID, testID}]; ok {
		res.ResultViewed = true
	}
	return nil
}

const (
	testStudentID = int64(7)
	testTestID    = int64(42)
	emptyTestID   = int64(43)
)

// engineFixture wires the full engine against miniredis and stub repos.
// Test 42 has five questions with correct answers A B C D A; test 43 has
// none. Student 7 is assigned both.
type engineFixture struct {
	server      *miniredis.Miniredis
	sessions    *store.SessionStore
	cipher      *crypto.Cipher
	tests       *stubTestRepo
	questions   *stubQuestionRepo
	assignments *stubAssignmentRepo
	results     *stubResultRepo

	questionService *QuestionService
	sessionService  *SessionService
	gradingService  *GradingService

	// correctByID maps question id to its correct label.
	correctByID map[int64]string
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cipher, err := crypto.New("engine-test-secret")
	require.NoError(t, err)

	f := &engineFixture{
		server:   server,
		sessions: store.NewSessionStore(rdb, 2*time.Minute),
		cipher:   cipher,
		tests: &stubTestRepo{tests: map[int64]*model.Test{
			testTestID: {
				ID: testTestID, Name: "Algebra Midterm", Subject: "Math",
				DurationMinutes: 30, PassPercentage: 60,
				IsActive: true, IsPublished: true, QuestionCount: 5,
			},
			emptyTestID: {
				ID: emptyTestID, Name: "Empty Test", Subject: "Math",
				DurationMinutes: 10, PassPercentage: 60,
				IsActive: true, IsPublished: true,
			},
		}},
		questions:   &stubQuestionRepo{},
		assignments: &stubAssignmentRepo{assignments: map[pair]*model.Assignment{}},
		correctByID: map[int64]string{},
	}
	f.results = &stubResultRepo{results: map[pair]*model.Result{}, assignments: f.assignments}

	yesterday := time.Now().Add(-24 * time.Hour)
	for _, testID := range []int64{testTestID, emptyTestID} {
		f.assignments.assignments[pair{testStudentID, testID}] = &model.Assignment{
			ID: testID, StudentID: testStudentID, TestID: testID,
			AssignedDate: yesterday, Status: model.AssignmentStatusPending,
		}
	}

	log := zerolog.Nop()
	sink := audit.NopSink{}

	f.questionService = NewQuestionService(f.questions, cipher, log)
	f.sessionService = NewSessionService(
		f.tests, f.assignments, f.results, f.questions, f.questionService, f.sessions, sink, log)
	f.gradingService = NewGradingService(
		f.tests, f.results, f.questionService, f.sessions, cipher, sink, log)

	correct := []string{"A", "B", "C", "D", "A"}
	for i, answer := range correct {
		q, err := f.questionService.Create(context.Background(), testTestID, &model.NewQuestionInput{
			QuestionNumber: i + 1,
			Text:           "Question text " + answer,
			Options:        map[string]string{"A": "alpha", "B": "beta", "C": "gamma", "D": "delta"},
			CorrectAnswer:  answer,
		})
		require.NoError(t, err)
		f.correctByID[q.ID] = answer
	}

	return f
}

// start opens a session for the default student on the default test.
func (f *engineFixture) start(t *testing.T) *model.ExamSession {
	t.Helper()
	sess, err := f.sessionService.StartSession(context.Background(), testStudentID, testTestID)
	require.NoError(t, err)
	return sess
}
