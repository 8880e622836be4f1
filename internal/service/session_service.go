package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/proctorhub/proctorhub-backend/internal/audit"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/proctorhub/proctorhub-backend/internal/store"
	"github.com/rs/zerolog"
)

// ViolationLimit is the number of security violations a session survives.
// Reaching it forces submission of the attempt.
const ViolationLimit = 2

// SessionService owns the exam session lifecycle: eligibility checks and
// session creation, question navigation, answer recording, and violation
// tracking. Finalization lives in GradingService.
type SessionService struct {
	testRepo       TestRepo
	assignmentRepo AssignmentRepo
	resultRepo     ResultRepo
	questions      *QuestionService
	questionRepo   QuestionRepo
	sessions       *store.SessionStore
	sink           audit.Sink
	log            zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	testRepo TestRepo,
	assignmentRepo AssignmentRepo,
	resultRepo ResultRepo,
	questionRepo QuestionRepo,
	questions *QuestionService,
	sessions *store.SessionStore,
	sink audit.Sink,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		testRepo:       testRepo,
		assignmentRepo: assignmentRepo,
		resultRepo:     resultRepo,
		questionRepo:   questionRepo,
		questions:      questions,
		sessions:       sessions,
		sink:           sink,
		log:            log.With().Str("component", "session_service").Logger(),
	}
}

// StartSession validates eligibility and creates a live session with a
// per-student shuffled question order. Eligibility, in check order: the
// student must be assigned, the assignment must be inside its date window,
// the test must be active and published, no result may exist yet, and no
// other live session may hold the (student, test) pair.
func (s *SessionService) StartSession(ctx context.Context, studentID, testID int64) (*model.ExamSession, error) {
	now := time.Now()

	assignment, err := s.assignmentRepo.GetByPair(ctx, studentID, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotAssigned
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	switch assignment.Status {
	case model.AssignmentStatusCompleted:
		return nil, ErrAlreadyCompleted
	case model.AssignmentStatusExpired:
		return nil, ErrTestUnavailable
	}
	if assignment.AssignedDate.After(now) {
		return nil, ErrTestUnavailable
	}
	if assignment.DueDate != nil && assignment.DueDate.Before(now) {
		return nil, ErrTestUnavailable
	}

	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestUnavailable
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if !test.Available() {
		return nil, ErrTestUnavailable
	}

	if _, err := s.resultRepo.GetByPair(ctx, studentID, testID); err == nil {
		return nil, ErrAlreadyCompleted
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check result: %w", err)
	}

	ids, err := s.questionRepo.ListIDsByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list question ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoQuestions
	}

	order := make([]int64, len(ids))
	copy(order, ids)
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	sess := &model.ExamSession{
		Token:         uuid.NewString(),
		StudentID:     studentID,
		TestID:        testID,
		StartTime:     now,
		EndTime:       now.Add(test.Duration()),
		QuestionOrder: order,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, store.ErrAttemptExists) {
			return nil, ErrAlreadyInProgress
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.assignmentRepo.MarkInProgress(ctx, studentID, testID, now); err != nil {
		s.log.Error().Err(err).Int64("student_id", studentID).Int64("test_id", testID).
			Msg("Mark assignment in progress failed")
	}

	s.sink.LogEvent(ctx, model.AuditKindSessionStart, studentID, testID,
		fmt.Sprintf("session %s started, %d questions", sess.Token, len(order)))
	s.log.Info().Int64("student_id", studentID).Int64("test_id", testID).
		Str("token", sess.Token).Int("questions", len(order)).Msg("Exam session started")

	return sess, nil
}

// Resolve loads the live session for a (student, test) pair. A missing
// session maps to ErrAlreadyCompleted when a result already exists for the
// pair, otherwise ErrSessionExpired.
func (s *SessionService) Resolve(ctx context.Context, studentID, testID int64) (*model.ExamSession, error) {
	sess, err := s.sessions.GetByPair(ctx, studentID, testID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, store.ErrSessionNotFound) {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	if _, err := s.resultRepo.GetByPair(ctx, studentID, testID); err == nil {
		return nil, ErrAlreadyCompleted
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check result: %w", err)
	}
	return nil, ErrSessionExpired
}

// RemainingSeconds re-derives the time left from the session's server-side
// end time. It never goes back up and bottoms out at zero.
func (s *SessionService) RemainingSeconds(sess *model.ExamSession) int {
	return sess.RemainingSeconds(time.Now())
}

// QuestionAt returns the decrypted question at a 1-based position in the
// session's order, along with any answer the student already saved for it.
func (s *SessionService) QuestionAt(ctx context.Context, sess *model.ExamSession, position int) (*model.DisplayQuestion, string, error) {
	if sess.Expired(time.Now()) {
		return nil, "", ErrSessionExpired
	}
	if position < 1 || position > len(sess.QuestionOrder) {
		return nil, "", ErrInvalidPosition
	}

	questionID := sess.QuestionOrder[position-1]
	q, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, "", fmt.Errorf("get question %d: %w", questionID, err)
	}

	saved, err := s.sessions.Answer(ctx, sess.Token, questionID)
	if err != nil {
		return nil, "", err
	}
	return s.questions.DecryptForDisplay(q), saved, nil
}

// RecordAnswer saves the selected label for a question in the session's
// order. Re-answering overwrites; the latest write wins. Returns the
// 1-based position to navigate to next and whether the answered question
// was the last one.
func (s *SessionService) RecordAnswer(ctx context.Context, sess *model.ExamSession, questionID int64, label string) (int, bool, error) {
	if !model.ValidLabel(label) {
		return 0, false, ErrInvalidAnswer
	}

	position := 0
	for i, id := range sess.QuestionOrder {
		if id == questionID {
			position = i + 1
			break
		}
	}
	if position == 0 {
		return 0, false, ErrUnknownQuestion
	}

	if err := s.sessions.SetAnswer(ctx, sess, questionID, label); err != nil {
		return 0, false, err
	}

	last := position == len(sess.QuestionOrder)
	next := position + 1
	if last {
		next = position
	}
	return next, last, nil
}

// RecordViolation bumps the session's violation counter and reports whether
// the attempt must now be force-submitted. The count never decreases; the
// caller finalizes when forced is true.
func (s *SessionService) RecordViolation(ctx context.Context, sess *model.ExamSession, violationType string) (int, bool, error) {
	if violationType == "" {
		violationType = "unspecified"
	}

	count, err := s.sessions.IncrViolations(ctx, sess)
	if err != nil {
		return 0, false, err
	}

	s.sink.LogEvent(ctx, model.AuditKindViolation, sess.StudentID, sess.TestID,
		fmt.Sprintf("violation %d: %s", count, violationType))
	s.log.Warn().Int64("student_id", sess.StudentID).Int64("test_id", sess.TestID).
		Str("type", violationType).Int("count", count).Msg("Security violation recorded")

	return count, count >= ViolationLimit, nil
}

// State returns the reload view of a live attempt so a refreshed client can
// restore its answer sheet, clock, and violation count.
func (s *SessionService) State(ctx context.Context, sess *model.ExamSession) (*model.SessionState, error) {
	answers, err := s.sessions.Answers(ctx, sess.Token)
	if err != nil {
		return nil, err
	}
	violations, err := s.sessions.Violations(ctx, sess.Token)
	if err != nil {
		return nil, err
	}

	return &model.SessionState{
		Token:            sess.Token,
		TestID:           sess.TestID,
		TotalQuestions:   len(sess.QuestionOrder),
		AnsweredCount:    len(answers),
		Answers:          answers,
		RemainingSeconds: sess.RemainingSeconds(time.Now()),
		ViolationCount:   violations,
	}, nil
}
