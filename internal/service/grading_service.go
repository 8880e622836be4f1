package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/proctorhub/proctorhub-backend/internal/audit"
	"github.com/proctorhub/proctorhub-backend/internal/crypto"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/proctorhub/proctorhub-backend/internal/store"
	"github.com/rs/zerolog"
)

// GradingService finalizes attempts. Finalize is idempotent and safe under
// concurrency: whichever caller commits first produces the one Result for
// the pair, and every other caller gets that same row back.
type GradingService struct {
	testRepo   TestRepo
	resultRepo ResultRepo
	questions  *QuestionService
	sessions   *store.SessionStore
	cipher     *crypto.Cipher
	sink       audit.Sink
	log        zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(
	testRepo TestRepo,
	resultRepo ResultRepo,
	questions *QuestionService,
	sessions *store.SessionStore,
	cipher *crypto.Cipher,
	sink audit.Sink,
	log zerolog.Logger,
) *GradingService {
	return &GradingService{
		testRepo:   testRepo,
		resultRepo: resultRepo,
		questions:  questions,
		sessions:   sessions,
		cipher:     cipher,
		sink:       sink,
		log:        log.With().Str("component", "grading_service").Logger(),
	}
}

// Finalize grades the session's answers against the decrypted answer key
// and persists the Result, completing the assignment in the same
// transaction. Manual submit, violation force-submit, and the expiry reaper
// all land here; repeated calls for the same pair return the first Result.
func (g *GradingService) Finalize(ctx context.Context, sess *model.ExamSession) (*model.Result, error) {
	if existing, err := g.resultRepo.GetByPair(ctx, sess.StudentID, sess.TestID); err == nil {
		g.destroySession(ctx, sess)
		return existing, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check result: %w", err)
	}

	test, err := g.testRepo.GetByID(ctx, sess.TestID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	key, err := g.questions.AnswerKey(ctx, sess.TestID)
	if err != nil {
		return nil, err
	}

	answers, err := g.sessions.Answers(ctx, sess.Token)
	if err != nil {
		return nil, err
	}

	res := g.grade(sess, test, key, answers)

	if res.EncryptedAnswers, err = g.sealAnswers(answers); err != nil {
		return nil, err
	}

	inserted, err := g.resultRepo.CreateCompleting(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("persist result: %w", err)
	}
	if !inserted {
		// Lost the race to a concurrent finalize; hand back the winner's row.
		existing, err := g.resultRepo.GetByPair(ctx, sess.StudentID, sess.TestID)
		if err != nil {
			return nil, fmt.Errorf("reread result: %w", err)
		}
		g.destroySession(ctx, sess)
		return existing, nil
	}

	g.destroySession(ctx, sess)
	g.sink.LogEvent(ctx, model.AuditKindFinalize, sess.StudentID, sess.TestID,
		fmt.Sprintf("score %.0f/%d (%.1f%%), passed=%t", res.Score, res.TotalQuestions, res.Percentage, res.Passed))
	g.log.Info().Int64("student_id", sess.StudentID).Int64("test_id", sess.TestID).
		Float64("percentage", res.Percentage).Bool("passed", res.Passed).Msg("Attempt finalized")

	return res, nil
}

// grade walks every question in the answer key exactly once. A missing or
// empty submission counts as unanswered, a match as correct, anything else
// as incorrect. A zero-question test grades to 0% and failed.
func (g *GradingService) grade(sess *model.ExamSession, test *model.Test, key map[int64]string, answers map[string]string) *model.Result {
	now := time.Now()

	var correct, incorrect, unanswered int
	for questionID, correctAnswer := range key {
		submitted, ok := answers[strconv.FormatInt(questionID, 10)]
		switch {
		case !ok || submitted == "":
			unanswered++
		case submitted == correctAnswer:
			correct++
		default:
			incorrect++
		}
	}

	total := len(key)
	percentage := 0.0
	if total > 0 {
		percentage = float64(correct) / float64(total) * 100
	}

	timeTaken := now.Sub(sess.StartTime)
	if max := sess.EndTime.Sub(sess.StartTime); timeTaken > max {
		timeTaken = max
	}

	return &model.Result{
		StudentID:        sess.StudentID,
		TestID:           sess.TestID,
		TotalQuestions:   total,
		CorrectAnswers:   correct,
		IncorrectAnswers: incorrect,
		Unanswered:       unanswered,
		Score:            float64(correct),
		Percentage:       percentage,
		Passed:           total > 0 && percentage >= test.PassPercentage,
		TimeTakenSeconds: int(timeTaken.Seconds()),
		CompletedAt:      now,
	}
}

// sealAnswers encrypts the final answer map for later review alongside the
// result.
func (g *GradingService) sealAnswers(answers map[string]string) ([]byte, error) {
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	sealed, err := g.cipher.Encrypt(raw)
	if err != nil {
		return nil, fmt.Errorf("seal answers: %w", err)
	}
	return sealed, nil
}

func (g *GradingService) destroySession(ctx context.Context, sess *model.ExamSession) {
	if err := g.sessions.Destroy(ctx, sess); err != nil {
		g.log.Error().Err(err).Str("token", sess.Token).Msg("Destroy session failed")
	}
}
