package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/proctorhub/proctorhub-backend/internal/middleware"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/proctorhub/proctorhub-backend/internal/response"
	"github.com/proctorhub/proctorhub-backend/internal/service"
	"github.com/proctorhub/proctorhub-backend/internal/validator"
)

// ResultReader loads persisted results for the student-facing views.
type ResultReader interface {
	GetByPair(ctx context.Context, studentID, testID int64) (*model.Result, error)
	MarkViewed(ctx context.Context, studentID, testID int64) error
}

// AssignmentLister lists a student's assignments.
type AssignmentLister interface {
	ListByStudent(ctx context.Context, studentID int64) ([]model.Assignment, error)
}

// ExamHandler handles the student exam endpoints: session lifecycle,
// navigation, answers, violations, and submission.
type ExamHandler struct {
	sessionService *service.SessionService
	gradingService *service.GradingService
	results        ResultReader
	assignments    AssignmentLister
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	sessionService *service.SessionService,
	gradingService *service.GradingService,
	results ResultReader,
	assignments AssignmentLister,
) *ExamHandler {
	return &ExamHandler{
		sessionService: sessionService,
		gradingService: gradingService,
		results:        results,
		assignments:    assignments,
	}
}

// StartSession godoc
// POST /api/v1/student/tests/:test_id/start
// Validates eligibility and opens a timed session with a shuffled question order.
func (h *ExamHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	sess, err := h.sessionService.StartSession(c.Request.Context(), claims.StudentID, testID)
	if err != nil {
		failEngine(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":             sess.Token,
		"test_id":           sess.TestID,
		"total_questions":   len(sess.QuestionOrder),
		"start_time":        sess.StartTime,
		"end_time":          sess.EndTime,
		"remaining_seconds": h.sessionService.RemainingSeconds(sess),
	})
}

// GetTime godoc
// GET /api/v1/student/tests/:test_id/time
// Returns the authoritative remaining time for the live session.
func (h *ExamHandler) GetTime(c *gin.Context) {
	sess, ok := h.resolve(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"remaining_seconds": h.sessionService.RemainingSeconds(sess),
		"server_time":       time.Now().UTC(),
	})
}

// GetState godoc
// GET /api/v1/student/tests/:test_id/state
// Returns the answer sheet, clock, and violation count for a reloading client.
func (h *ExamHandler) GetState(c *gin.Context) {
	sess, ok := h.resolve(c)
	if !ok {
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), sess)
	if err != nil {
		failEngine(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// GetQuestion godoc
// GET /api/v1/student/tests/:test_id/questions/:position
// Returns the decrypted question at a 1-based position in the session's order.
func (h *ExamHandler) GetQuestion(c *gin.Context) {
	sess, ok := h.resolve(c)
	if !ok {
		return
	}

	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPosition)
		return
	}

	question, saved, err := h.sessionService.QuestionAt(c.Request.Context(), sess, position)
	if err != nil {
		if errors.Is(err, service.ErrSessionExpired) {
			// The clock ran out mid-attempt: grade whatever was answered
			// right away instead of leaving the session for the reaper.
			// Finalize is idempotent, so racing the reaper here is safe.
			if _, ferr := h.gradingService.Finalize(c.Request.Context(), sess); ferr != nil {
				failEngine(c, ferr)
				return
			}
		}
		failEngine(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question":          question,
		"position":          position,
		"total_questions":   len(sess.QuestionOrder),
		"selected_answer":   saved,
		"remaining_seconds": h.sessionService.RemainingSeconds(sess),
	})
}

// SubmitAnswer godoc
// POST /api/v1/student/tests/:test_id/answers
// Saves the selected label for a question. Re-answering overwrites.
func (h *ExamHandler) SubmitAnswer(c *gin.Context) {
	sess, ok := h.resolve(c)
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	next, last, err := h.sessionService.RecordAnswer(c.Request.Context(), sess, req.QuestionID, req.SelectedAnswer)
	if err != nil {
		failEngine(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id":   req.QuestionID,
		"next_position": next,
		"last_question": last,
	})
}

// ReportViolation godoc
// POST /api/v1/student/tests/:test_id/violations
// Records a security violation. Reaching the limit force-submits the attempt.
func (h *ExamHandler) ReportViolation(c *gin.Context) {
	sess, ok := h.resolve(c)
	if !ok {
		return
	}

	var req model.RecordViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	count, forced, err := h.sessionService.RecordViolation(c.Request.Context(), sess, req.ViolationType)
	if err != nil {
		failEngine(c, err)
		return
	}

	payload := gin.H{
		"violation_count": count,
		"force_submit":    forced,
	}
	if forced {
		res, err := h.gradingService.Finalize(c.Request.Context(), sess)
		if err != nil {
			failEngine(c, err)
			return
		}
		payload["result"] = resultPayload(res)
	}

	response.Success(c, http.StatusOK, payload)
}

// Submit godoc
// POST /api/v1/student/tests/:test_id/submit
// Finalizes the attempt: grades answers and returns the Result. Idempotent.
func (h *ExamHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	sess, err := h.sessionService.Resolve(c.Request.Context(), claims.StudentID, testID)
	if err != nil {
		// A submit that races the reaper, a duplicate submit, or a retry
		// after force-submit still gets the one Result back.
		if errors.Is(err, service.ErrAlreadyCompleted) {
			if res, rerr := h.results.GetByPair(c.Request.Context(), claims.StudentID, testID); rerr == nil {
				response.Success(c, http.StatusOK, gin.H{"result": resultPayload(res)})
				return
			}
		}
		failEngine(c, err)
		return
	}

	res, err := h.gradingService.Finalize(c.Request.Context(), sess)
	if err != nil {
		failEngine(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": resultPayload(res)})
}

// GetResult godoc
// GET /api/v1/student/results/:test_id
// Returns the persisted result and stamps it as viewed.
func (h *ExamHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	res, err := h.results.GetByPair(c.Request.Context(), claims.StudentID, testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if err := h.results.MarkViewed(c.Request.Context(), claims.StudentID, testID); err == nil {
		res.ResultViewed = true
	}

	response.Success(c, http.StatusOK, gin.H{"result": resultPayload(res)})
}

// ListAssignments godoc
// GET /api/v1/student/assignments
// Lists the student's assignments, newest first.
func (h *ExamHandler) ListAssignments(c *gin.Context) {
	claims := middleware.GetClaims(c)

	assignments, err := h.assignments.ListByStudent(c.Request.Context(), claims.StudentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignments": assignments})
}

// resolve loads the live session for the authenticated student and the
// :test_id path param, writing the error response itself on failure.
func (h *ExamHandler) resolve(c *gin.Context) (*model.ExamSession, bool) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return nil, false
	}

	sess, err := h.sessionService.Resolve(c.Request.Context(), claims.StudentID, testID)
	if err != nil {
		failEngine(c, err)
		return nil, false
	}
	return sess, true
}

func parseTestID(c *gin.Context) (int64, bool) {
	testID, err := strconv.ParseInt(c.Param("test_id"), 10, 64)
	if err != nil || testID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return testID, true
}

func resultPayload(res *model.Result) gin.H {
	return gin.H{
		"id":                 res.ID,
		"test_id":            res.TestID,
		"total_questions":    res.TotalQuestions,
		"correct_answers":    res.CorrectAnswers,
		"incorrect_answers":  res.IncorrectAnswers,
		"unanswered":         res.Unanswered,
		"score":              res.Score,
		"percentage":         res.Percentage,
		"passed":             res.Passed,
		"grade":              res.Grade(),
		"time_taken_seconds": res.TimeTakenSeconds,
		"completed_at":       res.CompletedAt,
	}
}

// failEngine maps engine errors onto API error codes.
func failEngine(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAssigned):
		response.Fail(c, http.StatusForbidden, response.ErrNotAssigned)
	case errors.Is(err, service.ErrTestUnavailable):
		response.Fail(c, http.StatusForbidden, response.ErrTestUnavailable)
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyCompleted)
	case errors.Is(err, service.ErrAlreadyInProgress):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyInProgress)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
	case errors.Is(err, service.ErrSessionExpired):
		response.Fail(c, http.StatusGone, response.ErrSessionExpired)
	case errors.Is(err, service.ErrInvalidPosition):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPosition)
	case errors.Is(err, service.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	case errors.Is(err, service.ErrInvalidAnswer):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAnswer)
	case errors.Is(err, service.ErrDecryptionFailed):
		response.Fail(c, http.StatusInternalServerError, response.ErrDecryptionFailed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
