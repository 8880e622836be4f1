package worker

import (
	"context"
	"errors"
	"time"

	"github.com/proctorhub/proctorhub-backend/internal/service"
	"github.com/proctorhub/proctorhub-backend/internal/store"
	"github.com/rs/zerolog"
)

// AssignmentExpirer sweeps pending assignments past their due date.
type AssignmentExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// ReaperWorker periodically finalizes sessions whose deadline passed
// without a submit, so every expired attempt still ends in exactly one
// graded Result. It also expires stale pending assignments.
type ReaperWorker struct {
	sessions    *store.SessionStore
	grading     *service.GradingService
	assignments AssignmentExpirer
	interval    time.Duration
	log         zerolog.Logger
}

// NewReaperWorker creates a new ReaperWorker.
func NewReaperWorker(
	sessions *store.SessionStore,
	grading *service.GradingService,
	assignments AssignmentExpirer,
	interval time.Duration,
	log zerolog.Logger,
) *ReaperWorker {
	return &ReaperWorker{
		sessions:    sessions,
		grading:     grading,
		assignments: assignments,
		interval:    interval,
		log:         log.With().Str("component", "reaper_worker").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *ReaperWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ReaperWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ReaperWorker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ReaperWorker) sweep(ctx context.Context) {
	now := time.Now()

	tokens, err := w.sessions.ExpiredTokens(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("List expired sessions failed")
	}
	for _, token := range tokens {
		w.reap(ctx, token)
	}

	swept, err := w.assignments.ExpireStale(ctx, now)
	if err != nil {
		w.log.Error().Err(err).Msg("Expire stale assignments failed")
	} else if swept > 0 {
		w.log.Info().Int64("count", swept).Msg("Expired stale assignments")
	}
}

// reap finalizes one overdue session. A token whose session key is already
// gone was finalized elsewhere; only its deadline index entry remains.
func (w *ReaperWorker) reap(ctx context.Context, token string) {
	sess, err := w.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			if err := w.sessions.DropDeadline(ctx, token); err != nil {
				w.log.Error().Err(err).Str("token", token).Msg("Drop deadline failed")
			}
			return
		}
		w.log.Error().Err(err).Str("token", token).Msg("Load expired session failed")
		return
	}

	res, err := w.grading.Finalize(ctx, sess)
	if err != nil {
		w.log.Error().Err(err).Str("token", token).Msg("Finalize expired session failed")
		return
	}
	w.log.Info().Int64("student_id", sess.StudentID).Int64("test_id", sess.TestID).
		Float64("percentage", res.Percentage).Msg("Expired session auto-submitted")
}
