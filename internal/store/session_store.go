package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/proctorhub/proctorhub-backend/internal/config"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// Store errors.
var (
	// ErrSessionNotFound means the token resolves to nothing: the session
	// was finalized, reaped, or its TTL lapsed.
	ErrSessionNotFound = errors.New("exam session not found")
	// ErrAttemptExists means the (student, test) pair already has a live
	// session. One active attempt per pair.
	ErrAttemptExists = errors.New("an attempt is already in progress")
)

// SessionStore keeps live exam sessions in Redis, keyed by a server-issued
// token. Every key carries a TTL of the session's remaining time plus a
// grace window, so abandoned sessions expire on their own even if the
// reaper never reaches them. Answers live in a hash (HSET upsert = last
// write wins), the violation count in a plain counter (INCR = monotonic),
// and a sorted set indexes sessions by deadline for the reaper.
type SessionStore struct {
	rdb   *redis.Client
	grace time.Duration
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(rdb *redis.Client, grace time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, grace: grace}
}

// Create persists a fresh session. Fails with ErrAttemptExists if the
// (student, test) pair already holds a live session; the SETNX on the
// attempt key is the arbiter under concurrent starts.
func (s *SessionStore) Create(ctx context.Context, sess *model.ExamSession) error {
	deadline := sess.EndTime.Add(s.grace)

	attemptKey := config.CacheKey.AttemptKey(sess.StudentID, sess.TestID)
	ok, err := s.rdb.SetNX(ctx, attemptKey, sess.Token, time.Until(deadline)).Result()
	if err != nil {
		return fmt.Errorf("reserve attempt: %w", err)
	}
	if !ok {
		return ErrAttemptExists
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.SessionKey(sess.Token), raw, time.Until(deadline))
	pipe.ZAdd(ctx, config.CacheKey.SessionDeadlinesKey(), redis.Z{
		Score:  float64(sess.EndTime.Unix()),
		Member: sess.Token,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		// Roll back the reservation so a retry isn't locked out.
		s.rdb.Del(ctx, attemptKey)
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get loads a session by token.
func (s *SessionStore) Get(ctx context.Context, token string) (*model.ExamSession, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.SessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	sess := &model.ExamSession{}
	if err := json.Unmarshal(raw, sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

// GetByPair loads the live session for a (student, test) pair, if any.
func (s *SessionStore) GetByPair(ctx context.Context, studentID, testID int64) (*model.ExamSession, error) {
	token, err := s.rdb.Get(ctx, config.CacheKey.AttemptKey(studentID, testID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get attempt token: %w", err)
	}
	return s.Get(ctx, token)
}

// SetAnswer upserts the selected label for a question. Last write wins
// under concurrent writers to the same question id.
func (s *SessionStore) SetAnswer(ctx context.Context, sess *model.ExamSession, questionID int64, label string) error {
	key := config.CacheKey.SessionAnswersKey(sess.Token)
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, strconv.FormatInt(questionID, 10), label)
	pipe.ExpireAt(ctx, key, sess.EndTime.Add(s.grace))
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("set answer: %w", err)
	}
	return nil
}

// Answer returns the saved label for one question, or "" if unanswered.
func (s *SessionStore) Answer(ctx context.Context, token string, questionID int64) (string, error) {
	label, err := s.rdb.HGet(ctx, config.CacheKey.SessionAnswersKey(token), strconv.FormatInt(questionID, 10)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get answer: %w", err)
	}
	return label, nil
}

// Answers returns the session's full answer map (question id → label).
func (s *SessionStore) Answers(ctx context.Context, token string) (map[string]string, error) {
	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	return answers, nil
}

// IncrViolations bumps the session's violation counter and returns the new
// count. INCR makes the count monotonically non-decreasing even under
// concurrent reports.
func (s *SessionStore) IncrViolations(ctx context.Context, sess *model.ExamSession) (int, error) {
	key := config.CacheKey.SessionViolationsKey(sess.Token)
	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, sess.EndTime.Add(s.grace))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr violations: %w", err)
	}
	return int(incr.Val()), nil
}

// Violations returns the current violation count.
func (s *SessionStore) Violations(ctx context.Context, token string) (int, error) {
	val, err := s.rdb.Get(ctx, config.CacheKey.SessionViolationsKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("get violations: %w", err)
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse violations: %w", err)
	}
	return count, nil
}

// Destroy removes every key belonging to a session. Called exactly once by
// successful finalization; calling it again is harmless.
func (s *SessionStore) Destroy(ctx context.Context, sess *model.ExamSession) error {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx,
		config.CacheKey.SessionKey(sess.Token),
		config.CacheKey.SessionAnswersKey(sess.Token),
		config.CacheKey.SessionViolationsKey(sess.Token),
		config.CacheKey.AttemptKey(sess.StudentID, sess.TestID),
	)
	pipe.ZRem(ctx, config.CacheKey.SessionDeadlinesKey(), sess.Token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// ExpiredTokens returns tokens of sessions whose deadline passed at or
// before now. The reaper finalizes each one.
func (s *SessionStore) ExpiredTokens(ctx context.Context, now time.Time) ([]string, error) {
	tokens, err := s.rdb.ZRangeByScore(ctx, config.CacheKey.SessionDeadlinesKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range deadlines: %w", err)
	}
	return tokens, nil
}

// DropDeadline removes a token from the deadline index without touching the
// session itself. Used by the reaper when a token's session key is already
// gone (finalized elsewhere after the index was read).
func (s *SessionStore) DropDeadline(ctx context.Context, token string) error {
	return s.rdb.ZRem(ctx, config.CacheKey.SessionDeadlinesKey(), token).Err()
}
