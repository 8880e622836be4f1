package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewSessionStore(rdb, 2*time.Minute), server
}

func newTestSession(token string) *model.ExamSession {
	now := time.Now()
	return &model.ExamSession{
		Token:         token,
		StudentID:     7,
		TestID:        42,
		StartTime:     now,
		EndTime:       now.Add(30 * time.Minute),
		QuestionOrder: []int64{101, 103, 102},
	}
}

func TestSessionStoreCreateAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("tok-1")
	require.NoError(t, s.Create(ctx, sess))

	got, err := s.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, sess.StudentID, got.StudentID)
	require.Equal(t, sess.TestID, got.TestID)
	require.Equal(t, sess.QuestionOrder, got.QuestionOrder)

	byPair, err := s.GetByPair(ctx, 7, 42)
	require.NoError(t, err)
	require.Equal(t, "tok-1", byPair.Token)
}

func TestSessionStoreOneAttemptPerPair(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTestSession("tok-1")))

	err := s.Create(ctx, newTestSession("tok-2"))
	require.ErrorIs(t, err, ErrAttemptExists)

	// The first session is untouched.
	got, err := s.GetByPair(ctx, 7, 42)
	require.NoError(t, err)
	require.Equal(t, "tok-1", got.Token)
}

func TestSessionStoreGetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.GetByPair(context.Background(), 1, 1)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreAnswerOverwrite(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("tok-1")
	require.NoError(t, s.Create(ctx, sess))

	require.NoError(t, s.SetAnswer(ctx, sess, 101, "A"))
	require.NoError(t, s.SetAnswer(ctx, sess, 101, "B"))

	label, err := s.Answer(ctx, sess.Token, 101)
	require.NoError(t, err)
	require.Equal(t, "B", label)

	answers, err := s.Answers(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"101": "B"}, answers)
}

func TestSessionStoreAnswerUnansweredIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("tok-1")
	require.NoError(t, s.Create(ctx, sess))

	label, err := s.Answer(ctx, sess.Token, 999)
	require.NoError(t, err)
	require.Empty(t, label)
}

func TestSessionStoreViolationsMonotonic(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("tok-1")
	require.NoError(t, s.Create(ctx, sess))

	count, err := s.Violations(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	for want := 1; want <= 3; want++ {
		count, err = s.IncrViolations(ctx, sess)
		require.NoError(t, err)
		require.Equal(t, want, count)
	}

	count, err = s.Violations(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestSessionStoreDestroy(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("tok-1")
	require.NoError(t, s.Create(ctx, sess))
	require.NoError(t, s.SetAnswer(ctx, sess, 101, "A"))
	_, err := s.IncrViolations(ctx, sess)
	require.NoError(t, err)

	require.NoError(t, s.Destroy(ctx, sess))

	_, err = s.Get(ctx, sess.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.GetByPair(ctx, sess.StudentID, sess.TestID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// The pair may start again.
	require.NoError(t, s.Create(ctx, newTestSession("tok-2")))

	// Destroy is harmless when repeated.
	require.NoError(t, s.Destroy(ctx, sess))
}

func TestSessionStoreDeadlineIndex(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("tok-1")
	require.NoError(t, s.Create(ctx, sess))

	tokens, err := s.ExpiredTokens(ctx, time.Now())
	require.NoError(t, err)
	require.Empty(t, tokens)

	tokens, err = s.ExpiredTokens(ctx, sess.EndTime.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, []string{"tok-1"}, tokens)

	require.NoError(t, s.DropDeadline(ctx, "tok-1"))
	tokens, err = s.ExpiredTokens(ctx, sess.EndTime.Add(time.Second))
	require.NoError(t, err)
	require.Empty(t, tokens)
}

func TestSessionStoreTTL(t *testing.T) {
	s, server := newTestStore(t)
	ctx := context.Background()

	sess := newTestSession("tok-1")
	require.NoError(t, s.Create(ctx, sess))

	// Session and attempt keys expire on their own after deadline + grace.
	server.FastForward(33 * time.Minute)

	_, err := s.Get(ctx, sess.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.GetByPair(ctx, sess.StudentID, sess.TestID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}
