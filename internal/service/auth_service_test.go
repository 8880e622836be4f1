package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/proctorhub/proctorhub-backend/internal/config"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubStudentRepo struct {
	students map[string]*model.Student
}

func (r *stubStudentRepo) GetByUsername(_ context.Context, username string) (*model.Student, error) {
	st, ok := r.students[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return st, nil
}

func newAuthFixture(t *testing.T) *AuthService {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { rdb.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &stubStudentRepo{students: map[string]*model.Student{
		"alice": {ID: 7, Username: "alice", FullName: "Alice Example", PasswordHash: string(hash), IsActive: true},
		"bob":   {ID: 8, Username: "bob", FullName: "Bob Example", PasswordHash: string(hash), IsActive: false},
	}}

	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}
	return NewAuthService(cfg, rdb, repo)
}

func TestLoginIssuesValidToken(t *testing.T) {
	auth := newAuthFixture(t)
	ctx := context.Background()

	token, student, err := auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, int64(7), student.ID)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.StudentID)
	require.NoError(t, auth.ValidateStudentSession(ctx, claims.StudentID, claims.ID))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth := newAuthFixture(t)
	ctx := context.Background()

	_, _, err := auth.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login(ctx, "nobody", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Inactive accounts cannot log in.
	_, _, err = auth.Login(ctx, "bob", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSingleDevice(t *testing.T) {
	auth := newAuthFixture(t)
	ctx := context.Background()

	first, _, err := auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, "alice", "correct-horse")
	require.ErrorIs(t, err, ErrSessionAlreadyActive)

	// After a reset the old token is invalidated and a new login works.
	require.NoError(t, auth.ResetStudentSession(ctx, 7))

	oldClaims, err := auth.ValidateToken(first)
	require.NoError(t, err)
	require.Error(t, auth.ValidateStudentSession(ctx, oldClaims.StudentID, oldClaims.ID))

	_, _, err = auth.Login(ctx, "alice", "correct-horse")
	require.NoError(t, err)
}

func TestValidateTokenRejectsForgery(t *testing.T) {
	auth := newAuthFixture(t)

	_, err := auth.ValidateToken("not-a-jwt")
	require.Error(t, err)

	otherCfg := &config.Config{JWTSecret: "other-secret", JWTExpiry: time.Hour}
	other := NewAuthService(otherCfg, nil, nil)

	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	other.rdb = redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer other.rdb.Close()

	forged, err := other.GenerateStudentToken(context.Background(), 7)
	require.NoError(t, err)

	_, err = auth.ValidateToken(forged)
	require.Error(t, err)
}
