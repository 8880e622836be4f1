package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorhub/proctorhub-backend/internal/config"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAuditWorkerRequeuesBufferOnCancel(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { rdb.Close() })

	// A pool whose target never accepts connections: every flush fails, so
	// buffered events must come back to the queue instead of vanishing.
	pool, err := pgxpool.New(context.Background(), "postgres://127.0.0.1:1/audit?connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	for i := 0; i < 2; i++ {
		raw, err := json.Marshal(model.AuditEvent{
			Kind: model.AuditKindViolation, StudentID: 7, TestID: 42,
			Detail: "violation", RecordedAt: time.Now(),
		})
		require.NoError(t, err)
		require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.PersistAuditQueue, raw).Err())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := NewAuditWorker(pool, rdb, zerolog.Nop())
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// Wait until both events sit in the worker's buffer, then cancel while
	// it is blocked polling for more.
	require.Eventually(t, func() bool {
		n, err := rdb.LLen(context.Background(), config.WorkerKey.PersistAuditQueue).Result()
		return err == nil && n == 0
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	n, err := rdb.LLen(context.Background(), config.WorkerKey.PersistAuditQueue).Result()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}
