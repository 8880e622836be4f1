package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/proctorhub/proctorhub-backend/internal/config"
	"github.com/proctorhub/proctorhub-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Sink receives engine audit events. Implementations must be
// fire-and-forget: a failing sink never fails the operation that logged.
type Sink interface {
	LogEvent(ctx context.Context, kind string, studentID, testID int64, detail string)
}

// RedisSink queues audit events on a Redis list; the audit worker drains
// the queue into PostgreSQL in batches.
type RedisSink struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisSink creates a RedisSink.
func NewRedisSink(rdb *redis.Client, log zerolog.Logger) *RedisSink {
	return &RedisSink{
		rdb: rdb,
		log: log.With().Str("component", "audit_sink").Logger(),
	}
}

// LogEvent enqueues one event. Errors are logged and swallowed.
func (s *RedisSink) LogEvent(ctx context.Context, kind string, studentID, testID int64, detail string) {
	raw, err := json.Marshal(model.AuditEvent{
		Kind:       kind,
		StudentID:  studentID,
		TestID:     testID,
		Detail:     detail,
		RecordedAt: time.Now(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("kind", kind).Msg("Marshal audit event failed")
		return
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("Queue audit event failed")
	}
}

// NopSink discards every event. Useful in tests.
type NopSink struct{}

func (NopSink) LogEvent(context.Context, string, int64, int64, string) {}
