package model

import "time"

// AuditEvent is a fire-and-forget record of an engine action: session
// start, each violation, and finalization. Events are queued in Redis and
// persisted by the audit worker.
type AuditEvent struct {
	Kind       string    `json:"kind"`
	StudentID  int64     `json:"student_id"`
	TestID     int64     `json:"test_id"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Audit event kinds emitted by the engine.
const (
	AuditKindSessionStart = "SESSION_START"
	AuditKindViolation    = "SECURITY_VIOLATION"
	AuditKindFinalize     = "FINALIZE"
)
