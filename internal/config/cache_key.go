package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key for a student's login session.
func (r *CacheKeyStruct) StudentLoginKey(studentID int64) string {
	return fmt.Sprintf("login:%d", studentID)
}

// SessionKey returns the cache key holding an exam session record.
func (r *CacheKeyStruct) SessionKey(token string) string {
	return fmt.Sprintf("exam:session:%s", token)
}

// SessionAnswersKey returns the cache key for a session's answer hash.
func (r *CacheKeyStruct) SessionAnswersKey(token string) string {
	return fmt.Sprintf("exam:session:%s:answers", token)
}

// SessionViolationsKey returns the cache key for a session's violation counter.
func (r *CacheKeyStruct) SessionViolationsKey(token string) string {
	return fmt.Sprintf("exam:session:%s:violations", token)
}

// AttemptKey returns the cache key mapping a (student, test) pair to its
// live session token. One active attempt per pair.
func (r *CacheKeyStruct) AttemptKey(studentID, testID int64) string {
	return fmt.Sprintf("exam:attempt:%d:%d", studentID, testID)
}

// SessionDeadlinesKey returns the sorted-set key indexing live sessions by
// their end time, swept by the reaper.
func (r *CacheKeyStruct) SessionDeadlinesKey() string {
	return "exam:session_deadlines"
}

var CacheKey = NewCacheKeyStruct()
