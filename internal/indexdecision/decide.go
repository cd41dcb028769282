// Package indexdecision implements the indexing decision service: a pure,
// side-effect-free policy function deciding whether a skeleton should be
// (re)submitted to the vector store right now. It holds no state and takes
// no locks; all mutation happens through the Apply helpers operating on a
// caller-owned skeleton value.
package indexdecision

import (
	"time"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
)

// Action names the concrete decision: submit fresh, retry, or do nothing.
type Action string

const (
	ActionFresh Action = "fresh"
	ActionRetry Action = "retry"
	ActionSkip  Action = "skip"
)

// Decision is the pure output of Decide.
type Decision struct {
	ShouldIndex  bool
	Action       Action
	Reason       string
	RequiresSave bool
}

// Config bounds the decision service's backoff calculation.
type Config struct {
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultConfig returns the standard backoff tuning: a 30-second base
// doubling per attempt, capped at 6 hours.
func DefaultConfig() Config {
	return Config{
		BaseBackoff: 30 * time.Second,
		MaxBackoff:  6 * time.Hour,
	}
}

// Decide resolves the current indexing state to an action. The skeleton
// cache's load path (skeletoncache.detectAndMigrateLegacy) already rewrites any
// legacy "qdrantIndexedAt" flat timestamp into a populated IndexingState
// before a skeleton ever reaches this function, so Decide only needs to
// reason about the post-migration state machine: pending/unset, indexed,
// retry, failed, skipped.
func Decide(sk model.Skeleton, now time.Time) Decision {
	state := sk.IndexingState
	currentHash := sk.IndexableContentHash()

	switch state.Status {
	case "", model.IndexingStatusPending:
		return Decision{ShouldIndex: true, Action: ActionFresh, Reason: "never attempted"}

	case model.IndexingStatusIndexed:
		if state.ContentHash == currentHash {
			return Decision{ShouldIndex: false, Action: ActionSkip, Reason: "already current"}
		}
		return Decision{ShouldIndex: true, Action: ActionFresh, Reason: "content changed"}

	case model.IndexingStatusRetry:
		if state.NextRetryNotBefore == nil || !now.Before(*state.NextRetryNotBefore) {
			return Decision{ShouldIndex: true, Action: ActionRetry, Reason: "backoff elapsed"}
		}
		return Decision{ShouldIndex: false, Action: ActionSkip, Reason: "backoff not elapsed"}

	case model.IndexingStatusFailed:
		return Decision{ShouldIndex: false, Action: ActionSkip, Reason: "permanent failure"}

	case model.IndexingStatusSkipped:
		return Decision{ShouldIndex: false, Action: ActionSkip, Reason: "explicitly skipped"}

	default:
		logging.DecisionWarn("decide: unknown indexing status %q for %s, treating as pending", state.Status, sk.TaskId)
		return Decision{ShouldIndex: true, Action: ActionFresh, Reason: "unknown status"}
	}
}

// ApplySuccess records a successful indexing attempt: status becomes
// indexed, the content hash and timestamp update, and attempt_count resets.
func ApplySuccess(sk *model.Skeleton, now time.Time) {
	hash := sk.IndexableContentHash()
	sk.IndexingState = model.IndexingState{
		Status:      model.IndexingStatusIndexed,
		IndexedAt:   timePtr(now),
		ContentHash: hash,
	}
	logging.Decision("apply success: %s indexed (hash=%s)", sk.TaskId, hash[:8])
}

// ApplyFailure records a failed indexing attempt. A permanent error
// classification (see classify.go) moves the skeleton straight to failed;
// anything else increments the retry backoff.
func ApplyFailure(sk *model.Skeleton, now time.Time, kind ErrorKind, message string, cfg Config) {
	sk.IndexingState.AttemptCount++
	sk.IndexingState.LastAttemptAt = timePtr(now)
	sk.IndexingState.LastErrorKind = string(kind)
	sk.IndexingState.LastErrorMessage = message

	if IsPermanent(kind) {
		sk.IndexingState.Status = model.IndexingStatusFailed
		sk.IndexingState.NextRetryNotBefore = nil
		logging.DecisionWarn("apply failure: %s marked permanently failed (%s)", sk.TaskId, kind)
		return
	}

	backoff := Backoff(sk.IndexingState.AttemptCount, cfg)
	sk.IndexingState.Status = model.IndexingStatusRetry
	sk.IndexingState.NextRetryNotBefore = timePtr(now.Add(backoff))
	logging.Decision("apply failure: %s scheduled for retry in %s (attempt=%d, kind=%s)",
		sk.TaskId, backoff, sk.IndexingState.AttemptCount, kind)
}

// Backoff computes the exponential backoff delay for the given attempt
// count (1-indexed), base*2^(attempt-1), capped at cfg.MaxBackoff.
func Backoff(attempt int, cfg Config) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := cfg.BaseBackoff
	if base <= 0 {
		base = DefaultConfig().BaseBackoff
	}
	maxDelay := cfg.MaxBackoff
	if maxDelay <= 0 {
		maxDelay = DefaultConfig().MaxBackoff
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func timePtr(t time.Time) *time.Time { return &t }
