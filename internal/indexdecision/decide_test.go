package indexdecision

import (
	"testing"
	"time"

	"github.com/codenerd-labs/conversync/internal/model"
)

func TestDecide_NeverAttempted(t *testing.T) {
	sk := model.Skeleton{TaskId: "t1"}
	d := Decide(sk, time.Now())
	if !d.ShouldIndex || d.Action != ActionFresh {
		t.Fatalf("got %+v, want fresh", d)
	}
}

func TestDecide_IndexedUnchangedSkips(t *testing.T) {
	sk := model.Skeleton{TaskId: "t1", TruncatedInstruction: "do the thing"}
	sk.IndexingState = model.IndexingState{
		Status:      model.IndexingStatusIndexed,
		ContentHash: sk.IndexableContentHash(),
	}
	d := Decide(sk, time.Now())
	if d.ShouldIndex || d.Action != ActionSkip {
		t.Fatalf("got %+v, want skip", d)
	}
}

func TestDecide_IndexedChangedContentReindexes(t *testing.T) {
	sk := model.Skeleton{TaskId: "t1", TruncatedInstruction: "do the thing"}
	sk.IndexingState = model.IndexingState{
		Status:      model.IndexingStatusIndexed,
		ContentHash: "stale-hash-that-will-never-match",
	}
	d := Decide(sk, time.Now())
	if !d.ShouldIndex || d.Action != ActionFresh {
		t.Fatalf("got %+v, want fresh (content changed)", d)
	}
}

func TestDecide_RetryBeforeBackoffElapsedSkips(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	sk := model.Skeleton{TaskId: "t1"}
	sk.IndexingState = model.IndexingState{
		Status:             model.IndexingStatusRetry,
		NextRetryNotBefore: &future,
	}
	d := Decide(sk, now)
	if d.ShouldIndex || d.Action != ActionSkip {
		t.Fatalf("got %+v, want skip (backoff not elapsed)", d)
	}
}

func TestDecide_RetryAfterBackoffElapsedRetries(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	sk := model.Skeleton{TaskId: "t1"}
	sk.IndexingState = model.IndexingState{
		Status:             model.IndexingStatusRetry,
		NextRetryNotBefore: &past,
	}
	d := Decide(sk, now)
	if !d.ShouldIndex || d.Action != ActionRetry {
		t.Fatalf("got %+v, want retry", d)
	}
}

func TestDecide_FailedAlwaysSkips(t *testing.T) {
	sk := model.Skeleton{TaskId: "t1"}
	sk.IndexingState.Status = model.IndexingStatusFailed
	d := Decide(sk, time.Now())
	if d.ShouldIndex || d.Action != ActionSkip {
		t.Fatalf("got %+v, want skip", d)
	}
}

func TestDecide_MonotonicityAfterSuccess(t *testing.T) {
	now := time.Now()
	sk := model.Skeleton{TaskId: "t1", TruncatedInstruction: "ship the release"}
	ApplySuccess(&sk, now)

	d1 := Decide(sk, now.Add(time.Minute))
	if d1.ShouldIndex || d1.Action != ActionSkip || d1.Reason != "already current" {
		t.Fatalf("first re-check = %+v, want skip/already current", d1)
	}
	d2 := Decide(sk, now.Add(2*time.Minute))
	if d2.ShouldIndex || d2.Action != ActionSkip {
		t.Fatalf("second re-check = %+v, want skip", d2)
	}
}

func TestApplyFailure_TransientSchedulesRetryWithGrowingBackoff(t *testing.T) {
	now := time.Now()
	sk := model.Skeleton{TaskId: "t1"}
	cfg := DefaultConfig()

	ApplyFailure(&sk, now, ErrorKindTimeout, "deadline exceeded", cfg)
	ApplyFailure(&sk, now, ErrorKindTimeout, "deadline exceeded", cfg)
	ApplyFailure(&sk, now, ErrorKindTimeout, "deadline exceeded", cfg)

	if sk.IndexingState.Status != model.IndexingStatusRetry {
		t.Fatalf("status = %s, want retry", sk.IndexingState.Status)
	}
	if sk.IndexingState.AttemptCount != 3 {
		t.Fatalf("attempt_count = %d, want 3", sk.IndexingState.AttemptCount)
	}
	if sk.IndexingState.NextRetryNotBefore == nil || !sk.IndexingState.NextRetryNotBefore.After(*sk.IndexingState.LastAttemptAt) {
		t.Fatalf("next_retry_not_before must be after last_attempt_at")
	}

	firstBackoff := Backoff(1, cfg)
	thirdBackoff := Backoff(3, cfg)
	if thirdBackoff <= firstBackoff {
		t.Errorf("backoff should grow with attempt count: first=%s third=%s", firstBackoff, thirdBackoff)
	}
}

func TestApplyFailure_PermanentFailsImmediately(t *testing.T) {
	now := time.Now()
	sk := model.Skeleton{TaskId: "t1"}
	ApplyFailure(&sk, now, ErrorKindAuthentication, "bad api key", DefaultConfig())

	if sk.IndexingState.Status != model.IndexingStatusFailed {
		t.Fatalf("status = %s, want failed", sk.IndexingState.Status)
	}
	if sk.IndexingState.NextRetryNotBefore != nil {
		t.Errorf("permanent failure must not schedule a retry")
	}

	d := Decide(sk, now.Add(24*time.Hour))
	if d.ShouldIndex {
		t.Errorf("a permanently failed skeleton must never be re-indexed automatically")
	}
}

func TestBackoff_CapsAtMax(t *testing.T) {
	cfg := Config{BaseBackoff: time.Second, MaxBackoff: 10 * time.Second}
	d := Backoff(20, cfg)
	if d != cfg.MaxBackoff {
		t.Fatalf("Backoff(20) = %s, want capped at %s", d, cfg.MaxBackoff)
	}
}

func TestIsPermanent(t *testing.T) {
	cases := map[ErrorKind]bool{
		ErrorKindAuthentication:     true,
		ErrorKindFileNotFound:       true,
		ErrorKindCorrupted:          true,
		ErrorKindTimeout:            false,
		ErrorKindTransientNetwork:   false,
		ErrorKindDNSNotFound:        false,
	}
	for kind, want := range cases {
		if got := IsPermanent(kind); got != want {
			t.Errorf("IsPermanent(%s) = %v, want %v", kind, got, want)
		}
	}
}
