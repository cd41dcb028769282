package indexpipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/vectorstore"
)

// reconcileState is the small JSON file persisting the reconciler's
// last-run timestamp, written next to the skeleton cache's files so the
// at-most-once-per-interval guarantee survives process restarts.
type reconcileState struct {
	LastRunAt time.Time `json:"last_run_at"`
}

// Reconciler compares the locally tracked indexed count against the vector
// store's CountPointsByHost and logs (never corrects) a warning when they
// drift apart by more than max(50, 25% of the local count).
type Reconciler struct {
	cache     CacheStore
	store     vectorstore.VectorStore
	hostId    model.HostId
	interval  time.Duration
	statePath string
}

// NewReconciler creates a Reconciler persisting its last-run marker at
// statePath (typically <skeletonCacheDir>/_reconcile_state.json).
func NewReconciler(cache CacheStore, store vectorstore.VectorStore, hostId model.HostId, interval time.Duration, statePath string) *Reconciler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Reconciler{cache: cache, store: store, hostId: hostId, interval: interval, statePath: statePath}
}

// Run checks whether enough time has elapsed since the last run and, if so,
// performs the comparison. Passing force=true bypasses the interval check
// (used by explicit CLI invocations).
func (r *Reconciler) Run(ctx context.Context, force bool) error {
	now := time.Now()
	state := r.loadState()

	if !force && now.Sub(state.LastRunAt) < r.interval {
		logging.PipelineDebug("reconcile: skipping, last run was %s ago (interval %s)", now.Sub(state.LastRunAt), r.interval)
		return nil
	}

	localIndexed := 0
	for _, sk := range r.cache.Iter() {
		if sk.IndexingState.Status == model.IndexingStatusIndexed {
			localIndexed++
		}
	}

	remoteCount, err := r.store.CountPointsByHost(ctx, r.hostId)
	if err != nil {
		return fmt.Errorf("reconcile: count points for host %s: %w", r.hostId, err)
	}

	threshold := math.Max(50, 0.25*float64(localIndexed))
	discrepancy := math.Abs(float64(localIndexed - remoteCount))
	if discrepancy > threshold {
		logging.PipelineWarn("reconcile: %v: local indexed=%d remote points=%d (host=%s) discrepancy=%.0f exceeds threshold %.0f",
			model.ErrConsistencyWarning, localIndexed, remoteCount, r.hostId, discrepancy, threshold)
	} else {
		logging.Pipeline("reconcile: local indexed=%d remote points=%d within threshold", localIndexed, remoteCount)
	}

	r.saveState(reconcileState{LastRunAt: now})
	return nil
}

func (r *Reconciler) loadState() reconcileState {
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		return reconcileState{}
	}
	var s reconcileState
	if err := json.Unmarshal(data, &s); err != nil {
		logging.PipelineWarn("reconcile: malformed state file %s, treating as never run: %v", r.statePath, err)
		return reconcileState{}
	}
	return s
}

func (r *Reconciler) saveState(s reconcileState) {
	data, err := json.Marshal(s)
	if err != nil {
		logging.PipelineWarn("reconcile: failed to marshal state: %v", err)
		return
	}
	tmp := r.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		logging.PipelineWarn("reconcile: failed to write state file %s: %v", tmp, err)
		return
	}
	if err := os.Rename(tmp, r.statePath); err != nil {
		os.Remove(tmp)
		logging.PipelineWarn("reconcile: failed to rename state file into place: %v", err)
	}
}
