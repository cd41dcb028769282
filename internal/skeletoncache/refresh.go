package skeletoncache

import (
	"context"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/skeleton"
	"github.com/codenerd-labs/conversync/internal/transcript"
)

// RefreshResult summarizes one staleness pass over the cached skeletons.
type RefreshResult struct {
	Checked   int
	Refreshed int
	Errors    []error
}

// RefreshStale re-reads the transcript files of every cached skeleton whose
// task directory lives under tasksDir and compares their MD5 checksums
// against the ones stored on the skeleton. A mismatch means the host tool
// appended to (or rewrote) a transcript since the skeleton was built, so
// the skeleton is rebuilt from the current files. The rebuilt skeleton
// keeps the previous indexing state and parent-resolution fields — the
// Decision Service notices content changes through the content hash, and
// Pass 2 only revisits skeletons whose parent no longer resolves — but its
// phase-1 marker is cleared so the next reconstruction pass re-extracts and
// re-indexes its delegations.
//
// Skeletons whose checksums all match are untouched: no rebuild, no write.
func (c *Cache) RefreshStale(ctx context.Context, tasksDir string) RefreshResult {
	skeletons := c.Iter()
	result := RefreshResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(repairConcurrency)

	var resMu sync.Mutex
	for _, sk := range skeletons {
		sk := sk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return nil
			}
			refreshed, err := c.refreshOne(tasksDir, sk)
			resMu.Lock()
			result.Checked++
			if err != nil {
				result.Errors = append(result.Errors, model.NewTaskError(sk.TaskId, filepath.Join(tasksDir, string(sk.TaskId)), err))
			} else if refreshed {
				result.Refreshed++
			}
			resMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logging.Cache("refresh: %d/%d skeletons rebuilt from changed transcripts (%d errors)",
		result.Refreshed, result.Checked, len(result.Errors))
	return result
}

func (c *Cache) refreshOne(tasksDir string, old model.Skeleton) (bool, error) {
	dir := filepath.Join(tasksDir, string(old.TaskId))
	tf := transcript.ReadTask(dir, old.TaskId)
	if !tf.HasAnyTranscript() {
		// Directory gone or emptied; the skeleton stays as the last known
		// good summary (skeletons are never deleted except by rebuild).
		return false, nil
	}

	if skeleton.ChecksumsFor(tf) == old.SourceFileChecksums {
		return false, nil
	}

	fresh := skeleton.Build(dir, old.TaskId, tf)
	skeleton.StampTimestamps(&fresh, old.Metadata.CreatedAt)

	fresh.IndexingState = old.IndexingState
	if fresh.ParentTaskId == nil {
		fresh.ParentTaskId = old.ParentTaskId
	}
	fresh.ReconstructedParentId = old.ReconstructedParentId
	fresh.ParentConfidenceScore = old.ParentConfidenceScore
	fresh.ParentResolutionMethod = old.ParentResolutionMethod
	fresh.Phase1Complete = false

	logging.CacheDebug("refresh: transcripts changed for %s, skeleton rebuilt", old.TaskId)
	return true, c.Put(fresh)
}
