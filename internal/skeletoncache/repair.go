package skeletoncache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/skeleton"
	"github.com/codenerd-labs/conversync/internal/transcript"
)

// repairConcurrency is the fixed worker pool size for proactive metadata
// repair and staleness refresh.
const repairConcurrency = 5

// RepairResult summarizes one proactive-repair pass.
type RepairResult struct {
	Candidates int
	Repaired   int
	Errors     []error
}

// ProactiveRepair scans tasksDir for task directories that have at least
// one transcript file but no task_metadata.json, rebuilds a skeleton for
// each from its available transcripts, and writes both the skeleton (to
// this cache) and a reconstructed task_metadata.json back to the task
// directory, so a subsequent run no longer finds it missing. Work is
// bounded to repairConcurrency tasks at a time via errgroup.SetLimit.
func (c *Cache) ProactiveRepair(ctx context.Context, tasksDir string) RepairResult {
	ids, err := candidateTaskDirs(tasksDir)
	if err != nil {
		logging.CacheWarn("proactive repair: failed to list %s: %v", tasksDir, err)
		return RepairResult{Errors: []error{err}}
	}

	result := RepairResult{Candidates: len(ids)}
	if len(ids) == 0 {
		return result
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(repairConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return nil
			}
			if err := c.repairOne(tasksDir, id); err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, model.NewTaskError(id, filepath.Join(tasksDir, string(id)), err))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Repaired++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logging.Cache("proactive repair: %d/%d task directories repaired", result.Repaired, result.Candidates)
	return result
}

// candidateTaskDirs lists task directories under tasksDir that contain at
// least one transcript file but lack task_metadata.json.
func candidateTaskDirs(tasksDir string) ([]model.TaskId, error) {
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		return nil, err
	}

	var ids []model.TaskId
	for _, e := range entries {
		if !e.IsDir() || e.Name() == DefaultDirname {
			continue
		}
		dir := filepath.Join(tasksDir, e.Name())
		if _, err := os.Stat(filepath.Join(dir, transcript.MetadataFilename)); err == nil {
			continue
		}
		hasAPI := fileExists(filepath.Join(dir, transcript.APIHistoryFilename))
		hasUI := fileExists(filepath.Join(dir, transcript.UIMessagesFilename))
		if !hasAPI && !hasUI {
			continue
		}
		ids = append(ids, model.TaskId(e.Name()))
	}
	return ids, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (c *Cache) repairOne(tasksDir string, id model.TaskId) error {
	dir := filepath.Join(tasksDir, string(id))
	tf := transcript.ReadTask(dir, id)
	if !tf.HasAnyTranscript() {
		return model.ErrNotFound
	}

	sk := skeleton.Build(dir, id, tf)
	skeleton.StampTimestamps(&sk, sk.Metadata.CreatedAt)

	if err := writeReconstructedMetadata(dir, sk); err != nil {
		logging.CacheWarn("proactive repair: failed to write task_metadata.json for %s: %v", id, err)
	}

	return c.Put(sk)
}

// writeReconstructedMetadata backfills a minimal task_metadata.json for a
// task directory that had transcripts but no metadata file, so a future
// scan finds it present and proactive repair becomes idempotent.
func writeReconstructedMetadata(dir string, sk model.Skeleton) error {
	meta := transcript.Metadata{
		Title:        sk.Metadata.Title,
		Workspace:    sk.Workspace,
		CreatedAt:    sk.Metadata.CreatedAt,
		LastActivity: sk.Metadata.LastActivity,
	}
	if sk.ParentTaskId != nil {
		meta.ParentTaskId = string(*sk.ParentTaskId)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, transcript.MetadataFilename), data, 0644)
}
