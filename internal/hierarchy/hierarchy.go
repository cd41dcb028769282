// Package hierarchy reconstructs the parent/child relationships between
// tasks in two passes: Pass 1 extracts and indexes sub-task delegations,
// Pass 2 resolves orphaned children against that index.
package hierarchy

import (
	"time"

	"github.com/codenerd-labs/conversync/internal/model"
)

// Config bounds the tunable behavior of both passes.
type Config struct {
	BatchSize      int
	MinConfidence  float64
	FuzzyThreshold float64
	TemporalWindow time.Duration
}

// DefaultConfig returns the engine's standard tuning: batch size 20,
// minimum confidence 0.3, fuzzy threshold 0.2, a 5-minute temporal
// proximity window.
func DefaultConfig() Config {
	return Config{
		BatchSize:      20,
		MinConfidence:  0.3,
		FuzzyThreshold: 0.2,
		TemporalWindow: 5 * time.Minute,
	}
}

// CacheStore is the slice of SkeletonCache's surface the hierarchy engine
// needs. Defined here rather than imported so this package has no
// dependency on the cache's storage details.
type CacheStore interface {
	Get(id model.TaskId) (model.Skeleton, bool)
	Put(sk model.Skeleton) error
	Iter() []model.Skeleton
}

// TaskErrors collects per-task failures without aborting a batch.
type TaskErrors []*model.TaskError

func (e *TaskErrors) add(taskId model.TaskId, path string, err error) {
	*e = append(*e, model.NewTaskError(taskId, path, err))
}
