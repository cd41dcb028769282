// Package vectorstore defines the stable contract the indexing pipeline
// uses to submit indexable content to whatever vector store a deployment
// chooses. The pipeline itself never depends on a concrete backend: the
// sqlite-vec-backed implementation in internal/vectorstore/sqlitevec is one
// satisfying implementation, shipped so the system is exercisable end to
// end without a network dependency, but any future remote backend can
// satisfy the same interface without touching internal/indexpipeline.
package vectorstore

import (
	"context"
	"time"

	"github.com/codenerd-labs/conversync/internal/model"
)

// IndexableContent is the payload the indexing pipeline hands to a
// VectorStore for one skeleton. It carries everything a backend needs to
// embed and store the task without reaching back into the skeleton cache.
type IndexableContent struct {
	TaskId        model.TaskId
	HostId        model.HostId
	Instruction   string
	Workspace     string
	ChildPrefixes []string
	ContentHash   string
	CreatedAt     time.Time
}

// VectorStore is the external collaborator the Background Indexing Pipeline
// submits content to. Implementations must be safe for concurrent use by a
// single caller issuing one Index call at a time (the pipeline never
// pipelines concurrent Index calls against the same store), but
// CountPointsByHost may be called concurrently with Index by the
// Reconciler.
type VectorStore interface {
	// Index upserts one skeleton's content. Implementations should treat a
	// repeat call with the same TaskId and ContentHash as a cheap no-op or
	// overwrite; the caller (indexdecision.Decide) is responsible for
	// deciding whether reindexing is needed at all.
	Index(ctx context.Context, content IndexableContent) error

	// CountPointsByHost reports how many points the store holds that were
	// indexed by the given host, used by the Reconciler to cross-check
	// against the locally tracked indexed count.
	CountPointsByHost(ctx context.Context, host model.HostId) (int, error)

	// Close releases any resources (database handles, connections) held by
	// the store.
	Close() error
}
