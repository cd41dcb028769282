// Package indexpipeline is the background indexing pipeline: a single
// goroutine owning a unique work queue, a periodic scanner that consults
// internal/indexdecision for every cached skeleton, and a ticker that pops
// one queued id per tick and submits it to a vectorstore.VectorStore.
// Foreground callers never touch the queue; they go straight to the
// skeleton cache and hierarchy engine.
package indexpipeline

import (
	"context"
	"time"

	"github.com/codenerd-labs/conversync/internal/indexdecision"
	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/ratebudget"
	"github.com/codenerd-labs/conversync/internal/vectorstore"
)

// CacheStore is the subset of skeletoncache.Cache the pipeline needs: read
// and rewrite every cached skeleton, never owning the map itself.
type CacheStore interface {
	Iter() []model.Skeleton
	Get(id model.TaskId) (model.Skeleton, bool)
	Put(sk model.Skeleton) error
}

// Config bounds the pipeline's timing and the decision service it delegates to.
type Config struct {
	TickInterval  time.Duration
	ScanInterval  time.Duration
	IndexTimeout  time.Duration
	Decision      indexdecision.Config
	HostId        model.HostId
	MaxQueueBeforeWarning int
}

// DefaultConfig mirrors internal/config's IndexingConfig defaults: a 600ms
// tick (~100 ops/min), a 5s scan cadence, and a 30s per-index timeout.
func DefaultConfig() Config {
	return Config{
		TickInterval:          600 * time.Millisecond,
		ScanInterval:          5 * time.Second,
		IndexTimeout:          30 * time.Second,
		Decision:              indexdecision.DefaultConfig(),
		MaxQueueBeforeWarning: 1000,
	}
}

// Pipeline is the background indexing worker. The queue is owned
// exclusively by the pipeline's own goroutines; no other package may touch it.
type Pipeline struct {
	cache  CacheStore
	store  vectorstore.VectorStore
	cfg    Config
	queue  *workQueue
	budget *ratebudget.Tracker
}

// New creates a Pipeline. cache and store must already be initialized.
func New(cache CacheStore, store vectorstore.VectorStore, cfg Config) *Pipeline {
	return &Pipeline{
		cache: cache,
		store: store,
		cfg:   cfg,
		queue: newWorkQueue(),
	}
}

// SetBudgetTracker attaches an attempt/bandwidth tracker. When set, every
// indexing attempt is recorded and the queue-depth warning uses the
// tracker's observed rate instead of the nominal tick cadence.
func (p *Pipeline) SetBudgetTracker(t *ratebudget.Tracker) {
	p.budget = t
}

// Run starts the scanner and the tick consumer and blocks until ctx is
// cancelled. Both loops share nothing but the queue: the scan is the only
// producer and the tick the only consumer, so per-task state transitions
// stay serialized.
func (p *Pipeline) Run(ctx context.Context) {
	scanTicker := time.NewTicker(p.cfg.ScanInterval)
	defer scanTicker.Stop()
	workTicker := time.NewTicker(p.cfg.TickInterval)
	defer workTicker.Stop()

	p.scanOnce(ctx.Done())

	for {
		select {
		case <-ctx.Done():
			logging.Pipeline("pipeline: context cancelled, stopping")
			return
		case <-scanTicker.C:
			p.scanOnce(ctx.Done())
		case <-workTicker.C:
			p.tickOnce(ctx)
		}
	}
}

// scanOnce asks the Decision Service about every cached skeleton and
// enqueues the ones that come back positive. A closed done channel aborts
// the scan early rather than blocking shutdown.
func (p *Pipeline) scanOnce(done <-chan struct{}) {
	skeletons := p.cache.Iter()
	now := time.Now()
	enqueued := 0
	for _, sk := range skeletons {
		select {
		case <-done:
			return
		default:
		}
		d := indexdecision.Decide(sk, now)
		if d.ShouldIndex && p.queue.Push(sk.TaskId) {
			enqueued++
		}
	}
	if enqueued > 0 {
		logging.PipelineDebug("scan: enqueued %d of %d skeletons", enqueued, len(skeletons))
	}
	if n := p.queue.Len(); n > p.cfg.MaxQueueBeforeWarning {
		drain := time.Duration(float64(n)/100.0*60) * time.Second
		if p.budget != nil {
			if est := p.budget.EstimateDrainTime(n); est > 0 {
				drain = est
			}
		}
		logging.PipelineWarn("pipeline: queue depth %d exceeds warning threshold %d, estimated drain time %.1f minutes",
			n, p.cfg.MaxQueueBeforeWarning, drain.Minutes())
	}
}

// tickOnce pops a single queued id, re-asks the Decision Service (state may
// have changed since it was enqueued), and if still positive submits it to
// the vector store under a bounded timeout.
func (p *Pipeline) tickOnce(ctx context.Context) {
	id, ok := p.queue.Pop()
	if !ok {
		return
	}

	sk, ok := p.cache.Get(id)
	if !ok {
		logging.PipelineWarn("tick: %s vanished from cache before it could be indexed", id)
		return
	}

	now := time.Now()
	d := indexdecision.Decide(sk, now)
	if !d.ShouldIndex {
		logging.PipelineDebug("tick: %s no longer eligible (%s), skipping", id, d.Reason)
		return
	}

	content := vectorstore.IndexableContent{
		TaskId:        sk.TaskId,
		HostId:        p.cfg.HostId,
		Instruction:   sk.TruncatedInstruction,
		Workspace:     sk.Workspace,
		ChildPrefixes: sk.ChildTaskInstructionPrefixes,
		ContentHash:   sk.IndexableContentHash(),
		CreatedAt:     sk.CreatedAt(),
	}

	indexCtx, cancel := context.WithTimeout(ctx, p.cfg.IndexTimeout)
	err := p.store.Index(indexCtx, content)
	cancel()

	if p.budget != nil {
		p.budget.Record(string(p.cfg.HostId), "skeleton", err == nil, contentBytes(content))
	}

	if err != nil {
		kind := classifyStoreError(err)
		indexdecision.ApplyFailure(&sk, now, kind, err.Error(), p.cfg.Decision)
		logging.PipelineWarn("tick: indexing %s failed (%s): %v", id, kind, err)
	} else {
		indexdecision.ApplySuccess(&sk, now)
		logging.Pipeline("tick: indexed %s", id)
	}

	if err := p.cache.Put(sk); err != nil {
		logging.PipelineError("tick: failed to persist indexing state for %s: %v", id, err)
	}
}

// QueueLen exposes the current queue depth, used by the reconciler and CLI
// status reporting.
func (p *Pipeline) QueueLen() int {
	return p.queue.Len()
}

func contentBytes(c vectorstore.IndexableContent) int {
	n := len(c.Instruction) + len(c.Workspace)
	for _, p := range c.ChildPrefixes {
		n += len(p)
	}
	return n
}
