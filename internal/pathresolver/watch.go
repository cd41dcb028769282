package pathresolver

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// ChangeEvent describes a task directory appearing or disappearing under a
// watched storage root.
type ChangeEvent struct {
	Root   model.StorageRoot
	TaskId model.TaskId
	Kind   ChangeKind
}

// ChangeKind classifies a ChangeEvent.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeRemoved ChangeKind = "removed"
)

// Watcher watches a fixed set of storage roots for task directories being
// created or removed, debouncing rapid bursts (e.g. a tool writing all three
// transcript files for a new task in quick succession) before notifying.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	roots       []model.StorageRoot
	debounceMap map[string]time.Time
	onChange    func(ChangeEvent)
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewWatcher creates a Watcher over the given roots. onChange is invoked
// from the watcher's own goroutine; callers that need synchronization must
// provide it themselves.
func NewWatcher(roots []model.StorageRoot, onChange func(ChangeEvent)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:     fw,
		roots:       roots,
		debounceMap: make(map[string]time.Time),
		onChange:    onChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	return w, nil
}

// Start begins watching in a background goroutine. It returns once the
// initial Add calls complete; watch failures for individual roots are
// logged and skipped rather than treated as fatal.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.roots {
		if err := w.watcher.Add(string(root)); err != nil {
			logging.PathResolverWarn("watch: failed to add root %s: %v", root, err)
			continue
		}
		logging.PathResolver("watch: watching storage root %s", root)
	}

	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		logging.PathResolverError("watch: error closing watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.PathResolverError("watch: fsnotify error: %v", err)
		case <-debounceTicker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= watchDebounce {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		root, taskId, ok := w.splitPath(path)
		if !ok {
			continue
		}
		kind := ChangeRemoved
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			kind = ChangeCreated
		}
		if w.onChange != nil {
			w.onChange(ChangeEvent{Root: root, TaskId: taskId, Kind: kind})
		}
	}
}

func (w *Watcher) splitPath(path string) (model.StorageRoot, model.TaskId, bool) {
	for _, root := range w.roots {
		prefix := string(root)
		if len(path) > len(prefix) && path[:len(prefix)] == prefix {
			rest := path[len(prefix):]
			for len(rest) > 0 && (rest[0] == '/' || rest[0] == '\\') {
				rest = rest[1:]
			}
			return root, model.TaskId(rest), true
		}
	}
	return "", "", false
}
