// Package skeletoncache is the durable on-disk cache of task skeletons: one
// JSON file per task id under a storage root's ".skeletons" directory, plus
// an in-memory map for fast access. The Cache is the sole owner and mutator
// of that map; every write goes through Put and lands on disk atomically.
package skeletoncache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
)

// DefaultDirname is the cache directory name under the primary root's
// "tasks/" directory, matching StorageConfig.CacheDirname's default.
const DefaultDirname = ".skeletons"

// Cache is the in-memory + on-disk skeleton cache for one primary storage
// root. Safe for concurrent use; Put is the only mutator and always writes
// through to disk via an atomic temp-file-then-rename.
type Cache struct {
	mu        sync.RWMutex
	skeletons map[model.TaskId]model.Skeleton
	dir       string // <primaryRoot>/tasks/.skeletons
}

// New creates a Cache rooted at <tasksDir>/<cacheDirname>, creating the
// directory if it does not exist.
func New(tasksDir, cacheDirname string) (*Cache, error) {
	if cacheDirname == "" {
		cacheDirname = DefaultDirname
	}
	dir := filepath.Join(tasksDir, cacheDirname)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create skeleton cache dir %s: %w", dir, err)
	}
	return &Cache{
		skeletons: make(map[model.TaskId]model.Skeleton),
		dir:       dir,
	}, nil
}

// Dir returns the cache's on-disk directory.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(id model.TaskId) string {
	return filepath.Join(c.dir, string(id)+".json")
}

// Load reads every "<task_id>.json" file in the cache directory into the
// in-memory map. A single file's failure is logged and the file is skipped;
// Load never aborts the whole batch for one bad file. Returns the number of
// skeletons successfully loaded and any per-file errors encountered.
func (c *Cache) Load() (int, []error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, []error{fmt.Errorf("reading cache dir %s: %w", c.dir, err)}
	}

	var errs []error
	loaded := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		raw, sk, err := readSkeletonFileRaw(path)
		if err != nil {
			logging.CacheWarn("load: skipping %s: %v", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}

		requiresSave := detectAndMigrateLegacy(raw, &sk)

		c.mu.Lock()
		c.skeletons[sk.TaskId] = sk
		c.mu.Unlock()
		loaded++

		if requiresSave {
			logging.Cache("load: migrated legacy qdrantIndexedAt for %s", sk.TaskId)
			if err := c.Put(sk); err != nil {
				logging.CacheWarn("load: failed to persist migrated skeleton %s: %v", sk.TaskId, err)
			}
		}
	}

	logging.Cache("load: %d skeletons loaded from %s (%d errors)", loaded, c.dir, len(errs))
	return loaded, errs
}

func readSkeletonFileRaw(path string) ([]byte, model.Skeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.Skeleton{}, err
	}
	var sk model.Skeleton
	if err := json.Unmarshal(data, &sk); err != nil {
		return nil, model.Skeleton{}, fmt.Errorf("%w: %v", model.ErrMalformed, err)
	}
	return data, sk, nil
}

// Get returns the cached skeleton for id, if present.
func (c *Cache) Get(id model.TaskId) (model.Skeleton, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sk, ok := c.skeletons[id]
	return sk, ok
}

// Put writes sk to the in-memory map and to disk atomically (temp file in
// the same directory, then rename), so a crash mid-write never leaves a
// partially-written skeleton file behind.
func (c *Cache) Put(sk model.Skeleton) error {
	data, err := json.MarshalIndent(sk, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal skeleton %s: %w", sk.TaskId, err)
	}

	target := c.path(sk.TaskId)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp skeleton file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s to %s: %w", tmp, target, err)
	}

	c.mu.Lock()
	c.skeletons[sk.TaskId] = sk
	c.mu.Unlock()

	logging.CacheDebug("put: wrote skeleton %s to %s", sk.TaskId, target)
	return nil
}

// Iter returns a snapshot slice of every cached skeleton. Mutating the
// returned slice's elements has no effect on the cache; callers must Put
// to persist changes.
func (c *Cache) Iter() []model.Skeleton {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Skeleton, 0, len(c.skeletons))
	for _, sk := range c.skeletons {
		out = append(out, sk)
	}
	return out
}

// Len returns the number of cached skeletons.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.skeletons)
}

// Rebuild re-derives every skeleton in taskIds from scratch using build and
// Puts it, replacing whatever was cached for that id. Skeletons of ids not in
// taskIds are left in the cache; Rebuild deletes nothing. A nil
// filter rebuilds every id in taskIds; a non-nil filter restricts the
// rebuild to ids for which filter returns true.
func (c *Cache) Rebuild(taskIds []model.TaskId, filter func(model.TaskId) bool, build func(model.TaskId) (model.Skeleton, error)) (int, []error) {
	var errs []error
	rebuilt := 0

	for _, id := range taskIds {
		if filter != nil && !filter(id) {
			continue
		}
		sk, err := build(id)
		if err != nil {
			logging.CacheWarn("rebuild: failed to build skeleton for %s: %v", id, err)
			errs = append(errs, model.NewTaskError(id, "", err))
			continue
		}
		if err := c.Put(sk); err != nil {
			logging.CacheWarn("rebuild: failed to persist skeleton for %s: %v", id, err)
			errs = append(errs, model.NewTaskError(id, "", err))
			continue
		}
		rebuilt++
	}

	logging.Cache("rebuild: %d/%d skeletons rebuilt (%d errors)", rebuilt, len(taskIds), len(errs))
	return rebuilt, errs
}
