// Package pathresolver determines which directories on disk hold task
// transcripts, in priority order, and optionally watches them for new or
// removed task directories.
package pathresolver

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
)

// EnvStorageRoots is the environment variable holding an OS-path-list-separated
// override of the storage roots.
const EnvStorageRoots = "CONVERSYNC_STORAGE_ROOTS"

// Resolver resolves the ordered list of storage roots to scan for task
// directories, and exposes an optional live-watch mode over them.
type Resolver struct {
	explicit []string
}

// New creates a Resolver. explicitRoots, when non-empty, takes priority over
// the environment variable and the OS-conventional default.
func New(explicitRoots []string) *Resolver {
	return &Resolver{explicit: explicitRoots}
}

// Resolve returns the ordered, existing storage roots. Resolution is
// layered: an explicit config list wins outright; otherwise the
// CONVERSYNC_STORAGE_ROOTS environment variable (split on the OS path-list
// separator) is used; otherwise a single OS-conventional default path is
// returned. Non-existent roots are dropped with no error, and a root whose
// tasks/ subdirectory is missing is dropped with a warning — an empty
// result means "nothing configured or found", not a failure. The returned
// list is sorted alphabetically by resolved path so the ordering (and
// therefore which root is primary) is stable across runs.
func (r *Resolver) Resolve() ([]model.StorageRoot, error) {
	candidates := r.candidates()

	seen := make(map[string]bool)
	var roots []model.StorageRoot
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			continue
		}
		if ti, err := os.Stat(filepath.Join(abs, "tasks")); err != nil || !ti.IsDir() {
			logging.PathResolverWarn("resolve: dropping root %s: no tasks/ subdirectory", abs)
			continue
		}
		roots = append(roots, model.StorageRoot(abs))
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots, nil
}

func (r *Resolver) candidates() []string {
	if len(r.explicit) > 0 {
		return r.explicit
	}

	if env := os.Getenv(EnvStorageRoots); env != "" {
		parts := strings.Split(env, string(os.PathListSeparator))
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	return []string{defaultRoot()}
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "conversync")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "conversync")
	default:
		return filepath.Join(home, ".local", "share", "conversync")
	}
}

// TaskDirs lists the task directory names (TaskIds) beneath a storage
// root's tasks/ subdirectory. Dot-prefixed entries (the .skeletons cache)
// and plain files are skipped; inaccessible entries are skipped rather than
// aborting the scan.
func TaskDirs(root model.StorageRoot) ([]model.TaskId, error) {
	tasksDir := filepath.Join(string(root), "tasks")
	entries, err := os.ReadDir(tasksDir)
	if err != nil {
		return nil, fmt.Errorf("reading tasks dir %s: %w", tasksDir, err)
	}

	var ids []model.TaskId
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, model.TaskId(e.Name()))
	}
	return ids, nil
}
