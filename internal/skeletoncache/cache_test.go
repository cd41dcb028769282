package skeletoncache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/codenerd-labs/conversync/internal/model"
)

func newTestCache(t *testing.T) (*Cache, string) {
	t.Helper()
	tasksDir := t.TempDir()
	c, err := New(tasksDir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, tasksDir
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)

	sk := model.Skeleton{
		TaskId:               "task-1",
		TruncatedInstruction: "fix the login bug",
		Workspace:            "/home/user/project",
		Metadata: model.SkeletonMetadata{
			CreatedAt: time.Now().Truncate(time.Second),
		},
	}

	if err := c.Put(sk); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := c.Get("task-1")
	if !ok {
		t.Fatalf("Get: expected skeleton to be present")
	}
	if got.TruncatedInstruction != sk.TruncatedInstruction {
		t.Errorf("TruncatedInstruction = %q, want %q", got.TruncatedInstruction, sk.TruncatedInstruction)
	}
	if !got.Metadata.CreatedAt.Equal(sk.Metadata.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.Metadata.CreatedAt, sk.Metadata.CreatedAt)
	}
}

func TestCache_PutIsAtomic(t *testing.T) {
	c, _ := newTestCache(t)
	sk := model.Skeleton{TaskId: "task-1", TruncatedInstruction: "hello"}
	if err := c.Put(sk); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := os.Stat(filepath.Join(c.Dir(), "task-1.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("expected temp file to be gone after Put, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.Dir(), "task-1.json")); err != nil {
		t.Errorf("expected final file to exist: %v", err)
	}
}

func TestCache_LoadRoundTrip(t *testing.T) {
	c, tasksDir := newTestCache(t)
	sk := model.Skeleton{TaskId: "task-1", TruncatedInstruction: "hello world"}
	if err := c.Put(sk); err != nil {
		t.Fatalf("Put: %v", err)
	}

	c2, err := New(tasksDir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	loaded, errs := c2.Load()
	if len(errs) != 0 {
		t.Fatalf("Load errors: %v", errs)
	}
	if loaded != 1 {
		t.Fatalf("loaded = %d, want 1", loaded)
	}
	got, ok := c2.Get("task-1")
	if !ok || got.TruncatedInstruction != sk.TruncatedInstruction {
		t.Fatalf("Get after Load = %+v, %v", got, ok)
	}
}

func TestCache_LoadSkipsMalformedFile(t *testing.T) {
	c, tasksDir := newTestCache(t)
	if err := c.Put(model.Skeleton{TaskId: "task-ok"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(c.Dir(), "task-bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c2, err := New(tasksDir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	loaded, errs := c2.Load()
	if loaded != 1 {
		t.Fatalf("loaded = %d, want 1", loaded)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want 1 error", errs)
	}
}

func TestCache_LoadMigratesLegacyQdrantIndexedAt(t *testing.T) {
	c, tasksDir := newTestCache(t)
	now := time.Now().Truncate(time.Second).UTC()
	legacyJSON := []byte(`{
		"task_id": "task-legacy",
		"truncated_instruction": "legacy task",
		"metadata": {"created_at": "` + now.Format(time.RFC3339) + `"},
		"qdrantIndexedAt": "` + now.Format(time.RFC3339) + `"
	}`)
	if err := os.WriteFile(filepath.Join(c.Dir(), "task-legacy.json"), legacyJSON, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c2, err := New(tasksDir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, errs := c2.Load(); len(errs) != 0 {
		t.Fatalf("Load errors: %v", errs)
	}

	got, ok := c2.Get("task-legacy")
	if !ok {
		t.Fatalf("expected legacy skeleton to load")
	}
	if got.IndexingState.Status != model.IndexingStatusIndexed {
		t.Errorf("Status = %q, want indexed", got.IndexingState.Status)
	}
	if got.IndexingState.ContentHash == "" {
		t.Errorf("expected a content hash to be inferred")
	}
	if got.IndexingState.IndexedAt == nil || !got.IndexingState.IndexedAt.Equal(now) {
		t.Errorf("IndexedAt = %v, want %v", got.IndexingState.IndexedAt, now)
	}

	// The migration must have been persisted back to disk.
	raw, err := os.ReadFile(filepath.Join(c.Dir(), "task-legacy.json"))
	if err != nil {
		t.Fatalf("ReadFile after migration: %v", err)
	}
	if containsLegacyField(raw) {
		t.Errorf("expected migrated file to no longer need qdrantIndexedAt check, raw = %s", raw)
	}
}

func containsLegacyField(raw []byte) bool {
	// The migrated write uses model.Skeleton's own JSON tags, which do not
	// include qdrantIndexedAt, so a freshly-written file never contains it
	// even though the original legacy fixture did.
	for i := 0; i+len("qdrantIndexedAt") <= len(raw); i++ {
		if string(raw[i:i+len("qdrantIndexedAt")]) == "qdrantIndexedAt" {
			return true
		}
	}
	return false
}

func TestCache_Iter(t *testing.T) {
	c, _ := newTestCache(t)
	for _, id := range []model.TaskId{"a", "b", "c"} {
		if err := c.Put(model.Skeleton{TaskId: id}); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}
	all := c.Iter()
	if len(all) != 3 {
		t.Fatalf("Iter returned %d skeletons, want 3", len(all))
	}
}

func TestCache_ProactiveRepairBuildsMissingMetadata(t *testing.T) {
	c, tasksDir := newTestCache(t)

	taskDir := filepath.Join(tasksDir, "task-needs-repair")
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	uiMessages := `[{"type":"say","say":"task","text":"please fix the bug"}]`
	if err := os.WriteFile(filepath.Join(taskDir, "ui_messages.json"), []byte(uiMessages), 0644); err != nil {
		t.Fatalf("WriteFile ui_messages: %v", err)
	}

	result := c.ProactiveRepair(context.Background(), tasksDir)
	if result.Candidates != 1 {
		t.Fatalf("Candidates = %d, want 1", result.Candidates)
	}
	if result.Repaired != 1 {
		t.Fatalf("Repaired = %d, want 1 (errors: %v)", result.Repaired, result.Errors)
	}

	if _, err := os.Stat(filepath.Join(taskDir, "task_metadata.json")); err != nil {
		t.Errorf("expected task_metadata.json to be written: %v", err)
	}
	if _, ok := c.Get("task-needs-repair"); !ok {
		t.Errorf("expected repaired skeleton to be cached")
	}
}

func TestCache_ProactiveRepairSkipsDirsWithMetadata(t *testing.T) {
	c, tasksDir := newTestCache(t)

	taskDir := filepath.Join(tasksDir, "task-has-metadata")
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(taskDir, "task_metadata.json"), []byte(`{}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(taskDir, "ui_messages.json"), []byte(`[]`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result := c.ProactiveRepair(context.Background(), tasksDir)
	if result.Candidates != 0 {
		t.Fatalf("Candidates = %d, want 0", result.Candidates)
	}
}
