package sqlitevec

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/vectorstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "points.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_IndexAndCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	content := vectorstore.IndexableContent{
		TaskId:      "task-1",
		HostId:      "host-a",
		Instruction: "implement the login form",
		Workspace:   "/ws",
		ContentHash: "abc123",
		CreatedAt:   time.Now(),
	}
	if err := s.Index(ctx, content); err != nil {
		t.Fatalf("Index: %v", err)
	}

	count, err := s.CountPointsByHost(ctx, "host-a")
	if err != nil {
		t.Fatalf("CountPointsByHost: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	count, err = s.CountPointsByHost(ctx, "host-b")
	if err != nil {
		t.Fatalf("CountPointsByHost: %v", err)
	}
	if count != 0 {
		t.Fatalf("count for unrelated host = %d, want 0", count)
	}
}

func TestStore_IndexUpsertsOnRepeatTaskId(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := vectorstore.IndexableContent{
		TaskId:      "task-1",
		HostId:      "host-a",
		Instruction: "first version",
		ContentHash: "hash-1",
		CreatedAt:   time.Now(),
	}
	if err := s.Index(ctx, base); err != nil {
		t.Fatalf("Index: %v", err)
	}

	updated := base
	updated.Instruction = "second version"
	updated.ContentHash = "hash-2"
	if err := s.Index(ctx, updated); err != nil {
		t.Fatalf("Index (update): %v", err)
	}

	count, err := s.CountPointsByHost(ctx, "host-a")
	if err != nil {
		t.Fatalf("CountPointsByHost: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after repeat index = %d, want 1 (upsert, not duplicate)", count)
	}
}

func TestStore_CountPointsByHostDistinguishesHosts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, host := range []model.HostId{"host-a", "host-a", "host-b"} {
		err := s.Index(ctx, vectorstore.IndexableContent{
			TaskId:      model.TaskId(string(rune('a' + i))),
			HostId:      host,
			Instruction: "content",
			ContentHash: "hash",
			CreatedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("Index: %v", err)
		}
	}

	countA, _ := s.CountPointsByHost(ctx, "host-a")
	countB, _ := s.CountPointsByHost(ctx, "host-b")
	if countA != 2 {
		t.Errorf("host-a count = %d, want 2", countA)
	}
	if countB != 1 {
		t.Errorf("host-b count = %d, want 1", countB)
	}
}
