package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleSkeleton() Skeleton {
	parent := TaskId("task-parent")
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	attempted := created.Add(2 * time.Hour)
	conf := 0.85
	return Skeleton{
		TaskId:               "task-child",
		ParentTaskId:         &parent,
		TruncatedInstruction: "implement the storage detection subsystem",
		Workspace:            "/home/dev/projects/conversync",
		WorkspaceSource:      WorkspaceSourceMetadata,
		Metadata: SkeletonMetadata{
			Title:        "storage detection",
			CreatedAt:    created,
			LastActivity: created.Add(45 * time.Minute),
			MessageCount: 12,
			ActionCount:  7,
			TotalSize:    4096,
			Workspace:    "/home/dev/projects/conversync",
			DataSource:   "/data/tasks/task-child",
		},
		ChildTaskInstructionPrefixes: []string{
			"write the path resolver",
			"write the transcript reader",
		},
		IndexingState: IndexingState{
			Status:        IndexingStatusRetry,
			LastAttemptAt: &attempted,
			AttemptCount:  2,
			LastErrorKind: "timeout",
		},
		SourceFileChecksums: SourceFileChecksums{
			Metadata:   "aaa",
			APIHistory: "bbb",
			UIMessages: "ccc",
		},
		Phase1Complete:         true,
		ReconstructedParentId:  &parent,
		ParentConfidenceScore:  &conf,
		ParentResolutionMethod: MethodPrefix,
	}
}

func TestSkeleton_JSONRoundTrip(t *testing.T) {
	original := sampleSkeleton()

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Skeleton
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if diff := cmp.Diff(original, decoded); diff != "" {
		t.Errorf("round-trip mismatch (-original +decoded):\n%s", diff)
	}
}

func TestSkeleton_EffectiveParentId(t *testing.T) {
	declared := TaskId("declared")
	reconstructed := TaskId("reconstructed")

	sk := Skeleton{TaskId: "t"}
	if _, ok := sk.EffectiveParentId(); ok {
		t.Error("expected no effective parent on a bare skeleton")
	}

	sk.ReconstructedParentId = &reconstructed
	if id, ok := sk.EffectiveParentId(); !ok || id != reconstructed {
		t.Errorf("expected reconstructed parent, got %q ok=%v", id, ok)
	}

	sk.ParentTaskId = &declared
	if id, ok := sk.EffectiveParentId(); !ok || id != declared {
		t.Errorf("declared parent should win over reconstructed, got %q ok=%v", id, ok)
	}
}

func TestSkeleton_IndexableContentHash(t *testing.T) {
	a := sampleSkeleton()
	b := sampleSkeleton()

	if a.IndexableContentHash() != b.IndexableContentHash() {
		t.Error("identical skeletons must hash identically")
	}

	b.TruncatedInstruction = "something else entirely"
	if a.IndexableContentHash() == b.IndexableContentHash() {
		t.Error("changed instruction must change the content hash")
	}

	c := sampleSkeleton()
	c.ChildTaskInstructionPrefixes = append(c.ChildTaskInstructionPrefixes, "one more delegation")
	if a.IndexableContentHash() == c.IndexableContentHash() {
		t.Error("added child prefix must change the content hash")
	}
}

func TestTaskError_WrapsSentinels(t *testing.T) {
	err := NewTaskError("task-1", "/data/tasks/task-1/ui_messages.json", ErrMalformed)
	if !errors.Is(err, ErrMalformed) {
		t.Error("TaskError should unwrap to the sentinel it carries")
	}
	if err.Error() == "" {
		t.Error("TaskError message should not be empty")
	}
}

func TestComputeHostId_StableAndShort(t *testing.T) {
	a, err := ComputeHostId()
	if err != nil {
		t.Fatalf("ComputeHostId: %v", err)
	}
	b, _ := ComputeHostId()
	if a != b {
		t.Errorf("host id must be stable across calls: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("host id should be 16 hex chars, got %d (%q)", len(a), a)
	}
}
