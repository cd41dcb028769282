package skeleton

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/transcript"
)

func writeTaskFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestBuild_WorkspaceFromMetadata(t *testing.T) {
	dir := writeTranscript(t,
		`{"title":"demo","workspace":"/home/user/proj","created_at":"2026-01-01T00:00:00Z","last_activity":"2026-01-01T01:00:00Z"}`,
		`[{"role":"user","content":"Please add a feature to the app."}]`,
		`[{"ts":1,"type":"say","text":"ok"}]`,
	)

	tf := transcript.ReadTask(dir, "task-1")
	sk := Build(dir, "task-1", tf)

	if sk.Workspace != "/home/user/proj" {
		t.Fatalf("workspace = %q", sk.Workspace)
	}
	if sk.WorkspaceSource != model.WorkspaceSourceMetadata {
		t.Fatalf("workspace source = %q", sk.WorkspaceSource)
	}
	if sk.TruncatedInstruction != "Please add a feature to the app." {
		t.Fatalf("instruction = %q", sk.TruncatedInstruction)
	}
}

func TestBuild_WorkspaceFromEnvironmentDetailsFallback(t *testing.T) {
	dir := writeTranscript(t,
		`{}`,
		`[{"role":"user","content":"Investigate the crash."}]`,
		`[{"ts":1,"type":"say","text":"# Current Workspace Directory (/opt/app) Files\nREADME.md"}]`,
	)

	tf := transcript.ReadTask(dir, "task-2")
	sk := Build(dir, "task-2", tf)

	if sk.Workspace != "/opt/app" {
		t.Fatalf("workspace = %q", sk.Workspace)
	}
	if sk.WorkspaceSource != model.WorkspaceSourceEnvironmentDetails {
		t.Fatalf("workspace source = %q", sk.WorkspaceSource)
	}
}

func TestBuild_ChildDelegationPrefixes(t *testing.T) {
	dir := writeTranscript(t,
		`{"workspace":"/w"}`,
		`[{"role":"user","content":"Refactor the auth module."}]`,
		`[{"ts":1,"type":"say","text":"new_task(mode: code) Split the auth handlers into smaller files."},
		  {"ts":2,"type":"say","text":"new_task(mode: code) Split the auth handlers into smaller files."}]`,
	)

	tf := transcript.ReadTask(dir, "task-3")
	sk := Build(dir, "task-3", tf)

	if len(sk.ChildTaskInstructionPrefixes) != 1 {
		t.Fatalf("expected deduplicated single prefix, got %d: %v", len(sk.ChildTaskInstructionPrefixes), sk.ChildTaskInstructionPrefixes)
	}
}

func writeTranscript(t *testing.T, meta, api, ui string) string {
	t.Helper()
	dir := t.TempDir()
	writeTaskFile(t, dir, transcript.MetadataFilename, meta)
	writeTaskFile(t, dir, transcript.APIHistoryFilename, api)
	writeTaskFile(t, dir, transcript.UIMessagesFilename, ui)
	return dir
}
