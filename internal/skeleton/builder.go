// Package skeleton builds a Skeleton summary from a task's transcript files:
// first-user-message extraction, sub-task delegation scanning, and
// best-effort workspace resolution.
package skeleton

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/transcript"
)

const (
	instructionStorageLimit = 200
	instructionIndexLimit   = 192
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize collapses whitespace and trims a string for comparison/storage,
// matching the normalization InstructionIndex keys use.
func Normalize(s string) string {
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// Truncate trims s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Build produces a Skeleton for one task directory's already-read transcript
// files. It never fails outright: a missing or malformed file degrades the
// resulting skeleton (empty instruction, unresolved workspace) rather than
// aborting, consistent with the batch-tolerant Transcript Reader it
// consumes.
func Build(taskDir string, taskId model.TaskId, tf transcript.TaskFiles) model.Skeleton {
	sk := model.Skeleton{
		TaskId: taskId,
	}

	meta, hasMeta := transcript.ParseMetadata(tf.Metadata)
	uiMsgs, hasUI := transcript.ParseUIMessages(tf.UIMessages)

	if hasMeta {
		sk.Workspace = meta.Workspace
		if meta.Workspace != "" {
			sk.WorkspaceSource = model.WorkspaceSourceMetadata
		}
		if meta.ParentTaskId != "" {
			parent := model.TaskId(meta.ParentTaskId)
			sk.ParentTaskId = &parent
		}
		sk.Metadata.Title = meta.Title
		sk.Metadata.CreatedAt = meta.CreatedAt
		sk.Metadata.LastActivity = meta.LastActivity
	}

	if sk.Workspace == "" && hasUI {
		if ws, ok := transcript.WorkspaceFromMessages(uiMsgs); ok {
			sk.Workspace = ws
			sk.WorkspaceSource = model.WorkspaceSourceEnvironmentDetails
		}
	}
	if sk.Workspace == "" {
		sk.WorkspaceSource = model.WorkspaceSourceUnknown
	}

	apiMsgs, hasAPI := transcript.ParseAPIHistory(tf.APIHistory)
	sk.TruncatedInstruction = firstUserInstruction(apiMsgs, hasAPI, uiMsgs, hasUI)

	if hasUI {
		sk.ChildTaskInstructionPrefixes = extractChildPrefixes(uiMsgs)
		sk.Metadata.MessageCount = len(uiMsgs)
	}
	if hasAPI {
		sk.Metadata.ActionCount = countActions(apiMsgs)
	}

	sk.Metadata.Workspace = sk.Workspace
	sk.Metadata.DataSource = taskDir
	sk.Metadata.TotalSize = totalSize(tf)

	sk.SourceFileChecksums = checksums(tf)

	logging.SkeletonDebug("built skeleton for %s: workspace=%q prefixes=%d", taskId, sk.Workspace, len(sk.ChildTaskInstructionPrefixes))

	return sk
}

func firstUserInstruction(apiMsgs []transcript.APIMessage, hasAPI bool, uiMsgs []transcript.UIMessage, hasUI bool) string {
	if hasAPI {
		for _, m := range apiMsgs {
			if m.Role != "user" {
				continue
			}
			text := rawContentText(m.Content)
			if text != "" {
				return Truncate(Normalize(text), instructionStorageLimit)
			}
		}
	}
	if hasUI {
		for _, m := range uiMsgs {
			if m.Say == "task" || m.Type == "ask" {
				if m.Text != "" {
					return Truncate(Normalize(m.Text), instructionStorageLimit)
				}
			}
		}
	}
	return ""
}

func rawContentText(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	return s
}

func extractChildPrefixes(msgs []transcript.UIMessage) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range msgs {
		for _, d := range ExtractDelegations(m.Text) {
			norm := Normalize(d.Message)
			if norm == "" {
				continue
			}
			key := Truncate(norm, instructionIndexLimit)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Truncate(norm, instructionStorageLimit))
		}
	}
	return out
}

func countActions(msgs []transcript.APIMessage) int {
	count := 0
	for _, m := range msgs {
		if m.Role == "assistant" {
			count++
		}
	}
	return count
}

func totalSize(tf transcript.TaskFiles) int64 {
	var total int64
	for _, fr := range []transcript.FileResult{tf.Metadata, tf.APIHistory, tf.UIMessages} {
		total += int64(len(fr.Raw))
	}
	return total
}

// ChecksumsFor computes the MD5 checksums of a task's three transcript
// files as read, letting callers detect on-disk changes without rebuilding
// the whole skeleton first.
func ChecksumsFor(tf transcript.TaskFiles) model.SourceFileChecksums {
	return checksums(tf)
}

func checksums(tf transcript.TaskFiles) model.SourceFileChecksums {
	return model.SourceFileChecksums{
		Metadata:   md5sum(tf.Metadata.Raw),
		APIHistory: md5sum(tf.APIHistory.Raw),
		UIMessages: md5sum(tf.UIMessages.Raw),
	}
}

func md5sum(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// StampTimestamps fills CreatedAt/LastActivity with now when metadata
// provided none, so downstream temporal-proximity logic always has a usable
// timestamp.
func StampTimestamps(sk *model.Skeleton, now time.Time) {
	if sk.Metadata.CreatedAt.IsZero() {
		sk.Metadata.CreatedAt = now
	}
	if sk.Metadata.LastActivity.IsZero() {
		sk.Metadata.LastActivity = sk.Metadata.CreatedAt
	}
}
