// Package model defines the value types shared by every conversync
// subsystem: the Skeleton wire format, the indexing state machine, and the
// typed error taxonomy. Nothing in this package performs I/O or holds a
// mutex — ownership and mutation live in the packages that embed these
// values (skeletoncache, hierarchy, indexpipeline).
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// TaskId is an opaque identifier minted by the host tool that created a task
// directory (the directory's basename). This system never mints one.
type TaskId string

// WorkspaceSource records how confidently a Skeleton's workspace was derived.
type WorkspaceSource string

const (
	WorkspaceSourceMetadata           WorkspaceSource = "metadata"
	WorkspaceSourceEnvironmentDetails WorkspaceSource = "environment_details"
	WorkspaceSourceUnknown            WorkspaceSource = "unknown"
)

// ResolutionMethod names how a skeleton's parent was determined.
type ResolutionMethod string

const (
	MethodExact             ResolutionMethod = "exact"
	MethodPrefix            ResolutionMethod = "prefix"
	MethodFuzzy             ResolutionMethod = "fuzzy"
	MethodTemporalProximity ResolutionMethod = "temporal_proximity"
	MethodMetadata          ResolutionMethod = "metadata"
	MethodRootDetected      ResolutionMethod = "root_detected"
)

// ValidationOutcome names why a reconstructed parent candidate was accepted
// or rejected.
type ValidationOutcome string

const (
	ValidationValid            ValidationOutcome = "valid"
	ValidationInvalidTemporal  ValidationOutcome = "invalid_temporal"
	ValidationInvalidCycle     ValidationOutcome = "invalid_cycle"
	ValidationInvalidWorkspace ValidationOutcome = "invalid_workspace"
	ValidationInvalidNotFound  ValidationOutcome = "invalid_not_found"
)

// IndexingStatus is the state of a skeleton within the Indexing Decision Service's
// state machine.
type IndexingStatus string

const (
	IndexingStatusPending IndexingStatus = "pending"
	IndexingStatusIndexed IndexingStatus = "indexed"
	IndexingStatusRetry   IndexingStatus = "retry"
	IndexingStatusFailed  IndexingStatus = "failed"
	IndexingStatusSkipped IndexingStatus = "skipped"
)

// IndexingState tracks a skeleton's progress through the indexing pipeline.
type IndexingState struct {
	Status             IndexingStatus `json:"status"`
	LastAttemptAt      *time.Time     `json:"last_attempt_at,omitempty"`
	AttemptCount       int            `json:"attempt_count"`
	LastErrorKind      string         `json:"last_error_kind,omitempty"`
	LastErrorMessage   string         `json:"last_error_message,omitempty"`
	NextRetryNotBefore *time.Time     `json:"next_retry_not_before,omitempty"`
	IndexedAt          *time.Time     `json:"indexed_at,omitempty"`
	ContentHash        string         `json:"content_hash,omitempty"`
}

// SourceFileChecksums caches the MD5 hashes of a task's three transcript
// files, letting Pass 1 skip skeletons whose underlying files are unchanged.
type SourceFileChecksums struct {
	Metadata   string `json:"metadata,omitempty"`
	APIHistory string `json:"api_history,omitempty"`
	UIMessages string `json:"ui_messages,omitempty"`
}

// SkeletonMetadata mirrors the `metadata` object in the on-disk skeleton
// JSON format.
type SkeletonMetadata struct {
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
	ActionCount  int       `json:"action_count"`
	TotalSize    int64     `json:"total_size"`
	Workspace    string    `json:"workspace,omitempty"`
	DataSource   string    `json:"data_source"`
}

// Skeleton is the compact, indexable summary of one task. It is a plain
// value type: all mutation happens through the owning SkeletonCache's Put.
type Skeleton struct {
	TaskId                       TaskId              `json:"task_id"`
	ParentTaskId                 *TaskId             `json:"parent_task_id,omitempty"`
	TruncatedInstruction         string              `json:"truncated_instruction"`
	Workspace                    string              `json:"workspace,omitempty"`
	WorkspaceSource              WorkspaceSource     `json:"workspace_source,omitempty"`
	Metadata                     SkeletonMetadata    `json:"metadata"`
	ChildTaskInstructionPrefixes []string            `json:"child_task_instruction_prefixes"`
	IndexingState                IndexingState       `json:"indexing_state"`
	SourceFileChecksums          SourceFileChecksums `json:"source_file_checksums"`
	Phase1Complete               bool                `json:"phase1_complete,omitempty"`

	ReconstructedParentId  *TaskId          `json:"reconstructed_parent_id,omitempty"`
	ParentConfidenceScore  *float64         `json:"parent_confidence_score,omitempty"`
	ParentResolutionMethod ResolutionMethod `json:"parent_resolution_method,omitempty"`
}

// EffectiveParentId returns the declared parent if present, otherwise the
// reconstructed one.
func (s *Skeleton) EffectiveParentId() (TaskId, bool) {
	if s.ParentTaskId != nil {
		return *s.ParentTaskId, true
	}
	if s.ReconstructedParentId != nil {
		return *s.ReconstructedParentId, true
	}
	return "", false
}

// CreatedAt is a convenience accessor for the metadata creation timestamp.
func (s *Skeleton) CreatedAt() time.Time {
	return s.Metadata.CreatedAt
}

// IndexableContentHash computes a stable hash over the portion of a
// skeleton's content the vector store indexes: the opening instruction, the
// workspace, and every child delegation prefix in emission order. The
// Indexing Decision Service compares this against IndexingState.ContentHash
// to decide whether a previously indexed skeleton needs reindexing.
func (s *Skeleton) IndexableContentHash() string {
	h := sha256.New()
	h.Write([]byte(s.TruncatedInstruction))
	h.Write([]byte{0})
	h.Write([]byte(s.Workspace))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(s.ChildTaskInstructionPrefixes, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}
