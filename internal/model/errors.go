package model

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the taxonomy every subsystem wraps its failures
// around. Callers use errors.Is against these, never string matching.
var (
	// ErrNotFound: a referenced task, file, or skeleton does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformed: a file exists but its content violates the expected shape.
	ErrMalformed = errors.New("malformed content")
	// ErrPermission: the process lacks the filesystem permission to read or write.
	ErrPermission = errors.New("permission denied")
	// ErrTransientRemote: an external collaborator (vector store, embedding
	// provider) failed in a way expected to clear on retry.
	ErrTransientRemote = errors.New("transient remote failure")
	// ErrPermanentRemote: an external collaborator rejected the request in a
	// way retrying will not fix.
	ErrPermanentRemote = errors.New("permanent remote failure")
	// ErrValidation: a reconstructed or supplied value failed an invariant check.
	ErrValidation = errors.New("validation failure")
	// ErrConsistencyWarning: a background check found a discrepancy worth
	// surfacing but not worth auto-correcting.
	ErrConsistencyWarning = errors.New("consistency warning")
)

// TaskError associates a failure with the task and file path it occurred on,
// letting batch operations (Pass 1, the cache rebuild) accumulate partial
// failures without aborting the whole run.
type TaskError struct {
	TaskId TaskId
	Path   string
	Err    error
}

func (e *TaskError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("task %s (%s): %v", e.TaskId, e.Path, e.Err)
	}
	return fmt.Sprintf("task %s: %v", e.TaskId, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError wraps err with task context, preserving errors.Is against the
// taxonomy sentinels.
func NewTaskError(taskId TaskId, path string, err error) *TaskError {
	return &TaskError{TaskId: taskId, Path: path, Err: err}
}

// ParseError describes a failure to parse a transcript file, pinpointing the
// byte offset and a short snippet for diagnostics.
type ParseError struct {
	Path    string
	Offset  int64
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s at offset %d: %v (near %q)", e.Path, e.Offset, e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
