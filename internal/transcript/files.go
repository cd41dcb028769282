// Package transcript reads the three JSON files a host tool writes per task
// directory and parses them leniently, never panicking or aborting a batch
// on one malformed file.
package transcript

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
)

const (
	MetadataFilename   = "task_metadata.json"
	APIHistoryFilename = "api_conversation_history.json"
	UIMessagesFilename = "ui_messages.json"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadStatus classifies the outcome of reading one transcript file.
type ReadStatus string

const (
	StatusOK           ReadStatus = "ok"
	StatusMissing      ReadStatus = "missing"
	StatusMalformed    ReadStatus = "malformed"
	StatusUnknownShape ReadStatus = "unknown_shape"
)

// FileResult is the outcome of reading and parsing one transcript file.
type FileResult struct {
	Path   string
	Status ReadStatus
	Raw    json.RawMessage
	Err    error
}

// readFile reads a file stripping any leading BOM, reporting Missing rather
// than an error when the file does not exist.
func readFile(path string) ([]byte, ReadStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, StatusMissing, nil
		}
		return nil, StatusMalformed, err
	}
	return bytes.TrimPrefix(data, utf8BOM), StatusOK, nil
}

// parseLenient parses data as JSON, returning a structured ParseError with
// the byte offset and a short snippet on failure rather than the bare
// encoding/json error.
func parseLenient(path string, data []byte) (json.RawMessage, *model.ParseError) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		offset := int64(-1)
		if se, ok := err.(*json.SyntaxError); ok {
			offset = se.Offset
		}
		snippet := snippetAt(data, offset)
		return nil, &model.ParseError{Path: path, Offset: offset, Snippet: snippet, Err: err}
	}
	return json.RawMessage(data), nil
}

func snippetAt(data []byte, offset int64) string {
	if offset < 0 || offset > int64(len(data)) {
		if len(data) > 40 {
			return string(data[:40])
		}
		return string(data)
	}
	start := offset - 20
	if start < 0 {
		start = 0
	}
	end := offset + 20
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return string(data[start:end])
}

// readOne reads and leniently parses a single transcript file under taskDir.
func readOne(taskDir, filename string) FileResult {
	path := filepath.Join(taskDir, filename)
	data, status, err := readFile(path)
	if status == StatusMissing {
		return FileResult{Path: path, Status: StatusMissing}
	}
	if err != nil {
		return FileResult{Path: path, Status: StatusMalformed, Err: err}
	}

	raw, perr := parseLenient(path, data)
	if perr != nil {
		logging.TranscriptWarn("malformed %s: %v", path, perr)
		return FileResult{Path: path, Status: StatusMalformed, Err: perr}
	}
	if !topLevelIsContainer(raw) {
		// Valid JSON but a bare scalar at the top level — typically the
		// leftovers of a corrupted write. Distinct from malformed so
		// callers can tell "not JSON" from "JSON, wrong shape".
		logging.TranscriptWarn("unexpected top-level JSON shape in %s", path)
		return FileResult{Path: path, Status: StatusUnknownShape, Raw: raw}
	}
	return FileResult{Path: path, Status: StatusOK, Raw: raw}
}

func topLevelIsContainer(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// TaskFiles bundles the three per-task file results.
type TaskFiles struct {
	TaskId     model.TaskId
	Metadata   FileResult
	APIHistory FileResult
	UIMessages FileResult
}

// ReadTask reads all three transcript files for a task directory. It never
// returns an error for per-file problems; each FileResult's Status and Err
// describe the individual outcome so callers can skip a task without
// aborting a batch operation.
func ReadTask(taskDir string, taskId model.TaskId) TaskFiles {
	return TaskFiles{
		TaskId:     taskId,
		Metadata:   readOne(taskDir, MetadataFilename),
		APIHistory: readOne(taskDir, APIHistoryFilename),
		UIMessages: readOne(taskDir, UIMessagesFilename),
	}
}

// HasAnyTranscript reports whether at least one of the two transcript files
// (API history, UI messages) exists; task_metadata.json alone does not count
// (used by the cache's proactive metadata repair to find directories with
// transcripts but no metadata).
func (tf TaskFiles) HasAnyTranscript() bool {
	return tf.APIHistory.Status != StatusMissing || tf.UIMessages.Status != StatusMissing
}
