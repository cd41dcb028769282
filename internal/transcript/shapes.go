package transcript

import (
	"encoding/json"
	"time"
)

// Metadata mirrors the shape of task_metadata.json as written by the host
// tool — the source of truth for workspace and timing fields when present.
type Metadata struct {
	Title        string    `json:"title"`
	Workspace    string    `json:"workspace"`
	ParentTaskId string    `json:"parent_task_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// ParseMetadata decodes a Metadata value from a FileResult's raw JSON. It
// returns ok=false rather than an error when the JSON is valid but does not
// look like a metadata object (StatusUnknownShape semantics).
func ParseMetadata(fr FileResult) (Metadata, bool) {
	if fr.Status != StatusOK {
		return Metadata{}, false
	}
	var m Metadata
	if err := json.Unmarshal(fr.Raw, &m); err != nil {
		return Metadata{}, false
	}
	if m.CreatedAt.IsZero() && m.Title == "" && m.Workspace == "" {
		return Metadata{}, false
	}
	return m, true
}

// APIMessage is one entry of api_conversation_history.json.
type APIMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ParseAPIHistory decodes the API conversation history as a slice of
// messages.
func ParseAPIHistory(fr FileResult) ([]APIMessage, bool) {
	if fr.Status != StatusOK {
		return nil, false
	}
	var msgs []APIMessage
	if err := json.Unmarshal(fr.Raw, &msgs); err != nil {
		return nil, false
	}
	return msgs, true
}

// UIMessage is one entry of ui_messages.json — the host tool's richer,
// UI-facing transcript including "say"/"ask" turns and environment-details
// blocks.
type UIMessage struct {
	Ts   int64  `json:"ts"`
	Type string `json:"type"`
	Say  string `json:"say,omitempty"`
	Ask  string `json:"ask,omitempty"`
	Text string `json:"text"`
}

// ParseUIMessages decodes ui_messages.json as a slice of UIMessage.
func ParseUIMessages(fr FileResult) ([]UIMessage, bool) {
	if fr.Status != StatusOK {
		return nil, false
	}
	var msgs []UIMessage
	if err := json.Unmarshal(fr.Raw, &msgs); err != nil {
		return nil, false
	}
	return msgs, true
}
