package skeletoncache

import (
	"encoding/json"
	"time"

	"github.com/codenerd-labs/conversync/internal/model"
)

// legacyEnvelope captures a skeleton JSON file that may still carry the
// old flat "qdrantIndexedAt" timestamp instead of a populated
// IndexingState, so detectAndMigrateLegacy can detect and rewrite it.
type legacyEnvelope struct {
	QdrantIndexedAt *time.Time `json:"qdrantIndexedAt,omitempty"`
}

// detectAndMigrateLegacy inspects raw to find a legacy "qdrantIndexedAt"
// field and, if present and the decoded skeleton has no IndexingState yet,
// populates sk.IndexingState in place. Returns whether a migration happened.
func detectAndMigrateLegacy(raw []byte, sk *model.Skeleton) bool {
	if sk.IndexingState.Status != "" {
		return false
	}

	var legacy legacyEnvelope
	if err := json.Unmarshal(raw, &legacy); err != nil || legacy.QdrantIndexedAt == nil {
		return false
	}

	hash := sk.IndexableContentHash()
	at := *legacy.QdrantIndexedAt
	sk.IndexingState = model.IndexingState{
		Status:      model.IndexingStatusIndexed,
		IndexedAt:   &at,
		ContentHash: hash,
	}
	return true
}
