package hierarchy

import (
	"sort"
	"strings"
	"time"

	"github.com/codenerd-labs/conversync/internal/model"
)

// metadataFallback looks within sk's workspace for a skeleton whose
// child_task_instruction_prefixes contains a prefix that the orphan's
// truncated_instruction begins with (or vice versa). Ties are broken by
// lexicographic TaskId order for determinism.
func metadataFallback(sk *model.Skeleton, byId map[model.TaskId]model.Skeleton) (model.TaskId, bool) {
	if sk.Workspace == "" {
		return "", false
	}

	needle := strings.ToLower(strings.TrimSpace(sk.TruncatedInstruction))
	if needle == "" {
		return "", false
	}

	var candidates []model.TaskId
	for id, other := range byId {
		if other.TaskId == sk.TaskId || other.Workspace != sk.Workspace {
			continue
		}
		for _, prefix := range other.ChildTaskInstructionPrefixes {
			p := strings.ToLower(strings.TrimSpace(prefix))
			if p == "" {
				continue
			}
			if strings.HasPrefix(needle, p) || strings.HasPrefix(p, needle) {
				candidates = append(candidates, id)
				break
			}
		}
	}

	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	return candidates[0], true
}

// temporalProximityFallback finds the nearest predecessor in the same
// workspace created strictly before sk, within window. Ties on gap are
// broken by lexicographic TaskId order.
func temporalProximityFallback(sk *model.Skeleton, byId map[model.TaskId]model.Skeleton, window time.Duration) (model.TaskId, bool) {
	if sk.Workspace == "" || sk.Metadata.CreatedAt.IsZero() {
		return "", false
	}

	var bestId model.TaskId
	var bestGap time.Duration = -1
	found := false

	for id, other := range byId {
		if id == sk.TaskId || other.Workspace != sk.Workspace {
			continue
		}
		if other.Metadata.CreatedAt.IsZero() || !other.Metadata.CreatedAt.Before(sk.Metadata.CreatedAt) {
			continue
		}
		gap := sk.Metadata.CreatedAt.Sub(other.Metadata.CreatedAt)
		if gap > window {
			continue
		}
		if !found || gap < bestGap || (gap == bestGap && id < bestId) {
			bestId, bestGap, found = id, gap, true
		}
	}

	return bestId, found
}
