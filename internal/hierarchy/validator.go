package hierarchy

import "github.com/codenerd-labs/conversync/internal/model"

// validateCandidate applies the Parent Validator's four checks against a
// resolved-candidate parent id for the orphan skeleton sk. byId is a
// snapshot of every known skeleton keyed by task id.
func validateCandidate(sk model.Skeleton, candidate model.TaskId, byId map[model.TaskId]model.Skeleton) model.ValidationOutcome {
	parent, exists := byId[candidate]
	if !exists {
		return model.ValidationInvalidNotFound
	}

	if parent.Metadata.CreatedAt.After(sk.Metadata.CreatedAt) {
		return model.ValidationInvalidTemporal
	}

	if hasCycle(sk.TaskId, candidate, byId) {
		return model.ValidationInvalidCycle
	}

	if sk.Workspace != "" && parent.Workspace != "" && sk.Workspace != parent.Workspace {
		return model.ValidationInvalidWorkspace
	}

	return model.ValidationValid
}

// hasCycle walks upward from candidate through declared or reconstructed
// parents, rejecting the candidate if that walk ever reaches childId. A
// visited set guards against pre-existing cycles elsewhere in the data that
// would otherwise loop forever.
func hasCycle(childId, candidate model.TaskId, byId map[model.TaskId]model.Skeleton) bool {
	visited := make(map[model.TaskId]bool)
	current := candidate

	for {
		if current == childId {
			return true
		}
		if visited[current] {
			return false
		}
		visited[current] = true

		sk, ok := byId[current]
		if !ok {
			return false
		}
		next, hasParent := sk.EffectiveParentId()
		if !hasParent {
			return false
		}
		current = next
	}
}
