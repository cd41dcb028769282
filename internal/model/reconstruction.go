package model

// InstructionMatch is one candidate returned by the InstructionIndex when
// looking up a child's instruction prefix against known parent instructions.
type InstructionMatch struct {
	ParentTaskId    TaskId           `json:"parent_task_id"`
	SimilarityScore float64          `json:"similarity_score"`
	MatchType       ResolutionMethod `json:"match_type"` // exact | prefix | fuzzy
	MatchedPrefix   string           `json:"matched_prefix"`
}

// ReconstructionResult is the outcome of running a single orphan skeleton
// through the Hierarchy Reconstruction Engine's second pass.
type ReconstructionResult struct {
	ResolvedParentId *TaskId           `json:"resolved_parent_id,omitempty"`
	ConfidenceScore  float64           `json:"confidence_score"`
	Method           ResolutionMethod  `json:"method,omitempty"`
	Validation       ValidationOutcome `json:"validation"`
}

// Resolved reports whether the engine found and validated a parent.
func (r ReconstructionResult) Resolved() bool {
	return r.ResolvedParentId != nil && r.Validation == ValidationValid
}
