package hierarchy

import (
	"context"
	"sort"

	"github.com/codenerd-labs/conversync/internal/instructionindex"
	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
)

// Pass2Result summarizes one Resolve Parents pass.
type Pass2Result struct {
	Processed      int
	Resolved       int
	Unresolved     int
	ByMethod       map[model.ResolutionMethod]int
	MeanConfidence float64
	Errors         TaskErrors
}

// metadataFallbackConfidence and temporalProximityConfidence are the fixed
// scores assigned to the two fallback tiers; index lookups carry their own
// computed score, these two do not.
const (
	metadataFallbackConfidence  = 0.5
	temporalProximityConfidence = 0.4
)

// Pass2 resolves a reconstructed_parent_id for every orphan skeleton in
// cache: one whose declared ParentTaskId is absent, or present but does not
// resolve to a skeleton the cache actually holds. idx is the instruction
// index built (or updated) by Pass1 over the same skeleton set.
func Pass2(ctx context.Context, cache CacheStore, idx *instructionindex.Index, cfg Config) Pass2Result {
	skeletons := cache.Iter()
	byId := make(map[model.TaskId]model.Skeleton, len(skeletons))
	for _, sk := range skeletons {
		byId[sk.TaskId] = sk
	}

	result := Pass2Result{ByMethod: make(map[model.ResolutionMethod]int)}
	var confidenceSum float64

	orphans := orphanSkeletons(skeletons, byId)

	for batchStart := 0; batchStart < len(orphans); batchStart += cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			logging.HierarchyWarn("pass2: context cancelled after %d/%d orphans", batchStart, len(orphans))
			break
		}
		end := batchStart + cfg.BatchSize
		if end > len(orphans) {
			end = len(orphans)
		}

		for _, sk := range orphans[batchStart:end] {
			resolveOne(&sk, idx, byId, cache, cfg, &result, &confidenceSum)
		}
	}

	if result.Resolved > 0 {
		result.MeanConfidence = confidenceSum / float64(result.Resolved)
	}

	logging.Hierarchy("pass2: processed=%d resolved=%d unresolved=%d mean_confidence=%.3f errors=%d",
		result.Processed, result.Resolved, result.Unresolved, result.MeanConfidence, len(result.Errors))
	return result
}

// orphanSkeletons returns every skeleton whose declared parent is absent or
// does not resolve within the set, sorted by TaskId for deterministic
// processing order across runs. Skeletons a previous run already settled —
// marked root, or holding a reconstructed parent that still resolves — are
// not orphans, so re-running the pass with no input changes touches nothing.
func orphanSkeletons(skeletons []model.Skeleton, byId map[model.TaskId]model.Skeleton) []model.Skeleton {
	var orphans []model.Skeleton
	for _, sk := range skeletons {
		if sk.ParentTaskId != nil {
			if _, ok := byId[*sk.ParentTaskId]; ok {
				continue
			}
		}
		if sk.ParentResolutionMethod == model.MethodRootDetected {
			continue
		}
		if sk.ReconstructedParentId != nil {
			if _, ok := byId[*sk.ReconstructedParentId]; ok {
				continue
			}
		}
		orphans = append(orphans, sk)
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].TaskId < orphans[j].TaskId })
	return orphans
}

func resolveOne(sk *model.Skeleton, idx *instructionindex.Index, byId map[model.TaskId]model.Skeleton, cache CacheStore, cfg Config, result *Pass2Result, confidenceSum *float64) {
	defer func() {
		if r := recover(); r != nil {
			logging.HierarchyError("pass2: panic processing %s: %v", sk.TaskId, r)
			result.Errors.add(sk.TaskId, "", errFromRecover(r))
		}
	}()

	result.Processed++

	if isRootLike(sk.TruncatedInstruction) {
		markRoot(sk, result)
		persist(*sk, cache, result)
		byId[sk.TaskId] = *sk
		return
	}

	candidate, method, score, ok := findCandidate(sk, idx, byId, cfg)
	if !ok {
		result.Unresolved++
		return
	}

	outcome := validateCandidate(*sk, candidate, byId)
	if outcome != model.ValidationValid {
		logging.HierarchyDebug("pass2: candidate %s for %s rejected: %s", candidate, sk.TaskId, outcome)
		result.Unresolved++
		return
	}

	// The write-back gate applies to every tier, including the
	// fixed-confidence fallbacks: a min_confidence tuned above 0.4 or 0.5
	// must suppress temporal/metadata resolutions too.
	if score < cfg.MinConfidence {
		logging.HierarchyDebug("pass2: candidate %s for %s below minimum confidence (%.2f < %.2f)",
			candidate, sk.TaskId, score, cfg.MinConfidence)
		result.Unresolved++
		return
	}

	sk.ReconstructedParentId = &candidate
	scoreCopy := score
	sk.ParentConfidenceScore = &scoreCopy
	sk.ParentResolutionMethod = method

	result.Resolved++
	result.ByMethod[method]++
	*confidenceSum += score

	persist(*sk, cache, result)
	byId[sk.TaskId] = *sk
}

func markRoot(sk *model.Skeleton, result *Pass2Result) {
	sk.ReconstructedParentId = nil
	conf := 1.0
	sk.ParentConfidenceScore = &conf
	sk.ParentResolutionMethod = model.MethodRootDetected
	result.Resolved++
	result.ByMethod[model.MethodRootDetected]++
}

func persist(sk model.Skeleton, cache CacheStore, result *Pass2Result) {
	if err := cache.Put(sk); err != nil {
		result.Errors.add(sk.TaskId, "", err)
	}
}

// findCandidate runs the index lookup, then the metadata fallback, then
// temporal proximity, stopping at the first tier that produces a candidate.
func findCandidate(sk *model.Skeleton, idx *instructionindex.Index, byId map[model.TaskId]model.Skeleton, cfg Config) (model.TaskId, model.ResolutionMethod, float64, bool) {
	if m, ok := idx.Lookup(sk.TruncatedInstruction, cfg.MinConfidence, cfg.FuzzyThreshold); ok {
		return m.ParentTaskId, m.MatchType, m.SimilarityScore, true
	}

	if id, ok := metadataFallback(sk, byId); ok {
		return id, model.MethodMetadata, metadataFallbackConfidence, true
	}

	if id, ok := temporalProximityFallback(sk, byId, cfg.TemporalWindow); ok {
		return id, model.MethodTemporalProximity, temporalProximityConfidence, true
	}

	return "", "", 0, false
}
