// Package instructionindex implements the compressed radix tree that maps
// normalized instruction prefixes to the parent tasks that issued them,
// used by the hierarchy engine's second pass to resolve orphaned children.
package instructionindex

import (
	"sort"
	"strings"
	"sync"

	"github.com/armon/go-radix"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/skeleton"
)

// KeyLimit is the number of characters an instruction is truncated to
// before being used as a radix tree key.
const KeyLimit = 192

// ParentRef is the value stored at a radix tree key: the parent task that
// issued the delegation, and the full (200-char) instruction text it was
// extracted from.
type ParentRef struct {
	TaskId              model.TaskId
	OriginalInstruction string
}

// Index is a compressed-prefix store of normalized delegation instructions
// to the parent tasks that issued them. It is safe for concurrent use.
type Index struct {
	mu   sync.RWMutex
	tree *radix.Tree
}

// New creates an empty Index.
func New() *Index {
	return &Index{tree: radix.New()}
}

// normalizeKey lowercases, collapses whitespace, and truncates an
// instruction to KeyLimit — the canonical key form both Insert and Lookup
// reduce to, so case and spacing differences never break an exact match.
func normalizeKey(instruction string) string {
	return skeleton.Truncate(strings.ToLower(skeleton.Normalize(instruction)), KeyLimit)
}

// Insert adds one (instruction, parent) pair to the index. Multiple parents
// that happen to produce the same normalized key accumulate rather than
// overwrite.
func (idx *Index) Insert(instruction string, ref ParentRef) {
	key := normalizeKey(instruction)
	if key == "" {
		return
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	existing, _ := idx.tree.Get(key)
	refs, _ := existing.([]ParentRef)
	refs = append(refs, ref)
	idx.tree.Insert(key, refs)
}

// Len returns the number of distinct keys in the tree.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}

// Lookup resolves an orphan's truncated instruction against the index,
// trying exact, prefix, and fuzzy tiers in that order and returning the
// best match at or above minConfidence. Ties are broken by lexicographic
// order of ParentTaskId for reproducibility across runs.
func (idx *Index) Lookup(instruction string, minConfidence, fuzzyThreshold float64) (model.InstructionMatch, bool) {
	key := normalizeKey(instruction)
	if key == "" {
		return model.InstructionMatch{}, false
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if m, ok := idx.exactMatch(key); ok {
		return m, true
	}
	if m, ok := idx.prefixMatch(key); ok && m.SimilarityScore >= minConfidence {
		return m, true
	}
	if m, ok := idx.fuzzyMatch(key, fuzzyThreshold); ok && m.SimilarityScore >= minConfidence {
		return m, true
	}
	return model.InstructionMatch{}, false
}

func (idx *Index) exactMatch(key string) (model.InstructionMatch, bool) {
	v, ok := idx.tree.Get(key)
	if !ok {
		return model.InstructionMatch{}, false
	}
	refs, _ := v.([]ParentRef)
	ref, ok := bestRef(refs)
	if !ok {
		return model.InstructionMatch{}, false
	}
	return model.InstructionMatch{
		ParentTaskId:    ref.TaskId,
		SimilarityScore: 1.0,
		MatchType:       model.MethodExact,
		MatchedPrefix:   key,
	}, true
}

// prefixMatch checks both directions: a stored key that is a textual prefix
// of the query, and a stored key that the query is a textual prefix of.
func (idx *Index) prefixMatch(key string) (model.InstructionMatch, bool) {
	var best model.InstructionMatch
	found := false

	if prefix, v, ok := idx.tree.LongestPrefix(key); ok && prefix != "" && prefix != key {
		if refs, ok := v.([]ParentRef); ok {
			if ref, ok := bestRef(refs); ok {
				score := PrefixScore(prefix, key)
				if !found || score > best.SimilarityScore || (score == best.SimilarityScore && ref.TaskId < best.ParentTaskId) {
					best = model.InstructionMatch{ParentTaskId: ref.TaskId, SimilarityScore: score, MatchType: model.MethodPrefix, MatchedPrefix: prefix}
					found = true
				}
			}
		}
	}

	idx.tree.WalkPrefix(key, func(k string, v interface{}) bool {
		if k == key {
			return false
		}
		refs, ok := v.([]ParentRef)
		if !ok {
			return false
		}
		ref, ok := bestRef(refs)
		if !ok {
			return false
		}
		score := PrefixScore(key, k)
		if !found || score > best.SimilarityScore || (score == best.SimilarityScore && ref.TaskId < best.ParentTaskId) {
			best = model.InstructionMatch{ParentTaskId: ref.TaskId, SimilarityScore: score, MatchType: model.MethodPrefix, MatchedPrefix: k}
			found = true
		}
		return false
	})

	return best, found
}

// fuzzyMatch walks the entire tree computing symmetric significant-word
// Jaccard similarity. This is a correctness-first implementation: the radix
// tree accelerates exact/prefix lookups but fuzzy matching is inherently a
// full scan over extracted instructions.
func (idx *Index) fuzzyMatch(key string, threshold float64) (model.InstructionMatch, bool) {
	var candidates []model.InstructionMatch

	idx.tree.Walk(func(k string, v interface{}) bool {
		refs, ok := v.([]ParentRef)
		if !ok {
			return false
		}
		ref, ok := bestRef(refs)
		if !ok {
			return false
		}
		score := FuzzyScore(key, k)
		if score >= threshold {
			candidates = append(candidates, model.InstructionMatch{
				ParentTaskId:    ref.TaskId,
				SimilarityScore: score,
				MatchType:       model.MethodFuzzy,
				MatchedPrefix:   k,
			})
		}
		return false
	})

	if len(candidates) == 0 {
		return model.InstructionMatch{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].SimilarityScore != candidates[j].SimilarityScore {
			return candidates[i].SimilarityScore > candidates[j].SimilarityScore
		}
		return candidates[i].ParentTaskId < candidates[j].ParentTaskId
	})

	return candidates[0], true
}

// bestRef picks the lexicographically smallest parent task id among
// colliding refs, keeping key resolution deterministic.
func bestRef(refs []ParentRef) (ParentRef, bool) {
	if len(refs) == 0 {
		return ParentRef{}, false
	}
	best := refs[0]
	for _, r := range refs[1:] {
		if r.TaskId < best.TaskId {
			best = r
		}
	}
	return best, true
}
