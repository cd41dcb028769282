package hierarchy

import (
	"context"

	"github.com/codenerd-labs/conversync/internal/instructionindex"
	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
)

// Pass1Result summarizes one Extract & Index pass.
type Pass1Result struct {
	Processed             int
	Parsed                int
	InstructionsExtracted int
	IndexSize             int
	Errors                TaskErrors
}

// Pass1 indexes every skeleton's already-extracted delegation prefixes
// (computed by the skeleton builder) into idx, skipping skeletons already
// marked phase1-complete unless forceRebuild is set. A skeleton's
// Phase1Complete flag is reset by whoever rebuilds it from changed source
// files, so this pass never needs to re-read transcripts or re-hash
// checksums itself — it only needs to know whether the skeleton in hand is
// current.
func Pass1(ctx context.Context, cache CacheStore, idx *instructionindex.Index, cfg Config, forceRebuild bool) Pass1Result {
	result := Pass1Result{}
	skeletons := cache.Iter()

	for batchStart := 0; batchStart < len(skeletons); batchStart += cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			logging.HierarchyWarn("pass1: context cancelled after %d/%d skeletons", batchStart, len(skeletons))
			break
		}

		end := batchStart + cfg.BatchSize
		if end > len(skeletons) {
			end = len(skeletons)
		}

		for _, sk := range skeletons[batchStart:end] {
			processOne(&sk, idx, cache, forceRebuild, &result)
		}
	}

	result.IndexSize = idx.Len()
	logging.Hierarchy("pass1: processed=%d parsed=%d instructions=%d index_size=%d errors=%d",
		result.Processed, result.Parsed, result.InstructionsExtracted, result.IndexSize, len(result.Errors))
	return result
}

func processOne(sk *model.Skeleton, idx *instructionindex.Index, cache CacheStore, forceRebuild bool, result *Pass1Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.HierarchyError("pass1: panic processing %s: %v", sk.TaskId, r)
			result.Errors.add(sk.TaskId, "", errFromRecover(r))
		}
	}()

	if sk.Phase1Complete && !forceRebuild {
		return
	}

	result.Processed++
	if len(sk.ChildTaskInstructionPrefixes) > 0 {
		result.Parsed++
	}

	for _, prefix := range sk.ChildTaskInstructionPrefixes {
		idx.Insert(prefix, instructionindex.ParentRef{TaskId: sk.TaskId, OriginalInstruction: prefix})
		result.InstructionsExtracted++
	}

	sk.Phase1Complete = true
	if err := cache.Put(*sk); err != nil {
		result.Errors.add(sk.TaskId, "", err)
	}
}

func errFromRecover(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{r}
}

type panicError struct{ v interface{} }

func (p *panicError) Error() string { return "panic: " + toString(p.v) }

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic value"
}
