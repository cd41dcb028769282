package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codenerd-labs/conversync/internal/hierarchy"
	"github.com/codenerd-labs/conversync/internal/instructionindex"
	"github.com/codenerd-labs/conversync/internal/pathresolver"
	"github.com/codenerd-labs/conversync/internal/skeletoncache"
)

var forceReconstruct bool

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "run the two-pass hierarchy reconstruction engine over the cached skeletons",
	RunE:  runReconstruct,
}

func init() {
	reconstructCmd.Flags().BoolVar(&forceReconstruct, "force", false, "re-extract delegations even for skeletons already marked phase1-complete")
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	roots, err := pathresolver.New(cfg.Storage.Roots).Resolve()
	if err != nil {
		return fmt.Errorf("resolve storage roots: %w", err)
	}
	if len(roots) == 0 {
		fmt.Println("no storage roots found")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runID := uuid.New().String()[:8]
	logger.Info("reconstruction run starting",
		zap.String("run_id", runID),
		zap.Int("roots", len(roots)),
		zap.Bool("force", forceReconstruct))

	hcfg := hierarchy.Config{
		BatchSize:      cfg.Reconstruction.BatchSize,
		MinConfidence:  cfg.Reconstruction.MinConfidence,
		FuzzyThreshold: cfg.Reconstruction.FuzzyThreshold,
		TemporalWindow: cfg.GetTemporalWindow(),
	}

	for _, root := range roots {
		tasksDir := filepath.Join(string(root), "tasks")
		cache, err := skeletoncache.New(tasksDir, cfg.Storage.CacheDirname)
		if err != nil {
			return fmt.Errorf("open cache for %s: %w", root, err)
		}
		if _, errs := cache.Load(); len(errs) > 0 {
			logger.Warn("skeleton load errors",
				zap.String("run_id", runID),
				zap.String("root", string(root)),
				zap.Int("errors", len(errs)))
		}

		// Skeletons whose transcripts changed on disk are rebuilt first so
		// Pass 1 re-extracts their delegations instead of skipping them.
		refresh := cache.RefreshStale(ctx, tasksDir)
		if refresh.Refreshed > 0 {
			logger.Info("stale skeletons rebuilt",
				zap.String("run_id", runID),
				zap.String("root", string(root)),
				zap.Int("refreshed", refresh.Refreshed),
				zap.Int("checked", refresh.Checked))
		}

		idx := instructionindex.New()
		p1 := hierarchy.Pass1(ctx, cache, idx, hcfg, forceReconstruct)
		p2 := hierarchy.Pass2(ctx, cache, idx, hcfg)

		logger.Info("reconstruction run complete",
			zap.String("run_id", runID),
			zap.String("root", string(root)),
			zap.Int("pass1_processed", p1.Processed),
			zap.Int("pass1_instructions", p1.InstructionsExtracted),
			zap.Int("pass2_resolved", p2.Resolved),
			zap.Int("pass2_unresolved", p2.Unresolved))

		fmt.Printf("%s: pass1 processed=%d parsed=%d instructions=%d\n", root, p1.Processed, p1.Parsed, p1.InstructionsExtracted)
		fmt.Printf("%s: pass2 processed=%d resolved=%d unresolved=%d by_method=%v\n",
			root, p2.Processed, p2.Resolved, p2.Unresolved, p2.ByMethod)
	}

	return nil
}
