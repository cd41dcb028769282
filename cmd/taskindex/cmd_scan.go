package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/pathresolver"
	"github.com/codenerd-labs/conversync/internal/skeleton"
	"github.com/codenerd-labs/conversync/internal/skeletoncache"
	"github.com/codenerd-labs/conversync/internal/transcript"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "discover storage roots, load or build the skeleton cache, and repair missing metadata",
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
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

	for _, root := range roots {
		tasksDir := filepath.Join(string(root), "tasks")
		cache, err := skeletoncache.New(tasksDir, cfg.Storage.CacheDirname)
		if err != nil {
			return fmt.Errorf("open cache for %s: %w", root, err)
		}

		loaded, loadErrs := cache.Load()
		logging.Boot("scan: root=%s loaded=%d errors=%d", root, loaded, len(loadErrs))

		ids, err := pathresolver.TaskDirs(root)
		if err != nil {
			return fmt.Errorf("list task dirs for %s: %w", root, err)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		var missing []model.TaskId
		for _, id := range ids {
			if _, ok := cache.Get(id); !ok {
				missing = append(missing, id)
			}
		}

		built, buildErrs := cache.Rebuild(missing, nil, func(id model.TaskId) (model.Skeleton, error) {
			dir := filepath.Join(tasksDir, string(id))
			tf := transcript.ReadTask(dir, id)
			sk := skeleton.Build(dir, id, tf)
			skeleton.StampTimestamps(&sk, sk.Metadata.CreatedAt)
			return sk, nil
		})

		refresh := cache.RefreshStale(ctx, tasksDir)
		repair := cache.ProactiveRepair(ctx, tasksDir)

		logger.Info("scan complete",
			zap.String("root", string(root)),
			zap.Int("loaded", loaded),
			zap.Int("built", built),
			zap.Int("refreshed", refresh.Refreshed),
			zap.Int("repaired", repair.Repaired),
			zap.Int("errors", len(loadErrs)+len(buildErrs)+len(refresh.Errors)+len(repair.Errors)))

		fmt.Printf("%s: loaded=%d built=%d refreshed=%d build_errors=%d repaired=%d/%d candidates\n",
			root, loaded, built, refresh.Refreshed, len(buildErrs), repair.Repaired, repair.Candidates)
	}

	return nil
}
