package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codenerd-labs/conversync/internal/embedding"
	"github.com/codenerd-labs/conversync/internal/indexpipeline"
	"github.com/codenerd-labs/conversync/internal/logging"
	"github.com/codenerd-labs/conversync/internal/model"
	"github.com/codenerd-labs/conversync/internal/pathresolver"
	"github.com/codenerd-labs/conversync/internal/ratebudget"
	"github.com/codenerd-labs/conversync/internal/skeleton"
	"github.com/codenerd-labs/conversync/internal/skeletoncache"
	"github.com/codenerd-labs/conversync/internal/transcript"
	"github.com/codenerd-labs/conversync/internal/vectorstore/sqlitevec"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the background indexing pipeline against the primary storage root until interrupted",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	roots, err := pathresolver.New(cfg.Storage.Roots).Resolve()
	if err != nil {
		return fmt.Errorf("resolve storage roots: %w", err)
	}
	if len(roots) == 0 {
		return fmt.Errorf("no storage roots found")
	}
	primary := roots[0]
	tasksDir := filepath.Join(string(primary), "tasks")

	cache, err := skeletoncache.New(tasksDir, cfg.Storage.CacheDirname)
	if err != nil {
		return fmt.Errorf("open cache for %s: %w", primary, err)
	}
	loaded, loadErrs := cache.Load()
	logging.Pipeline("serve: loaded %d skeletons from %s (%d errors)", loaded, primary, len(loadErrs))

	hostId, err := model.ComputeHostId()
	if err != nil {
		return fmt.Errorf("compute host id: %w", err)
	}

	runID := uuid.New().String()[:8]
	logger.Info("serve starting",
		zap.String("run_id", runID),
		zap.String("primary_root", string(primary)),
		zap.String("host_id", string(hostId)),
		zap.Int("skeletons", loaded),
		zap.Int("load_errors", len(loadErrs)))

	var embedder embedding.Embedder
	if cfg.Embedding.Provider != "" {
		opts := embedding.Options{
			Provider: embedding.Provider(cfg.Embedding.Provider),
			Kind:     embedding.ContentKind(cfg.Embedding.ContentKind),
			APIKey:   cfg.Embedding.GenAIAPIKey,
		}
		switch opts.Provider {
		case embedding.ProviderOllama:
			opts.Endpoint = cfg.Embedding.OllamaEndpoint
			opts.Model = cfg.Embedding.OllamaModel
		case embedding.ProviderGenAI:
			opts.Model = cfg.Embedding.GenAIModel
		}
		embedder, err = embedding.New(opts)
		if err != nil {
			logger.Warn("embedder unavailable, indexing without vectors", zap.Error(err))
			embedder = nil
		}
	}

	dbPath := cfg.Storage.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(string(primary), dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	store, err := sqlitevec.Open(dbPath, embedder)
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer store.Close()

	pcfg := indexpipeline.DefaultConfig()
	pcfg.TickInterval = cfg.GetTickInterval()
	pcfg.HostId = hostId
	pipeline := indexpipeline.New(cache, store, pcfg)

	budget, err := ratebudget.NewTracker(string(primary))
	if err != nil {
		logger.Warn("rate budget tracking unavailable", zap.Error(err))
	} else {
		pipeline.SetBudgetTracker(budget)
		defer func() {
			if err := budget.Save(); err != nil {
				logger.Warn("failed to persist rate budget", zap.Error(err))
			}
		}()
	}

	statePath := filepath.Join(cache.Dir(), "_reconcile_state.json")
	reconciler := indexpipeline.NewReconciler(cache, store, hostId, cfg.GetConsistencyCheckInterval(), statePath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal", zap.String("run_id", runID))
		cancel()
	}()

	// Live rescan: a freshly created task directory gets a skeleton as soon
	// as its transcript files settle, without waiting for a full rescan.
	watcher, err := pathresolver.NewWatcher([]model.StorageRoot{model.StorageRoot(tasksDir)}, func(ev pathresolver.ChangeEvent) {
		if ev.Kind != pathresolver.ChangeCreated || string(ev.TaskId) == cfg.Storage.CacheDirname {
			return
		}
		dir := filepath.Join(tasksDir, string(ev.TaskId))
		tf := transcript.ReadTask(dir, ev.TaskId)
		if !tf.HasAnyTranscript() {
			return
		}
		sk := skeleton.Build(dir, ev.TaskId, tf)
		skeleton.StampTimestamps(&sk, time.Now())
		if err := cache.Put(sk); err != nil {
			logger.Warn("failed to cache new task", zap.String("task_id", string(ev.TaskId)), zap.Error(err))
			return
		}
		logger.Info("new task detected", zap.String("run_id", runID), zap.String("task_id", string(ev.TaskId)))
	})
	if err != nil {
		logger.Warn("live rescan unavailable", zap.Error(err))
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("live rescan failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	go func() {
		// The reconciler itself enforces the once-per-24h gate; polling
		// hourly just checks whether that window has elapsed.
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := reconciler.Run(ctx, false); err != nil {
					logger.Warn("reconcile failed", zap.String("run_id", runID), zap.Error(err))
				}
			}
		}
	}()

	logging.Pipeline("serve: starting background indexing pipeline for %s (host=%s)", primary, hostId)
	pipeline.Run(ctx)
	return nil
}
