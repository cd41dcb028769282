// Package main implements taskindex, the CLI entry point wiring together the
// Storage Detection & Skeleton Cache, Hierarchy Reconstruction Engine, and
// Background Indexing Pipeline into three operator-facing subcommands.
//
// # File Index
//
//   - main.go       - entry point, rootCmd, global flags, init()
//   - cmd_scan.go   - scanCmd: discover roots, load/build skeletons, proactive repair
//   - cmd_reconstruct.go - reconstructCmd: run the two-pass hierarchy engine
//   - cmd_serve.go  - serveCmd: run the background indexing pipeline until signaled
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/codenerd-labs/conversync/internal/config"
	"github.com/codenerd-labs/conversync/internal/logging"
)

var (
	workspace  string
	configPath string
	verbose    bool

	// logger is the CLI-facing structured logger; the category-keyed file
	// logging under .conversync/logs/ is separate telemetry, written only
	// when debug_mode is set in .conversync/config.json.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taskindex",
	Short: "conversync - conversation-state manager for sub-agent task hierarchies",
	Long: `taskindex rebuilds and indexes the task skeletons a sub-agent host tool
leaves on disk: it detects storage roots, maintains a durable skeleton
cache, reconstructs orphaned parent/child links across context-window
boundaries, and keeps a vector store up to date in the background.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		path = filepath.Join(ws, ".conversync", "config.yaml")
	}
	return config.Load(path)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: <workspace>/.conversync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd, reconstructCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
