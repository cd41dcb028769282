package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, workspace string, debugMode bool, categories map[string]bool) {
	t.Helper()
	dir := filepath.Join(workspace, ".conversync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir .conversync: %v", err)
	}
	cf := configFile{
		Logging: loggingConfig{
			DebugMode:  debugMode,
			Level:      "debug",
			Categories: categories,
		},
	}
	data, err := json.Marshal(cf)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatalf("write config.json: %v", err)
	}
}

func resetLoggingState() {
	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()

	configMu.Lock()
	config = loggingConfig{}
	configLoaded = false
	configMu.Unlock()

	logsDir = ""
	workspace = ""
}

var allCategories = []Category{
	CategoryBoot,
	CategoryPathResolver,
	CategoryTranscript,
	CategorySkeleton,
	CategoryCache,
	CategoryInstructionIndex,
	CategoryHierarchy,
	CategoryDecision,
	CategoryPipeline,
	CategoryVectorStore,
	CategoryEmbedding,
}

func TestAllCategoriesLog(t *testing.T) {
	t.Cleanup(resetLoggingState)
	resetLoggingState()

	ws := t.TempDir()
	writeTestConfig(t, ws, true, nil)

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(CloseAll)

	for _, cat := range allCategories {
		Get(cat).Info("hello from %s", cat)
	}

	PathResolverDebug("resolved root %s", "/tmp/root")
	TranscriptWarn("unexpected shape in %s", "file.json")
	SkeletonError("failed to build skeleton for %s", "task-1")
	CacheDebug("cache hit for %s", "task-1")
	InstructionIndexDebug("inserted prefix of length %d", 42)
	HierarchyDebug("batch of %d tasks processed", 20)
	DecisionDebug("decided to index %s", "task-2")
	PipelineDebug("enqueued %s", "task-3")
	VectorStoreDebug("indexed %d points", 5)
	EmbeddingDebug("embedded %d chars", 128)

	entries, err := os.ReadDir(filepath.Join(ws, ".conversync", "logs"))
	if err != nil {
		t.Fatalf("ReadDir logs: %v", err)
	}
	if len(entries) < len(allCategories) {
		t.Fatalf("expected at least %d log files, got %d", len(allCategories), len(entries))
	}

	for _, cat := range allCategories {
		matched := false
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), "_"+string(cat)+".log") {
				matched = true
				break
			}
		}
		if !matched {
			t.Errorf("no log file found for category %s", cat)
		}
	}
}

func TestDebugModeDisabled(t *testing.T) {
	t.Cleanup(resetLoggingState)
	resetLoggingState()

	ws := t.TempDir()
	writeTestConfig(t, ws, false, nil)

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	Boot("this should not be written")
	PipelineError("neither should this")

	logsPath := filepath.Join(ws, ".conversync", "logs")
	if _, err := os.Stat(logsPath); !os.IsNotExist(err) {
		t.Fatalf("expected no logs directory in production mode, got err=%v", err)
	}
}

func TestCategoryToggle(t *testing.T) {
	t.Cleanup(resetLoggingState)
	resetLoggingState()

	ws := t.TempDir()
	writeTestConfig(t, ws, true, map[string]bool{
		string(CategoryPipeline): true,
		string(CategoryDecision): false,
	})

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(CloseAll)

	if !IsCategoryEnabled(CategoryPipeline) {
		t.Error("expected pipeline category to be enabled")
	}
	if IsCategoryEnabled(CategoryDecision) {
		t.Error("expected decision category to be disabled")
	}
	if !IsCategoryEnabled(CategoryHierarchy) {
		t.Error("expected unlisted category hierarchy to default to enabled")
	}
}

func TestTimerLogging(t *testing.T) {
	t.Cleanup(resetLoggingState)
	resetLoggingState()

	ws := t.TempDir()
	writeTestConfig(t, ws, true, nil)

	if err := Initialize(ws); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(CloseAll)

	timer := StartTimer(CategoryPipeline, "tick")
	elapsed := timer.Stop()
	if elapsed <= 0 {
		t.Error("expected non-zero elapsed duration")
	}
}
