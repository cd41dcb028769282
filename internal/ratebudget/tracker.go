// Package ratebudget tracks indexing-attempt throughput against a
// host/category dimension and estimates the background pipeline's queue
// drain time from the observed rolling rate.
package ratebudget

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codenerd-labs/conversync/internal/logging"
)

const windowSize = 200

// Tracker records indexing-attempt outcomes and persists them debounced to disk.
type Tracker struct {
	mu            sync.Mutex
	data          BudgetData
	filePath      string
	dirty         bool
	autoSaveTimer *time.Timer
	window        []WindowSample
}

// NewTracker creates a tracker persisting under <storageRoot>/.conversync/ratebudget.json.
func NewTracker(storageRoot string) (*Tracker, error) {
	dir := filepath.Join(storageRoot, ".conversync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .conversync dir: %w", err)
	}

	t := &Tracker{
		filePath: filepath.Join(dir, "ratebudget.json"),
		data: BudgetData{
			Version: "1.0",
			Aggregate: AggregatedStats{
				ByHost:     make(map[string]AttemptCounts),
				ByCategory: make(map[string]AttemptCounts),
			},
		},
	}

	if err := t.Load(); err != nil {
		logging.PipelineWarn("ratebudget: failed to load %s, starting fresh: %v", t.filePath, err)
	}

	return t, nil
}

// Load reads the tracked data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &t.data); err != nil {
		return err
	}

	if t.data.Aggregate.ByHost == nil {
		t.data.Aggregate.ByHost = make(map[string]AttemptCounts)
	}
	if t.data.Aggregate.ByCategory == nil {
		t.data.Aggregate.ByCategory = make(map[string]AttemptCounts)
	}

	return nil
}

// Save writes the tracked data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0644)
}

// Record logs one indexing attempt for a host/category pair and debounces a save.
func (t *Tracker) Record(hostID, category string, ok bool, bytes int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Aggregate.Total.Add(ok, bytes)
	addToMap(t.data.Aggregate.ByHost, hostID, ok, bytes)
	addToMap(t.data.Aggregate.ByCategory, category, ok, bytes)

	t.window = append(t.window, WindowSample{At: time.Now(), Count: 1})
	if len(t.window) > windowSize {
		t.window = t.window[len(t.window)-windowSize:]
	}

	if !t.dirty {
		t.dirty = true
		t.autoSaveTimer = time.AfterFunc(5*time.Second, func() {
			if err := t.Save(); err != nil {
				logging.PipelineWarn("ratebudget: debounced save failed: %v", err)
			}
			t.mu.Lock()
			t.dirty = false
			t.mu.Unlock()
		})
	}
}

// Stats returns a copy of the aggregated counters.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByHost = copyAttemptMap(stats.ByHost)
	stats.ByCategory = copyAttemptMap(stats.ByCategory)
	return stats
}

// RatePerMinute estimates the current throughput from the rolling sample window.
func (t *Tracker) RatePerMinute() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.window) < 2 {
		return 0
	}
	span := t.window[len(t.window)-1].At.Sub(t.window[0].At)
	if span <= 0 {
		return 0
	}
	return float64(len(t.window)) / span.Minutes()
}

// EstimateDrainTime estimates how long it will take to process queueLen items
// at the tracker's current observed rate. Returns 0 if the rate is unknown.
func (t *Tracker) EstimateDrainTime(queueLen int) time.Duration {
	rate := t.RatePerMinute()
	if rate <= 0 {
		return 0
	}
	minutes := float64(queueLen) / rate
	return time.Duration(minutes * float64(time.Minute))
}

func copyAttemptMap(src map[string]AttemptCounts) map[string]AttemptCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]AttemptCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]AttemptCounts, key string, ok bool, bytes int) {
	entry := m[key]
	entry.Add(ok, bytes)
	m[key] = entry
}
