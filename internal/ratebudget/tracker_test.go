package ratebudget

import (
	"path/filepath"
	"testing"
	"time"
)

func TestTracker_RecordAndStats(t *testing.T) {
	dir := t.TempDir()
	tr, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	tr.Record("host-a", "skeleton", true, 128)
	tr.Record("host-a", "skeleton", false, 64)
	tr.Record("host-b", "instruction", true, 256)

	stats := tr.Stats()

	if stats.Total.Attempts != 3 {
		t.Fatalf("Total.Attempts = %d, want 3", stats.Total.Attempts)
	}
	if stats.Total.Succeded != 2 {
		t.Fatalf("Total.Succeded = %d, want 2", stats.Total.Succeded)
	}
	if stats.Total.Failed != 1 {
		t.Fatalf("Total.Failed = %d, want 1", stats.Total.Failed)
	}

	hostA, ok := stats.ByHost["host-a"]
	if !ok {
		t.Fatalf("expected host-a entry in ByHost")
	}
	if hostA.Attempts != 2 || hostA.Bytes != 192 {
		t.Fatalf("host-a counts = %+v, want Attempts=2 Bytes=192", hostA)
	}

	cat, ok := stats.ByCategory["instruction"]
	if !ok || cat.Attempts != 1 {
		t.Fatalf("expected instruction category with 1 attempt, got %+v ok=%v", cat, ok)
	}
}

func TestTracker_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tr, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	tr.Record("host-a", "skeleton", true, 10)
	if err := tr.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, ".conversync", "ratebudget.json")
	tr2, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker (reload): %v", err)
	}
	if tr2.filePath != path {
		t.Fatalf("filePath = %s, want %s", tr2.filePath, path)
	}
	stats := tr2.Stats()
	if stats.Total.Attempts != 1 {
		t.Fatalf("reloaded Total.Attempts = %d, want 1", stats.Total.Attempts)
	}
}

func TestTracker_EstimateDrainTime(t *testing.T) {
	dir := t.TempDir()
	tr, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	if d := tr.EstimateDrainTime(100); d != 0 {
		t.Fatalf("expected zero estimate with no samples, got %v", d)
	}

	now := time.Now()
	tr.mu.Lock()
	tr.window = []WindowSample{
		{At: now.Add(-1 * time.Minute), Count: 1},
		{At: now, Count: 1},
	}
	tr.mu.Unlock()

	if rate := tr.RatePerMinute(); rate <= 0 {
		t.Fatalf("expected positive rate, got %v", rate)
	}
}
