package ratebudget

import "time"

// BudgetData is the root structure persisted to disk.
type BudgetData struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AttemptCounts holds success/failure sums and submitted byte totals for one dimension.
type AttemptCounts struct {
	Attempts int64 `json:"attempts"`
	Succeded int64 `json:"succeeded"`
	Failed   int64 `json:"failed"`
	Bytes    int64 `json:"bytes"`
}

// Add folds one indexing attempt's outcome into the counts.
func (a *AttemptCounts) Add(ok bool, bytes int) {
	a.Attempts++
	if ok {
		a.Succeded++
	} else {
		a.Failed++
	}
	a.Bytes += int64(bytes)
}

// AggregatedStats holds counters broken down by dimension.
type AggregatedStats struct {
	Total      AttemptCounts            `json:"total"`
	ByHost     map[string]AttemptCounts `json:"by_host"`
	ByCategory map[string]AttemptCounts `json:"by_category"` // skeleton vs. instruction content
}

// WindowSample is one entry in the rolling-rate window used to estimate drain time.
type WindowSample struct {
	At    time.Time `json:"at"`
	Count int       `json:"count"`
}
