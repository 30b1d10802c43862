package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// -----------------------------
// Domain Types
// -----------------------------

// Outcome is the terminal classification of a table pair.
type Outcome string

const (
	// Compared means the table was fully compared.
	Compared Outcome = "compared"

	// NotCompared means validation blocked the comparison.
	NotCompared Outcome = "not_compared"

	// Unreadable means the table could not be read from either source.
	Unreadable Outcome = "unreadable"
)

// TableMetrics captures the results of one table pair.
type TableMetrics struct {
	Pair          string        `json:"pair"`
	Table         string        `json:"table"`
	Outcome       Outcome       `json:"outcome"`
	States        []string      `json:"states"`
	OnlyInA       int           `json:"only_in_a"`
	OnlyInB       int           `json:"only_in_b"`
	DifferingRows int           `json:"differing_rows"`
	Differences   int           `json:"differences"`
	Warnings      int           `json:"warnings"`
	Errors        int           `json:"errors"`
	FetchErrors   []string      `json:"fetch_errors,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Clean reports whether the table pair produced no findings at all.
func (t TableMetrics) Clean() bool {
	return t.Outcome == Compared && t.OnlyInA == 0 && t.OnlyInB == 0 &&
		t.Differences == 0 && t.Warnings == 0 && len(t.FetchErrors) == 0
}

// RunSummary aggregates the results of a run.
type RunSummary struct {
	RunID     string         `json:"run_id"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Duration  time.Duration  `json:"duration"`
	Tables    []TableMetrics `json:"tables"`
	Reports   []string       `json:"reports"`
	Errors    []string       `json:"errors,omitempty"`
}

// Totals sums the per-table counts.
type Totals struct {
	Tables      int `json:"tables"`
	Clean       int `json:"clean"`
	NotCompared int `json:"not_compared"`
	Unreadable  int `json:"unreadable"`
	OnlyInA     int `json:"only_in_a"`
	OnlyInB     int `json:"only_in_b"`
	Differences int `json:"differences"`
}

// Totals computes run-wide counts.
func (s RunSummary) Totals() Totals {
	var t Totals
	for _, tm := range s.Tables {
		t.Tables++
		switch {
		case tm.Outcome == NotCompared:
			t.NotCompared++
		case tm.Outcome == Unreadable:
			t.Unreadable++
		case tm.Clean():
			t.Clean++
		}
		t.OnlyInA += tm.OnlyInA
		t.OnlyInB += tm.OnlyInB
		t.Differences += tm.Differences
	}
	return t
}

// -----------------------------
// Metrics Storage
// -----------------------------

// MetricsStore abstracts run summary storage.
type MetricsStore interface {
	Save(run RunSummary) error
	SaveWithContext(ctx context.Context, run RunSummary) error
}

// JSONMetricsStore stores results as JSON.
type JSONMetricsStore struct {
	FilePath string
}

func (j *JSONMetricsStore) Save(run RunSummary) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	if j.FilePath != "" {
		return os.WriteFile(j.FilePath, data, 0644)
	}
	fmt.Println(string(data))
	return nil
}

func (j *JSONMetricsStore) SaveWithContext(ctx context.Context, run RunSummary) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return j.Save(run)
	}
}

// Load reads a run summary written by JSONMetricsStore.
func Load(path string) (RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunSummary{}, err
	}
	var run RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return RunSummary{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return run, nil
}
