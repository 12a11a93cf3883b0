// Package stats records per-run performance data and appends it to a
// gzip-compressed NDJSON history file, so repeated CLI runs accumulate
// a queryable log instead of overwriting a single results file.
//
// Grounded on the teacher's pkg/stats/stats.go PerformanceData +
// WritePerformanceResults shape, renamed to this domain (strategy,
// extractor, worker count, cells/leaves processed) and changed from a
// one-shot timestamped text file to an appended gzip NDJSON history,
// using github.com/klauspost/compress/gzip (the corpus's own
// replacement for the standard library's slower gzip implementation).
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Report holds timing and metadata for a single conversion run.
type Report struct {
	Strategy    string    `json:"strategy"`
	Extractor   string    `json:"extractor"`
	InputPath   string    `json:"input_path"`
	OutputPath  string    `json:"output_path"`
	Width       uint32    `json:"width"`
	Height      uint32    `json:"height"`
	CellCount   int       `json:"cell_count"`
	Workers     int       `json:"workers"`
	Parallel    bool      `json:"parallel"`
	Duration    float64   `json:"duration_seconds"`
	Timestamp   time.Time `json:"timestamp"`
}

// AppendHistory appends r as one NDJSON line to a gzip stream at path,
// creating the file (and its directory) if it does not yet exist.
//
// gzip does not support appending to an existing compressed stream in
// place, so each call opens a fresh member: concatenated gzip members
// decompress transparently as a single stream, which is exactly what
// klauspost/compress/gzip's Reader (like the standard library's)
// already does.
func AppendHistory(path string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("stats: create history dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("stats: open history: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("stats: marshal report: %w", err)
	}
	if _, err := gw.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("stats: write report: %w", err)
	}
	return gw.Close()
}

// WriteSummary writes a single human-readable summary file, in the
// teacher's WritePerformanceResultsWithPrefix spirit: one run per
// invocation rather than a combined multi-algorithm report, since this
// CLI processes one image per invocation.
func WriteSummary(path string, r Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stats: create summary: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "=== Pixel-Art Conversion Summary ===\n")
	fmt.Fprintf(f, "Timestamp: %s\n\n", r.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(f, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(f, "Extractor: %s\n", r.Extractor)
	fmt.Fprintf(f, "Input: %s (%dx%d)\n", r.InputPath, r.Width, r.Height)
	fmt.Fprintf(f, "Output: %s\n", r.OutputPath)
	fmt.Fprintf(f, "Cells/leaves processed: %d\n", r.CellCount)
	if r.Parallel {
		fmt.Fprintf(f, "Workers: %d\n", r.Workers)
	}
	fmt.Fprintf(f, "Duration: %.3fs\n", r.Duration)
	return nil
}
