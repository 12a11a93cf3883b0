package stats

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendHistoryProducesReadableNDJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.ndjson.gz")

	reports := []Report{
		{Strategy: "grid", Extractor: "average", CellCount: 9, Timestamp: time.Unix(1, 0)},
		{Strategy: "quadtree", Extractor: "kmeans", CellCount: 42, Timestamp: time.Unix(2, 0)},
	}
	for _, r := range reports {
		if err := AppendHistory(path, r); err != nil {
			t.Fatal(err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer gr.Close()

	scanner := bufio.NewScanner(gr)
	var got []Report
	for scanner.Scan() {
		var r Report
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatal(err)
		}
		got = append(got, r)
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}

	if len(got) != len(reports) {
		t.Fatalf("got %d reports, want %d", len(got), len(reports))
	}
	for i, r := range got {
		if r.Strategy != reports[i].Strategy || r.CellCount != reports[i].CellCount {
			t.Fatalf("report %d = %+v, want %+v", i, r, reports[i])
		}
	}
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.txt")
	r := Report{
		Strategy:  "grid",
		Extractor: "average",
		InputPath: "in.png", OutputPath: "out.png",
		Width: 10, Height: 10, CellCount: 4,
		Timestamp: time.Unix(0, 0),
	}
	if err := WriteSummary(path, r); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("summary file is empty")
	}
}
