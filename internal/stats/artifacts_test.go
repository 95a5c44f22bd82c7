package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kgskocelas/Primordium/internal/model"
)

func TestMulticellCSVShape(t *testing.T) {
	var buf bytes.Buffer
	w := NewMulticellCSV(&buf)
	if err := w.WriteHeader([]string{"neighbors", "restrain"}, true, 2); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRow([]string{"8", "5"}, []float64{400, 500}, 450, 0.75); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "#neighbors,restrain,run0,run1,ave_time,frac_restrain" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "8,5,400,500,450,0.75" {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestMulticellCSVWithoutReps(t *testing.T) {
	var buf bytes.Buffer
	w := NewMulticellCSV(&buf)
	if err := w.WriteHeader([]string{"cells_side"}, false, 100); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "#cells_side,ave_time,frac_restrain" {
		t.Fatalf("header = %q", got)
	}
}

func TestConfigEcho(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteConfigEcho(&buf, []string{"a", "b"}, []string{"1", "2"}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "#a,b\n1,2" {
		t.Fatalf("echo = %q", got)
	}
}

func TestTraceFileName(t *testing.T) {
	if got := TraceFileName(3, 7); got != "t3r7.dat" {
		t.Fatalf("trace file name = %q", got)
	}
}

func TestRunIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()

	entries, err := ListRunIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("fresh dir listed %d entries", len(entries))
	}

	first := model.RunSummary{RunID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z", Mode: "multicell", Seed: 1}
	second := model.RunSummary{RunID: "b", CreatedAtUTC: "2026-02-01T00:00:00Z", Mode: "evolution", Seed: 2}
	if err := AppendRunIndex(dir, first); err != nil {
		t.Fatal(err)
	}
	if err := AppendRunIndex(dir, second); err != nil {
		t.Fatal(err)
	}

	entries, err = ListRunIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("listed %d entries, want 2", len(entries))
	}
	if entries[0].RunID != "b" || entries[1].RunID != "a" {
		t.Fatalf("entries not newest-first: %v", entries)
	}
}
