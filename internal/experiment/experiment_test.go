package experiment

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kgskocelas/Primordium/internal/stats"
	"github.com/kgskocelas/Primordium/internal/storage"
)

func testConfig(dir string) Config {
	return Config{
		DataCount:  "2",
		Ancestor1s: "5",
		Restrain:   "5",
		GenomeSize: "10",
		CellsSide:  "4",

		ArtifactsDir: dir,
		Seed:         77,
	}
}

func TestMulticellModeWritesSummaryCSV(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.PrintReps = true

	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e.SetOutput(&bytes.Buffer{})

	summary, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Mode != "multicell" {
		t.Fatalf("mode = %q, want multicell", summary.Mode)
	}
	if summary.ComboCount != 1 {
		t.Fatalf("combo count = %d, want 1", summary.ComboCount)
	}

	data, err := os.ReadFile(filepath.Join(dir, "multicell.dat"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("multicell.dat has %d lines, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "#data_count,") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], "run0,run1,ave_time,frac_restrain") {
		t.Fatalf("header missing replicate and summary columns: %q", lines[0])
	}

	// Config echo exists and names the combo settings.
	echo, err := os.ReadFile(filepath.Join(dir, "config.dat"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(echo), "cells_side") {
		t.Fatalf("config echo = %q", string(echo))
	}

	// The run index recorded the treatment.
	entries, err := stats.ListRunIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Mode != "multicell" {
		t.Fatalf("run index = %v", entries)
	}
}

func TestMulticellModeIsDeterministicForSeed(t *testing.T) {
	run := func() string {
		dir := t.TempDir()
		e, err := New(testConfig(dir))
		if err != nil {
			t.Fatal(err)
		}
		e.SetOutput(&bytes.Buffer{})
		if _, err := e.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(filepath.Join(dir, "multicell.dat"))
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}

	if run() != run() {
		t.Fatal("identical seeds produced different summaries")
	}
}

func TestSweepProducesOneRowPerCombo(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.DataCount = "1"
	cfg.Neighbors = "0,4,8"
	cfg.Restrain = "0,5"

	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e.SetOutput(&bytes.Buffer{})

	summary, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.ComboCount != 6 {
		t.Fatalf("combo count = %d, want 6", summary.ComboCount)
	}

	data, err := os.ReadFile(filepath.Join(dir, "multicell.dat"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 7 {
		t.Fatalf("multicell.dat has %d lines, want header + 6 rows", len(lines))
	}
}

func TestEvolutionModeWritesCountRows(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.DataCount = "1"
	cfg.GenCount = 2
	cfg.PopSize = 4
	cfg.SampleSize = 5

	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e.SetOutput(&bytes.Buffer{})

	summary, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Mode != "evolution" {
		t.Fatalf("mode = %q, want evolution", summary.Mode)
	}

	data, err := os.ReadFile(filepath.Join(dir, "evolution.dat"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "#run_id,num_ones,count" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) < 2 {
		t.Fatal("expected at least one count row")
	}
	// Without mutation the single row is the full monomorphic population.
	if lines[1] != "0,5,4" {
		t.Fatalf("count row = %q, want \"0,5,4\"", lines[1])
	}
}

func TestEvolutionModePersistsSampleSets(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.DataCount = "1"
	cfg.GenCount = 1
	cfg.PopSize = 2
	cfg.SampleSize = 3

	store := storage.NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	cfg.Store = store

	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e.SetOutput(&bytes.Buffer{})
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	set, ok, err := store.GetSampleSet(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || len(set.Times) == 0 {
		t.Fatal("expected persisted sample set for the ancestor one-count")
	}
}

func TestBadSweepValueIsConfigurationFault(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Restrain = "5,bogus"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected configuration fault")
	}
}

func TestNonPowerOfTwoSideFailsTheRun(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.CellsSide = "6"
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e.SetOutput(&bytes.Buffer{})
	if _, err := e.Run(context.Background()); err == nil {
		t.Fatal("expected failure for cells_side=6")
	}
}

func TestGenerateSamplesWritesLoadableFiles(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "samples")
	cfg := testConfig(dir)

	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e.SetOutput(&bytes.Buffer{})

	paths, err := e.GenerateSamples(context.Background(), SamplesRequest{
		MinOnes: 4,
		MaxOnes: 6,
		Count:   2,
		OutDir:  outDir,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("generated %d files, want 3", len(paths))
	}
	for _, ones := range []string{"4.dat", "5.dat", "6.dat"} {
		data, err := os.ReadFile(filepath.Join(outDir, ones))
		if err != nil {
			t.Fatal(err)
		}
		if got := len(strings.Split(strings.TrimSpace(string(data)), "\n")); got != 2 {
			t.Fatalf("%s holds %d samples, want 2", ones, got)
		}
	}
}
