package multicell

import (
	"math"
	"testing"

	"github.com/kgskocelas/Primordium/internal/rng"
)

func newTestMulticell(seed int64) *Multicell {
	return New(rng.New(seed))
}

func TestSetupConfigRejectsNonPowerOfTwoSide(t *testing.T) {
	mc := newTestMulticell(1)
	mc.CellsSide = 6
	if err := mc.SetupConfig(); err == nil {
		t.Fatal("expected error for cells_side=6")
	}

	mc.CellsSide = 8
	if err := mc.SetupConfig(); err != nil {
		t.Fatalf("cells_side=8: %v", err)
	}
}

func TestSetupConfigRejectsStartOnesAboveGenome(t *testing.T) {
	mc := newTestMulticell(1)
	mc.GenomeSize = 10
	mc.Start1s = 11
	if err := mc.SetupConfig(); err == nil {
		t.Fatal("expected error for start_1s > genome_size")
	}

	mc.IsInfinite = true
	if err := mc.SetupConfig(); err != nil {
		t.Fatalf("infinite genome should not bound start_1s: %v", err)
	}
}

func TestSetupConfigIsIdempotent(t *testing.T) {
	mc := newTestMulticell(1)
	mc.CellsSide = 4
	if err := mc.SetupConfig(); err != nil {
		t.Fatal(err)
	}
	mc.Inject(mc.MiddlePos())
	mc.Run(nil)

	if err := mc.SetupConfig(); err != nil {
		t.Fatal(err)
	}
	if mc.NumCells() != 0 {
		t.Fatalf("num_cells after re-setup = %d, want 0", mc.NumCells())
	}
	if mc.Time() != 100.0 {
		t.Fatalf("clock after re-setup = %f, want 100.0", mc.Time())
	}
	for pos := 0; pos < mc.Size(); pos++ {
		if mc.Cell(pos).ReproTime != 0 {
			t.Fatalf("cell %d not empty after re-setup", pos)
		}
	}
}

func TestDegenerateGridRunsToFixedSchedule(t *testing.T) {
	mc := newTestMulticell(5)
	mc.CellsSide = 2
	mc.Neighbors = 4
	mc.Restrain = 5
	mc.Start1s = 5
	mc.GenomeSize = 10
	mc.TimeRange = 0
	mc.MutProb = 0
	if err := mc.SetupConfig(); err != nil {
		t.Fatal(err)
	}
	mc.Inject(mc.MiddlePos())
	results := mc.Run(nil)

	if mc.NumCells() != 4 {
		t.Fatalf("num_cells = %d, want 4", mc.NumCells())
	}
	if results.RunTime <= 0 || math.Mod(results.RunTime, 100.0) != 0 {
		t.Fatalf("run_time = %f, want positive multiple of 100", results.RunTime)
	}
	if results.CellCounts[5] != 4 {
		t.Fatalf("cell_counts[5] = %f, want 4", results.CellCounts[5])
	}
}

func TestUnrestrainedSaturation(t *testing.T) {
	mc := newTestMulticell(7)
	mc.CellsSide = 4
	mc.Restrain = 10
	mc.Start1s = 0
	mc.GenomeSize = 10
	if err := mc.SetupConfig(); err != nil {
		t.Fatal(err)
	}
	mc.Inject(mc.MiddlePos())
	results := mc.Run(nil)

	if results.CellCounts[0] != 16 {
		t.Fatalf("cell_counts[0] = %f, want 16", results.CellCounts[0])
	}
}

func TestFullyRestrainedSaturation(t *testing.T) {
	mc := newTestMulticell(9)
	mc.CellsSide = 4
	mc.Restrain = 0
	mc.Start1s = 5
	mc.GenomeSize = 10
	if err := mc.SetupConfig(); err != nil {
		t.Fatal(err)
	}
	mc.Inject(mc.MiddlePos())
	results := mc.Run(nil)

	if results.CellCounts[5] != 16 {
		t.Fatalf("cell_counts[5] = %f, want 16", results.CellCounts[5])
	}
}

func TestMutationDriftStaysInGenomeBounds(t *testing.T) {
	mc := newTestMulticell(11)
	mc.CellsSide = 8
	mc.MutProb = 1.0
	mc.GenomeSize = 4
	mc.Start1s = 2
	mc.Restrain = 0
	if err := mc.SetupConfig(); err != nil {
		t.Fatal(err)
	}
	mc.Inject(mc.MiddlePos())
	mc.Run(nil)

	drifted := false
	for pos := 0; pos < mc.Size(); pos++ {
		ones := mc.Cell(pos).NumOnes
		if ones < 0 || ones > 4 {
			t.Fatalf("cell %d one-count %d outside [0, 4]", pos, ones)
		}
		if ones != 2 {
			drifted = true
		}
	}
	if !drifted {
		t.Fatal("expected at least one mutated cell with mut_prob=1")
	}
}

func TestRunFillsGridAndCensusMatches(t *testing.T) {
	// neighbors=2 is excluded: a 1-D neighborhood can only ever fill the
	// injection row of a 2-D grid.
	for _, neighbors := range []int{0, 4, 6, 8} {
		mc := newTestMulticell(13)
		mc.CellsSide = 8
		mc.Neighbors = neighbors
		if err := mc.SetupConfig(); err != nil {
			t.Fatal(err)
		}
		mc.Inject(mc.MiddlePos())
		results := mc.Run(nil)

		if mc.NumCells() != mc.Size() {
			t.Fatalf("neighbors=%d: num_cells = %d, want %d", neighbors, mc.NumCells(), mc.Size())
		}
		for pos := 0; pos < mc.Size(); pos++ {
			if mc.Cell(pos).ReproTime <= 0 {
				t.Fatalf("neighbors=%d: cell %d has repro_time %f after full run", neighbors, pos, mc.Cell(pos).ReproTime)
			}
		}
		if got := results.CountCells(); got != float64(mc.Size()) {
			t.Fatalf("neighbors=%d: census totals %f, want %d", neighbors, got, mc.Size())
		}
	}
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	run := func() Results {
		mc := newTestMulticell(99)
		mc.CellsSide = 8
		mc.MutProb = 0.1
		if err := mc.SetupConfig(); err != nil {
			t.Fatal(err)
		}
		mc.Inject(mc.MiddlePos())
		return mc.Run(nil)
	}

	a := run()
	b := run()
	if a.RunTime != b.RunTime {
		t.Fatalf("run_time differs: %f vs %f", a.RunTime, b.RunTime)
	}
	if len(a.CellCounts) != len(b.CellCounts) {
		t.Fatalf("census key count differs: %d vs %d", len(a.CellCounts), len(b.CellCounts))
	}
	for ones, count := range a.CellCounts {
		if b.CellCounts[ones] != count {
			t.Fatalf("census differs at %d-ones: %f vs %f", ones, count, b.CellCounts[ones])
		}
	}
}

func TestExtraCostChargesUnrestrainedCells(t *testing.T) {
	mc := newTestMulticell(3)
	mc.CellsSide = 4
	mc.Restrain = 10
	mc.Start1s = 0
	mc.UnrestrainedCost = 2.5
	if err := mc.SetupConfig(); err != nil {
		t.Fatal(err)
	}
	mc.Inject(mc.MiddlePos())
	results := mc.Run(nil)

	if want := 16 * 2.5; results.ExtraCost != want {
		t.Fatalf("extra_cost = %f, want %f", results.ExtraCost, want)
	}
	if results.ReproTime() != results.RunTime+results.ExtraCost {
		t.Fatal("ReproTime must be run_time + extra_cost")
	}
}

func TestSnapshotCoversGrid(t *testing.T) {
	mc := newTestMulticell(21)
	mc.CellsSide = 4
	if err := mc.SetupConfig(); err != nil {
		t.Fatal(err)
	}
	mc.Inject(mc.MiddlePos())

	views := mc.Snapshot()
	if len(views) != mc.Size() {
		t.Fatalf("snapshot has %d views, want %d", len(views), mc.Size())
	}
	if views[mc.MiddlePos()].ReproTime == 0 {
		t.Fatal("injected site should be live in snapshot")
	}
}
