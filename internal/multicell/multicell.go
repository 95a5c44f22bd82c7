// Package multicell simulates one square grid of cells to saturation.
//
// Cells are either RESTRAINED or UNRESTRAINED. A cell replicates into a
// neighbor after a randomized delay; restrained cells replicate only into an
// empty neighbor (or fail), unrestrained cells replicate over anything. The
// grid starts from a single injected cell and the run ends when every
// position is occupied.
package multicell

import (
	"fmt"
	"io"

	"github.com/kgskocelas/Primordium/internal/rng"
	"github.com/kgskocelas/Primordium/internal/timequeue"
)

// noneFound marks a failed empty-neighbor search.
const noneFound = -1

// queueBase keeps live schedule times above the 0.0 empty sentinel.
const queueBase = 100.0

// reproDelay is the fixed part of every replication delay; the random part
// adds up to TimeRange on top.
const reproDelay = 100.0

// Cell is one lattice site. ReproTime == 0 means the site is empty;
// otherwise it is the absolute time the cell's scheduled replication fires.
type Cell struct {
	ID        int
	ReproTime float64
	NumOnes   int
}

// CellView is the renderer-facing snapshot of one site.
type CellView struct {
	ID        int     `json:"id"`
	NumOnes   int     `json:"num_ones"`
	ReproTime float64 `json:"repro_time"`
}

// Multicell owns the cells, the fullness flags, the grid geometry, and the
// event queue for one grid. Settings are public and locked in by
// SetupConfig before a run.
type Multicell struct {
	random *rng.Source

	cells    []Cell
	isFull   []byte
	scratch  []int // empty-neighbor candidates, reused across searches
	numCells int
	maskSide int
	log2Side int

	queue *timequeue.Queue

	CellsSide          int     // cells on a side; must be a power of two
	TimeRange          float64 // replication takes reproDelay + random(TimeRange)
	Neighbors          int     // 0 or >8 = well mixed; 2, 4, 6, 8 = grid
	GenomeSize         int     // bits in a finite genome
	IsInfinite         bool    // unbounded genome; mutation uses InfMutDecreaseProb
	Restrain           int     // one-count at which cells behave restrained
	Start1s            int     // one-count of injected cells
	MutProb            float64 // probability an offspring mutates
	UnrestrainedCost   float64 // extra cost per unrestrained cell when full
	InfMutDecreaseProb float64 // P(mutation decreases ones) for infinite genomes
	OneCheck           bool    // restrained cells check a single site only
}

// New creates a multicell with the historical defaults.
func New(random *rng.Source) *Multicell {
	return &Multicell{
		random:             random,
		queue:              timequeue.New(queueBase),
		CellsSide:          32,
		TimeRange:          50,
		Neighbors:          8,
		GenomeSize:         10,
		Restrain:           5,
		Start1s:            5,
		InfMutDecreaseProb: 0.5,
	}
}

// Size is the total number of lattice sites.
func (m *Multicell) Size() int { return m.CellsSide * m.CellsSide }

// NumCells reports how many sites are currently occupied.
func (m *Multicell) NumCells() int { return m.numCells }

// Time exposes the kernel clock.
func (m *Multicell) Time() float64 { return m.queue.Time() }

func (m *Multicell) ToPos(x, y int) int { return x + y*m.CellsSide }
func (m *Multicell) ToX(pos int) int    { return pos & m.maskSide }
func (m *Multicell) ToY(pos int) int    { return pos >> m.log2Side }

// MiddlePos is the canonical injection site.
func (m *Multicell) MiddlePos() int { return m.ToPos(m.CellsSide/2, m.CellsSide/2) }

// IsUnrestrained is the single restraint predicate: one-counts strictly
// below the threshold replicate over occupied neighbors.
func (m *Multicell) IsUnrestrained(numOnes int) bool { return numOnes < m.Restrain }

// wellMixed reports whether offspring placement ignores grid adjacency.
func (m *Multicell) wellMixed() bool { return m.Neighbors == 0 || m.Neighbors > 8 }

// Neighborhood layout:
//
//	7 2 4
//	0 * 1
//	5 3 6
//
// 0-1 is a 1D size-2 neighborhood; 0-3 a 2D size-4; 0-7 the full size-8.
// (0-5 behaves like a hex map.)
func step(dir, x, y int) (int, int) {
	switch dir {
	case 0, 5, 7:
		x--
	case 1, 4, 6:
		x++
	}
	switch dir {
	case 2, 4, 7:
		y--
	case 3, 5, 6:
		y++
	}
	return x, y
}

// RandomNeighbor picks a site to receive an offspring from pos. Off-grid
// draws are rejected and redrawn. Well-mixed placement may pick pos itself.
func (m *Multicell) RandomNeighbor(pos int) int {
	if m.wellMixed() {
		return m.random.UInt(m.Size())
	}

	x := m.ToX(pos)
	y := m.ToY(pos)
	for {
		dir := m.random.UInt(m.Neighbors)
		nx, ny := step(dir, x, y)
		if nx >= 0 && nx < m.CellsSide && ny >= 0 && ny < m.CellsSide {
			return m.ToPos(nx, ny)
		}
	}
}

// EmptyNeighbor finds an empty site adjacent to pos, or noneFound. A failed
// bounded search memoizes via isFull[pos]; that flag is cleared only when a
// new cell is born at pos itself (doBirth), not when a neighbor changes.
func (m *Multicell) EmptyNeighbor(pos int) int {
	if m.isFull[pos] == 1 {
		return noneFound
	}

	// Well mixed: keep drawing until an empty site turns up. Callers
	// guarantee the grid is not yet full.
	if m.wellMixed() {
		id := m.random.UInt(m.Size())
		for m.cells[id].ReproTime != 0 {
			id = m.random.UInt(m.Size())
		}
		return id
	}

	m.scratch = m.scratch[:0]
	x := m.ToX(pos)
	y := m.ToY(pos)
	for dir := 0; dir < m.Neighbors; dir++ {
		nx, ny := step(dir, x, y)
		if nx < 0 || nx >= m.CellsSide || ny < 0 || ny >= m.CellsSide {
			continue
		}
		next := m.ToPos(nx, ny)
		if m.cells[next].ReproTime == 0 {
			m.scratch = append(m.scratch, next)
		}
	}

	if len(m.scratch) == 0 {
		m.isFull[pos] = 1
		return noneFound
	}
	return m.scratch[m.random.UInt(len(m.scratch))]
}

// SetupConfig locks in the current settings and resets all run state: an
// empty grid, cleared fullness flags, queue at its base time.
func (m *Multicell) SetupConfig() error {
	if m.CellsSide <= 0 || m.CellsSide&(m.CellsSide-1) != 0 {
		return fmt.Errorf("cells_side must be a power of two, got %d", m.CellsSide)
	}
	if !m.IsInfinite && m.Start1s > m.GenomeSize {
		return fmt.Errorf("start_1s (%d) exceeds genome_size (%d)", m.Start1s, m.GenomeSize)
	}

	size := m.Size()
	m.cells = make([]Cell, size)
	for id := range m.cells {
		m.cells[id].ID = id
	}
	m.isFull = make([]byte, size)
	m.queue.Reset()
	m.numCells = 0

	m.maskSide = m.CellsSide - 1
	m.log2Side = 0
	for s := m.maskSide; s > 0; s >>= 1 {
		m.log2Side++
	}
	return nil
}

// setupCell schedules the cell's next replication.
func (m *Multicell) setupCell(c *Cell) {
	c.ReproTime = m.queue.Time() + reproDelay + m.random.Double(m.TimeRange)
	m.queue.Insert(c.ID, c.ReproTime)
}

// InjectCell places a cell with the given one-count at pos.
func (m *Multicell) InjectCell(pos, numOnes int) {
	c := &m.cells[pos]
	if c.ReproTime == 0 {
		m.numCells++
	}
	c.NumOnes = numOnes
	m.setupCell(c)
}

// Inject places a cell with the configured starting one-count.
func (m *Multicell) Inject(pos int) { m.InjectCell(pos, m.Start1s) }

// doBirth copies the parent into the offspring site, applies mutation, and
// schedules the offspring. The site's fullness memo is cleared: its newly
// live state may have been what a restrained neighbor was waiting on.
func (m *Multicell) doBirth(offspring *Cell, parent *Cell, doMutations bool) {
	if offspring.ReproTime == 0 {
		m.numCells++
	}
	offspring.NumOnes = parent.NumOnes
	if doMutations && m.random.P(m.MutProb) {
		offspring.NumOnes = MutateOnes(m.random, offspring.NumOnes, m.GenomeSize, m.IsInfinite, m.InfMutDecreaseProb)
	}
	m.setupCell(offspring)
	m.isFull[offspring.ID] = 0
}

// DoStep consumes one queue event. Stale events (the cell was overwritten
// since scheduling) and boxed-in restrained cells are discarded. Returns
// whether the occupied-site count changed.
func (m *Multicell) DoStep() bool {
	if m.queue.Len() == 0 {
		panic("multicell: event queue exhausted before the grid filled")
	}
	parent := &m.cells[m.queue.Next()]

	if parent.ReproTime != m.queue.Time() {
		return false
	}
	if m.isFull[parent.ID] == 1 {
		return false
	}

	before := m.numCells
	next := &m.cells[m.RandomNeighbor(parent.ID)]

	if next.ReproTime == 0 || m.IsUnrestrained(parent.NumOnes) {
		m.doBirth(next, parent, true)
	} else if !m.OneCheck {
		if id := m.EmptyNeighbor(parent.ID); id != noneFound {
			m.doBirth(&m.cells[id], parent, true)
		}
	}

	m.setupCell(parent)
	return m.numCells != before
}

// Run drives the event loop until the grid is full and tallies results.
// When trace is non-nil a textual grid dump is written every time the
// occupied-site count changes.
func (m *Multicell) Run(trace io.Writer) Results {
	lastCount := 0
	for m.numCells < m.Size() {
		m.DoStep()
		if trace != nil && lastCount != m.numCells {
			lastCount = m.numCells
			fmt.Fprintf(trace, "\nTime: %g  Cells: %d\n", m.queue.Time(), lastCount)
			m.writeGrid(trace)
		}
	}

	results := NewResults()
	results.RunTime = m.queue.Time()
	unrestrained := 0
	for i := range m.cells {
		if m.IsUnrestrained(m.cells[i].NumOnes) {
			unrestrained++
		}
		results.CellCounts[m.cells[i].NumOnes]++
	}
	results.ExtraCost = float64(unrestrained) * m.UnrestrainedCost
	return results
}

// Snapshot returns the renderer contract: one view per site.
func (m *Multicell) Snapshot() []CellView {
	views := make([]CellView, len(m.cells))
	for i := range m.cells {
		views[i] = CellView{ID: m.cells[i].ID, NumOnes: m.cells[i].NumOnes, ReproTime: m.cells[i].ReproTime}
	}
	return views
}

// Cell returns a copy of the cell at pos, for tests and renderers.
func (m *Multicell) Cell(pos int) Cell { return m.cells[pos] }

// onesChar encodes a one-count as a single trace character.
func onesChar(count int) byte {
	switch {
	case count < 0:
		return '-'
	case count < 10:
		return byte('0' + count)
	case count < 36:
		return byte('a' + count - 10)
	case count < 62:
		return byte('A' + count - 36)
	default:
		return '+'
	}
}

func (m *Multicell) writeGrid(w io.Writer) {
	row := make([]byte, 2*m.CellsSide+1)
	pos := 0
	for y := 0; y < m.CellsSide; y++ {
		for x := 0; x < m.CellsSide; x++ {
			row[2*x] = ' '
			if m.cells[pos].ReproTime == 0 {
				row[2*x+1] = '-'
			} else {
				row[2*x+1] = onesChar(m.cells[pos].NumOnes)
			}
			pos++
		}
		row[2*m.CellsSide] = '\n'
		w.Write(row)
	}
}
