// Package samples maintains the per-one-count reservoirs of observed
// multicell completion times that the population layer draws reproduction
// durations from. A reservoir fills lazily: a draw beyond what has been
// observed triggers a fresh multicell run whose result is appended.
package samples

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kgskocelas/Primordium/internal/multicell"
	"github.com/kgskocelas/Primordium/internal/rng"
)

// ErrSampleBounds is returned when a draw needs on-the-fly generation while
// the caller demanded preloaded data only.
var ErrSampleBounds = errors.New("sample not pre-generated")

// Cache maps a genome one-count to its reservoir of completion times. Each
// reservoir's logical capacity is NumSamples; the draw index is uniform over
// that capacity regardless of how many samples exist yet.
type Cache struct {
	numSamples    int
	enforceBounds bool

	random *rng.Source
	mc     *multicell.Multicell

	reservoirs map[int][]float64
	loadedMin  int
	loadedMax  int
	loaded     bool
}

// NewCache creates an empty cache. The multicell is borrowed for on-the-fly
// generation: each cache miss reconfigures and reruns it.
func NewCache(numSamples int, mc *multicell.Multicell, random *rng.Source) *Cache {
	return &Cache{
		numSamples: numSamples,
		random:     random,
		mc:         mc,
		reservoirs: make(map[int][]float64),
	}
}

// SetEnforceBounds makes any on-the-fly generation fatal. Used when samples
// were preloaded from disk and the run must stay within them.
func (c *Cache) SetEnforceBounds(enforce bool) { c.enforceBounds = enforce }

// NumSamples reports the logical reservoir capacity.
func (c *Cache) NumSamples() int { return c.numSamples }

// Len reports how many samples exist for a one-count.
func (c *Cache) Len(numOnes int) int { return len(c.reservoirs[numOnes]) }

// Samples returns the reservoir for a one-count, for persistence/export.
func (c *Cache) Samples(numOnes int) []float64 { return c.reservoirs[numOnes] }

// Counts lists the one-counts that currently hold samples.
func (c *Cache) Counts() []int {
	counts := make([]int, 0, len(c.reservoirs))
	for ones := range c.reservoirs {
		counts = append(counts, ones)
	}
	return counts
}

// Reset drops all reservoirs and loaded-interval bookkeeping.
func (c *Cache) Reset() {
	c.reservoirs = make(map[int][]float64)
	c.loadedMin = 0
	c.loadedMax = 0
	c.loaded = false
}

// ReproDuration draws a completion time for the given one-count. The draw
// index is uniform over the logical capacity; an index beyond the current
// reservoir triggers a live multicell run (or fails under enforced bounds).
func (c *Cache) ReproDuration(numOnes int) (float64, error) {
	reservoir := c.reservoirs[numOnes]
	sampleID := c.random.UInt(c.numSamples)
	if sampleID < len(reservoir) {
		return reservoir[sampleID], nil
	}
	if c.enforceBounds {
		return 0, fmt.Errorf("%w: num_ones=%d", ErrSampleBounds, numOnes)
	}

	c.mc.Start1s = numOnes
	if err := c.mc.SetupConfig(); err != nil {
		return 0, err
	}
	c.mc.Inject(c.mc.MiddlePos())
	results := c.mc.Run(nil)
	reproTime := results.ReproTime()

	c.reservoirs[numOnes] = append(reservoir, reproTime)
	return reproTime, nil
}

// LoadDir preloads reservoirs from <dir>/<ones>.dat files, one completion
// time per line, for one-counts in [minOnes, maxOnes]. Missing files are
// skipped with a warning; a file holding more entries than the reservoir
// capacity is a configuration fault.
func (c *Cache) LoadDir(dir string, minOnes, maxOnes int, warn io.Writer) error {
	for numOnes := minOnes; numOnes <= maxOnes; numOnes++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.dat", numOnes))
		times, err := readSampleFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				if warn != nil {
					fmt.Fprintf(warn, "sample file not found, skipping: %s\n", path)
				}
				continue
			}
			return err
		}
		if len(times) > c.numSamples {
			return fmt.Errorf("sample file %s holds %d entries, more than sample_size %d", path, len(times), c.numSamples)
		}
		c.reservoirs[numOnes] = times
	}
	c.loadedMin = minOnes
	c.loadedMax = maxOnes
	c.loaded = true
	return nil
}

// LoadedBounds reports the closed interval covered by the last LoadDir.
func (c *Cache) LoadedBounds() (minOnes, maxOnes int, ok bool) {
	return c.loadedMin, c.loadedMax, c.loaded
}

func readSampleFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var times []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		times = append(times, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return times, nil
}

// WriteFile writes one reservoir as a <ones>.dat file in dir, creating the
// directory if needed. The format is the LoadDir input format.
func WriteFile(dir string, numOnes int, times []float64) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.dat", numOnes))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(f)
	for _, v := range times {
		fmt.Fprintf(w, "%g\n", v)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
