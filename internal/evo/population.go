// Package evo evolves a population of multicell organisms. Each organism's
// fitness surfaces only through its reproduction time, drawn from the sample
// cache; selection is implicit in who replicates first.
package evo

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/kgskocelas/Primordium/internal/multicell"
	"github.com/kgskocelas/Primordium/internal/rng"
	"github.com/kgskocelas/Primordium/internal/samples"
	"github.com/kgskocelas/Primordium/internal/timequeue"
)

const queueBase = 100.0

// Organism is one multicell treated as an individual. ReproTime doubles as
// the stale-event marker for the organism queue; Gen advances by one per
// birth along a lineage.
type Organism struct {
	NumOnes   int
	Gen       float64
	ReproTime float64
}

// Population is a fixed-size set of organisms driven by a time-ordered
// birth queue. aveGen is maintained incrementally as births replace
// organisms.
type Population struct {
	Orgs []Organism

	queue  *timequeue.Queue
	aveGen float64

	cache  *samples.Cache
	mc     *multicell.Multicell
	random *rng.Source
}

// NewPopulation creates a population of identical ancestors. The multicell
// supplies the mutation settings shared with the kernel; the cache supplies
// reproduction durations.
func NewPopulation(popSize, ancestorOnes int, cache *samples.Cache, mc *multicell.Multicell, random *rng.Source) *Population {
	p := &Population{
		queue:  timequeue.New(queueBase),
		cache:  cache,
		mc:     mc,
		random: random,
	}
	p.Reset(popSize, ancestorOnes, false)
	return p
}

// Reset recreates popSize ancestors and empties the queue. When resetCache
// is set, accumulated reproduction-time observations are dropped too, so
// consecutive runs no longer share them.
func (p *Population) Reset(popSize, ancestorOnes int, resetCache bool) {
	p.Orgs = make([]Organism, popSize)
	for i := range p.Orgs {
		p.Orgs[i].NumOnes = ancestorOnes
	}
	p.queue.Reset()
	p.aveGen = 0
	if resetCache {
		p.cache.Reset()
	}
}

// AveGen exposes the incrementally maintained mean generation.
func (p *Population) AveGen() float64 { return p.aveGen }

// Time exposes the organism queue clock.
func (p *Population) Time() float64 { return p.queue.Time() }

// ReproDuration draws how long a multicell with this one-count takes to
// fill, from the shared cache.
func (p *Population) ReproDuration(numOnes int) (float64, error) {
	return p.cache.ReproDuration(numOnes)
}

// BirthTime converts a drawn duration into an absolute queue time.
func (p *Population) BirthTime(numOnes int) (float64, error) {
	duration, err := p.cache.ReproDuration(numOnes)
	if err != nil {
		return 0, err
	}
	return duration + p.queue.Time(), nil
}

// NextBirth consumes one birth event: the earliest-scheduled parent copies
// itself over a uniformly chosen slot, possibly its own. Self-replacement
// reschedules the parent under a bumped generation, and the parent takes the
// mutation draw like any other offspring.
func (p *Population) NextBirth() error {
	parentID := p.queue.Next()
	parent := &p.Orgs[parentID]

	// The slot was overwritten since this event was scheduled.
	if parent.ReproTime != p.queue.Time() {
		return nil
	}

	offspringID := p.random.UInt(len(p.Orgs))
	offspring := &p.Orgs[offspringID]

	p.aveGen -= offspring.Gen / float64(len(p.Orgs))
	if parentID != offspringID {
		*offspring = *parent
		birthTime, err := p.BirthTime(parent.NumOnes)
		if err != nil {
			return err
		}
		parent.ReproTime = birthTime
		p.queue.Insert(parentID, parent.ReproTime)
	}
	offspring.Gen++
	p.aveGen += offspring.Gen / float64(len(p.Orgs))

	if p.random.P(p.mc.MutProb) {
		offspring.NumOnes = multicell.MutateOnes(p.random, offspring.NumOnes, p.mc.GenomeSize, p.mc.IsInfinite, p.mc.InfMutDecreaseProb)
	}

	birthTime, err := p.BirthTime(offspring.NumOnes)
	if err != nil {
		return err
	}
	offspring.ReproTime = birthTime
	p.queue.Insert(offspringID, offspring.ReproTime)
	return nil
}

// Run seeds every organism with an initial birth time and consumes births
// until the mean generation reaches maxGen. When trace or echo is non-nil a
// summary row is emitted each time the mean generation crosses an integer.
func (p *Population) Run(maxGen float64, trace, echo io.Writer) error {
	for i := range p.Orgs {
		birthTime, err := p.BirthTime(p.Orgs[i].NumOnes)
		if err != nil {
			return err
		}
		p.queue.Insert(i, birthTime)
		p.Orgs[i].ReproTime = birthTime
	}

	out := traceWriter(trace, echo)
	if out == nil {
		for p.aveGen < maxGen {
			if err := p.NextBirth(); err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Fprintln(out, "#generation, ave_ones, ave_repro_time, min_ones, max_ones, var_ones")
	nextGen := -1.0
	for p.aveGen < maxGen {
		if p.aveGen > nextGen {
			nextGen++
			aveDuration, err := p.CalcAveReproDuration()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d, %g, %g, %d, %d, %g\n",
				int(nextGen), p.CalcAveOnes(), aveDuration, p.CalcMinOnes(), p.CalcMaxOnes(), p.CalcVarOnes())
		}
		if err := p.NextBirth(); err != nil {
			return err
		}
	}
	return nil
}

func traceWriter(trace, echo io.Writer) io.Writer {
	switch {
	case trace != nil && echo != nil:
		return io.MultiWriter(trace, echo)
	case trace != nil:
		return trace
	case echo != nil:
		return echo
	default:
		return nil
	}
}

// CalcAveOnes is the mean one-count over the live organisms.
func (p *Population) CalcAveOnes() float64 {
	total := 0.0
	for i := range p.Orgs {
		total += float64(p.Orgs[i].NumOnes)
	}
	return total / float64(len(p.Orgs))
}

// CalcAveGen recomputes the mean generation from scratch; the event loop
// keeps the same quantity incrementally.
func (p *Population) CalcAveGen() float64 {
	total := 0.0
	for i := range p.Orgs {
		total += p.Orgs[i].Gen
	}
	return total / float64(len(p.Orgs))
}

// CalcVarOnes is the sample variance (n-1 denominator) of the one-counts.
func (p *Population) CalcVarOnes() float64 {
	if len(p.Orgs) < 2 {
		return 0
	}
	mean := p.CalcAveOnes()
	sum := 0.0
	for i := range p.Orgs {
		d := float64(p.Orgs[i].NumOnes) - mean
		sum += d * d
	}
	return sum / float64(len(p.Orgs)-1)
}

func (p *Population) CalcMinOnes() int {
	minOnes := math.MaxInt
	for i := range p.Orgs {
		if p.Orgs[i].NumOnes < minOnes {
			minOnes = p.Orgs[i].NumOnes
		}
	}
	return minOnes
}

func (p *Population) CalcMaxOnes() int {
	maxOnes := math.MinInt
	for i := range p.Orgs {
		if p.Orgs[i].NumOnes > maxOnes {
			maxOnes = p.Orgs[i].NumOnes
		}
	}
	return maxOnes
}

// CalcAveReproDuration averages a cache draw over the live organisms. Each
// call consumes random draws, like any other cache access.
func (p *Population) CalcAveReproDuration() (float64, error) {
	total := 0.0
	for i := range p.Orgs {
		duration, err := p.cache.ReproDuration(p.Orgs[i].NumOnes)
		if err != nil {
			return 0, err
		}
		total += duration
	}
	return total / float64(len(p.Orgs)), nil
}

// WriteCounts emits one `run_id,num_ones,count` row per distinct one-count,
// ascending.
func (p *Population) WriteCounts(runID int, w io.Writer) {
	counts := make(map[int]int)
	for i := range p.Orgs {
		counts[p.Orgs[i].NumOnes]++
	}
	ones := make([]int, 0, len(counts))
	for k := range counts {
		ones = append(ones, k)
	}
	sort.Ints(ones)
	for _, k := range ones {
		fmt.Fprintf(w, "%d,%d,%d\n", runID, k, counts[k])
	}
}
