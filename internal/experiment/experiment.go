// Package experiment drives parameter sweeps over the two simulators. One
// Experiment owns the random source, the borrowed multicell, and the parsed
// combos; each combo is a treatment replicated data_count times.
package experiment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/kgskocelas/Primordium/internal/evo"
	"github.com/kgskocelas/Primordium/internal/model"
	"github.com/kgskocelas/Primordium/internal/multicell"
	"github.com/kgskocelas/Primordium/internal/rng"
	"github.com/kgskocelas/Primordium/internal/samples"
	"github.com/kgskocelas/Primordium/internal/stats"
	"github.com/kgskocelas/Primordium/internal/storage"
	"github.com/kgskocelas/Primordium/internal/sweep"
)

// Config carries the full CLI surface. Sweep fields hold comma-separated
// value lists; empty ones fall back to the historical defaults.
type Config struct {
	// Swept multicell settings.
	DataCount          string
	Ancestor1s         string
	UnrestrainedCost   string
	MutProb            string
	TimeRange          string
	Neighbors          string
	Restrain           string
	GenomeSize         string
	CellsSide          string
	InfMutDecreaseProb string

	// Singleton settings.
	GenCount   int
	PopSize    int
	SampleSize int
	OneCheck   bool
	IsInfinite bool
	ResetCache bool
	PrintReps  bool
	Trace      bool
	Verbose    bool

	LoadSamplesDir    string
	LoadSamplesMin    int
	LoadSamplesMax    int
	EnforceDataBounds bool

	MulticellFile string
	EvolutionFile string
	ConfigFile    string
	ArtifactsDir  string

	Seed  int64
	RunID string

	Store storage.Store
}

var sweepDefaults = map[string]string{
	"data_count":            "100",
	"ancestor_1s":           "50",
	"unrestrained_cost":     "0",
	"mut_prob":              "0",
	"time_range":            "50",
	"neighbors":             "8",
	"restrain":              "50",
	"bit_size":              "100",
	"cells_side":            "32",
	"inf_mut_decrease_prob": "0.5",
}

// Summary reports what an experiment produced.
type Summary struct {
	RunID      string
	Mode       string
	Seed       int64
	ComboCount int
	Artifacts  []string
}

type Experiment struct {
	cfg    Config
	random *rng.Source
	mc     *multicell.Multicell
	combos *sweep.Combos
	runID  string
	stdout io.Writer
}

// New validates the configuration and parses the sweep expressions. Every
// parse failure is a configuration fault naming the offending setting.
func New(cfg Config) (*Experiment, error) {
	if cfg.PopSize <= 0 {
		cfg.PopSize = 200
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 100
	}
	if cfg.MulticellFile == "" {
		cfg.MulticellFile = "multicell.dat"
	}
	if cfg.EvolutionFile == "" {
		cfg.EvolutionFile = "evolution.dat"
	}
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = "config.dat"
	}
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = "."
	}

	combos := sweep.New()
	for _, s := range []struct {
		name string
		expr string
	}{
		{"data_count", cfg.DataCount},
		{"ancestor_1s", cfg.Ancestor1s},
		{"unrestrained_cost", cfg.UnrestrainedCost},
		{"mut_prob", cfg.MutProb},
		{"time_range", cfg.TimeRange},
		{"neighbors", cfg.Neighbors},
		{"restrain", cfg.Restrain},
		{"bit_size", cfg.GenomeSize},
		{"cells_side", cfg.CellsSide},
		{"inf_mut_decrease_prob", cfg.InfMutDecreaseProb},
	} {
		expr := s.expr
		if expr == "" {
			expr = sweepDefaults[s.name]
		}
		if err := combos.Add(s.name, expr); err != nil {
			return nil, err
		}
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	random := rng.New(cfg.Seed)
	mc := multicell.New(random)
	mc.OneCheck = cfg.OneCheck
	mc.IsInfinite = cfg.IsInfinite

	return &Experiment{
		cfg:    cfg,
		random: random,
		mc:     mc,
		combos: combos,
		runID:  runID,
		stdout: os.Stdout,
	}, nil
}

// SetOutput redirects progress output, for tests.
func (e *Experiment) SetOutput(w io.Writer) { e.stdout = w }

// RunID reports the resolved run identifier.
func (e *Experiment) RunID() string { return e.runID }

// applyCombo locks one treatment's settings into the borrowed multicell.
func (e *Experiment) applyCombo(combo sweep.Combo) {
	e.mc.Start1s = combo.Int("ancestor_1s")
	e.mc.UnrestrainedCost = combo.Value("unrestrained_cost")
	e.mc.MutProb = combo.Value("mut_prob")
	e.mc.TimeRange = combo.Value("time_range")
	e.mc.Neighbors = combo.Int("neighbors")
	e.mc.Restrain = combo.Int("restrain")
	e.mc.GenomeSize = combo.Int("bit_size")
	e.mc.CellsSide = combo.Int("cells_side")
	e.mc.InfMutDecreaseProb = combo.Value("inf_mut_decrease_prob")
}

// Run selects the mode the way the original driver did: a zero generation
// count analyzes multicells, anything else evolves populations.
func (e *Experiment) Run(ctx context.Context) (Summary, error) {
	if err := e.writeConfigEcho(); err != nil {
		return Summary{}, err
	}

	if e.cfg.GenCount > 0 {
		return e.runEvolution(ctx)
	}
	return e.runMulticells(ctx)
}

func (e *Experiment) artifactPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.cfg.ArtifactsDir, name)
}

func (e *Experiment) writeConfigEcho() error {
	if err := os.MkdirAll(e.cfg.ArtifactsDir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(e.artifactPath(e.cfg.ConfigFile))
	if err != nil {
		return err
	}
	defer f.Close()

	it := e.combos.Iter()
	if !it.Next() {
		return fmt.Errorf("no parameter combos configured")
	}
	return stats.WriteConfigEcho(f, e.combos.Headers(), it.Combo().Row())
}

// testMulticell performs one fresh grid run under the current settings.
func (e *Experiment) testMulticell(trace io.Writer) (multicell.Results, error) {
	if err := e.mc.SetupConfig(); err != nil {
		return multicell.Results{}, err
	}
	e.mc.Inject(e.mc.MiddlePos())
	return e.mc.Run(trace), nil
}

func (e *Experiment) runMulticells(ctx context.Context) (Summary, error) {
	outPath := e.artifactPath(e.cfg.MulticellFile)
	f, err := os.Create(outPath)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()

	w := stats.NewMulticellCSV(f)
	firstDataCount := 0
	if it := e.combos.Iter(); it.Next() {
		firstDataCount = it.Combo().Int("data_count")
	}
	if err := w.WriteHeader(e.combos.Headers(), e.cfg.PrintReps, firstDataCount); err != nil {
		return Summary{}, err
	}

	totalRuns := 0
	comboCount := e.combos.Count()
	for it := e.combos.Iter(); it.Next(); {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		combo := it.Combo()
		e.applyCombo(combo)
		dataCount := combo.Int("data_count")

		fmt.Fprintf(e.stdout, "START Treatment #%d / %d\n  %s\n", combo.ID, comboCount, combo.String(", "))

		var trace io.Writer
		if e.cfg.Trace {
			trace = e.stdout
		}

		total := multicell.NewResults()
		repTimes := make([]float64, 0, dataCount)
		for i := 0; i < dataCount; i++ {
			if err := ctx.Err(); err != nil {
				return Summary{}, err
			}
			if e.cfg.Verbose {
				fmt.Fprintf(e.stdout, " ... run %d\n", i)
			}
			results, err := e.testMulticell(trace)
			if err != nil {
				return Summary{}, err
			}
			if e.cfg.PrintReps {
				repTimes = append(repTimes, results.ReproTime())
			}
			total.Add(results)
			totalRuns++
		}
		total.Div(float64(dataCount))

		fracRestrain := total.CountRestrained(e.mc.Restrain) / float64(e.mc.Size())
		if err := w.WriteRow(combo.Row(), repTimes, total.ReproTime(), fracRestrain); err != nil {
			return Summary{}, err
		}

		if err := e.recordSummary(ctx, "multicell", combo, dataCount, total.ReproTime(), fracRestrain); err != nil {
			return Summary{}, err
		}
	}

	if e.cfg.Verbose {
		fmt.Fprintf(e.stdout, "completed %s multicell runs across %d treatments\n",
			humanize.Comma(int64(totalRuns)), comboCount)
	}
	return Summary{
		RunID:      e.runID,
		Mode:       "multicell",
		Seed:       e.random.Seed(),
		ComboCount: comboCount,
		Artifacts:  []string{outPath},
	}, nil
}

func (e *Experiment) runEvolution(ctx context.Context) (Summary, error) {
	outPath := e.artifactPath(e.cfg.EvolutionFile)
	f, err := os.Create(outPath)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()

	if err := stats.WriteEvolutionHeader(f); err != nil {
		return Summary{}, err
	}

	comboCount := e.combos.Count()
	artifacts := []string{outPath}
	for it := e.combos.Iter(); it.Next(); {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		combo := it.Combo()
		e.applyCombo(combo)
		dataCount := combo.Int("data_count")
		ancestorOnes := combo.Int("ancestor_1s")

		cache := samples.NewCache(e.cfg.SampleSize, e.mc, e.random)
		if e.cfg.LoadSamplesDir != "" {
			if err := cache.LoadDir(e.cfg.LoadSamplesDir, e.cfg.LoadSamplesMin, e.cfg.LoadSamplesMax, os.Stderr); err != nil {
				return Summary{}, err
			}
			if e.cfg.Verbose {
				loaded := 0
				for _, ones := range cache.Counts() {
					loaded += cache.Len(ones)
				}
				fmt.Fprintf(e.stdout, "loaded %s samples from %s\n", humanize.Comma(int64(loaded)), e.cfg.LoadSamplesDir)
			}
		}
		cache.SetEnforceBounds(e.cfg.EnforceDataBounds)

		pop := evo.NewPopulation(e.cfg.PopSize, ancestorOnes, cache, e.mc, e.random)
		for runID := 0; runID < dataCount; runID++ {
			if err := ctx.Err(); err != nil {
				return Summary{}, err
			}
			fmt.Fprintf(e.stdout, "START Treatment #%d : Run %d\n", combo.ID, runID)

			var trace io.Writer
			var traceFile *os.File
			if e.cfg.Trace {
				tracePath := e.artifactPath(stats.TraceFileName(combo.ID, runID))
				tf, err := os.Create(tracePath)
				if err != nil {
					return Summary{}, err
				}
				trace = tf
				traceFile = tf
				artifacts = append(artifacts, tracePath)
			}
			var echo io.Writer
			if e.cfg.Verbose {
				echo = e.stdout
			}

			pop.Reset(e.cfg.PopSize, ancestorOnes, e.cfg.ResetCache)
			runErr := pop.Run(float64(e.cfg.GenCount), trace, echo)
			if traceFile != nil {
				traceFile.Close()
			}
			if runErr != nil {
				return Summary{}, runErr
			}
			pop.WriteCounts(runID, f)
		}

		if err := e.recordSummary(ctx, "evolution", combo, dataCount, 0, 0); err != nil {
			return Summary{}, err
		}
		if err := e.persistSampleSets(ctx, cache); err != nil {
			return Summary{}, err
		}
	}

	return Summary{
		RunID:      e.runID,
		Mode:       "evolution",
		Seed:       e.random.Seed(),
		ComboCount: comboCount,
		Artifacts:  artifacts,
	}, nil
}

func (e *Experiment) recordSummary(ctx context.Context, mode string, combo sweep.Combo, dataCount int, aveTime, fracRestrain float64) error {
	entry := model.RunSummary{
		VersionedRecord: storage.Stamp(),
		RunID:           e.runID,
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339),
		Mode:            mode,
		Seed:            e.random.Seed(),
		ComboID:         combo.ID,
		Combo:           combo.String(","),
		DataCount:       dataCount,
		GenCount:        e.cfg.GenCount,
		PopSize:         e.cfg.PopSize,
		SampleSize:      e.cfg.SampleSize,
		AveTime:         aveTime,
		FracRestrain:    fracRestrain,
	}
	if err := stats.AppendRunIndex(e.cfg.ArtifactsDir, entry); err != nil {
		return err
	}
	if e.cfg.Store != nil {
		if err := e.cfg.Store.SaveRunSummary(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (e *Experiment) persistSampleSets(ctx context.Context, cache *samples.Cache) error {
	if e.cfg.Store == nil {
		return nil
	}
	for _, ones := range cache.Counts() {
		set := model.SampleSet{
			VersionedRecord: storage.Stamp(),
			NumOnes:         ones,
			Times:           cache.Samples(ones),
		}
		if err := e.cfg.Store.SaveSampleSet(ctx, set); err != nil {
			return err
		}
	}
	return nil
}

// SamplesRequest configures offline reservoir generation: the .dat files
// that load-samples consumes later.
type SamplesRequest struct {
	MinOnes int
	MaxOnes int
	Count   int
	OutDir  string
}

// GenerateSamples fills one reservoir per one-count in [MinOnes, MaxOnes]
// by running Count multicells each, and writes them as <ones>.dat files.
func (e *Experiment) GenerateSamples(ctx context.Context, req SamplesRequest) ([]string, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("samples count must be > 0, got %d", req.Count)
	}
	if req.MinOnes > req.MaxOnes {
		return nil, fmt.Errorf("samples range is empty: min %d > max %d", req.MinOnes, req.MaxOnes)
	}

	it := e.combos.Iter()
	if !it.Next() {
		return nil, fmt.Errorf("no parameter combos configured")
	}
	e.applyCombo(it.Combo())

	var paths []string
	for ones := req.MinOnes; ones <= req.MaxOnes; ones++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.mc.Start1s = ones
		times := make([]float64, 0, req.Count)
		for i := 0; i < req.Count; i++ {
			results, err := e.testMulticell(nil)
			if err != nil {
				return nil, err
			}
			times = append(times, results.ReproTime())
		}

		path, err := samples.WriteFile(req.OutDir, ones, times)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)

		if e.cfg.Store != nil {
			set := model.SampleSet{VersionedRecord: storage.Stamp(), NumOnes: ones, Times: times}
			if err := e.cfg.Store.SaveSampleSet(ctx, set); err != nil {
				return nil, err
			}
		}
		if e.cfg.Verbose {
			fmt.Fprintf(e.stdout, "generated %s samples for %d ones\n", humanize.Comma(int64(req.Count)), ones)
		}
	}
	return paths, nil
}
