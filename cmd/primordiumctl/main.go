// Command primordiumctl runs spatial-restraint experiments: multicell
// sweeps, population evolution, and sample-reservoir generation.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/kgskocelas/Primordium/internal/storage"
	"github.com/kgskocelas/Primordium/pkg/primordium"
)

const defaultArtifactsDir = "runs"

type usageError string

func (e usageError) Error() string { return string(e) }

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps faults to the historical exit codes: 1 for help and
// configuration faults, 2 for unknown options or commands.
func exitCode(err error) int {
	var usage usageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command: run | samples | runs")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "samples":
		return runSamples(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// parse wraps FlagSet.Parse so --help exits 1 and unknown options exit 2.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError(err.Error())
	}
	return nil
}

// requestFlags registers the shared simulation flags on a flag set and
// returns the bound request.
func requestFlags(fs *flag.FlagSet) *primordium.RunRequest {
	req := &primordium.RunRequest{}

	fs.StringVar(&req.DataCount, "data-count", "100", "times to replicate each run (sweep list)")
	fs.StringVar(&req.Ancestor1s, "ancestor-1s", "50", "one-count of the starting cell (sweep list)")
	fs.StringVar(&req.UnrestrainedCost, "unrestrained-cost", "0", "per-cell cost for unrestrained cells (sweep list)")
	fs.StringVar(&req.MutProb, "mut-prob", "0", "probability of offspring mutation (sweep list)")
	fs.StringVar(&req.TimeRange, "time-range", "50", "replication takes 100 + random(time_range) (sweep list)")
	fs.StringVar(&req.Neighbors, "neighbors", "8", "neighborhood size for replication; 0 = well mixed (sweep list)")
	fs.StringVar(&req.Restrain, "restrain", "50", "one-count threshold for restraint (sweep list)")
	fs.StringVar(&req.GenomeSize, "genome-size", "100", "bits in the genome (sweep list)")
	fs.StringVar(&req.CellsSide, "cells-side", "32", "cells on a side of the square multicell (sweep list)")
	fs.StringVar(&req.InfMutDecreaseProb, "inf-mut-decrease-prob", "0.5", "P(mutation decreases ones) for infinite genomes (sweep list)")

	fs.IntVar(&req.GenCount, "gen-count", 0, "generations to evolve (0 = analyze multicells only)")
	fs.IntVar(&req.PopSize, "pop-size", 200, "organisms in the population")
	fs.IntVar(&req.SampleSize, "sample-size", 100, "multicells sampled per genotype")
	fs.BoolVar(&req.OneCheck, "one-check", false, "restrained cells check only one site for an empty")
	fs.BoolVar(&req.IsInfinite, "infinite", false, "use an unbounded genome")
	fs.BoolVar(&req.ResetCache, "independent-caches", false, "use a distinct sample cache for each run")
	fs.BoolVar(&req.PrintReps, "print-reps", false, "print data for each replicate")
	fs.BoolVar(&req.Trace, "trace", false, "show each step of replicates")
	fs.BoolVar(&req.Verbose, "verbose", false, "print extra information during the run")

	fs.StringVar(&req.LoadSamplesDir, "load-samples", "", "directory of pre-computed <ones>.dat sample files")
	fs.IntVar(&req.LoadSamplesMin, "load-samples-min", 0, "minimum one-count to load samples for")
	fs.IntVar(&req.LoadSamplesMax, "load-samples-max", 100, "maximum one-count to load samples for")
	fs.BoolVar(&req.EnforceDataBounds, "enforce-data-bounds", false, "fail instead of simulating when a draw has no preloaded sample")

	fs.StringVar(&req.MulticellFile, "multicell-file", "multicell.dat", "filename for multicell summary data")
	fs.StringVar(&req.EvolutionFile, "evolution-file", "evolution.dat", "filename for evolution data")
	fs.StringVar(&req.ConfigFile, "config-file", "config.dat", "filename for the config echo")

	fs.Int64Var(&req.Seed, "seed", -1, "random seed (-1 to seed randomly)")
	fs.StringVar(&req.RunID, "run-id", "", "explicit run id (optional)")

	return req
}

func clientFlags(fs *flag.FlagSet) (storeKind, dbPath, artifactsDir *string) {
	storeKind = fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath = fs.String("db-path", "primordium.db", "sqlite database path")
	artifactsDir = fs.String("artifacts", defaultArtifactsDir, "artifact output directory")
	return
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	req := requestFlags(fs)
	storeKind, dbPath, artifactsDir := clientFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	client, err := primordium.New(primordium.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: *artifactsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, *req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s mode=%s seed=%d combos=%d\n",
		summary.RunID, summary.Mode, summary.Seed, summary.ComboCount)
	for _, artifact := range summary.Artifacts {
		fmt.Printf("artifact=%s\n", artifact)
	}
	return nil
}

func runSamples(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("samples", flag.ContinueOnError)
	req := requestFlags(fs)
	storeKind, dbPath, artifactsDir := clientFlags(fs)
	minOnes := fs.Int("min-ones", 0, "lowest one-count to generate samples for")
	maxOnes := fs.Int("max-ones", 100, "highest one-count to generate samples for")
	count := fs.Int("count", 100, "samples per one-count")
	outDir := fs.String("out", "samples", "output directory for <ones>.dat files")
	if err := parse(fs, args); err != nil {
		return err
	}

	client, err := primordium.New(primordium.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: *artifactsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	paths, err := client.GenerateSamples(ctx, primordium.SamplesRequest{
		Run:     *req,
		MinOnes: *minOnes,
		MaxOnes: *maxOnes,
		Count:   *count,
		OutDir:  *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("samples generated files=%d out=%s\n", len(paths), *outDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind, dbPath, artifactsDir := clientFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := primordium.New(primordium.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: *artifactsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	entries, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if len(entries) > *limit {
		entries = entries[:*limit]
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for _, e := range entries {
		fmt.Printf("run_id=%s created_at=%s mode=%s seed=%d combo=%d gens=%d pop=%d ave_time=%.6f frac_restrain=%.6f\n",
			e.RunID, e.CreatedAtUTC, e.Mode, e.Seed, e.ComboID, e.GenCount, e.PopSize, e.AveTime, e.FracRestrain)
	}
	return nil
}
