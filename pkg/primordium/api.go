// Package primordium is the public facade over the spatial-restraint
// simulators: multicell sweeps, population evolution, and offline sample
// generation, with optional persistence behind a store backend.
package primordium

import (
	"context"

	"github.com/kgskocelas/Primordium/internal/experiment"
	"github.com/kgskocelas/Primordium/internal/model"
	"github.com/kgskocelas/Primordium/internal/stats"
	"github.com/kgskocelas/Primordium/internal/storage"
)

const defaultArtifactsDir = "runs"

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
}

type Client struct {
	store        storage.Store
	artifactsDir string
}

func New(opts Options) (*Client, error) {
	store, err := storage.NewStore(opts.StoreKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		return nil, err
	}

	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	return &Client{store: store, artifactsDir: artifactsDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// RunRequest mirrors the CLI surface. Sweep fields are comma-separated
// value lists; zero values fall back to the historical defaults.
type RunRequest struct {
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

	Seed  int64
	RunID string
}

type RunSummary struct {
	RunID      string
	Mode       string
	Seed       int64
	ComboCount int
	Artifacts  []string
}

// Run executes one invocation: a multicell sweep when GenCount is zero,
// population evolution otherwise.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	e, err := experiment.New(c.experimentConfig(req))
	if err != nil {
		return RunSummary{}, err
	}
	summary, err := e.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary(summary), nil
}

type SamplesRequest struct {
	Run     RunRequest
	MinOnes int
	MaxOnes int
	Count   int
	OutDir  string
}

// GenerateSamples produces <ones>.dat reservoir files for later preloading.
func (c *Client) GenerateSamples(ctx context.Context, req SamplesRequest) ([]string, error) {
	e, err := experiment.New(c.experimentConfig(req.Run))
	if err != nil {
		return nil, err
	}
	return e.GenerateSamples(ctx, experiment.SamplesRequest{
		MinOnes: req.MinOnes,
		MaxOnes: req.MaxOnes,
		Count:   req.Count,
		OutDir:  req.OutDir,
	})
}

// Runs lists the artifact run index, newest first.
func (c *Client) Runs(_ context.Context) ([]model.RunSummary, error) {
	return stats.ListRunIndex(c.artifactsDir)
}

func (c *Client) experimentConfig(req RunRequest) experiment.Config {
	return experiment.Config{
		DataCount:          req.DataCount,
		Ancestor1s:         req.Ancestor1s,
		UnrestrainedCost:   req.UnrestrainedCost,
		MutProb:            req.MutProb,
		TimeRange:          req.TimeRange,
		Neighbors:          req.Neighbors,
		Restrain:           req.Restrain,
		GenomeSize:         req.GenomeSize,
		CellsSide:          req.CellsSide,
		InfMutDecreaseProb: req.InfMutDecreaseProb,
		GenCount:           req.GenCount,
		PopSize:            req.PopSize,
		SampleSize:         req.SampleSize,
		OneCheck:           req.OneCheck,
		IsInfinite:         req.IsInfinite,
		ResetCache:         req.ResetCache,
		PrintReps:          req.PrintReps,
		Trace:              req.Trace,
		Verbose:            req.Verbose,
		LoadSamplesDir:     req.LoadSamplesDir,
		LoadSamplesMin:     req.LoadSamplesMin,
		LoadSamplesMax:     req.LoadSamplesMax,
		EnforceDataBounds:  req.EnforceDataBounds,
		MulticellFile:      req.MulticellFile,
		EvolutionFile:      req.EvolutionFile,
		ConfigFile:         req.ConfigFile,
		ArtifactsDir:       c.artifactsDir,
		Seed:               req.Seed,
		RunID:              req.RunID,
		Store:              c.store,
	}
}
