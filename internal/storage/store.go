package storage

import (
	"context"

	"github.com/kgskocelas/Primordium/internal/model"
)

// Store persists run summaries and sample reservoirs across invocations.
type Store interface {
	Init(ctx context.Context) error
	SaveRunSummary(ctx context.Context, summary model.RunSummary) error
	ListRunSummaries(ctx context.Context) ([]model.RunSummary, error)
	SaveSampleSet(ctx context.Context, set model.SampleSet) error
	GetSampleSet(ctx context.Context, numOnes int) (model.SampleSet, bool, error)
}
