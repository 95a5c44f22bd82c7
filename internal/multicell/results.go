package multicell

// Results captures one completed run: the completion time, the extra cost
// charged for unrestrained cells, and a per-one-count census of the final
// grid.
type Results struct {
	RunTime    float64
	ExtraCost  float64
	CellCounts map[int]float64
}

func NewResults() Results {
	return Results{CellCounts: make(map[int]float64)}
}

// Add accumulates another run's results componentwise. Keys present in only
// one operand are kept.
func (r *Results) Add(in Results) {
	r.RunTime += in.RunTime
	r.ExtraCost += in.ExtraCost
	for ones, count := range in.CellCounts {
		r.CellCounts[ones] += count
	}
}

// Div scales every component down by denom, for averaging over replicates.
func (r *Results) Div(denom float64) {
	r.RunTime /= denom
	r.ExtraCost /= denom
	for ones := range r.CellCounts {
		r.CellCounts[ones] /= denom
	}
}

// CountCells totals the census.
func (r *Results) CountCells() float64 {
	total := 0.0
	for _, count := range r.CellCounts {
		total += count
	}
	return total
}

// CountRestrained totals cells at or above the restraint threshold.
func (r *Results) CountRestrained(threshold int) float64 {
	total := 0.0
	for ones, count := range r.CellCounts {
		if ones >= threshold {
			total += count
		}
	}
	return total
}

// CountUnrestrained totals cells below the restraint threshold.
func (r *Results) CountUnrestrained(threshold int) float64 {
	total := 0.0
	for ones, count := range r.CellCounts {
		if ones < threshold {
			total += count
		}
	}
	return total
}

// ReproTime is the full replication time: run time plus the unrestrained
// surcharge.
func (r *Results) ReproTime() float64 { return r.RunTime + r.ExtraCost }
