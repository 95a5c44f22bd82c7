package multicell

import "github.com/kgskocelas/Primordium/internal/rng"

// MutateOnes applies a single ±1 mutation to a one-count. Finite genomes
// decrease with probability ones/genomeSize and clamp to [0, genomeSize];
// infinite genomes decrease with the configured constant probability and
// clamp only at zero. Shared by the kernel and the population layer.
func MutateOnes(random *rng.Source, numOnes, genomeSize int, isInfinite bool, infDecreaseProb float64) int {
	var probDecrease float64
	if isInfinite {
		probDecrease = infDecreaseProb
	} else {
		probDecrease = float64(numOnes) / float64(genomeSize)
	}

	if random.P(probDecrease) {
		numOnes--
	} else {
		numOnes++
	}

	if numOnes < 0 {
		numOnes = 0
	}
	if !isInfinite && numOnes > genomeSize {
		numOnes = genomeSize
	}
	return numOnes
}
