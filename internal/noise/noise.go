package noise

import (
	"math/rand/v2"
)

// SampleCount is the number of samples covering duration seconds at
// sampleRate, truncated toward zero
func SampleCount(duration float64, sampleRate int) int {
	return int(duration * float64(sampleRate))
}

// Source draws independent standard-normal samples (mean 0, variance 1)
type Source struct {
	rng  *rand.Rand
	seed uint64
}

// NewSource seeds a PCG generator. A zero seed is replaced by a random one.
func NewSource(seed uint64) *Source {
	if seed == 0 {
		seed = rand.Uint64() | 1
	}
	return &Source{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

// Seed returns the seed actually in use
func (s *Source) Seed() uint64 {
	return s.seed
}

// Normal returns n white noise samples. No scaling or clipping is applied.
func (s *Source) Normal(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = s.rng.NormFloat64()
	}
	return samples
}
