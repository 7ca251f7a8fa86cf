// Package datagen generates reproducible synthetic datasets for building and
// benchmarking indexes without an external embedder.
package datagen

import (
	"math"
	"math/rand"
)

// Gaussian returns n unit-normalized vectors of dimension dim drawn from a
// standard normal distribution. The same seed always yields the same dataset.
func Gaussian(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		var normSq float64
		for j := range v {
			x := float32(rng.NormFloat64())
			v[j] = x
			normSq += float64(x * x)
		}
		norm := math.Sqrt(normSq)
		if norm < 1e-9 {
			v[0] = 1
			norm = 1
		}
		for j := range v {
			v[j] /= float32(norm)
		}
		out[i] = v
	}
	return out
}

// Queries samples n vectors from base, perturbs each with Gaussian noise of
// the given sigma, and re-normalizes. This mirrors how realistic query loads
// are derived from an indexed dataset: near known points but never identical.
func Queries(base [][]float32, n int, sigma float64, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		src := base[rng.Intn(len(base))]
		q := make([]float32, len(src))
		var normSq float64
		for j := range q {
			x := src[j] + float32(rng.NormFloat64()*sigma)
			q[j] = x
			normSq += float64(x * x)
		}
		norm := math.Sqrt(normSq)
		if norm < 1e-9 {
			q[0] = 1
			norm = 1
		}
		for j := range q {
			q[j] /= float32(norm)
		}
		out[i] = q
	}
	return out
}
