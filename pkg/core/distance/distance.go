// Package distance provides the vector distance kernels used by the index.
//
// The serving metric is squared Euclidean distance over unit-normalized
// vectors, which orders results identically to cosine distance while keeping
// the kernel branch-free. Optimized implementations are selected at init time:
// Gonum's BLAS routines handle SIMD dispatch for float32, with pure Go
// fallbacks kept as the reference implementations.
package distance

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"github.com/x448/float16"
	"gonum.org/v1/gonum/blas/gonum"
)

// Metric identifies a distance calculation.
type Metric string

const (
	// SquaredL2 is the squared Euclidean distance.
	SquaredL2 Metric = "squared_l2"
	// Cosine is cosine distance (1 - cosine similarity), computed as a dot
	// product on unit-normalized inputs.
	Cosine Metric = "cosine"
)

// Func computes the distance between two float32 vectors of equal length.
type Func func(a, b []float32) (float64, error)

// ErrLengthMismatch is returned when the two operands differ in length.
var ErrLengthMismatch = errors.New("distance: vectors must have the same length")

var gonumEngine = gonum.Implementation{}

var funcs = map[Metric]Func{
	SquaredL2: squaredL2Go,
	Cosine:    cosineGo,
}

func init() {
	// Gonum handles SIMD dispatch internally, so it is always preferred for
	// float32. The cpuid probe is informational: it tells operators which
	// instruction set the BLAS kernels will end up using.
	funcs[SquaredL2] = squaredL2Gonum
	funcs[Cosine] = cosineGonum

	level := "generic"
	switch {
	case cpuid.CPU.Has(cpuid.AVX2):
		level = "AVX2"
	case cpuid.CPU.Has(cpuid.SSE4):
		level = "SSE4"
	}
	log.Printf("vectorwise compute engine: Gonum BLAS kernels (%s)", level)
}

// For returns the kernel for the given metric.
func For(m Metric) (Func, error) {
	fn, ok := funcs[m]
	if !ok {
		return nil, fmt.Errorf("distance: metric %q not supported", m)
	}
	return fn, nil
}

// squaredL2Go is the pure Go reference implementation.
func squaredL2Go(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float64(sum), nil
}

// cosineGo is the pure Go reference implementation for normalized inputs.
func cosineGo(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return 1.0 - float64(dot), nil
}

// diffWorkspace pools scratch slices for the subtraction in squaredL2Gonum,
// keeping the hot search path allocation-free.
var diffWorkspace = sync.Pool{
	New: func() any {
		s := make([]float32, 1536)
		return &s
	},
}

// squaredL2Gonum computes ||a-b||^2 via BLAS: diff = a - b, then dot(diff, diff).
func squaredL2Gonum(a, b []float32) (float64, error) {
	n := len(a)
	if n != len(b) {
		return 0, ErrLengthMismatch
	}

	diffPtr := diffWorkspace.Get().(*[]float32)
	defer diffWorkspace.Put(diffPtr)
	if cap(*diffPtr) < n {
		*diffPtr = make([]float32, n)
	}
	diff := (*diffPtr)[:n]

	copy(diff, a)
	gonumEngine.Saxpy(n, -1, b, 1, diff, 1)
	return float64(gonumEngine.Sdot(n, diff, 1, diff, 1)), nil
}

// cosineGonum uses the BLAS dot product for normalized inputs.
func cosineGonum(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	return 1.0 - float64(gonumEngine.Sdot(len(a), a, 1, b, 1)), nil
}

// SquaredL2F16 computes squared Euclidean distance between a float32 query
// and a float16-packed stored vector, widening lanes on the fly so the half
// precision store never materializes a float32 copy.
func SquaredL2F16(q []float32, v []uint16) (float64, error) {
	if len(q) != len(v) {
		return 0, ErrLengthMismatch
	}
	var sum float32
	for i := range q {
		d := q[i] - float16.Frombits(v[i]).Float32()
		sum += d * d
	}
	return float64(sum), nil
}

// Normalize scales v to unit L2 norm in place. Zero vectors are left as-is.
func Normalize(v []float32) {
	var normSq float32
	for _, x := range v {
		normSq += x * x
	}
	if normSq > 0 {
		inv := 1.0 / float32(math.Sqrt(float64(normSq)))
		for i := range v {
			v[i] *= inv
		}
	}
}
