// Package store owns the raw vector data backing an index. Vectors live in a
// single contiguous block keyed by a dense uint32 id assigned in insertion
// order; ids are never reused or removed.
package store

import (
	"github.com/vectorwise/vectorwise/pkg/core/distance"
	"github.com/vectorwise/vectorwise/pkg/core/vecerr"
	"github.com/x448/float16"
)

// Precision selects the in-memory representation of stored vectors.
type Precision string

const (
	// Float32 stores vectors as-is.
	Float32 Precision = "float32"
	// Float16 packs vectors into half precision, halving resident memory at
	// a small accuracy cost. Vectors are widened lane-by-lane inside the
	// distance kernel, never materialized as float32 copies.
	Float16 Precision = "float16"
)

// Store is the append-only vector container. It is not safe for concurrent
// writes; once building completes it is read-only and safe to share.
type Store struct {
	dim       int
	precision Precision

	f32 []float32 // contiguous, len = count*dim (Float32 only)
	f16 []uint16  // contiguous, len = count*dim (Float16 only)

	count  int
	distFn distance.Func
}

// New creates an empty store with a fixed dimension.
func New(dim int, precision Precision) (*Store, error) {
	if dim <= 0 {
		return nil, vecerr.ErrInvalidArgument
	}
	switch precision {
	case Float32, Float16:
	case "":
		precision = Float32
	default:
		return nil, vecerr.ErrInvalidArgument
	}

	distFn, err := distance.For(distance.SquaredL2)
	if err != nil {
		return nil, err
	}

	return &Store{
		dim:       dim,
		precision: precision,
		distFn:    distFn,
	}, nil
}

// Add appends a vector and returns its id. The vector is copied; the check
// happens before any mutation, so a failed Add leaves the store untouched.
func (s *Store) Add(vec []float32) (uint32, error) {
	if len(vec) != s.dim {
		return 0, &vecerr.DimensionError{Want: s.dim, Got: len(vec)}
	}

	id := uint32(s.count)
	switch s.precision {
	case Float16:
		for _, x := range vec {
			s.f16 = append(s.f16, float16.Fromfloat32(x).Bits())
		}
	default:
		s.f32 = append(s.f32, vec...)
	}
	s.count++
	return id, nil
}

// Vector returns the vector for id, widened to float32 if needed. For the
// Float32 precision the returned slice aliases the backing block and must be
// treated as read-only.
func (s *Store) Vector(id uint32) ([]float32, error) {
	if int(id) >= s.count {
		return nil, vecerr.ErrNotFound
	}
	off := int(id) * s.dim
	if s.precision == Float16 {
		out := make([]float32, s.dim)
		for i, bits := range s.f16[off : off+s.dim] {
			out[i] = float16.Frombits(bits).Float32()
		}
		return out, nil
	}
	return s.f32[off : off+s.dim : off+s.dim], nil
}

// DistanceTo computes the distance between a query vector and a stored id.
func (s *Store) DistanceTo(query []float32, id uint32) (float64, error) {
	if len(query) != s.dim {
		return 0, &vecerr.DimensionError{Want: s.dim, Got: len(query)}
	}
	if int(id) >= s.count {
		return 0, vecerr.ErrNotFound
	}
	off := int(id) * s.dim
	if s.precision == Float16 {
		return distance.SquaredL2F16(query, s.f16[off:off+s.dim])
	}
	return s.distFn(query, s.f32[off:off+s.dim])
}

// DistanceBetween computes the distance between two stored ids.
func (s *Store) DistanceBetween(a, b uint32) (float64, error) {
	if int(a) >= s.count || int(b) >= s.count {
		return 0, vecerr.ErrNotFound
	}
	if s.precision == Float16 {
		va, err := s.Vector(a)
		if err != nil {
			return 0, err
		}
		offB := int(b) * s.dim
		return distance.SquaredL2F16(va, s.f16[offB:offB+s.dim])
	}
	offA := int(a) * s.dim
	offB := int(b) * s.dim
	return s.distFn(s.f32[offA:offA+s.dim], s.f32[offB:offB+s.dim])
}

// Count returns the number of stored vectors.
func (s *Store) Count() int { return s.count }

// Dim returns the fixed vector dimension.
func (s *Store) Dim() int { return s.dim }

// Precision returns the storage precision.
func (s *Store) Precision() Precision { return s.precision }

// SnapshotData is the gob-friendly serialized form of a store.
type SnapshotData struct {
	Dim       int
	Precision string
	Count     int
	F32       []float32
	F16       []uint16
}

// Snapshot exports the store state for persistence.
func (s *Store) Snapshot() *SnapshotData {
	return &SnapshotData{
		Dim:       s.dim,
		Precision: string(s.precision),
		Count:     s.count,
		F32:       s.f32,
		F16:       s.f16,
	}
}

// FromSnapshot reconstructs a store, validating the vector block length
// against the recorded count and dimension.
func FromSnapshot(d *SnapshotData) (*Store, error) {
	st, err := New(d.Dim, Precision(d.Precision))
	if err != nil {
		return nil, vecerr.ErrCorruptArtifact
	}
	want := d.Count * d.Dim
	switch st.precision {
	case Float16:
		if len(d.F16) != want {
			return nil, vecerr.ErrCorruptArtifact
		}
		st.f16 = d.F16
	default:
		if len(d.F32) != want {
			return nil, vecerr.ErrCorruptArtifact
		}
		st.f32 = d.F32
	}
	st.count = d.Count
	return st, nil
}
