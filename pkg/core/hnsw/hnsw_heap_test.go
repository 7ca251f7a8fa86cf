package hnsw

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/vectorwise/vectorwise/pkg/core/types"
)

func TestMinHeapOrder(t *testing.T) {
	h := newMinHeap(16)
	rng := rand.New(rand.NewSource(1))
	dists := make([]float64, 100)
	for i := range dists {
		dists[i] = rng.Float64()
		h.Push(types.Candidate{ID: uint32(i), Distance: dists[i]})
	}
	sort.Float64s(dists)

	for i, want := range dists {
		if h.Len() == 0 {
			t.Fatalf("heap exhausted after %d pops, want 100", i)
		}
		if got := h.Pop().Distance; got != want {
			t.Fatalf("pop %d: distance %v, want %v", i, got, want)
		}
	}
}

func TestMaxHeapOrder(t *testing.T) {
	h := newMaxHeap(16)
	for _, d := range []float64{0.5, 0.1, 0.9, 0.3} {
		h.Push(types.Candidate{Distance: d})
	}
	if got := h.Peek().Distance; got != 0.9 {
		t.Errorf("Peek = %v, want 0.9 (farthest on top)", got)
	}
	want := []float64{0.9, 0.5, 0.3, 0.1}
	for i, w := range want {
		if got := h.Pop().Distance; got != w {
			t.Errorf("pop %d: %v, want %v", i, got, w)
		}
	}
	if h.Len() != 0 {
		t.Errorf("Len after draining = %d, want 0", h.Len())
	}
}

// The result-set idiom: push, then evict the farthest when over capacity.
// The heap must end up holding exactly the ef nearest.
func TestMaxHeapBoundedEviction(t *testing.T) {
	const ef = 10
	h := newMaxHeap(ef + 1)
	rng := rand.New(rand.NewSource(2))

	all := make([]float64, 200)
	for i := range all {
		all[i] = rng.Float64()
		h.Push(types.Candidate{ID: uint32(i), Distance: all[i]})
		if h.Len() > ef {
			h.Pop()
		}
	}
	sort.Float64s(all)

	kept := make([]float64, 0, ef)
	for h.Len() > 0 {
		kept = append(kept, h.Pop().Distance)
	}
	sort.Float64s(kept)
	for i := 0; i < ef; i++ {
		if kept[i] != all[i] {
			t.Fatalf("kept[%d] = %v, want %v (the %d nearest should survive eviction)", i, kept[i], all[i], ef)
		}
	}
}
