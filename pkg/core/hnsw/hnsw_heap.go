package hnsw

import "github.com/vectorwise/vectorwise/pkg/core/types"

// candidateHeap is a binary heap of candidates with value semantics, used as
// both the search frontier (min ordering: nearest on top) and the result set
// (max ordering: farthest on top, ready to be evicted). Value storage avoids
// the per-candidate allocations of a pointer heap in the search hot loop.
type candidateHeap struct {
	items []types.Candidate
	max   bool
}

// newMinHeap returns a frontier heap: Peek/Pop yield the nearest candidate.
func newMinHeap(capacity int) *candidateHeap {
	return &candidateHeap{items: make([]types.Candidate, 0, capacity)}
}

// newMaxHeap returns a result heap: Peek/Pop yield the farthest candidate.
func newMaxHeap(capacity int) *candidateHeap {
	return &candidateHeap{items: make([]types.Candidate, 0, capacity), max: true}
}

func (h *candidateHeap) Len() int { return len(h.items) }

// Peek returns the highest-priority candidate without removing it.
// Callers must check Len first.
func (h *candidateHeap) Peek() types.Candidate { return h.items[0] }

func (h *candidateHeap) Push(c types.Candidate) {
	h.items = append(h.items, c)
	h.siftUp(len(h.items) - 1)
}

func (h *candidateHeap) Pop() types.Candidate {
	top := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]
	if last > 0 {
		h.siftDown(0)
	}
	return top
}

// before reports whether a has higher priority than b under this heap's order.
func (h *candidateHeap) before(a, b types.Candidate) bool {
	if h.max {
		return a.Distance > b.Distance
	}
	return a.Distance < b.Distance
}

func (h *candidateHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.before(h.items[i], h.items[parent]) {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *candidateHeap) siftDown(i int) {
	n := len(h.items)
	for {
		best := i
		if l := 2*i + 1; l < n && h.before(h.items[l], h.items[best]) {
			best = l
		}
		if r := 2*i + 2; r < n && h.before(h.items[r], h.items[best]) {
			best = r
		}
		if best == i {
			return
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}
