package hnsw

// BitSet is the visited-node marker used during layer searches. It is plain
// per-call working storage: instances are pooled and cleared between uses,
// never shared across concurrent searches.
type BitSet struct {
	buckets []uint64
}

// NewBitSet creates a set sized for ids up to initialCapacity.
func NewBitSet(initialCapacity uint32) *BitSet {
	return &BitSet{buckets: make([]uint64, (initialCapacity>>6)+1)}
}

func (bs *BitSet) grow(n uint32) {
	needed := (n >> 6) + 1
	if uint32(len(bs.buckets)) < needed {
		buckets := make([]uint64, needed)
		copy(buckets, bs.buckets)
		bs.buckets = buckets
	}
}

// Add marks id n as visited, growing the set if required.
func (bs *BitSet) Add(n uint32) {
	bucket := n >> 6
	if bucket >= uint32(len(bs.buckets)) {
		bs.grow(n)
	}
	bs.buckets[bucket] |= 1 << (n & 63)
}

// Has reports whether id n has been visited.
func (bs *BitSet) Has(n uint32) bool {
	bucket := n >> 6
	if bucket >= uint32(len(bs.buckets)) {
		return false
	}
	return bs.buckets[bucket]&(1<<(n&63)) != 0
}

// Clear resets the set for reuse, keeping the allocated capacity.
func (bs *BitSet) Clear() {
	for i := range bs.buckets {
		bs.buckets[i] = 0
	}
}

// EnsureCapacity pre-grows the set so the search loop never reallocates.
func (bs *BitSet) EnsureCapacity(maxID uint32) {
	bs.grow(maxID)
}
