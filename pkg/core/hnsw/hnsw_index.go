package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vectorwise/vectorwise/pkg/core/store"
	"github.com/vectorwise/vectorwise/pkg/core/types"
	"github.com/vectorwise/vectorwise/pkg/core/vecerr"
)

// Config holds the build-time parameters of an index.
type Config struct {
	// M is the maximum number of connections per node per layer (> 1).
	// Layer 0 is capped at 2M.
	M int
	// EfConstruction is the candidate list width during insertion (> 0).
	EfConstruction int
	// Seed seeds the level-assignment draw. Zero selects a time-based seed;
	// fixed seeds make construction reproducible.
	Seed int64
}

// Index is the multi-layer proximity graph. Writes (Insert, InsertBatch) take
// the write lock; Search only reads, so once building completes any number of
// searches may run concurrently. Per-search working state (visited set,
// candidate heaps) is private to the call.
type Index struct {
	mu sync.RWMutex

	store *store.Store

	m              int
	mMax0          int
	efConstruction int

	// ml is the level normalization factor 1/ln(M).
	ml float64

	rng *rand.Rand

	// entrypoint marks the node in the topmost layer; every traversal
	// starts there.
	entrypoint uint32
	// maxLevel is the current top layer, -1 while the graph is empty.
	maxLevel int

	nodes []*Node

	visitedPool sync.Pool
}

// New creates an empty index over the given store.
func New(st *store.Store, cfg Config) (*Index, error) {
	if cfg.M < 2 {
		return nil, fmt.Errorf("m must be at least 2, got %d: %w", cfg.M, vecerr.ErrInvalidArgument)
	}
	if cfg.EfConstruction <= 0 {
		return nil, fmt.Errorf("ef_construction must be positive, got %d: %w", cfg.EfConstruction, vecerr.ErrInvalidArgument)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	h := &Index{
		store:          st,
		m:              cfg.M,
		mMax0:          cfg.M * 2,
		efConstruction: cfg.EfConstruction,
		ml:             1.0 / math.Log(float64(cfg.M)),
		rng:            rand.New(rand.NewSource(seed)),
		maxLevel:       -1,
	}
	h.visitedPool = sync.Pool{
		New: func() any { return NewBitSet(1024) },
	}
	return h, nil
}

// randomLevel draws the layer assignment for a new node:
// floor(-ln(U) * ml), an exponentially decaying distribution.
func (h *Index) randomLevel() int {
	u := h.rng.Float64()
	for u == 0 {
		u = h.rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * h.ml))
}

// Insert adds one vector to the store and links it into the graph. The vector
// is validated before any mutation, so a failed Insert leaves both the store
// and the graph untouched. Callers are expected to pass unit-normalized
// vectors, consistently with queries.
func (h *Index) Insert(vec []float32) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.insertLocked(vec)
}

func (h *Index) insertLocked(vec []float32) (uint32, error) {
	if len(vec) != h.store.Dim() {
		return 0, &vecerr.DimensionError{Want: h.store.Dim(), Got: len(vec)}
	}

	id, err := h.store.Add(vec)
	if err != nil {
		return 0, err
	}

	level := h.randomLevel()
	node := &Node{Level: level, Connections: make([][]uint32, level+1)}
	h.nodes = append(h.nodes, node)

	// First node becomes the entry point at its drawn level.
	if h.maxLevel == -1 {
		h.entrypoint = id
		h.maxLevel = level
		return id, nil
	}

	ep := h.entrypoint

	// Greedy single-path descent through the layers above the node's level.
	for l := h.maxLevel; l > level; l-- {
		nearest, err := h.searchLayer(vec, ep, 1, l, nil)
		if err != nil {
			return 0, err
		}
		if len(nearest) > 0 {
			ep = nearest[0].ID
		}
	}

	for l := minInt(level, h.maxLevel); l >= 0; l-- {
		candidates, err := h.searchLayer(vec, ep, h.efConstruction, l, nil)
		if err != nil {
			return 0, err
		}
		if err := h.linkNode(id, l, candidates); err != nil {
			return 0, err
		}
		if len(candidates) > 0 {
			ep = candidates[0].ID
		}
	}

	if level > h.maxLevel {
		h.maxLevel = level
		h.entrypoint = id
	}
	return id, nil
}

// linkNode selects the node's neighbors at one layer, adds the bidirectional
// edges, and prunes any neighbor whose list went over the cap.
func (h *Index) linkNode(id uint32, level int, candidates []types.Candidate) error {
	maxConns := h.m
	if level == 0 {
		maxConns = h.mMax0
	}

	selected, err := h.selectNeighbors(candidates, maxConns)
	if err != nil {
		return err
	}

	node := h.nodes[id]
	node.Connections[level] = make([]uint32, len(selected))
	for i, c := range selected {
		node.Connections[level][i] = c.ID
	}

	for _, c := range selected {
		neighbor := h.nodes[c.ID]
		if level > neighbor.Level {
			continue
		}
		neighbor.Connections[level] = append(neighbor.Connections[level], id)
		if len(neighbor.Connections[level]) > maxConns {
			if err := h.pruneNeighbors(c.ID, level, maxConns); err != nil {
				return err
			}
		}
	}
	return nil
}

// pruneNeighbors re-runs the selection heuristic over a node's current
// neighbor list to bring it back under the cap. Keeping the same heuristic
// here (rather than dropping the single farthest edge) preserves the edge
// diversity that graph navigability depends on.
func (h *Index) pruneNeighbors(id uint32, level, maxConns int) error {
	node := h.nodes[id]
	conns := node.Connections[level]

	candidates := make([]types.Candidate, 0, len(conns))
	for _, nb := range conns {
		d, err := h.store.DistanceBetween(id, nb)
		if err != nil {
			return err
		}
		candidates = append(candidates, types.Candidate{ID: nb, Distance: d})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	selected, err := h.selectNeighbors(candidates, maxConns)
	if err != nil {
		return err
	}
	pruned := make([]uint32, len(selected))
	for i, c := range selected {
		pruned[i] = c.ID
	}
	node.Connections[level] = pruned
	return nil
}

// selectNeighbors applies the diversity heuristic from the HNSW paper to an
// ascending candidate list: take the closest remaining candidate, accept it
// unless it sits closer to an already accepted neighbor than to the query.
// If the heuristic leaves fewer than m neighbors, the best discarded
// candidates fill the remaining slots so nodes never end up weakly connected.
func (h *Index) selectNeighbors(candidates []types.Candidate, m int) ([]types.Candidate, error) {
	if len(candidates) <= m {
		return candidates, nil
	}

	results := make([]types.Candidate, 0, m)
	discarded := make([]types.Candidate, 0, len(candidates)-m)

	for _, e := range candidates {
		if len(results) == m {
			break
		}
		if len(results) == 0 {
			results = append(results, e)
			continue
		}

		good := true
		for _, r := range results {
			d, err := h.store.DistanceBetween(e.ID, r.ID)
			if err != nil {
				return nil, err
			}
			if d < e.Distance {
				good = false
				break
			}
		}
		if good {
			results = append(results, e)
		} else {
			discarded = append(discarded, e)
		}
	}

	for _, c := range discarded {
		if len(results) == m {
			break
		}
		results = append(results, c)
	}
	return results, nil
}

// Search returns the k nearest stored ids to query, ascending by distance.
// efSearch widens the layer-0 candidate list; values below k are raised to k.
// The call is read-only and safe to run concurrently with other searches.
func (h *Index) Search(query []float32, k, efSearch int) ([]types.Candidate, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, vecerr.ErrInvalidArgument)
	}
	if len(query) != h.store.Dim() {
		return nil, &vecerr.DimensionError{Want: h.store.Dim(), Got: len(query)}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.maxLevel == -1 {
		return []types.Candidate{}, nil
	}

	ef := efSearch
	if ef < k {
		ef = k
	}

	ep := h.entrypoint
	for l := h.maxLevel; l > 0; l-- {
		nearest, err := h.searchLayer(query, ep, 1, l, nil)
		if err != nil {
			return nil, err
		}
		if len(nearest) > 0 {
			ep = nearest[0].ID
		}
	}

	results, err := h.searchLayer(query, ep, ef, 0, nil)
	if err != nil {
		return nil, err
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// searchLayer runs the bounded beam search on one layer: a min-heap frontier
// of unexpanded candidates, a max-heap of the ef best results, and a visited
// bitset. Expansion stops once the nearest frontier entry is no better than
// the worst kept result. Results come back ascending by distance.
//
// scratch may be nil; InsertBatch workers pass their own visited sets so the
// pool is not contended across goroutines.
func (h *Index) searchLayer(query []float32, entrypoint uint32, ef, level int, scratch *BitSet) ([]types.Candidate, error) {
	visited := scratch
	if visited == nil {
		visited = h.visitedPool.Get().(*BitSet)
		defer func() {
			visited.Clear()
			h.visitedPool.Put(visited)
		}()
	}
	visited.EnsureCapacity(uint32(len(h.nodes)))

	candidates := newMinHeap(ef + 1)
	results := newMaxHeap(ef + 1)

	dist, err := h.store.DistanceTo(query, entrypoint)
	if err != nil {
		return nil, err
	}
	ep := types.Candidate{ID: entrypoint, Distance: dist}
	candidates.Push(ep)
	results.Push(ep)
	visited.Add(entrypoint)

	for candidates.Len() > 0 {
		current := candidates.Pop()

		// Early termination: nothing reachable through this candidate can
		// beat the worst result we are already keeping.
		if results.Len() >= ef && current.Distance > results.Peek().Distance {
			break
		}

		node := h.nodes[current.ID]
		if level >= len(node.Connections) {
			continue
		}

		for _, neighborID := range node.Connections[level] {
			if visited.Has(neighborID) {
				continue
			}
			visited.Add(neighborID)

			d, err := h.store.DistanceTo(query, neighborID)
			if err != nil {
				return nil, err
			}

			if results.Len() < ef || d < results.Peek().Distance {
				c := types.Candidate{ID: neighborID, Distance: d}
				candidates.Push(c)
				results.Push(c)
				if results.Len() > ef {
					results.Pop()
				}
			}
		}
	}

	// The max-heap pops farthest first; fill the slice back to front to get
	// ascending order.
	out := make([]types.Candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = results.Pop()
	}
	return out, nil
}

// linkRequest carries the neighbor candidates a batch worker found for one
// node at one layer, to be committed under the write lock.
type linkRequest struct {
	id         uint32
	level      int
	candidates []types.Candidate
}

// InsertBatch inserts vectors in bulk. Ids and levels are assigned up front
// under the write lock, neighbor discovery fans out across workers against
// the frozen graph, and the links are committed sequentially. Throughput is
// the goal here; single-insert latency is Insert's job.
func (h *Index) InsertBatch(vecs [][]float32, workers int) error {
	if len(vecs) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	dim := h.store.Dim()
	for _, v := range vecs {
		if len(v) != dim {
			return &vecerr.DimensionError{Want: dim, Got: len(v)}
		}
	}

	// A small graph links poorly in parallel: the workers would all see an
	// almost-empty structure. Fall back to sequential inserts until the
	// graph is at least efConstruction nodes deep.
	h.mu.Lock()
	if h.store.Count() < h.efConstruction {
		defer h.mu.Unlock()
		for _, v := range vecs {
			if _, err := h.insertLocked(v); err != nil {
				return err
			}
		}
		return nil
	}

	startID := uint32(h.store.Count())
	for _, v := range vecs {
		if _, err := h.store.Add(v); err != nil {
			h.mu.Unlock()
			return err
		}
		level := h.randomLevel()
		h.nodes = append(h.nodes, &Node{Level: level, Connections: make([][]uint32, level+1)})
	}
	h.mu.Unlock()

	// Phase 2: discover neighbors against the pre-batch graph.
	requests := make([][]linkRequest, len(vecs))

	h.mu.RLock()
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i := range vecs {
		g.Go(func() error {
			scratch := NewBitSet(uint32(len(h.nodes)))
			id := startID + uint32(i)
			level := h.nodes[id].Level

			ep := h.entrypoint
			for l := h.maxLevel; l > level; l-- {
				nearest, err := h.searchLayer(vecs[i], ep, 1, l, scratch)
				scratch.Clear()
				if err != nil {
					return err
				}
				if len(nearest) > 0 {
					ep = nearest[0].ID
				}
			}

			for l := minInt(level, h.maxLevel); l >= 0; l-- {
				candidates, err := h.searchLayer(vecs[i], ep, h.efConstruction, l, scratch)
				scratch.Clear()
				if err != nil {
					return err
				}
				requests[i] = append(requests[i], linkRequest{id: id, level: l, candidates: candidates})
				if len(candidates) > 0 {
					ep = candidates[0].ID
				}
			}
			return nil
		})
	}
	err := g.Wait()
	h.mu.RUnlock()
	if err != nil {
		return err
	}

	// Phase 3: commit links and promote the entry point.
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range requests {
		for _, req := range requests[i] {
			if err := h.linkNode(req.id, req.level, req.candidates); err != nil {
				return err
			}
		}
		id := startID + uint32(i)
		if level := h.nodes[id].Level; level > h.maxLevel {
			h.maxLevel = level
			h.entrypoint = id
		}
	}
	return nil
}

// Count returns the number of indexed vectors.
func (h *Index) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.store.Count()
}

// Dim returns the fixed vector dimension.
func (h *Index) Dim() int { return h.store.Dim() }

// M returns the per-layer connection cap.
func (h *Index) M() int { return h.m }

// EfConstruction returns the construction-time candidate list width.
func (h *Index) EfConstruction() int { return h.efConstruction }

// MaxLevel returns the current top layer, -1 for an empty graph.
func (h *Index) MaxLevel() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.maxLevel
}

// Store exposes the backing vector store.
func (h *Index) Store() *store.Store { return h.store }

// Info returns the read-only status of the index.
func (h *Index) Info() types.IndexInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return types.IndexInfo{
		VectorCount:    h.store.Count(),
		Dimension:      h.store.Dim(),
		IndexType:      "hnsw",
		M:              h.m,
		EfConstruction: h.efConstruction,
		MaxLevel:       h.maxLevel,
		Precision:      string(h.store.Precision()),
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
