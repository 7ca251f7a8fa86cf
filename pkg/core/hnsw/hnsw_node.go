// Package hnsw implements the Hierarchical Navigable Small World graph used
// for approximate nearest neighbor search.
//
// The graph only stores topology: per-node levels and adjacency lists. The
// vectors themselves are owned by a store.Store, which the index references
// by dense uint32 ids.
package hnsw

// Node is one graph node per stored vector id.
type Node struct {
	// Level is the highest layer this node participates in. A node present
	// at layer l is present at every layer below it.
	Level int
	// Connections holds the neighbor ids per layer; Connections[0] is the
	// base layer. List sizes are capped at M per layer, 2M at layer 0.
	Connections [][]uint32
}
