package types

// Candidate is the internal HNSW result unit: an internal id paired with its
// distance to the query.
type Candidate struct {
	ID       uint32
	Distance float64
}

// IndexInfo models the read-only status of a loaded index for the API.
type IndexInfo struct {
	VectorCount    int    `json:"total_vectors"`
	Dimension      int    `json:"dimension"`
	IndexType      string `json:"index_type"`
	M              int    `json:"hnsw_m"`
	EfConstruction int    `json:"hnsw_ef_construction"`
	EfSearch       int    `json:"hnsw_ef_search"`
	MaxLevel       int    `json:"hnsw_max_level"`
	Precision      string `json:"precision"`
}
