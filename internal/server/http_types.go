package server

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	QueryVector []float32 `json:"query_vector"`
	K           int       `json:"k"`
	// EfSearch optionally overrides the configured query-time candidate
	// width for this request.
	EfSearch int `json:"ef_search,omitempty"`
}

// SearchResponse carries the ranked neighbors, ascending by distance.
// Indices and Distances always have the same length, at most k.
type SearchResponse struct {
	Indices   []uint32  `json:"indices"`
	Distances []float64 `json:"distances"`
}

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Service        string `json:"service"`
	Status         string `json:"status"`
	VectorsIndexed int    `json:"vectors_indexed"`
}

// errorResponse is the uniform JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
