package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/vectorwise/vectorwise/pkg/core/distance"
	"github.com/vectorwise/vectorwise/pkg/core/vecerr"
	"github.com/vectorwise/vectorwise/pkg/metrics"
)

func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /admin/reload", s.handleReload)

	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
}

// statusFor maps the core error taxonomy to HTTP status codes: client
// mistakes are 400, a missing index is 503, everything else is 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vecerr.ErrDimensionMismatch),
		errors.Is(err, vecerr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, vecerr.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count := 0
	if idx := s.current.Load(); idx != nil {
		count = idx.Count()
	}
	s.writeHTTPResponse(w, http.StatusOK, HealthResponse{
		Service:        "vectorwise",
		Status:         "healthy",
		VectorsIndexed: count,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.K <= 0 || req.K > s.cfg.KCap {
		s.writeHTTPError(w, http.StatusBadRequest,
			fmt.Sprintf("k must be between 1 and %d, got %d", s.cfg.KCap, req.K))
		return
	}

	idx, err := s.index()
	if err != nil {
		s.writeHTTPError(w, statusFor(err), "index not loaded")
		return
	}

	if len(req.QueryVector) != idx.Dim() {
		s.writeHTTPError(w, http.StatusBadRequest,
			fmt.Sprintf("query vector must have dimension %d, got %d", idx.Dim(), len(req.QueryVector)))
		return
	}

	// Normalize a copy of the query the same way build-time vectors were
	// normalized; the caller's slice is left untouched.
	query := make([]float32, len(req.QueryVector))
	copy(query, req.QueryVector)
	distance.Normalize(query)

	efSearch := req.EfSearch
	if efSearch <= 0 {
		efSearch = s.cfg.EfSearch
	}

	results, err := idx.Search(query, req.K, efSearch)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		s.writeHTTPError(w, statusFor(err), fmt.Sprintf("search failed: %v", err))
		return
	}
	metrics.SearchesTotal.WithLabelValues("ok").Inc()

	resp := SearchResponse{
		Indices:   make([]uint32, len(results)),
		Distances: make([]float64, len(results)),
	}
	for i, c := range results {
		resp.Indices[i] = c.ID
		resp.Distances[i] = c.Distance
	}
	s.writeHTTPResponse(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	idx, err := s.index()
	if err != nil {
		s.writeHTTPError(w, statusFor(err), "index not loaded")
		return
	}
	info := idx.Info()
	info.EfSearch = s.cfg.EfSearch
	s.writeHTTPResponse(w, http.StatusOK, info)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.LoadIndex(); err != nil {
		// The previous index, if any, keeps serving.
		s.writeHTTPError(w, http.StatusInternalServerError, fmt.Sprintf("reload failed: %v", err))
		return
	}
	idx := s.current.Load()
	s.writeHTTPResponse(w, http.StatusOK, map[string]any{
		"status":          "reloaded",
		"vectors_indexed": idx.Count(),
	})
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
