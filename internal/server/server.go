package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vectorwise/vectorwise/pkg/core/hnsw"
	"github.com/vectorwise/vectorwise/pkg/core/vecerr"
	"github.com/vectorwise/vectorwise/pkg/metrics"
)

// Server exposes k-NN search over a loaded index. The current index sits
// behind an atomic pointer: loading an artifact swaps the pointer in one
// step, so in-flight searches keep their snapshot and no request ever sees a
// half-loaded index. A failed load leaves the previous index serving.
type Server struct {
	cfg Config

	current atomic.Pointer[hnsw.Index]

	// reloadMu serializes load attempts; it is never taken on the query path.
	reloadMu sync.Mutex

	httpServer *http.Server
}

// NewServer builds the server and its handler chain. It does not load the
// index; call LoadIndex before or after Run, searches return 503 until a
// load succeeds.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Recovery must be outermost to catch panics from everything below.
	var handler http.Handler = mux
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("/", handler)

	s.httpServer = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: rootMux,
	}
	return s, nil
}

// LoadIndex reads the configured artifact and swaps it in. On failure the
// previously loaded index (if any) keeps serving.
func (s *Server) LoadIndex() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	f, err := os.Open(s.cfg.IndexPath)
	if err != nil {
		metrics.IndexLoadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("open artifact %s: %w", s.cfg.IndexPath, err)
	}
	defer f.Close()

	idx, err := hnsw.ReadSnapshot(f, s.cfg.Dimension)
	if err != nil {
		metrics.IndexLoadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load artifact %s: %w", s.cfg.IndexPath, err)
	}

	s.current.Store(idx)
	metrics.IndexLoadsTotal.WithLabelValues("ok").Inc()
	metrics.VectorsTotal.Set(float64(idx.Count()))

	slog.Info("index loaded",
		"path", s.cfg.IndexPath,
		"vectors", idx.Count(),
		"dimension", idx.Dim(),
		"duration", time.Since(start).String(),
	)
	return nil
}

// index returns the currently served index, or ErrIndexUnavailable when no
// load has succeeded yet.
func (s *Server) index() (*hnsw.Index, error) {
	idx := s.current.Load()
	if idx == nil {
		return nil, vecerr.ErrIndexUnavailable
	}
	return idx, nil
}

// Run starts the HTTP listener and blocks until shutdown.
func (s *Server) Run() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown() {
	slog.Info("starting graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
}
