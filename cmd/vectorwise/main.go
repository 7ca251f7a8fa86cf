// Command vectorwise runs the ANN search service: it loads a prebuilt index
// artifact and serves k-NN queries over HTTP.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vectorwise/vectorwise/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to an optional YAML config file")
	httpAddr := flag.String("http-addr", "", "Listen address for the REST API (overrides config)")
	indexPath := flag.String("index", "", "Path to the index artifact (overrides config)")
	efSearch := flag.Int("ef-search", 0, "Default query-time candidate list width (overrides config)")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *indexPath != "" {
		cfg.IndexPath = *indexPath
	}
	if *efSearch > 0 {
		cfg.EfSearch = *efSearch
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	// A missing or corrupt artifact is not fatal: the service comes up in
	// the unavailable state and /admin/reload can recover it later.
	if err := srv.LoadIndex(); err != nil {
		slog.Error("index load failed, serving 503 until reload succeeds", "error", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(); err != nil {
			log.Fatal(err)
		}
	}()

	<-shutdownChan
	srv.Shutdown()
}
