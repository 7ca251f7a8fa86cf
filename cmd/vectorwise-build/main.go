// Command vectorwise-build generates a synthetic dataset, builds an HNSW
// index over it, and writes the serialized artifact the server loads.
package main

import (
	"flag"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/vectorwise/vectorwise/pkg/core/hnsw"
	"github.com/vectorwise/vectorwise/pkg/core/store"
	"github.com/vectorwise/vectorwise/pkg/datagen"
)

func main() {
	n := flag.Int("n", 1_000_000, "Number of synthetic vectors to generate")
	dim := flag.Int("dim", 128, "Vector dimension")
	m := flag.Int("m", 32, "HNSW M parameter (connections per node per layer)")
	efConstruction := flag.Int("ef-construction", 200, "Construction-time candidate list width")
	seed := flag.Int64("seed", 42, "Dataset and level-assignment seed")
	out := flag.String("out", "index.vwx", "Output artifact path")
	precision := flag.String("precision", "float32", "Vector storage precision (float32 or float16)")
	workers := flag.Int("workers", runtime.NumCPU(), "Parallel build workers")
	batchSize := flag.Int("batch-size", 10_000, "Vectors per insertion batch")
	flag.Parse()

	log.Printf("generating %d vectors of dimension %d (seed %d)", *n, *dim, *seed)
	vectors := datagen.Gaussian(*n, *dim, *seed)

	st, err := store.New(*dim, store.Precision(*precision))
	if err != nil {
		log.Fatalf("failed to create store: %v", err)
	}
	idx, err := hnsw.New(st, hnsw.Config{M: *m, EfConstruction: *efConstruction, Seed: *seed})
	if err != nil {
		log.Fatalf("failed to create index: %v", err)
	}

	log.Printf("building index: m=%d ef_construction=%d workers=%d", *m, *efConstruction, *workers)
	start := time.Now()
	for off := 0; off < len(vectors); off += *batchSize {
		end := off + *batchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		if err := idx.InsertBatch(vectors[off:end], *workers); err != nil {
			log.Fatalf("batch insert failed at offset %d: %v", off, err)
		}
		log.Printf("indexed %d/%d vectors", end, len(vectors))
	}
	log.Printf("index built in %s (%d vectors, top layer %d)",
		time.Since(start).Round(time.Millisecond), idx.Count(), idx.MaxLevel())

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("failed to create artifact: %v", err)
	}
	if err := idx.WriteSnapshot(f); err != nil {
		f.Close()
		log.Fatalf("failed to write artifact: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("failed to close artifact: %v", err)
	}

	fi, err := os.Stat(*out)
	if err == nil {
		log.Printf("artifact written to %s (%.2f MB)", *out, float64(fi.Size())/1024/1024)
	}
}
