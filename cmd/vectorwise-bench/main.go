// Command vectorwise-bench measures serving latency and Recall@k of a
// running VectorWise instance. It regenerates the synthetic dataset the
// server was built from, derives perturbed queries, computes an exact
// brute-force ground truth in-process, and drives the HTTP API under a
// configurable request rate.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vectorwise/vectorwise/pkg/client"
	"github.com/vectorwise/vectorwise/pkg/datagen"
)

func main() {
	url := flag.String("url", "http://localhost:8000", "Base URL of the VectorWise server")
	n := flag.Int("n", 1_000_000, "Size of the dataset the server was built from")
	dim := flag.Int("dim", 128, "Vector dimension")
	seed := flag.Int64("seed", 42, "Dataset seed (must match the build)")
	numQueries := flag.Int("queries", 1000, "Number of benchmark queries")
	querySeed := flag.Int64("query-seed", 123, "Query derivation seed")
	noise := flag.Float64("noise", 0.1, "Gaussian noise sigma applied to sampled queries")
	k := flag.Int("k", 10, "Neighbors to retrieve per query")
	qps := flag.Float64("qps", 0, "Request rate limit (0 = unlimited)")
	workers := flag.Int("workers", 8, "Concurrent benchmark workers")
	recallQueries := flag.Int("recall-queries", 100, "Queries used for the brute-force recall baseline")
	flag.Parse()

	cl := client.New(*url)

	health, err := cl.Health()
	if err != nil {
		log.Fatalf("cannot reach server at %s: %v", *url, err)
	}
	log.Printf("server healthy: %d vectors indexed", health.VectorsIndexed)

	log.Printf("regenerating dataset: n=%d dim=%d seed=%d", *n, *dim, *seed)
	vectors := datagen.Gaussian(*n, *dim, *seed)
	queries := datagen.Queries(vectors, *numQueries, *noise, *querySeed)

	// Latency envelope over the full query set.
	log.Printf("benchmarking latency: %d queries, %d workers, qps=%v", *numQueries, *workers, *qps)
	latencies, err := runLatency(cl, queries, *k, *workers, *qps)
	if err != nil {
		log.Fatalf("latency benchmark failed: %v", err)
	}
	report(latencies)

	// Recall against an exact baseline on a query subset.
	rq := *recallQueries
	if rq > len(queries) {
		rq = len(queries)
	}
	log.Printf("computing brute-force ground truth for %d queries", rq)
	truth := bruteForce(vectors, queries[:rq], *k)

	var hits, total int
	for i, q := range queries[:rq] {
		res, err := cl.Search(q, *k, 0)
		if err != nil {
			log.Fatalf("recall query %d failed: %v", i, err)
		}
		exact := make(map[uint32]struct{}, *k)
		for _, id := range truth[i] {
			exact[id] = struct{}{}
		}
		for _, id := range res.Indices {
			if _, ok := exact[id]; ok {
				hits++
			}
		}
		total += len(truth[i])
	}
	log.Printf("Recall@%d: %.4f (%d/%d)", *k, float64(hits)/float64(total), hits, total)
}

// runLatency fires all queries through rate-limited workers and returns the
// observed request latencies.
func runLatency(cl *client.Client, queries [][]float32, k, workers int, qps float64) ([]time.Duration, error) {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if qps > 0 {
		limiter = rate.NewLimiter(rate.Limit(qps), 1)
	}

	// Warm-up: a few unmeasured requests settle connection reuse and caches.
	for i := 0; i < 10 && i < len(queries); i++ {
		if _, err := cl.Search(queries[i], k, 0); err != nil {
			return nil, err
		}
	}

	latencies := make([]time.Duration, len(queries))
	var mu sync.Mutex
	var next int

	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				mu.Lock()
				i := next
				next++
				mu.Unlock()
				if i >= len(queries) {
					return nil
				}

				if err := limiter.Wait(ctx); err != nil {
					return err
				}
				start := time.Now()
				if _, err := cl.Search(queries[i], k, 0); err != nil {
					return err
				}
				latencies[i] = time.Since(start)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return latencies, nil
}

// bruteForce computes the exact k nearest ids for each query by exhaustive
// squared-distance scan, parallelized across queries.
func bruteForce(vectors, queries [][]float32, k int) [][]uint32 {
	truth := make([][]uint32, len(queries))

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for qi := range queries {
		g.Go(func() error {
			type pair struct {
				id   uint32
				dist float64
			}
			best := make([]pair, 0, k+1)
			q := queries[qi]
			for id, v := range vectors {
				var sum float64
				for j := range q {
					d := float64(q[j] - v[j])
					sum += d * d
				}
				if len(best) < k || sum < best[len(best)-1].dist {
					best = append(best, pair{uint32(id), sum})
					sort.Slice(best, func(a, b int) bool { return best[a].dist < best[b].dist })
					if len(best) > k {
						best = best[:k]
					}
				}
			}
			ids := make([]uint32, len(best))
			for i, p := range best {
				ids[i] = p.id
			}
			truth[qi] = ids
			return nil
		})
	}
	g.Wait()
	return truth
}

// report prints the latency envelope: average, percentiles, and throughput.
func report(latencies []time.Duration) {
	if len(latencies) == 0 {
		return
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg := sum / time.Duration(len(sorted))

	pct := func(p float64) time.Duration {
		i := int(math.Ceil(p/100*float64(len(sorted)))) - 1
		if i < 0 {
			i = 0
		}
		return sorted[i]
	}

	log.Printf("latency: avg=%s p50=%s p95=%s p99=%s max=%s",
		avg.Round(time.Microsecond),
		pct(50).Round(time.Microsecond),
		pct(95).Round(time.Microsecond),
		pct(99).Round(time.Microsecond),
		sorted[len(sorted)-1].Round(time.Microsecond),
	)
	log.Printf("throughput: %.1f queries/sec (per-request basis)", float64(time.Second)/float64(avg))
}
