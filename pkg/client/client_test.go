package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockServer fakes the serving API closely enough to exercise the client's
// request building, decoding, and error mapping.
func mockServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /search", func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid JSON body"})
			return
		}
		if req.K <= 0 || req.K > 100 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "k out of range"})
			return
		}
		resp := SearchResult{
			Indices:   make([]uint32, req.K),
			Distances: make([]float64, req.K),
		}
		for i := 0; i < req.K; i++ {
			resp.Indices[i] = uint32(i)
			resp.Distances[i] = float64(i) * 0.1
		}
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Health{Service: "vectorwise", Status: "healthy", VectorsIndexed: 1000})
	})

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Stats{
			TotalVectors: 1000, Dimension: 128, IndexType: "hnsw",
			M: 32, EfConstruction: 200, EfSearch: 64, MaxLevel: 3, Precision: "float32",
		})
	})

	mux.HandleFunc("POST /admin/reload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "reload failed: artifact missing"})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestClientSearch(t *testing.T) {
	ts := mockServer(t)
	c := New(ts.URL)

	result, err := c.Search([]float32{1, 0, 0}, 5, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Indices) != 5 || len(result.Distances) != 5 {
		t.Fatalf("got %d/%d results, want 5/5", len(result.Indices), len(result.Distances))
	}
	if result.Indices[0] != 0 || result.Distances[4] != 0.4 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestClientSearchAPIError(t *testing.T) {
	ts := mockServer(t)
	c := New(ts.URL)

	_, err := c.Search([]float32{1, 0, 0}, 0, 0)
	if err == nil {
		t.Fatal("Search with k=0 should fail")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message != "k out of range" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestClientHealth(t *testing.T) {
	ts := mockServer(t)
	c := New(ts.URL)

	h, err := c.Health()
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if h.Service != "vectorwise" || h.VectorsIndexed != 1000 {
		t.Errorf("health = %+v", h)
	}
}

func TestClientStats(t *testing.T) {
	ts := mockServer(t)
	c := New(ts.URL)

	st, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.TotalVectors != 1000 || st.M != 32 || st.Precision != "float32" {
		t.Errorf("stats = %+v", st)
	}
}

func TestClientReloadError(t *testing.T) {
	ts := mockServer(t)
	c := New(ts.URL)

	err := c.Reload()
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Reload error = %v, want *APIError with status 500", err)
	}
}

func TestClientConnectionError(t *testing.T) {
	c := New("http://127.0.0.1:1")
	if _, err := c.Health(); err == nil {
		t.Fatal("Health against a closed port should fail")
	}
}
