// Package client provides a Go client for the VectorWise HTTP API.
//
// It covers the full serving surface: k-NN search, health, index statistics,
// and the administrative reload. HTTP transport, JSON codec, and error
// handling are dealt with here so callers work with typed values only.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError represents an error returned by the VectorWise API (status >= 400).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// SearchResult is the ranked answer to a k-NN query, ascending by distance.
type SearchResult struct {
	Indices   []uint32  `json:"indices"`
	Distances []float64 `json:"distances"`
}

// Health models the GET / response.
type Health struct {
	Service        string `json:"service"`
	Status         string `json:"status"`
	VectorsIndexed int    `json:"vectors_indexed"`
}

// Stats models the GET /stats response.
type Stats struct {
	TotalVectors   int    `json:"total_vectors"`
	Dimension      int    `json:"dimension"`
	IndexType      string `json:"index_type"`
	M              int    `json:"hnsw_m"`
	EfConstruction int    `json:"hnsw_ef_construction"`
	EfSearch       int    `json:"hnsw_ef_search"`
	MaxLevel       int    `json:"hnsw_max_level"`
	Precision      string `json:"precision"`
}

// searchRequest is the POST /search body.
type searchRequest struct {
	QueryVector []float32 `json:"query_vector"`
	K           int       `json:"k"`
	EfSearch    int       `json:"ef_search,omitempty"`
}

// Client talks to one VectorWise server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:8000".
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient swaps the underlying HTTP client (custom timeouts, transports).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// jsonRequest executes one API call: serialize the payload, issue the
// request, surface >= 400 responses as *APIError.
func (c *Client) jsonRequest(method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		if json.Unmarshal(respBody, &errResp) == nil && errResp["error"] != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp["error"]}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return respBody, nil
}

// Search runs a k-NN query. efSearch <= 0 uses the server default.
func (c *Client) Search(queryVector []float32, k, efSearch int) (*SearchResult, error) {
	body, err := c.jsonRequest(http.MethodPost, "/search", searchRequest{
		QueryVector: queryVector,
		K:           k,
		EfSearch:    efSearch,
	})
	if err != nil {
		return nil, err
	}
	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &result, nil
}

// Health checks the service health endpoint.
func (c *Client) Health() (*Health, error) {
	body, err := c.jsonRequest(http.MethodGet, "/", nil)
	if err != nil {
		return nil, err
	}
	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &h, nil
}

// Stats fetches the read-only index statistics.
func (c *Client) Stats() (*Stats, error) {
	body, err := c.jsonRequest(http.MethodGet, "/stats", nil)
	if err != nil {
		return nil, err
	}
	var st Stats
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("failed to decode stats response: %w", err)
	}
	return &st, nil
}

// Reload asks the server to re-read its artifact and swap it in.
func (c *Client) Reload() error {
	_, err := c.jsonRequest(http.MethodPost, "/admin/reload", nil)
	return err
}
