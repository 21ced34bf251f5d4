package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ElasticsearchCluster is a minimal stand-in for the Elasticsearch REST API.
// It serves the root info endpoint, _cat/indices and _forcemerge.
type ElasticsearchCluster struct {
	// Indices is the raw JSON body returned from _cat/indices.
	Indices     string
	CatStatus   int
	MergeStatus int
	MergeBody   string

	mu       sync.Mutex
	requests []*http.Request
	merged   []string
}

// NewElasticsearchCluster returns a cluster holding the given index names.
// Configure the exported fields before calling Start.
func NewElasticsearchCluster(indices ...string) *ElasticsearchCluster {
	c := &ElasticsearchCluster{
		CatStatus:   http.StatusOK,
		MergeStatus: http.StatusOK,
		MergeBody:   `{"_shards":{"total":2,"successful":2,"failed":0}}`,
	}

	c.SetIndices(indices...)

	return c
}

// SetIndices replaces the _cat/indices body with the given names
func (c *ElasticsearchCluster) SetIndices(indices ...string) {
	rows := make([]string, 0, len(indices))
	for _, name := range indices {
		rows = append(rows, `{"index":"`+name+`"}`)
	}

	c.Indices = "[" + strings.Join(rows, ",") + "]"
}

// Start serves the cluster over HTTP and returns its URL. The server is
// closed when the test completes.
func (c *ElasticsearchCluster) Start(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(c)
	t.Cleanup(server.Close)

	return server.URL
}

func (c *ElasticsearchCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, r.Clone(context.Background()))

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/":
		_, _ = w.Write([]byte(`{"version":{"number":"8.17.0"},"tagline":"You Know, for Search"}`))
	case r.URL.Path == "/_cat/indices":
		w.WriteHeader(c.CatStatus)
		_, _ = w.Write([]byte(c.Indices))
	case strings.HasSuffix(r.URL.Path, "/_forcemerge"):
		c.merged = append(c.merged, strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/_forcemerge"))

		w.WriteHeader(c.MergeStatus)
		_, _ = w.Write([]byte(c.MergeBody))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

// LastRequest returns the most recent request, or nil when none was made
func (c *ElasticsearchCluster) LastRequest() *http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.requests) == 0 {
		return nil
	}

	return c.requests[len(c.requests)-1]
}

// Merged returns the indices a force-merge was requested for, in order
func (c *ElasticsearchCluster) Merged() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.merged...)
}
