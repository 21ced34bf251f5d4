package elasticsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethpandaops/indexopt/internal/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, cfg *Config, configure ...func(*testutil.ElasticsearchCluster)) (ClientInterface, *testutil.ElasticsearchCluster) {
	t.Helper()

	cluster := testutil.NewElasticsearchCluster("logstash-2014.01.10", "logstash-2014.01.11", ".kibana")
	for _, fn := range configure {
		fn(cluster)
	}

	cfg.URL = cluster.Start(t)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	c, err := NewClient(logger, cfg)
	require.NoError(t, err)

	return c, cluster
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError error
	}{
		{
			name:   "valid http URL",
			config: Config{URL: "http://localhost:9200"},
		},
		{
			name:   "valid https URL with segments",
			config: Config{URL: "https://es.example.com", MaxNumSegments: 1},
		},
		{
			name:        "missing URL",
			config:      Config{},
			expectError: ErrURLRequired,
		},
		{
			name:        "bare host",
			config:      Config{URL: "localhost:9200"},
			expectError: ErrInvalidURL,
		},
		{
			name:        "unsupported scheme",
			config:      Config{URL: "ftp://localhost:9200"},
			expectError: ErrInvalidURL,
		},
		{
			name:        "negative segments",
			config:      Config{URL: "http://localhost:9200", MaxNumSegments: -1},
			expectError: ErrInvalidMaxSegments,
		},
		{
			name:        "segments with expunge deletes",
			config:      Config{URL: "http://localhost:9200", MaxNumSegments: 1, OnlyExpungeDeletes: true},
			expectError: ErrConflictingSegments,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	config := Config{URL: "http://localhost:9200"}

	config.SetDefaults()

	assert.Equal(t, 30*time.Second, config.Timeout)
}

func TestURLFromHostPort(t *testing.T) {
	assert.Equal(t, "http://localhost:9200", URLFromHostPort("localhost", 9200))
	assert.Equal(t, "http://es-1.internal:9201", URLFromHostPort("es-1.internal", 9201))
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(logrus.New(), &Config{})
	require.ErrorIs(t, err, ErrURLRequired)
}

func TestClient_Start(t *testing.T) {
	c, _ := newTestClient(t, &Config{})

	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())
}

func TestClient_ListIndices(t *testing.T) {
	c, cluster := newTestClient(t, &Config{})

	names, err := c.ListIndices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"logstash-2014.01.10", "logstash-2014.01.11", ".kibana"}, names)

	req := cluster.LastRequest()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "json", req.URL.Query().Get("format"))
	assert.Equal(t, "index", req.URL.Query().Get("h"))
}

func TestClient_ListIndices_Empty(t *testing.T) {
	c, _ := newTestClient(t, &Config{}, func(f *testutil.ElasticsearchCluster) {
		f.Indices = `[]`
	})

	names, err := c.ListIndices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestClient_ListIndices_Errors(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		c, _ := newTestClient(t, &Config{}, func(f *testutil.ElasticsearchCluster) {
			f.CatStatus = http.StatusInternalServerError
			f.Indices = `{"error":"boom"}`
		})

		_, err := c.ListIndices(context.Background())
		require.ErrorIs(t, err, ErrListIndices)
		assert.ErrorIs(t, err, ErrResponse)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("malformed body", func(t *testing.T) {
		c, _ := newTestClient(t, &Config{}, func(f *testutil.ElasticsearchCluster) {
			f.Indices = `not json`
		})

		_, err := c.ListIndices(context.Background())
		require.ErrorIs(t, err, ErrListIndices)
	})

	t.Run("unreachable cluster", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		c, err := NewClient(logrus.New(), &Config{URL: url})
		require.NoError(t, err)

		_, err = c.ListIndices(context.Background())
		require.ErrorIs(t, err, ErrListIndices)
	})
}

func TestClient_Optimize(t *testing.T) {
	c, cluster := newTestClient(t, &Config{})

	result, err := c.Optimize(context.Background(), "logstash-2014.01.10")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "logstash-2014.01.10", result.Index)
	assert.Equal(t, ShardStats{Total: 2, Successful: 2, Failed: 0}, result.Shards)

	req := cluster.LastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/logstash-2014.01.10/_forcemerge", req.URL.Path)
	assert.Empty(t, req.URL.Query().Get("max_num_segments"))
	assert.Equal(t, []string{"logstash-2014.01.10"}, cluster.Merged())
}

func TestClient_Optimize_Options(t *testing.T) {
	t.Run("max segments", func(t *testing.T) {
		c, cluster := newTestClient(t, &Config{MaxNumSegments: 1})

		_, err := c.Optimize(context.Background(), "logstash-2014.01.10")
		require.NoError(t, err)

		assert.Equal(t, "1", cluster.LastRequest().URL.Query().Get("max_num_segments"))
	})

	t.Run("expunge deletes", func(t *testing.T) {
		c, cluster := newTestClient(t, &Config{OnlyExpungeDeletes: true})

		_, err := c.Optimize(context.Background(), "logstash-2014.01.10")
		require.NoError(t, err)

		assert.Equal(t, "true", cluster.LastRequest().URL.Query().Get("only_expunge_deletes"))
	})
}

func TestClient_Optimize_Failures(t *testing.T) {
	t.Run("failed shards", func(t *testing.T) {
		c, _ := newTestClient(t, &Config{}, func(f *testutil.ElasticsearchCluster) {
			f.MergeBody = `{"_shards":{"total":2,"successful":1,"failed":1}}`
		})

		result, err := c.Optimize(context.Background(), "logstash-2014.01.10")
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Equal(t, 1, result.Shards.Failed)
	})

	t.Run("error status", func(t *testing.T) {
		c, _ := newTestClient(t, &Config{}, func(f *testutil.ElasticsearchCluster) {
			f.MergeStatus = http.StatusNotFound
			f.MergeBody = `{"error":{"type":"index_not_found_exception"}}`
		})

		result, err := c.Optimize(context.Background(), "logstash-2014.01.10")
		require.NoError(t, err)

		assert.False(t, result.Success)
		assert.Contains(t, result.Detail, "index_not_found_exception")
	})

	t.Run("malformed body", func(t *testing.T) {
		c, _ := newTestClient(t, &Config{}, func(f *testutil.ElasticsearchCluster) {
			f.MergeBody = `<html>`
		})

		_, err := c.Optimize(context.Background(), "logstash-2014.01.10")
		require.ErrorIs(t, err, ErrOptimize)
	})
}
