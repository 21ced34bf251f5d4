package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"
)

// Define static errors
var (
	ErrListIndices = errors.New("failed to list indices")
	ErrOptimize    = errors.New("failed to optimize index")
	ErrResponse    = errors.New("elasticsearch error")
)

// ClientInterface defines the cluster operations the optimizer depends on
type ClientInterface interface {
	// ListIndices returns the names of all indices in the cluster
	ListIndices(ctx context.Context) ([]string, error)
	// Optimize force-merges a single index
	Optimize(ctx context.Context, index string) (*OptimizeResult, error)
	// Start verifies connectivity to the cluster
	Start() error
	// Stop releases idle connections
	Stop() error
}

// client implements ClientInterface on top of the official Go client
type client struct {
	log                logrus.FieldLogger
	es                 *es.Client
	transport          *http.Transport
	timeout            time.Duration
	maxNumSegments     int
	onlyExpungeDeletes bool
	debug              bool
}

// NewClient creates a new Elasticsearch client
func NewClient(logger logrus.FieldLogger, cfg *Config) (ClientInterface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.SetDefaults()

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	esClient, err := es.NewClient(es.Config{
		Addresses:    []string{cfg.URL},
		Transport:    transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &client{
		log:                logger.WithField("component", "elasticsearch"),
		es:                 esClient,
		transport:          transport,
		timeout:            cfg.Timeout,
		maxNumSegments:     cfg.MaxNumSegments,
		onlyExpungeDeletes: cfg.OnlyExpungeDeletes,
		debug:              cfg.Debug,
	}, nil
}

func (c *client) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	if _, err := c.readBody(res); err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	c.log.Info("Connected to Elasticsearch")

	return nil
}

func (c *client) Stop() error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}

	c.log.Debug("Closed Elasticsearch client")

	return nil
}

func (c *client) ListIndices(ctx context.Context) ([]string, error) {
	reqCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(reqCtx),
		c.es.Cat.Indices.WithFormat("json"),
		c.es.Cat.Indices.WithH("index"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListIndices, err)
	}

	body, err := c.readBody(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListIndices, err)
	}

	var rows []catIndex
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrListIndices, err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Index)
	}

	c.log.WithField("count", len(names)).Debug("Listed indices")

	return names, nil
}

func (c *client) Optimize(ctx context.Context, index string) (*OptimizeResult, error) {
	reqCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	opts := []func(*esapi.IndicesForcemergeRequest){
		c.es.Indices.Forcemerge.WithContext(reqCtx),
		c.es.Indices.Forcemerge.WithIndex(index),
	}

	if c.maxNumSegments > 0 {
		opts = append(opts, c.es.Indices.Forcemerge.WithMaxNumSegments(c.maxNumSegments))
	}

	if c.onlyExpungeDeletes {
		opts = append(opts, c.es.Indices.Forcemerge.WithOnlyExpungeDeletes(true))
	}

	res, err := c.es.Indices.Forcemerge(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOptimize, index, err)
	}

	body, err := c.readBody(res)
	if err != nil {
		// The cluster answered, it just refused the merge.
		if errors.Is(err, ErrResponse) {
			return &OptimizeResult{Index: index, Detail: string(body)}, nil
		}

		return nil, fmt.Errorf("%w %s: %w", ErrOptimize, index, err)
	}

	var parsed forcemergeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w %s: failed to parse response: %w", ErrOptimize, index, err)
	}

	return &OptimizeResult{
		Index:   index,
		Success: parsed.Shards.Failed == 0,
		Shards:  parsed.Shards,
		Detail:  string(body),
	}, nil
}

// readBody drains and closes the response body. For error statuses the body
// is returned alongside an ErrResponse.
func (c *client) readBody(res *esapi.Response) ([]byte, error) {
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			c.log.WithError(closeErr).Debug("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug && len(body) < 1000 {
		c.log.WithField("status", res.StatusCode).WithField("response", string(body)).Debug("Elasticsearch response")
	}

	if res.IsError() {
		return body, fmt.Errorf("%w (status %d): %s", ErrResponse, res.StatusCode, string(body))
	}

	return body, nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.timeout)
}
