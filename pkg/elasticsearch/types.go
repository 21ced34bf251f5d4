package elasticsearch

import es "github.com/elastic/go-elasticsearch/v8"

// ShardStats is the _shards block of a force-merge response
type ShardStats struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// OptimizeResult describes the outcome of a force-merge on one index
type OptimizeResult struct {
	Index   string
	Success bool
	Shards  ShardStats
	// Detail is the raw response body, kept for error reporting.
	Detail string
}

// catIndex is one row of _cat/indices?format=json
type catIndex struct {
	Index string `json:"index"`
}

type forcemergeResponse struct {
	Shards ShardStats `json:"_shards"` //nolint:tagliatelle // Elasticsearch API field name
}

// ClientVersion is the version of the go-elasticsearch client in use
func ClientVersion() string {
	return es.Version
}
