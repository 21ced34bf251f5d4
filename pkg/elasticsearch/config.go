// Package elasticsearch lists and force-merges indices on an Elasticsearch cluster
package elasticsearch

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Static errors for configuration validation
var (
	ErrURLRequired         = errors.New("URL is required")
	ErrInvalidURL          = errors.New("URL must be an absolute http(s) URL")
	ErrInvalidMaxSegments  = errors.New("maxNumSegments must not be negative")
	ErrConflictingSegments = errors.New("maxNumSegments and onlyExpungeDeletes cannot be combined")
)

// Config contains cluster connection and force-merge settings
type Config struct {
	URL     string        `yaml:"url" default:"http://localhost:9200"`
	Timeout time.Duration `yaml:"timeout" default:"30s"`
	// MaxNumSegments is passed as max_num_segments when positive.
	MaxNumSegments     int  `yaml:"maxNumSegments"`
	OnlyExpungeDeletes bool `yaml:"onlyExpungeDeletes"`
	Debug              bool `yaml:"debug"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	parsed, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidURL, c.URL)
	}

	if c.MaxNumSegments < 0 {
		return ErrInvalidMaxSegments
	}

	if c.MaxNumSegments > 0 && c.OnlyExpungeDeletes {
		return ErrConflictingSegments
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// URLFromHostPort builds a cluster URL from a bare host and port
func URLFromHostPort(host string, port int) string {
	return (&url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}).String()
}
