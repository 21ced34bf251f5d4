// Package redis provides Redis client configuration
package redis

import (
	"fmt"

	r "github.com/redis/go-redis/v9"
)

// Config holds Redis client configuration. Redis is optional; it elects a
// single active scheduler, shares the latest run and carries the worker queue.
type Config struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix" default:"indexopt"`
}

// Enabled reports whether a Redis URL is configured
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}

	if _, err := r.ParseURL(c.URL); err != nil {
		return fmt.Errorf("invalid redis URL: %w", err)
	}

	return nil
}

// Options converts the configured URL into go-redis client options
func (c *Config) Options() (*r.Options, error) {
	opts, err := r.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return opts, nil
}

// PrefixKey adds the configured prefix to a Redis key
func (c *Config) PrefixKey(key string) string {
	if c.Prefix == "" {
		return key
	}

	return fmt.Sprintf("%s:%s", c.Prefix, key)
}
