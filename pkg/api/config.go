// Package api provides a read-only REST API exposing scheduler state and the
// current optimization plan.
package api

import (
	"errors"
	"time"
)

var (
	// ErrAPIAddrRequired is returned when API is enabled but no address is configured
	ErrAPIAddrRequired = errors.New("api address is required when API is enabled")
	// ErrInvalidWriteTimeout is returned for a negative write timeout
	ErrInvalidWriteTimeout = errors.New("api write timeout must not be negative")
)

// Config represents API service configuration. The API only runs in
// schedule mode.
type Config struct {
	Enabled bool   `yaml:"enabled" default:"false"`
	Addr    string `yaml:"addr" default:":8080"`
	// WriteTimeout bounds a single response. /plan lists every index on the
	// cluster, so it should exceed elasticsearch.timeout. Zero disables it.
	WriteTimeout time.Duration `yaml:"writeTimeout" default:"1m"`
}

// Validate validates the API configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Addr == "" {
		return ErrAPIAddrRequired
	}

	if c.WriteTimeout < 0 {
		return ErrInvalidWriteTimeout
	}

	return nil
}
