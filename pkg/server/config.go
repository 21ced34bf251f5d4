// Package server hosts the long-running schedule mode process
package server

import (
	"errors"
	"time"
)

// Define static errors
var (
	ErrInvalidShutdownTimeout = errors.New("shutdownTimeout must be positive")
)

// Config holds server configuration
type Config struct {
	// MetricsAddr is the address to listen on for metrics. Empty disables it.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// ShutdownTimeout bounds how long HTTP servers get to drain on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}
