// Package optimizer runs the list, select and force-merge cycle against a cluster
package optimizer

import (
	"fmt"

	"github.com/ethpandaops/indexopt/pkg/selector"
)

// Config holds the settings of a single optimization run
type Config struct {
	Selector selector.Config `yaml:"selector"`
	// DryRun reports what would be optimized without touching the cluster.
	DryRun bool `yaml:"dryRun"`
}

// Validate checks if the optimizer configuration is valid
func (c *Config) Validate() error {
	if err := c.Selector.Validate(); err != nil {
		return fmt.Errorf("invalid selector configuration: %w", err)
	}

	return nil
}
