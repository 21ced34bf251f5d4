package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/indexopt/pkg/api"
	"github.com/ethpandaops/indexopt/pkg/elasticsearch"
	"github.com/ethpandaops/indexopt/pkg/optimizer"
	"github.com/ethpandaops/indexopt/pkg/redis"
	"github.com/ethpandaops/indexopt/pkg/scheduler"
	"github.com/ethpandaops/indexopt/pkg/selector"
	"github.com/ethpandaops/indexopt/pkg/server"
	"github.com/ethpandaops/indexopt/pkg/worker"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

var (
	// ErrRedisRequired is returned when queueing is configured without Redis
	ErrRedisRequired = errors.New("redis.url is required to dispatch to workers")
)

// Config is the indexopt configuration file
type Config struct {
	// Logging level
	Logging string `yaml:"logging" default:"info" validate:"oneof=panic fatal error warn info debug trace"`

	// Server holds the schedule mode HTTP endpoints
	Server server.Config `yaml:",inline"`

	Elasticsearch elasticsearch.Config `yaml:"elasticsearch"`
	Selector      selector.Config      `yaml:"selector"`
	Scheduler     scheduler.Config     `yaml:"scheduler"`

	// Redis configuration (optional, only needed for leader election and workers)
	Redis redis.Config `yaml:"redis"`

	// Worker configures the Redis task queue shared by dispatchers and workers
	Worker worker.Config `yaml:"worker"`

	// API serves scheduler status and the current plan in schedule mode
	API api.Config `yaml:"api"`

	DryRun bool `yaml:"dryRun"`
}

// Validate validates the one-shot parts of the configuration
func (c *Config) Validate() error {
	if err := c.Elasticsearch.Validate(); err != nil {
		return fmt.Errorf("invalid elasticsearch configuration: %w", err)
	}

	if err := c.Selector.Validate(); err != nil {
		return err
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("invalid redis configuration: %w", err)
	}

	if err := c.Worker.Validate(); err != nil {
		return fmt.Errorf("invalid worker configuration: %w", err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("invalid api configuration: %w", err)
	}

	if c.Worker.Dispatch && !c.Redis.Enabled() {
		return ErrRedisRequired
	}

	return nil
}

// Optimizer returns the settings of a single optimization run
func (c *Config) Optimizer() *optimizer.Config {
	return &optimizer.Config{
		Selector: c.Selector,
		DryRun:   c.DryRun,
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is not an
// error; defaults and command line flags are used instead.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}

		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return config, nil
}
