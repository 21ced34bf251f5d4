// Package worker runs force-merge tasks taken from the Redis queue
package worker

import (
	"errors"
	"time"
)

var (
	// ErrInvalidConcurrency is returned when concurrency is not positive
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
	// ErrQueueRequired is returned when no queue name is configured
	ErrQueueRequired = errors.New("queue is required")
)

// Config contains queue and worker settings. With Dispatch set, run and
// schedule enqueue selected indices instead of force-merging them in-process.
type Config struct {
	Dispatch    bool          `yaml:"dispatch"`
	Queue       string        `yaml:"queue" default:"indexopt"`
	Concurrency int           `yaml:"concurrency" default:"1"`
	TaskTimeout time.Duration `yaml:"taskTimeout" default:"1h"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Queue == "" {
		return ErrQueueRequired
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	return nil
}
