// Package scheduler repeats optimization runs on a cron schedule
package scheduler

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

var (
	// ErrScheduleRequired is returned when no cron schedule is configured
	ErrScheduleRequired = errors.New("schedule is required")
	// ErrInvalidSchedule is returned when the cron schedule cannot be parsed
	ErrInvalidSchedule = errors.New("invalid cron schedule")
)

// Config defines scheduler configuration
type Config struct {
	// Schedule is a standard 5-field cron expression or descriptor such as "@every 1h".
	Schedule   string `yaml:"schedule" default:"0 * * * *"`
	RunOnStart bool   `yaml:"runOnStart"`
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	if c.Schedule == "" {
		return ErrScheduleRequired
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, c.Schedule, err)
	}

	return nil
}
