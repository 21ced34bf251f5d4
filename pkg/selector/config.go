// Package selector decides which time-based indices are due for optimization
package selector

import (
	"errors"
	"math"
	"time"
)

const (
	// MaxDaysToOptimize is the largest day window a time.Duration can hold
	MaxDaysToOptimize = math.MaxInt64 / int64(24*time.Hour)
	// MaxHoursToOptimize is the largest hour window a time.Duration can hold
	MaxHoursToOptimize = math.MaxInt64 / int64(time.Hour)
)

var (
	// ErrNoRetentionWindow is returned when neither a day nor an hour window is configured
	ErrNoRetentionWindow = errors.New("you must specify either the number of hours or the number of days to optimize")
	// ErrNegativeWindow is returned when a retention window is negative
	ErrNegativeWindow = errors.New("retention windows must not be negative")
	// ErrWindowTooLarge is returned when a retention window overflows a time.Duration
	ErrWindowTooLarge = errors.New("retention window is too large")
	// ErrEmptySeparator is returned when the time unit separator is empty
	ErrEmptySeparator = errors.New("separator must not be empty")
)

// Config controls how index names are matched and which cutoffs apply.
// A zero window means that granularity is not optimized.
type Config struct {
	Prefix          string `yaml:"prefix" default:"logstash-"`
	Separator       string `yaml:"separator" default:"."`
	DaysToOptimize  int    `yaml:"daysToOptimize"`
	HoursToOptimize int    `yaml:"hoursToOptimize"`
}

// Validate checks if the selector configuration is valid
func (c *Config) Validate() error {
	if c.DaysToOptimize < 0 || c.HoursToOptimize < 0 {
		return ErrNegativeWindow
	}

	if int64(c.DaysToOptimize) > MaxDaysToOptimize || int64(c.HoursToOptimize) > MaxHoursToOptimize {
		return ErrWindowTooLarge
	}

	if c.DaysToOptimize == 0 && c.HoursToOptimize == 0 {
		return ErrNoRetentionWindow
	}

	if c.Separator == "" {
		return ErrEmptySeparator
	}

	return nil
}

// cutoffs holds the per-granularity thresholds of a single run. A nil entry
// means the granularity was not asked for.
type cutoffs struct {
	daily  *time.Time
	hourly *time.Time
}

func (c *Config) cutoffs(now time.Time) cutoffs {
	var result cutoffs

	if c.DaysToOptimize != 0 {
		daily := now.Add(-time.Duration(c.DaysToOptimize) * 24 * time.Hour)
		result.daily = &daily
	}

	if c.HoursToOptimize != 0 {
		hourly := now.Add(-time.Duration(c.HoursToOptimize) * time.Hour)
		result.hourly = &hourly
	}

	return result
}

// AdjustedNow shifts t by the daylight-saving UTC offset of its location, the
// same correction the cutoff of every run has always been computed with.
// Locations without daylight saving are shifted by their standard offset.
func AdjustedNow(t time.Time) time.Time {
	loc := t.Location()

	_, january := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc).Zone()
	_, july := time.Date(t.Year(), time.July, 1, 0, 0, 0, 0, loc).Zone()

	return t.Add(-time.Duration(max(january, july)) * time.Second)
}
