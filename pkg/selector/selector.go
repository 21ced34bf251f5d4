package selector

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/ethpandaops/indexopt/pkg/timestamp"
	"github.com/sirupsen/logrus"
)

// Outcome is the verdict reached for a single index
type Outcome int

const (
	// OutcomeSelected means the index is newer than its cutoff and should be optimized
	OutcomeSelected Outcome = iota
	// OutcomeMissingPrefix means the index name does not start with the configured prefix
	OutcomeMissingPrefix
	// OutcomeInvalidTimestamp means the suffix is not a 3 or 4 part numeric timestamp
	OutcomeInvalidTimestamp
	// OutcomeUnconfiguredGranularity means no window is configured for the index granularity
	OutcomeUnconfiguredGranularity
	// OutcomeAboveCutoff means the index is at or beyond its cutoff
	OutcomeAboveCutoff
)

// String returns the snake_case name used in logs and metric labels
func (o Outcome) String() string {
	switch o {
	case OutcomeSelected:
		return "selected"
	case OutcomeMissingPrefix:
		return "missing_prefix"
	case OutcomeInvalidTimestamp:
		return "invalid_timestamp"
	case OutcomeUnconfiguredGranularity:
		return "unconfigured_granularity"
	case OutcomeAboveCutoff:
		return "above_cutoff"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision records what the selector concluded about one index. Granularity,
// Timestamp, Cutoff and Offset are only meaningful once the suffix parsed.
type Decision struct {
	Index       string
	Outcome     Outcome
	Granularity timestamp.Granularity
	Timestamp   time.Time
	Cutoff      time.Time
	// Offset is Cutoff minus Timestamp; negative for selected indices.
	Offset time.Duration
	// Err holds the parse failure for OutcomeInvalidTimestamp.
	Err error

	message string
}

// Selected reports whether the index should be optimized
func (d Decision) Selected() bool {
	return d.Outcome == OutcomeSelected
}

// Level is the log level the decision should be reported at
func (d Decision) Level() logrus.Level {
	if d.Outcome == OutcomeInvalidTimestamp {
		return logrus.WarnLevel
	}

	return logrus.InfoLevel
}

// Message is a human readable description of the decision
func (d Decision) Message() string {
	return d.message
}

// Select evaluates every index name against the cutoffs derived from now.
// Names are deduplicated and visited in ascending order. Calendar fields of
// index suffixes are read in now's location. Every name yields exactly one
// Decision; nothing is written anywhere and no input can make it fail.
func Select(names []string, cfg Config, now time.Time) iter.Seq[Decision] {
	limits := cfg.cutoffs(now)

	return func(yield func(Decision) bool) {
		sorted := slices.Clone(names)
		slices.Sort(sorted)
		sorted = slices.Compact(sorted)

		for _, name := range sorted {
			if !yield(decide(name, &cfg, limits, now.Location())) {
				return
			}
		}
	}
}

// Selected narrows a decision stream to the indices that should be optimized
func Selected(decisions iter.Seq[Decision]) iter.Seq[Decision] {
	return func(yield func(Decision) bool) {
		for d := range decisions {
			if !d.Selected() {
				continue
			}

			if !yield(d) {
				return
			}
		}
	}
}

func decide(name string, cfg *Config, limits cutoffs, loc *time.Location) Decision {
	d := Decision{Index: name}

	suffix, ok := strings.CutPrefix(name, cfg.Prefix)
	if !ok {
		d.Outcome = OutcomeMissingPrefix
		d.message = fmt.Sprintf("Skipping index due to missing prefix %s: %s", cfg.Prefix, name)

		return d
	}

	_, granularity, err := timestamp.Split(suffix, cfg.Separator)
	if err != nil {
		d.Outcome = OutcomeInvalidTimestamp
		d.Err = err
		d.message = fmt.Sprintf("Could not find a valid timestamp from the index: %s", name)

		return d
	}

	d.Granularity = granularity

	cutoff := limits.daily
	if granularity == timestamp.Hourly {
		cutoff = limits.hourly
	}

	if cutoff == nil {
		d.Outcome = OutcomeUnconfiguredGranularity
		d.message = fmt.Sprintf("Skipping %s because it is %s and no %s window is configured", name, granularity, granularity)

		return d
	}

	// Split already accepted the suffix, so this cannot fail.
	ts, _ := timestamp.ParseInLocation(suffix, cfg.Separator, loc)

	d.Timestamp = ts
	d.Cutoff = *cutoff
	d.Offset = cutoff.Sub(ts)

	if ts.After(*cutoff) {
		d.Outcome = OutcomeSelected
		d.message = fmt.Sprintf("%s is %s newer than the cutoff", name, -d.Offset)

		return d
	}

	d.Outcome = OutcomeAboveCutoff
	d.message = fmt.Sprintf("%s is %s above the cutoff", name, d.Offset)

	return d
}
