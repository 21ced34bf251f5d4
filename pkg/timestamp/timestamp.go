// Package timestamp parses the date suffix of time-based index names
package timestamp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultHour is the hour assumed for daily suffixes that carry no hour part.
// Existing deployments compare against cutoffs computed with this value, so it
// must stay 3 rather than midnight.
const DefaultHour = 3

var (
	// ErrInvalidTimestamp is returned when a suffix is not YYYY<sep>MM<sep>DD[<sep>HH]
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// Granularity describes whether an index is rolled daily or hourly
type Granularity int

const (
	// Daily indices carry a YYYY.MM.DD suffix
	Daily Granularity = iota
	// Hourly indices carry a YYYY.MM.DD.HH suffix
	Hourly
)

// String returns the lowercase name of the granularity
func (g Granularity) String() string {
	switch g {
	case Daily:
		return "daily"
	case Hourly:
		return "hourly"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Split breaks a suffix into its numeric parts and reports its granularity.
// It fails unless the suffix has exactly 3 or 4 parts made only of digits.
func Split(suffix, separator string) ([]int, Granularity, error) {
	raw := strings.Split(suffix, separator)

	var granularity Granularity

	switch len(raw) {
	case 3:
		granularity = Daily
	case 4:
		granularity = Hourly
	default:
		return nil, 0, fmt.Errorf("%w: %q has %d parts", ErrInvalidTimestamp, suffix, len(raw))
	}

	parts := make([]int, 0, 4)
	for _, part := range raw {
		if !isDigits(part) {
			return nil, 0, fmt.Errorf("%w: %q is not numeric in %q", ErrInvalidTimestamp, part, suffix)
		}

		value, err := strconv.Atoi(part)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %q: %w", ErrInvalidTimestamp, suffix, err)
		}

		parts = append(parts, value)
	}

	return parts, granularity, nil
}

// Parse converts a suffix to a point in time using the host's local time zone
func Parse(suffix, separator string) (time.Time, error) {
	return ParseInLocation(suffix, separator, time.Local)
}

// ParseInLocation converts a suffix to a point in time, reading the calendar
// fields as standard time in loc: daylight saving is ignored even for dates
// that fall inside it. Out-of-range fields are normalized the way time.Date
// normalizes them.
func ParseInLocation(suffix, separator string, loc *time.Location) (time.Time, error) {
	parts, _, err := Split(suffix, separator)
	if err != nil {
		return time.Time{}, err
	}

	if len(parts) == 3 {
		parts = append(parts, DefaultHour)
	}

	wall := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], 0, 0, 0, time.UTC)
	offset := standardOffset(loc, wall.Year())

	return wall.Add(-time.Duration(offset) * time.Second).In(loc), nil
}

// standardOffset is the UTC offset of loc outside daylight saving in year,
// taken as the smaller of the January and July offsets
func standardOffset(loc *time.Location, year int) int {
	_, january := time.Date(year, time.January, 1, 0, 0, 0, 0, loc).Zone()
	_, july := time.Date(year, time.July, 1, 0, 0, 0, 0, loc).Zone()

	return min(january, july)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
