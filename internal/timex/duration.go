// Package timex extends time.Duration parsing with the day and week units
// commonly used for token lifetimes ("7d", "2w") and provides a JSON-friendly
// Duration wrapper for configuration files.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var ErrInvalidDuration = errors.New("invalid duration")

var units = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  Day,
	"w":  Week,
}

// ParseDuration parses a sequence of decimal numbers, each with a unit suffix,
// such as "15m", "1h30m", "7d" or "1w2d". Valid units are "ms", "s", "m",
// "h", "d" and "w". A bare number without a unit is read as milliseconds.
func ParseDuration(s string) (time.Duration, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	var total time.Duration
	for s != "" {
		i := 0
		for i < len(s) && (s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
			i++
		}
		if i == 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, orig)
		}
		value, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, orig)
		}
		s = s[i:]

		j := 0
		for j < len(s) && s[j] >= 'a' && s[j] <= 'z' {
			j++
		}
		unit, ok := units[s[:j]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalidDuration, s[:j], orig)
		}
		s = s[j:]

		total += time.Duration(value * float64(unit))
	}

	return total, nil
}

// Duration wraps time.Duration so that it can be read from JSON either as a
// string understood by ParseDuration or as a number of milliseconds, the
// same unit ParseDuration uses for a bare number.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value * float64(time.Millisecond))
		return nil
	case string:
		parsed, err := ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("%w: unsupported JSON value %s", ErrInvalidDuration, string(b))
	}
}
