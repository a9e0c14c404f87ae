// Package duration parses moderator-entered duration strings ("12h", "1w2d")
// into absolute expiry times.
package duration

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformed is returned for purely numeric input, which is ambiguous
	// (seconds? days?) and therefore refused outright.
	ErrMalformed = errors.New("malformed duration: please use duration units (e.g. 12h, 14d, 5w)")

	// ErrUnparseable is returned when the input does not scan as a sequence
	// of <number><unit> tokens at all.
	ErrUnparseable = errors.New("invalid duration: could not parse")

	// ErrPast is returned when the resulting expiry would not be after the
	// baseline.
	ErrPast = errors.New("invalid duration: cannot be in the past")
)

// UnknownUnitError is returned for a token whose unit suffix is not in the
// unit table. Typo'd units must never be silently treated as seconds.
type UnknownUnitError struct {
	Unit string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("invalid duration: unknown unit %q", e.Unit)
}

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60, "min": 60, "mins": 60,
	"h": 3600, "hr": 3600, "hour": 3600, "hours": 3600,
	"d": 86400, "day": 86400, "days": 86400,
	"w": 604800, "wk": 604800, "week": 604800, "weeks": 604800,
	"mo": 2592000, "month": 2592000, "months": 2592000,
	"y": 31536000, "yr": 31536000,
}

var (
	numericOnly = regexp.MustCompile(`^\d+$`)
	token       = regexp.MustCompile(`^(-?\d+)\s*([a-zA-Z]+)`)
)

// Validate parses s relative to baseline and returns the absolute expiry
// time. The expiry must be strictly after baseline.
func Validate(s string, baseline time.Time) (time.Time, error) {
	if numericOnly.MatchString(s) {
		return time.Time{}, ErrMalformed
	}

	var sum int64
	rest := s
	for rest != "" {
		m := token.FindStringSubmatch(rest)
		if m == nil {
			return time.Time{}, ErrUnparseable
		}
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, ErrUnparseable
		}
		mult, ok := unitSeconds[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, &UnknownUnitError{Unit: m[2]}
		}
		sum += value * mult
		rest = rest[len(m[0]):]
	}

	if sum <= 0 {
		return time.Time{}, ErrPast
	}
	return baseline.Add(time.Duration(sum) * time.Second), nil
}
