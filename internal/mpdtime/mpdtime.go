// Package mpdtime parses the xs:duration and xs:dateTime values used by DASH
// manifests. Parsing never panics; malformed input yields an error the caller
// can turn into a finding.
package mpdtime

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDuration = errors.New("invalid ISO-8601 duration")
	ErrInvalidDateTime = errors.New("invalid xs:dateTime")
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
	// calendar units are approximated the way players do
	secondsPerMonth = 30 * secondsPerDay
	secondsPerYear  = 365 * secondsPerDay
)

var durationPattern = regexp.MustCompile(`^(-)?P` +
	`(?:(\d+(?:\.\d+)?)Y)?` +
	`(?:(\d+(?:\.\d+)?)M)?` +
	`(?:(\d+(?:\.\d+)?)W)?` +
	`(?:(\d+(?:\.\d+)?)D)?` +
	`(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

var durationUnits = []float64{
	secondsPerYear,
	secondsPerMonth,
	7 * secondsPerDay,
	secondsPerDay,
	secondsPerHour,
	secondsPerMinute,
	1,
}

// ParseDuration converts an ISO-8601 duration such as "PT1H2M3.5S" into
// seconds.
func ParseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidDuration)
	}
	m := durationPattern.FindStringSubmatch(s)
	if m == nil || strings.HasSuffix(s, "T") || s == "P" || s == "-P" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var total float64
	var seen bool
	for i, unit := range durationUnits {
		part := m[i+2]
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		total += v * unit
		seen = true
	}
	if !seen {
		return 0, fmt.Errorf("%w: %q has no components", ErrInvalidDuration, s)
	}
	if m[1] == "-" {
		total = -total
	}
	return total, nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseDateTime parses an xs:dateTime. Values without a zone are UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDateTime)
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
}

// EpochSeconds parses an xs:dateTime and returns fractional epoch seconds.
func EpochSeconds(s string) (float64, error) {
	t, err := ParseDateTime(s)
	if err != nil {
		return 0, err
	}
	return float64(t.UnixNano()) / float64(time.Second), nil
}

// FormatSeconds renders seconds for human readable messages, rounded to the
// millisecond.
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64) + "s"
}
