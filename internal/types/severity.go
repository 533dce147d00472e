package types

import (
	"fmt"
	"strings"
)

// Severity grades a finding. Higher values are more severe.
type Severity int

const (
	SeverityInfo     Severity = iota // informational, never affects validity
	SeverityLow                      // cosmetic or best-practice deviation
	SeverityMedium                   // may degrade playback on some players
	SeverityHigh                     // likely to break playback or violates DASH
	SeverityVeryHigh                 // breaks playback or invalidates the manifest pair
)

// Implement Stringer for Severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "Info"
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityVeryHigh:
		return "VeryHigh"
	default:
		return ""
	}
}

// Severities returns every severity from the most to the least severe.
func Severities() []Severity {
	return []Severity{SeverityVeryHigh, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// ParseSeverity converts a severity name into a Severity. Matching is
// case-insensitive and accepts the baseline vocabulary ("error", "warning",
// "critical") as aliases.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SeverityInfo, nil
	case "low":
		return SeverityLow, nil
	case "medium", "warning", "warn":
		return SeverityMedium, nil
	case "high", "error":
		return SeverityHigh, nil
	case "veryhigh", "very_high", "very-high", "critical":
		return SeverityVeryHigh, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity: %q", s)
	}
}

// IsError reports whether the severity counts against validity.
func (s Severity) IsError() bool {
	return s >= SeverityHigh
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	if s.String() == "" {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
