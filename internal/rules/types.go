package rules

import "github.com/alevsk/mpd-scope/internal/types"

// Scope tells whether a rule needs the previous refresh to run.
type Scope string

const (
	ScopeManifest Scope = "manifest"
	ScopeRefresh  Scope = "refresh"
)

// Category groups rules in reports
type Category string

const (
	CategoryTiming      Category = "timing"
	CategoryProtection  Category = "protection"
	CategoryConsistency Category = "consistency"
	CategoryContinuity  Category = "continuity"
)

// RuleSpec describes a baseline rule. Severity is written with the baseline
// vocabulary in the catalogue: error maps to High and warning to Medium.
type RuleSpec struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Severity    types.Severity `yaml:"severity" json:"severity"`
	Category    Category       `yaml:"category" json:"category"`
	Scope       Scope          `yaml:"scope" json:"scope"`
}

// Config carries the thresholds the baseline rules evaluate against.
// A zero duration bound disables the matching check.
type Config struct {
	MinSegmentDuration float64  `json:"minSegmentDuration" yaml:"minSegmentDuration"`
	MaxSegmentDuration float64  `json:"maxSegmentDuration" yaml:"maxSegmentDuration"`
	DisabledRules      []string `json:"disabledRules,omitempty" yaml:"disabledRules,omitempty"`
}

// DefaultConfig returns the thresholds used when nothing is configured.
func DefaultConfig() Config {
	return Config{MinSegmentDuration: 1, MaxSegmentDuration: 10}
}

// Context is what every rule receives. Previous is nil on the first refresh.
type Context struct {
	Current  *types.MPD
	Previous *types.MPD
	Config   Config
}

// RuleFunc evaluates one rule and returns its findings, if any.
type RuleFunc func(spec RuleSpec, ctx Context) []types.Finding
