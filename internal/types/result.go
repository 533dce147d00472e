package types

// Metadata describes an analysis run
type Metadata struct {
	Timestamp     int64 `json:"timestamp" yaml:"timestamp"`
	PeriodsCount  int   `json:"periodsCount" yaml:"periodsCount"`
	RulesExecuted int   `json:"rulesExecuted" yaml:"rulesExecuted"`
}

// Result represents a unified result type for all operations
type Result struct {
	// Basic information
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	Success   bool   `json:"success" yaml:"success"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`

	// Analysis output
	Normalized *MPD        `json:"normalized,omitempty" yaml:"normalized,omitempty"`
	Comparison *Comparison `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	Rules      []Finding   `json:"rules,omitempty" yaml:"rules,omitempty"`
	Summary    *Summary    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Metadata   *Metadata   `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Pair analysis output (source vs SSAI)
	Enhanced *EnhancedReport `json:"enhanced,omitempty" yaml:"enhanced,omitempty"`

	// Formatted output
	OutputFormatted string `json:"-" yaml:"-"`

	// Additional data
	Extra map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Findings returns the rule findings followed by the enhanced differences.
func (r *Result) Findings() []Finding {
	if r == nil {
		return nil
	}
	out := append([]Finding{}, r.Rules...)
	if r.Enhanced != nil {
		out = append(out, r.Enhanced.Differences...)
	}
	return out
}
