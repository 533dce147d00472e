package types

// Finding is a single rule or validator result.
type Finding struct {
	// Kind is the rule id or check category that produced the finding
	Kind     string   `json:"kind" yaml:"kind"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`

	// Location identifies the offending element, e.g. Period[1]/AdaptationSet[video]
	Location    string `json:"location,omitempty" yaml:"location,omitempty"`
	Attribute   string `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	SourceValue string `json:"sourceValue,omitempty" yaml:"sourceValue,omitempty"`
	SSAIValue   string `json:"ssaiValue,omitempty" yaml:"ssaiValue,omitempty"`

	// Details carries structured location identifiers and values
	Details map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
	// Highlight lists the segments the finding refers to, if any
	Highlight []Segment `json:"highlight,omitempty" yaml:"highlight,omitempty"`

	Remediation string `json:"remediation,omitempty" yaml:"remediation,omitempty"`
	Impact      string `json:"impact,omitempty" yaml:"impact,omitempty"`
}

// Summary tabulates findings per severity.
type Summary struct {
	VeryHigh int  `json:"veryHigh" yaml:"veryHigh"`
	High     int  `json:"high" yaml:"high"`
	Medium   int  `json:"medium" yaml:"medium"`
	Low      int  `json:"low" yaml:"low"`
	Info     int  `json:"info" yaml:"info"`
	Total    int  `json:"total" yaml:"total"`
	IsValid  bool `json:"isValid" yaml:"isValid"`
}

// Count returns the number of findings recorded for the given severity.
func (s Summary) Count(sev Severity) int {
	switch sev {
	case SeverityVeryHigh:
		return s.VeryHigh
	case SeverityHigh:
		return s.High
	case SeverityMedium:
		return s.Medium
	case SeverityLow:
		return s.Low
	default:
		return s.Info
	}
}

// Summarize counts findings per severity. The result is valid when no
// VeryHigh or High finding is present.
func Summarize(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityVeryHigh:
			s.VeryHigh++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		default:
			s.Info++
		}
	}
	s.Total = len(findings)
	s.IsValid = s.VeryHigh+s.High == 0
	return s
}

// FilterSeverity returns the findings whose severity is one of sevs.
func FilterSeverity(findings []Finding, sevs ...Severity) []Finding {
	out := []Finding{}
	for _, f := range findings {
		for _, s := range sevs {
			if f.Severity == s {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// ComplianceReport is the deep validator output.
type ComplianceReport struct {
	Errors   []Finding `json:"errors" yaml:"errors"`
	Warnings []Finding `json:"warnings" yaml:"warnings"`
	Info     []Finding `json:"info" yaml:"info"`
	Summary  Summary   `json:"summary" yaml:"summary"`
}

// NewComplianceReport buckets findings into errors (VeryHigh, High),
// warnings (Medium, Low) and info.
func NewComplianceReport(findings []Finding) *ComplianceReport {
	return &ComplianceReport{
		Errors:   FilterSeverity(findings, SeverityVeryHigh, SeverityHigh),
		Warnings: FilterSeverity(findings, SeverityMedium, SeverityLow),
		Info:     FilterSeverity(findings, SeverityInfo),
		Summary:  Summarize(findings),
	}
}

// All returns every finding of the report in errors, warnings, info order.
func (r *ComplianceReport) All() []Finding {
	if r == nil {
		return nil
	}
	out := make([]Finding, 0, len(r.Errors)+len(r.Warnings)+len(r.Info))
	out = append(out, r.Errors...)
	out = append(out, r.Warnings...)
	return append(out, r.Info...)
}

// EnhancedReport is the enhanced comparison output: the deduplicated union of
// the structural pass and the deep validator.
type EnhancedReport struct {
	Differences []Finding         `json:"differences" yaml:"differences"`
	Compliance  *ComplianceReport `json:"compliance,omitempty" yaml:"compliance,omitempty"`
	Summary     Summary           `json:"summary" yaml:"summary"`
	Stats       EnhancedStats     `json:"stats" yaml:"stats"`
}

// EnhancedStats records where the differences came from.
type EnhancedStats struct {
	Structural int `json:"structural" yaml:"structural"`
	Deep       int `json:"deep" yaml:"deep"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
}
