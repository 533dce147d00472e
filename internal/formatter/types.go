package formatter

import "github.com/alevsk/mpd-scope/internal/types"

// Formatter defines the interface for formatting data
type Formatter interface {
	Format(data types.Result) (string, error)
}

// Type represents the type of formatter
type Type string

const (
	// TypeJSON formats data as JSON
	TypeJSON Type = "json"
	// TypeYAML formats data as YAML
	TypeYAML Type = "yaml"
	// TypeTable formats data as a table
	TypeTable Type = "table"
	// TypeMarkdown formats data as markdown
	TypeMarkdown Type = "markdown"
	// TypeNDJSON formats findings as newline delimited JSON
	TypeNDJSON Type = "ndjson"
)

// Types lists every supported formatter type
func Types() []Type {
	return []Type{TypeTable, TypeJSON, TypeYAML, TypeMarkdown, TypeNDJSON}
}

// Options tunes the human readable formatters
type Options struct {
	// Color highlights severities with ANSI colors in tables
	Color bool
	// MaxMessageWidth wraps finding messages, 0 disables wrapping
	MaxMessageWidth int
	// MinSeverity hides findings below this severity in tables
	MinSeverity types.Severity
}

// DefaultOptions returns the default formatter options
func DefaultOptions() *Options {
	return &Options{MaxMessageWidth: 80, MinSeverity: types.SeverityInfo}
}

// JSON implements JSON formatting
type JSON struct{}

// YAML implements YAML formatting
type YAML struct{}

// NDJSON implements newline delimited JSON formatting of findings
type NDJSON struct{}

// Table implements table formatting
type Table struct {
	opts *Options
}

// Markdown implements markdown formatting
type Markdown struct {
	opts *Options
}

// FindingLine is one NDJSON record
type FindingLine struct {
	Source    string `json:"source,omitempty"`
	Timestamp int64  `json:"timestamp"`
	types.Finding
}
