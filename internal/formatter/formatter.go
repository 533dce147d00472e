package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/alevsk/mpd-scope/internal/compliance"
	"github.com/alevsk/mpd-scope/internal/types"
)

// Format formats data as JSON
func (j *JSON) Format(data types.Result) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error formatting as JSON: %w", err)
	}
	return string(bytes), nil
}

// Format formats data as YAML
func (y *YAML) Format(data types.Result) (string, error) {
	bytes, err := yaml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("error formatting as YAML: %w", err)
	}
	return string(bytes), nil
}

// Format writes one JSON object per finding, rules first then enhanced
// differences. A failed result yields a single error record.
func (n *NDJSON) Format(data types.Result) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	if !data.Success && data.Error != "" {
		line := FindingLine{Source: data.Source, Timestamp: data.Timestamp, Finding: types.Finding{
			Kind:     compliance.KindParse,
			Severity: types.SeverityVeryHigh,
			Message:  data.Error,
		}}
		if err := enc.Encode(line); err != nil {
			return "", fmt.Errorf("error formatting as NDJSON: %w", err)
		}
	}

	for _, f := range data.Findings() {
		if err := enc.Encode(FindingLine{Source: data.Source, Timestamp: data.Timestamp, Finding: f}); err != nil {
			return "", fmt.Errorf("error formatting as NDJSON: %w", err)
		}
	}
	return buf.String(), nil
}

// ParseType converts a string to a Type
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeJSON, TypeYAML, TypeTable, TypeMarkdown, TypeNDJSON:
		return Type(s), nil
	case "md":
		return TypeMarkdown, nil
	default:
		return "", fmt.Errorf("unknown formatter type: %s", s)
	}
}

// NewFormatter creates a new formatter of the specified type
func NewFormatter(t Type, opts *Options) (Formatter, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch t {
	case TypeJSON:
		return &JSON{}, nil
	case TypeYAML:
		return &YAML{}, nil
	case TypeNDJSON:
		return &NDJSON{}, nil
	case TypeTable:
		return &Table{opts: opts}, nil
	case TypeMarkdown:
		return &Markdown{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", t)
	}
}
