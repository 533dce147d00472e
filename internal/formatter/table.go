package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/alevsk/mpd-scope/internal/types"
)

// severityColors highlights findings in terminal tables
var severityColors = map[types.Severity]text.Colors{
	types.SeverityVeryHigh: {text.FgHiRed, text.Bold},
	types.SeverityHigh:     {text.FgRed},
	types.SeverityMedium:   {text.FgYellow},
	types.SeverityLow:      {text.FgCyan},
	types.SeverityInfo:     {text.FgHiBlack},
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(nil)
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateColumns = true
	t.SetTitle(title)
	return t
}

// buildTables builds the metadata, summary, comparison and findings tables.
// The comparison table is nil when no previous manifest was analyzed.
func buildTables(data types.Result, opts *Options) []table.Writer {
	tables := []table.Writer{metadataTable(data)}
	if data.Summary != nil {
		tables = append(tables, summaryTable(*data.Summary))
	}
	if data.Comparison != nil {
		tables = append(tables, comparisonTable(*data.Comparison))
	}
	if data.Success || len(data.Findings()) > 0 {
		tables = append(tables, findingsTable(data.Findings(), opts))
	}
	return tables
}

func metadataTable(data types.Result) table.Writer {
	t := newTable("METADATA")
	t.AppendHeader(table.Row{"KEY", "VALUE"})

	if data.Version != "" {
		t.AppendRow(table.Row{"VERSION", data.Version})
	}
	if data.Name != "" {
		t.AppendRow(table.Row{"NAME", data.Name})
	}
	t.AppendRow(table.Row{"SOURCE", data.Source})
	t.AppendRow(table.Row{"TIMESTAMP", data.Timestamp})
	t.AppendRow(table.Row{"SUCCESS", data.Success})
	if data.Error != "" {
		t.AppendRow(table.Row{"ERROR", data.Error})
	}
	if data.Normalized != nil {
		t.AppendRow(table.Row{"TYPE", data.Normalized.Type})
	}
	if data.Metadata != nil {
		t.AppendRow(table.Row{"PERIODS", data.Metadata.PeriodsCount})
		t.AppendRow(table.Row{"RULES EXECUTED", data.Metadata.RulesExecuted})
	}
	if data.Enhanced != nil {
		t.AppendRow(table.Row{"STRUCTURAL DIFFERENCES", data.Enhanced.Stats.Structural})
		t.AppendRow(table.Row{"DEEP DIFFERENCES", data.Enhanced.Stats.Deep})
		t.AppendRow(table.Row{"DUPLICATES MERGED", data.Enhanced.Stats.Duplicates})
	}

	// Sort extra keys for consistent output
	keys := make([]string, 0, len(data.Extra))
	for k := range data.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.AppendRow(table.Row{strings.ToUpper(k), data.Extra[k]})
	}
	return t
}

func summaryTable(s types.Summary) table.Writer {
	t := newTable("SUMMARY")
	t.AppendHeader(table.Row{"SEVERITY", "COUNT"})
	for _, sev := range types.Severities() {
		t.AppendRow(table.Row{sev.String(), s.Count(sev)})
	}
	t.AppendFooter(table.Row{"VALID", s.IsValid})
	return t
}

func comparisonTable(c types.Comparison) table.Writer {
	t := newTable("CHANGES SINCE PREVIOUS REFRESH")
	t.AppendHeader(table.Row{"CHANGE", "DETAIL"})
	t.AppendRow(table.Row{"PUBLISH TIME CHANGED", c.PublishTimeChanged})
	t.AppendRow(table.Row{"PERIODS ADDED", strings.Join(c.PeriodsAdded, ",")})
	t.AppendRow(table.Row{"PERIODS REMOVED", strings.Join(c.PeriodsRemoved, ",")})
	for _, p := range c.PeriodsModified {
		var changes []string
		if p.StartChanged {
			changes = append(changes, "start")
		}
		if p.DRMChanged {
			changes = append(changes, "drm")
		}
		for _, a := range p.Adaptations {
			changes = append(changes, fmt.Sprintf("%s %s", a.Type, a.Change))
		}
		t.AppendRow(table.Row{"PERIOD " + p.ID + " MODIFIED", strings.Join(changes, ",")})
	}
	t.AppendFooter(table.Row{"SEGMENTS", fmt.Sprintf("+%d -%d", c.SegmentChanges.TotalAdded, c.SegmentChanges.TotalRemoved)})
	return t
}

// findingsTable lists findings from the most to the least severe, keeping
// their original order within a severity.
func findingsTable(findings []types.Finding, opts *Options) table.Writer {
	t := newTable("FINDINGS")
	t.AppendHeader(table.Row{"SEVERITY", "KIND", "LOCATION", "MESSAGE"})

	rows := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity >= opts.MinSeverity {
			rows = append(rows, f)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Severity > rows[j].Severity
	})

	for _, f := range rows {
		sev := f.Severity.String()
		if opts.Color {
			sev = severityColors[f.Severity].Sprint(sev)
		}
		t.AppendRow(table.Row{sev, f.Kind, f.Location, f.Message})
	}

	if opts.MaxMessageWidth > 0 {
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "MESSAGE", WidthMax: opts.MaxMessageWidth},
			{Name: "LOCATION", WidthMax: opts.MaxMessageWidth / 2},
		})
	}
	return t
}

// Format formats data as a table using go-pretty/v6/table
func (t *Table) Format(data types.Result) (string, error) {
	var parts []string
	for _, tw := range buildTables(data, t.opts) {
		parts = append(parts, tw.Render())
	}
	// Combine all tables with newline separators
	return strings.Join(parts, "\n\n") + "\n", nil
}

// Format formats data as markdown tables
func (m *Markdown) Format(data types.Result) (string, error) {
	// Colors have no meaning in markdown
	opts := *m.opts
	opts.Color = false

	var parts []string
	for _, tw := range buildTables(data, &opts) {
		parts = append(parts, tw.RenderMarkdown())
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}
