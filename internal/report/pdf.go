// Package report renders analysis results as PDF documents.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/alevsk/mpd-scope/internal/types"
)

// ErrNoResult is returned when there is nothing to render
var ErrNoResult = errors.New("no result to render")

// SavePDF renders the result into a PDF document at out.
func SavePDF(res *types.Result, out string) error {
	pdf, err := build(res)
	if err != nil {
		return err
	}
	return pdf.OutputFileAndClose(out)
}

// WritePDF renders the result into w.
func WritePDF(res *types.Result, w io.Writer) error {
	pdf, err := build(res)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

func build(res *types.Result) (*gofpdf.Fpdf, error) {
	if res == nil {
		return nil, ErrNoResult
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("MPD Analysis Report", false)
	pdf.SetAuthor("mpd-scope", false)
	pdf.SetCreator("mpd-scope", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	addTitle(pdf, "MPD Analysis Report")
	addOverview(pdf, tr, res)
	if res.Summary != nil {
		addSummary(pdf, *res.Summary)
	}
	if res.Comparison != nil {
		addComparison(pdf, tr, res.Comparison)
	}
	addFindings(pdf, tr, res.Findings())

	if pdf.Err() {
		return nil, pdf.Error()
	}
	return pdf, nil
}

func addTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSection(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
}

func addRows(pdf *gofpdf.Fpdf, tr func(string) string, rows [][2]string) {
	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.CellFormat(50, 6, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(emptyFallback(row[1], "-")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addOverview(pdf *gofpdf.Fpdf, tr func(string) string, res *types.Result) {
	addSection(pdf, "Overview")
	rows := [][2]string{
		{"Name", res.Name},
		{"Source", res.Source},
		{"Status", statusLabel(res.Success)},
		{"Generated", time.UnixMilli(res.Timestamp).UTC().Format(time.RFC3339)},
	}
	if res.Error != "" {
		rows = append(rows, [2]string{"Error", res.Error})
	}
	if m := res.Metadata; m != nil {
		rows = append(rows,
			[2]string{"Periods", strconv.Itoa(m.PeriodsCount)},
			[2]string{"Rules Executed", strconv.Itoa(m.RulesExecuted)})
	}
	if m := res.Normalized; m != nil {
		rows = append(rows, [2]string{"Type", m.Type})
	}
	addRows(pdf, tr, rows)
}

func addSummary(pdf *gofpdf.Fpdf, s types.Summary) {
	addSection(pdf, "Summary")

	widths := []float64{30, 30, 30, 30, 30, 30}
	headers := make([]string, 0, len(widths))
	values := make([]string, 0, len(widths))
	for _, sev := range types.Severities() {
		headers = append(headers, sev.String())
		values = append(values, strconv.Itoa(s.Count(sev)))
	}
	headers = append(headers, "Total")
	values = append(values, strconv.Itoa(s.Total))

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for i, v := range values {
		pdf.CellFormat(widths[i], 7, v, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Ln(2)
	pdf.Cell(0, 6, "Valid: "+strconv.FormatBool(s.IsValid))
	pdf.Ln(10)
}

func addComparison(pdf *gofpdf.Fpdf, tr func(string) string, c *types.Comparison) {
	addSection(pdf, "Refresh Comparison")

	modified := make([]string, 0, len(c.PeriodsModified))
	for _, p := range c.PeriodsModified {
		modified = append(modified, p.ID)
	}
	addRows(pdf, tr, [][2]string{
		{"Publish Time Changed", strconv.FormatBool(c.PublishTimeChanged)},
		{"Periods Added", strings.Join(c.PeriodsAdded, ", ")},
		{"Periods Removed", strings.Join(c.PeriodsRemoved, ", ")},
		{"Periods Modified", strings.Join(modified, ", ")},
		{"Segments Added", strconv.Itoa(c.SegmentChanges.TotalAdded)},
		{"Segments Removed", strconv.Itoa(c.SegmentChanges.TotalRemoved)},
	})
}

func addFindings(pdf *gofpdf.Fpdf, tr func(string) string, findings []types.Finding) {
	addSection(pdf, "Findings")

	if len(findings) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No findings recorded.", "", "L", false)
		return
	}

	sorted := append([]types.Finding{}, findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity > sorted[j].Severity
	})

	for i, f := range sorted {
		pdf.SetFont("Helvetica", "B", 10)
		header := fmt.Sprintf("%d. %s (%s)", i+1, f.Kind, f.Severity)
		pdf.MultiCell(0, 5, tr(header), "", "L", false)

		if msg := strings.TrimSpace(f.Message); msg != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(msg), "", "L", false)
		}
		if meta := findingMetadata(f); meta != "" {
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 4, tr(meta), "", "L", false)
		}
		pdf.Ln(2)
	}
}

func findingMetadata(f types.Finding) string {
	parts := make([]string, 0, 4)
	if f.Location != "" {
		parts = append(parts, f.Location)
	}
	if f.Attribute != "" {
		parts = append(parts, "Attribute "+f.Attribute)
	}
	if f.SourceValue != "" || f.SSAIValue != "" {
		parts = append(parts, fmt.Sprintf("Source %s / SSAI %s",
			emptyFallback(f.SourceValue, "-"), emptyFallback(f.SSAIValue, "-")))
	}
	if n := len(f.Highlight); n > 0 {
		parts = append(parts, fmt.Sprintf("%d segment(s) highlighted", n))
	}
	return strings.Join(parts, " | ")
}

func statusLabel(success bool) string {
	if success {
		return "OK"
	}
	return "FAILED"
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
