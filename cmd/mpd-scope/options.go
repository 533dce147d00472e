package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/alevsk/mpd-scope/internal/formatter"
	"github.com/alevsk/mpd-scope/internal/ingestor"
	"github.com/alevsk/mpd-scope/internal/report"
	"github.com/alevsk/mpd-scope/internal/types"
)

// runOptions are the flags shared by the analysis commands
type runOptions struct {
	output         string
	minSeverity    string
	color          bool
	maxWidth       int
	concurrency    int
	followSymlinks bool
	pdf            string
}

func (o *runOptions) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&o.output, "output", "o", string(formatter.TypeTable),
		"output format (table, json, yaml, markdown, ndjson)")
	flags.StringVar(&o.minSeverity, "min-severity", "info",
		"hide findings below this severity in tables (info, low, medium, high, veryhigh)")
	flags.BoolVar(&o.color, "color", false, "highlight severities with colors in tables")
	flags.IntVar(&o.maxWidth, "max-width", 80, "wrap finding messages at this width, 0 disables wrapping")
	flags.IntVar(&o.concurrency, "concurrency", 4,
		"maximum number of concurrent analysis operations")
	flags.BoolVar(&o.followSymlinks, "follow-symlinks", false,
		"follow symbolic links during directory traversal")
}

func (o *runOptions) bindPDF(flags *pflag.FlagSet) {
	flags.StringVar(&o.pdf, "pdf", "", "also write the report as a PDF file")
}

// ingestorOptions merges the loaded configuration with the command flags
func (o *runOptions) ingestorOptions() (*ingestor.Options, error) {
	t, err := formatter.ParseType(o.output)
	if err != nil {
		return nil, err
	}
	sev, err := types.ParseSeverity(o.minSeverity)
	if err != nil {
		return nil, err
	}
	fopts := formatter.DefaultOptions()
	fopts.Color = o.color
	fopts.MaxMessageWidth = o.maxWidth
	fopts.MinSeverity = sev
	f, err := formatter.NewFormatter(t, fopts)
	if err != nil {
		return nil, err
	}

	opts := ingestor.DefaultOptions()
	opts.MaxConcurrency = o.concurrency
	opts.FollowSymlinks = o.followSymlinks
	opts.Analysis = cfg.Analysis.AnalysisOptions()
	opts.Segments = cfg.Analysis.SegmentConfig()
	opts.Formatter = f
	return opts, nil
}

// emit prints the formatted result, writes the PDF when asked, and turns a
// failed analysis into an error
func (o *runOptions) emit(w io.Writer, res *types.Result) error {
	fmt.Fprint(w, res.OutputFormatted)
	if o.pdf != "" {
		if err := report.SavePDF(res, o.pdf); err != nil {
			return fmt.Errorf("failed to write PDF report: %w", err)
		}
	}
	if !res.Success {
		return fmt.Errorf("analysis failed: %v", res.Error)
	}
	return nil
}
