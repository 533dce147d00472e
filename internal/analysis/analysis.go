// Package analysis sequences a manifest analysis: parse, normalize, compare
// against the previous refresh, evaluate the rule catalogue and summarize.
package analysis

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/alevsk/mpd-scope/internal/compare"
	"github.com/alevsk/mpd-scope/internal/enhanced"
	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/normalizer"
	"github.com/alevsk/mpd-scope/internal/rules"
	"github.com/alevsk/mpd-scope/internal/segments"
	"github.com/alevsk/mpd-scope/internal/types"
)

// KindPreviousUnparsable marks a previous refresh that could not be parsed.
const KindPreviousUnparsable = "PREVIOUS_UNPARSABLE"

// Options configures an Analyzer.
type Options struct {
	Rules    rules.Config
	Enhanced enhanced.Options
	// Clock stamps results, the wall clock when nil
	Clock clock.Clock
}

// DefaultOptions returns the default analysis options.
func DefaultOptions() Options {
	return Options{
		Rules:    rules.DefaultConfig(),
		Enhanced: enhanced.DefaultOptions(),
	}
}

// Analyzer runs analyses. It keeps no state between calls; the previous
// manifest of a refresh sequence is always handed in by the caller.
type Analyzer struct {
	opts  Options
	clock clock.Clock
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	return &Analyzer{opts: opts, clock: c}
}

func (a *Analyzer) now() int64 {
	return a.clock.Now().UnixMilli()
}

func (a *Analyzer) failure(err error) *types.Result {
	return &types.Result{
		Success:   false,
		Error:     err.Error(),
		Timestamp: a.now(),
	}
}

// Analyze analyzes manifest, comparing it with previous when previous is not
// empty. It never returns an error: a manifest that cannot be parsed yields a
// failed result.
func (a *Analyzer) Analyze(ctx context.Context, manifest, previous string) *types.Result {
	if err := ctx.Err(); err != nil {
		return a.failure(err)
	}

	root, err := mpdtree.Parse(manifest)
	if err != nil {
		return a.failure(err)
	}
	current, notes := normalizer.Normalize(root)

	res := &types.Result{
		Success:    true,
		Timestamp:  a.now(),
		Normalized: current,
	}

	var prev *types.MPD
	if previous != "" {
		prevRoot, err := mpdtree.Parse(previous)
		if err != nil {
			notes = append(notes, types.Finding{
				Kind:     KindPreviousUnparsable,
				Severity: types.SeverityLow,
				Message:  fmt.Sprintf("Previous manifest ignored: %v", err),
				Location: "MPD",
			})
		} else {
			prev, _ = normalizer.Normalize(prevRoot)
			comparison := compare.Compare(prev, current)
			res.Comparison = &comparison
		}
	}

	eval := rules.Evaluate(rules.Context{Current: current, Previous: prev, Config: a.opts.Rules})
	res.Rules = append(eval.Findings, notes...)

	summary := types.Summarize(res.Rules)
	res.Summary = &summary
	res.Metadata = &types.Metadata{
		Timestamp:     res.Timestamp,
		PeriodsCount:  len(current.Periods),
		RulesExecuted: eval.Executed,
	}
	return res
}

// AnalyzePair analyzes the SSAI manifest with the source as its previous
// refresh and attaches the enhanced source vs SSAI comparison. The summary
// covers both the rule findings and the enhanced differences.
func (a *Analyzer) AnalyzePair(ctx context.Context, source, ssai string) *types.Result {
	res := a.Analyze(ctx, ssai, source)
	if ctx.Err() != nil {
		return res
	}
	res.Enhanced = enhanced.Compare(source, ssai, a.opts.Enhanced)
	if res.Success {
		summary := types.Summarize(res.Findings())
		res.Summary = &summary
	}
	return res
}

// AnalyzeSegments enumerates the manifest segments and checks them against
// the runtime policy using the observed download times, keyed by
// "period/representationId/segmentIndex". The violations become the result rules.
func (a *Analyzer) AnalyzeSegments(ctx context.Context, manifest string, downloads map[string]float64, cfg segments.Config) (*types.Result, segments.Report) {
	if err := ctx.Err(); err != nil {
		return a.failure(err), segments.Report{}
	}
	root, err := mpdtree.Parse(manifest)
	if err != nil {
		return a.failure(err), segments.Report{}
	}

	mpd, _ := normalizer.Normalize(root)
	report := segments.Validate(segments.FromMPD(mpd, downloads), mpd.Type == "dynamic", cfg)

	summary := report.Summary
	res := &types.Result{
		Success:    true,
		Timestamp:  a.now(),
		Normalized: mpd,
		Rules:      report.Violations,
		Summary:    &summary,
		Metadata: &types.Metadata{
			PeriodsCount: len(mpd.Periods),
		},
		Extra: map[string]interface{}{
			"totalSegments":     report.TotalSegments,
			"totalViolations":   report.TotalViolations,
			"violatingSegments": report.ViolatingSegments,
			"sampled":           report.Sampled,
		},
	}
	res.Metadata.Timestamp = res.Timestamp
	return res, report
}
