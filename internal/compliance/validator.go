// Package compliance cross-validates an SSAI manifest against its source.
// Elements are paired semantically (ids, start times, composite keys and
// best-match scoring) and compared with tolerances, so the SSAI manifest can
// reorder, renumber and splice ad periods without tripping positional diffs.
package compliance

import (
	"fmt"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

// Finding kinds emitted by the validator, one per concern
const (
	KindParse          = "PARSE"
	KindInternal       = "INTERNAL"
	KindRoot           = "ROOT"
	KindLive           = "LIVE"
	KindDuration       = "DURATION"
	KindPeriod         = "PERIOD"
	KindContinuity     = "CONTINUITY"
	KindAd             = "AD"
	KindAdaptationSet  = "ADAPTATION_SET"
	KindRepresentation = "REPRESENTATION"
	KindCodec          = "CODEC"
	KindAudio          = "AUDIO"
	KindDRM            = "DRM"
	KindTemplate       = "TEMPLATE"
	KindTimeline       = "TIMELINE"
	KindLadder         = "LADDER"
)

// Options holds the comparison tolerances. Percentages are fractions
// (0.01 is 1%) and times are seconds.
type Options struct {
	BandwidthTolerance   float64 `json:"bandwidthTolerance" yaml:"bandwidthTolerance"`
	TimingTolerance      float64 `json:"timingTolerance" yaml:"timingTolerance"`
	PeriodStartTolerance float64 `json:"periodStartTolerance" yaml:"periodStartTolerance"`
	BufferDepthTolerance float64 `json:"bufferDepthTolerance" yaml:"bufferDepthTolerance"`
	LadderTolerance      float64 `json:"ladderTolerance" yaml:"ladderTolerance"`
}

// DefaultOptions returns the standard tolerances.
func DefaultOptions() Options {
	return Options{
		BandwidthTolerance:   0.01,
		TimingTolerance:      0.001,
		PeriodStartTolerance: 0.1,
		BufferDepthTolerance: 0.10,
		LadderTolerance:      0.10,
	}
}

// input is the explicit context handed to every check.
type input struct {
	source  *mpdtree.Node
	ssai    *mpdtree.Node
	opts    Options
	periods []PeriodPair
	// missingDRM records period|scheme pairs already reported as missing
	missingDRM map[string]bool
}

type check struct {
	name string
	run  func(in *input) []types.Finding
}

// checks run in order; each one is isolated from the failures of the others
var checks = []check{
	{"root", checkRoot},
	{"live", checkLive},
	{"periods", checkPeriods},
	{"continuity", checkContinuity},
	{"ads", checkAdPeriods},
	{"duration parity", checkDurationParity},
	{"adaptation sets", checkAdaptationSets},
}

// Validate parses both manifests and validates the SSAI one against the
// source. A document that cannot be parsed is reported as a VeryHigh finding.
func Validate(sourceXML, ssaiXML string, opts Options) *types.ComplianceReport {
	source, err := mpdtree.Parse(sourceXML)
	if err != nil {
		return types.NewComplianceReport([]types.Finding{parseFailure("source", err)})
	}
	ssai, err := mpdtree.Parse(ssaiXML)
	if err != nil {
		return types.NewComplianceReport([]types.Finding{parseFailure("SSAI", err)})
	}
	return ValidateTrees(source, ssai, opts)
}

func parseFailure(which string, err error) types.Finding {
	return types.Finding{
		Kind:     KindParse,
		Severity: types.SeverityVeryHigh,
		Message:  fmt.Sprintf("Failed to parse %s manifest: %v", which, err),
		Location: "MPD",
	}
}

// ValidateTrees validates already parsed manifests.
func ValidateTrees(source, ssai *mpdtree.Node, opts Options) (report *types.ComplianceReport) {
	defer func() {
		if r := recover(); r != nil {
			report = types.NewComplianceReport([]types.Finding{internalFailure("validation", r)})
		}
	}()

	in := &input{source: source, ssai: ssai, opts: opts}
	in.periods = MatchPeriods(source, ssai, opts.PeriodStartTolerance)

	findings := []types.Finding{}
	for _, c := range checks {
		findings = append(findings, runCheck(c, in)...)
	}
	return types.NewComplianceReport(findings)
}

func runCheck(c check, in *input) (findings []types.Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = []types.Finding{internalFailure(c.name, r)}
		}
	}()
	return c.run(in)
}

func internalFailure(name string, r interface{}) types.Finding {
	return types.Finding{
		Kind:     KindInternal,
		Severity: types.SeverityVeryHigh,
		Message:  fmt.Sprintf("Validation of %s failed: %v", name, r),
		Location: "MPD",
		Details:  map[string]interface{}{"check": name},
	}
}

// difference builds a finding comparing one attribute of both manifests.
func difference(kind string, sev types.Severity, location, attribute, source, ssai, msg string) types.Finding {
	return types.Finding{
		Kind:        kind,
		Severity:    sev,
		Message:     msg,
		Location:    location,
		Attribute:   attribute,
		SourceValue: source,
		SSAIValue:   ssai,
	}
}

func note(kind string, sev types.Severity, location, msg string) types.Finding {
	return types.Finding{Kind: kind, Severity: sev, Message: msg, Location: location}
}
