// Package enhanced runs a structural comparison of a source and SSAI manifest
// alongside the deep compliance validator and merges both into a single
// deduplicated list of differences with remediation hints.
package enhanced

import (
	"fmt"

	"github.com/alevsk/mpd-scope/internal/compliance"
	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

// Kinds emitted only by the structural pass
const (
	KindDrift         = "DRIFT"
	KindRootAttribute = "ROOT_ATTRIBUTE"
)

// Options configures the enhanced comparison.
type Options struct {
	Compliance compliance.Options `json:"compliance" yaml:"compliance"`
	// DriftThreshold is the summed period start divergence, in seconds,
	// tolerated before the drift detector reports
	DriftThreshold float64 `json:"driftThreshold" yaml:"driftThreshold"`
}

// DefaultOptions returns the standard tolerances and a 100ms drift threshold.
func DefaultOptions() Options {
	return Options{Compliance: compliance.DefaultOptions(), DriftThreshold: 0.1}
}

// Compare parses both manifests and returns the enhanced report.
func Compare(sourceXML, ssaiXML string, opts Options) *types.EnhancedReport {
	source, errSrc := mpdtree.Parse(sourceXML)
	ssai, errSSAI := mpdtree.Parse(ssaiXML)
	if errSrc != nil || errSSAI != nil {
		deep := compliance.Validate(sourceXML, ssaiXML, opts.Compliance)
		return merge(nil, deep)
	}
	return CompareTrees(source, ssai, opts)
}

// CompareTrees compares already parsed manifests.
func CompareTrees(source, ssai *mpdtree.Node, opts Options) *types.EnhancedReport {
	structural := structuralPass(source, ssai, opts)
	deep := compliance.ValidateTrees(source, ssai, opts.Compliance)
	return merge(structural, deep)
}

func merge(structural []types.Finding, deep *types.ComplianceReport) *types.EnhancedReport {
	deepFindings := deep.All()
	all := make([]types.Finding, 0, len(structural)+len(deepFindings))
	all = append(all, structural...)
	all = append(all, deepFindings...)

	differences := Deduplicate(all)
	for i := range differences {
		Remediate(&differences[i])
	}
	return &types.EnhancedReport{
		Differences: differences,
		Compliance:  deep,
		Summary:     types.Summarize(differences),
		Stats: types.EnhancedStats{
			Structural: len(structural),
			Deep:       len(deepFindings),
			Duplicates: len(all) - len(differences),
		},
	}
}

type pass struct {
	name string
	run  func(source, ssai *mpdtree.Node, opts Options) []types.Finding
}

var passes = []pass{
	{"root attributes", compareRootAttributes},
	{"periods", comparePeriods},
	{"segment templates", compareSegmentTemplates},
	{"timescale sweep", sweepTimescales},
	{"dynamic", checkDynamic},
	{"drift", detectDrift},
}

// structuralPass runs every pass, converting a panic in one of them into a
// VeryHigh finding so the others still report.
func structuralPass(source, ssai *mpdtree.Node, opts Options) []types.Finding {
	findings := []types.Finding{}
	for _, p := range passes {
		findings = append(findings, runPass(p, source, ssai, opts)...)
	}
	return findings
}

func runPass(p pass, source, ssai *mpdtree.Node, opts Options) (findings []types.Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = []types.Finding{{
				Kind:     compliance.KindInternal,
				Severity: types.SeverityVeryHigh,
				Message:  fmt.Sprintf("Comparison of %s failed: %v", p.name, r),
				Location: "MPD",
			}}
		}
	}()
	return p.run(source, ssai, opts)
}
