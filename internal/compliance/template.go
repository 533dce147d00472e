package compliance

import (
	"fmt"
	"math"
	"regexp"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/normalizer"
	"github.com/alevsk/mpd-scope/internal/timeline"
	"github.com/alevsk/mpd-scope/internal/types"
)

// templateDurationTolerance is the relative @duration difference allowed
const templateDurationTolerance = 0.01

var (
	tokenRepresentationID = regexp.MustCompile(`\$RepresentationID\$`)
	tokenNumber           = regexp.MustCompile(`\$Number(%0\d+d)?\$`)
	tokenTime             = regexp.MustCompile(`\$Time(%0\d+d)?\$`)
)

// checkTemplates compares SegmentTemplates at adaptation set level and, for
// representations that carry their own, at representation level.
func checkTemplates(in *input, set AdaptationPair, reps []RepresentationPair) []types.Finding {
	findings := []types.Finding{}
	srcST, ssaiST := set.Source.Child("SegmentTemplate"), set.SSAI.Child("SegmentTemplate")
	setLevel := srcST != nil && ssaiST != nil
	if setLevel {
		findings = append(findings, CompareTemplates(set.Location, srcST, ssaiST, in.opts)...)
	}
	for _, pair := range reps {
		if pair.Source == nil || pair.SSAI == nil {
			continue
		}
		own := pair.Source.Child("SegmentTemplate") != nil || pair.SSAI.Child("SegmentTemplate") != nil
		if setLevel && !own {
			continue
		}
		findings = append(findings, CompareTemplates(pair.Location,
			normalizer.SegmentTemplate(pair.Source, set.Source),
			normalizer.SegmentTemplate(pair.SSAI, set.SSAI), in.opts)...)
	}
	return findings
}

func timescaleOf(st *mpdtree.Node) int64 {
	ts, _ := st.Int("timescale")
	return timeline.NormalizeTimescale(ts)
}

// CompareTemplates compares two effective SegmentTemplates. A timescale
// mismatch invalidates all timing math, so nothing else is compared after it.
func CompareTemplates(location string, src, ssai *mpdtree.Node, opts Options) []types.Finding {
	if src == nil {
		return nil
	}
	if ssai == nil {
		return []types.Finding{note(KindTemplate, types.SeverityMedium, location, "SegmentTemplate is missing from the SSAI manifest")}
	}

	srcTS, ssaiTS := timescaleOf(src), timescaleOf(ssai)
	if srcTS != ssaiTS {
		return []types.Finding{difference(KindTemplate, types.SeverityVeryHigh, location, "timescale", fmt.Sprint(srcTS), fmt.Sprint(ssaiTS),
			fmt.Sprintf("Timescale mismatch: source %d, SSAI %d", srcTS, ssaiTS))}
	}

	findings := []types.Finding{}
	if a, okA := src.Int("duration"); okA {
		if b, okB := ssai.Int("duration"); okB {
			srcDur, ssaiDur := float64(a)/float64(srcTS), float64(b)/float64(ssaiTS)
			if srcDur > 0 && math.Abs(srcDur-ssaiDur)/srcDur > templateDurationTolerance {
				findings = append(findings, difference(KindTemplate, types.SeverityHigh, location, "duration", seconds(srcDur), seconds(ssaiDur),
					fmt.Sprintf("Segment duration mismatch: source %s, SSAI %s", seconds(srcDur), seconds(ssaiDur))))
			}
		}
	}

	if a, b := src.String("startNumber"), ssai.String("startNumber"); a != b && (a != "" || b != "") {
		findings = append(findings, difference(KindTemplate, types.SeverityInfo, location, "startNumber", a, b,
			fmt.Sprintf("startNumber shifted from %q to %q", a, b)))
	}

	findings = append(findings, compareMediaTemplate(location, src.String("media"), ssai.String("media"))...)
	findings = append(findings, compareTimelines(location, src, ssai, srcTS, opts)...)
	return findings
}

func compareMediaTemplate(location, src, ssai string) []types.Finding {
	if src == "" || ssai == "" {
		return nil
	}
	var findings []types.Finding
	for _, token := range []struct {
		name    string
		pattern *regexp.Regexp
	}{
		{"$RepresentationID$", tokenRepresentationID},
		{"$Number$", tokenNumber},
	} {
		if token.pattern.MatchString(src) && !token.pattern.MatchString(ssai) {
			if token.name == "$Number$" && tokenTime.MatchString(ssai) {
				continue
			}
			findings = append(findings, difference(KindTemplate, types.SeverityHigh, location, "media", src, ssai,
				fmt.Sprintf("Missing URL template token %s", token.name)))
		}
	}

	srcNumber, ssaiNumber := tokenNumber.MatchString(src), tokenNumber.MatchString(ssai)
	srcTime, ssaiTime := tokenTime.MatchString(src), tokenTime.MatchString(ssai)
	if (srcNumber && ssaiTime && !ssaiNumber) || (srcTime && ssaiNumber && !ssaiTime) {
		findings = append(findings, difference(KindTemplate, types.SeverityMedium, location, "media", src, ssai,
			"Segment addressing switched between $Number$ and $Time$"))
	}
	return findings
}

// compareTimelines expands both timelines and reports the first segment whose
// relative start or duration drifts beyond the timing tolerance. Open-ended
// timelines are reported as not verified instead.
func compareTimelines(location string, src, ssai *mpdtree.Node, timescale int64, opts Options) []types.Finding {
	srcTL, ssaiTL := src.Child("SegmentTimeline"), ssai.Child("SegmentTimeline")
	switch {
	case srcTL == nil && ssaiTL == nil:
		return nil
	case srcTL == nil || ssaiTL == nil:
		return []types.Finding{note(KindTimeline, types.SeverityInfo, location,
			"Segment addressing changed between SegmentTimeline and @duration")}
	}

	srcEntries, ssaiEntries := timeline.FromNode(srcTL), timeline.FromNode(ssaiTL)
	if timeline.HasOpenEnded(srcEntries) || timeline.HasOpenEnded(ssaiEntries) {
		f := note(KindTimeline, types.SeverityMedium, location,
			"SegmentTimeline not verified: open-ended repeat (r=-1)")
		f.Attribute = "r"
		return []types.Finding{f}
	}

	srcSegs, err := timeline.Expand(srcEntries, timescale)
	if err != nil {
		return nil
	}
	ssaiSegs, err := timeline.Expand(ssaiEntries, timescale)
	if err != nil {
		return nil
	}

	var findings []types.Finding
	if len(srcSegs) != len(ssaiSegs) {
		findings = append(findings, difference(KindTimeline, types.SeverityMedium, location, "S", fmt.Sprint(len(srcSegs)), fmt.Sprint(len(ssaiSegs)),
			fmt.Sprintf("Segment count mismatch: source %d, SSAI %d", len(srcSegs), len(ssaiSegs))))
	}

	n := len(srcSegs)
	if len(ssaiSegs) < n {
		n = len(ssaiSegs)
	}
	for i := 0; i < n; i++ {
		a, b := srcSegs[i], ssaiSegs[i]
		relA, relB := a.Start-srcSegs[0].Start, b.Start-ssaiSegs[0].Start
		if math.Abs(a.Duration-b.Duration) <= opts.TimingTolerance && math.Abs(relA-relB) <= opts.TimingTolerance {
			continue
		}
		f := difference(KindTimeline, types.SeverityHigh, location, "S", seconds(a.Duration), seconds(b.Duration),
			fmt.Sprintf("Segment timing mismatch at index %d: source %s@%s, SSAI %s@%s", i, seconds(a.Duration), seconds(relA), seconds(b.Duration), seconds(relB)))
		f.Details = map[string]interface{}{"segmentIndex": i}
		f.Highlight = []types.Segment{b}
		findings = append(findings, f)
		break
	}
	return findings
}
