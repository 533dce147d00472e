package enhanced

import (
	"fmt"
	"math"
	"sort"

	"github.com/alevsk/mpd-scope/internal/compliance"
	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/normalizer"
	"github.com/alevsk/mpd-scope/internal/types"
)

// rootAttribute is a root duration compared with a tolerance
type rootAttribute struct {
	name      string
	tolerance float64
	severity  types.Severity
}

var rootAttributes = []rootAttribute{
	{"mediaPresentationDuration", 0.001, types.SeverityLow},
	{"minBufferTime", 0.001, types.SeverityLow},
	{"maxSegmentDuration", 0.001, types.SeverityLow},
	{"minimumUpdatePeriod", 0.001, types.SeverityLow},
	{"suggestedPresentationDelay", 0.5, types.SeverityLow},
	{"timeShiftBufferDepth", 1, types.SeverityLow},
}

func compareRootAttributes(source, ssai *mpdtree.Node, opts Options) []types.Finding {
	findings := []types.Finding{}

	srcType, ssaiType := source.String("type"), ssai.String("type")
	if srcType == "" {
		srcType = "static"
	}
	if ssaiType == "" {
		ssaiType = "static"
	}
	if srcType != ssaiType {
		f := diff(compliance.KindRoot, types.SeverityVeryHigh, "MPD", "type", srcType, ssaiType,
			fmt.Sprintf("MPD type mismatch: source is %s, SSAI is %s", srcType, ssaiType))
		f.Impact = "Players handle static and dynamic presentations with different refresh and timing models."
		findings = append(findings, f)
	}

	for _, attr := range rootAttributes {
		src := compliance.ParseDuration(source.String(attr.name)).Value
		dst := compliance.ParseDuration(ssai.String(attr.name)).Value
		switch {
		case src == nil && dst == nil:
		case src == nil || dst == nil:
			findings = append(findings, diff(KindRootAttribute, types.SeverityInfo, "MPD", attr.name,
				source.String(attr.name), ssai.String(attr.name),
				fmt.Sprintf("MPD@%s present in only one manifest", attr.name)))
		case math.Abs(*src-*dst) > attr.tolerance:
			findings = append(findings, diff(KindRootAttribute, attr.severity, "MPD", attr.name,
				source.String(attr.name), ssai.String(attr.name),
				fmt.Sprintf("MPD@%s changed from %s to %s", attr.name, source.String(attr.name), ssai.String(attr.name))))
		}
	}
	return findings
}

// comparePeriods reports period level structure: added, missing and
// adaptation sets that did not survive.
func comparePeriods(source, ssai *mpdtree.Node, opts Options) []types.Finding {
	findings := []types.Finding{}
	for _, pair := range compliance.MatchPeriods(source, ssai, opts.Compliance.PeriodStartTolerance) {
		loc := pair.Location()
		switch {
		case pair.SSAI == nil:
			f := diff(compliance.KindPeriod, types.SeverityVeryHigh, loc, "", pair.Source.ID, "",
				fmt.Sprintf("Missing content period %s in SSAI manifest", loc))
			f.Impact = "The content of this period is never played."
			findings = append(findings, f)
		case pair.Source == nil:
			label := "Period"
			if pair.SSAI.Ad {
				label = "Ad period"
			}
			f := diff(compliance.KindPeriod, types.SeverityInfo, loc, "", "", pair.SSAI.ID,
				fmt.Sprintf("%s added: %s", label, loc))
			if pair.SSAI.Duration != nil {
				f.Details = map[string]interface{}{"duration": *pair.SSAI.Duration}
			}
			findings = append(findings, f)
		default:
			for _, set := range compliance.MatchAdaptationSets(loc, pair.Source.Node.All("AdaptationSet"), pair.SSAI.Node.All("AdaptationSet")) {
				if set.SSAI != nil {
					continue
				}
				sev := types.SeverityHigh
				if set.Key.ContentType == types.ContentTypeVideo || set.Key.ContentType == types.ContentTypeAudio {
					sev = types.SeverityVeryHigh
				}
				findings = append(findings, diff(compliance.KindAdaptationSet, sev, set.Location, "", set.Key.String(), "",
					fmt.Sprintf("Missing adaptation set %s in SSAI manifest", set.Key)))
			}
		}
	}
	return findings
}

// compareSegmentTemplates checks templates at adaptation set and
// representation level. Beyond the deep validator it compares the
// initialization pattern and presentationTimeOffset.
func compareSegmentTemplates(source, ssai *mpdtree.Node, opts Options) []types.Finding {
	findings := []types.Finding{}
	eachSetPair(source, ssai, opts, func(set compliance.AdaptationPair) {
		srcST, ssaiST := set.Source.Child("SegmentTemplate"), set.SSAI.Child("SegmentTemplate")
		if srcST != nil && ssaiST != nil {
			findings = append(findings, compliance.CompareTemplates(set.Location, srcST, ssaiST, opts.Compliance)...)
			findings = append(findings, compareTemplateExtras(set.Location, srcST, ssaiST)...)
		}
		for _, rep := range compliance.MatchRepresentations(set, opts.Compliance) {
			if rep.Source == nil || rep.SSAI == nil {
				continue
			}
			if rep.Source.Child("SegmentTemplate") == nil && rep.SSAI.Child("SegmentTemplate") == nil {
				continue
			}
			src := normalizer.SegmentTemplate(rep.Source, set.Source)
			dst := normalizer.SegmentTemplate(rep.SSAI, set.SSAI)
			findings = append(findings, compliance.CompareTemplates(rep.Location, src, dst, opts.Compliance)...)
			if src != nil && dst != nil {
				findings = append(findings, compareTemplateExtras(rep.Location, src, dst)...)
			}
		}
	})
	return findings
}

func compareTemplateExtras(location string, src, ssai *mpdtree.Node) []types.Finding {
	var findings []types.Finding
	if a, b := src.String("initialization"), ssai.String("initialization"); a != "" && b == "" {
		findings = append(findings, diff(compliance.KindTemplate, types.SeverityHigh, location, "initialization", a, b,
			"SegmentTemplate initialization pattern is missing from the SSAI manifest"))
	}
	a, _ := src.Int("presentationTimeOffset")
	b, _ := ssai.Int("presentationTimeOffset")
	if a != b {
		findings = append(findings, diff(compliance.KindTemplate, types.SeverityMedium, location, "presentationTimeOffset",
			fmt.Sprint(a), fmt.Sprint(b),
			fmt.Sprintf("presentationTimeOffset changed from %d to %d; segment timing shifts accordingly", a, b)))
	}
	return findings
}

func eachSetPair(source, ssai *mpdtree.Node, opts Options, fn func(compliance.AdaptationPair)) {
	for _, pair := range compliance.MatchPeriods(source, ssai, opts.Compliance.PeriodStartTolerance) {
		if pair.Source == nil || pair.SSAI == nil {
			continue
		}
		for _, set := range compliance.MatchAdaptationSets(pair.Location(), pair.Source.Node.All("AdaptationSet"), pair.SSAI.Node.All("AdaptationSet")) {
			if set.SSAI != nil {
				fn(set)
			}
		}
	}
}

// timescaleUse is where a timescale was declared
type timescaleUse struct {
	timescale int64
	location  string
}

// timescales walks the whole tree and collects the SegmentTemplate and
// SegmentBase timescales of every adaptation set per content type.
func timescales(root *mpdtree.Node) map[string][]timescaleUse {
	out := map[string][]timescaleUse{}
	for _, span := range compliance.Timeline(root) {
		periodLoc := periodLocation(span)
		for _, as := range span.Node.All("AdaptationSet") {
			contentType := normalizer.ContentType(as)
			loc := fmt.Sprintf("%s/AdaptationSet[%s]", periodLoc, compliance.KeyOf(as))
			as.Walk(func(n *mpdtree.Node) bool {
				if n.Tag == "SegmentTemplate" || n.Tag == "SegmentBase" {
					ts, ok := n.Int("timescale")
					if !ok {
						ts = 1
					}
					out[contentType] = append(out[contentType], timescaleUse{ts, loc})
				}
				return true
			})
		}
	}
	return out
}

func periodLocation(span compliance.Span) string {
	if span.ID != "" {
		return fmt.Sprintf("Period[id=%s]", span.ID)
	}
	return fmt.Sprintf("Period[%d]", span.Index)
}

// sweepTimescales flags SSAI timescales the source never uses for the same
// content type, including those of ad periods. Each timescale is reported
// once, at its first use.
func sweepTimescales(source, ssai *mpdtree.Node, _ Options) []types.Finding {
	findings := []types.Finding{}
	src := timescales(source)
	dst := timescales(ssai)

	contentTypes := make([]string, 0, len(dst))
	for ct := range dst {
		contentTypes = append(contentTypes, ct)
	}
	sort.Strings(contentTypes)

	for _, ct := range contentTypes {
		known := map[int64]bool{}
		for _, use := range src[ct] {
			known[use.timescale] = true
		}
		if len(known) == 0 {
			continue
		}
		reported := map[int64]bool{}
		for _, use := range dst[ct] {
			if known[use.timescale] || reported[use.timescale] {
				continue
			}
			reported[use.timescale] = true
			findings = append(findings, timescaleFinding(ct, use, sortedTimescales(known)))
		}
	}
	return findings
}

// timescaleFinding words a single source timescale like the per set check so
// both collapse into one difference.
func timescaleFinding(contentType string, use timescaleUse, known []int64) types.Finding {
	if len(known) == 1 {
		return diff(compliance.KindTemplate, types.SeverityMedium, use.location, "timescale",
			fmt.Sprint(known[0]), fmt.Sprint(use.timescale),
			fmt.Sprintf("Timescale mismatch: source %d, SSAI %d", known[0], use.timescale))
	}
	return diff(compliance.KindTemplate, types.SeverityMedium, use.location, "timescale",
		fmt.Sprint(known), fmt.Sprint(use.timescale),
		fmt.Sprintf("Inconsistent %s timescale %d not used by the source", contentType, use.timescale))
}

func sortedTimescales(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for ts := range set {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// checkDynamic covers what a live SSAI manifest needs beyond the source:
// trackable period ids and an availabilityStartTime.
func checkDynamic(source, ssai *mpdtree.Node, _ Options) []types.Finding {
	if ssai.String("type") != "dynamic" {
		return nil
	}
	findings := []types.Finding{}
	if !ssai.Has("availabilityStartTime") {
		findings = append(findings, diff(compliance.KindLive, types.SeverityHigh, "MPD", "availabilityStartTime",
			source.String("availabilityStartTime"), "", "availabilityStartTime is missing from the dynamic SSAI manifest"))
	}
	for _, span := range compliance.Timeline(ssai) {
		if span.ID != "" {
			continue
		}
		f := diff(compliance.KindLive, types.SeverityHigh, periodLocation(span), "id", "", "",
			fmt.Sprintf("%s of a dynamic manifest has no id and cannot be tracked across refreshes", periodLocation(span)))
		f.Remediation = "Give every period of a dynamic manifest a stable, unique id that does not change between refreshes."
		findings = append(findings, f)
	}
	return findings
}

func diff(kind string, sev types.Severity, location, attribute, source, ssai, msg string) types.Finding {
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
