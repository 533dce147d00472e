package rules

import (
	"fmt"
	"math"

	"github.com/alevsk/mpd-scope/internal/compare"
	"github.com/alevsk/mpd-scope/internal/types"
)

func periodLocation(index int, p types.Period) string {
	if p.HasID() {
		return fmt.Sprintf("Period[id=%s]", p.ID)
	}
	return fmt.Sprintf("Period[%d]", index)
}

func representationLocation(pi int, p types.Period, as types.AdaptationSet, rep types.Representation) string {
	return fmt.Sprintf("%s/AdaptationSet[%s]/Representation[%s]", periodLocation(pi, p), as.Type, rep.ID)
}

// eachSegment calls fn for every enumerated segment of the manifest.
func eachSegment(m *types.MPD, fn func(pi int, p types.Period, as types.AdaptationSet, rep types.Representation, si int, seg types.Segment)) {
	for pi, p := range m.Periods {
		for _, as := range p.AdaptationSets {
			for _, rep := range as.Representations {
				for si, seg := range rep.Segments {
					fn(pi, p, as, rep, si, seg)
				}
			}
		}
	}
}

func segmentDetails(pi int, p types.Period, as types.AdaptationSet, rep types.Representation, si int, seg types.Segment) map[string]interface{} {
	return map[string]interface{}{
		"periodIndex":      pi,
		"periodId":         p.ID,
		"contentType":      as.Type,
		"representationId": rep.ID,
		"segmentIndex":     si,
		"start":            seg.Start,
		"duration":         seg.Duration,
	}
}

func segmentTooShort(spec RuleSpec, ctx Context) []types.Finding {
	minimum := ctx.Config.MinSegmentDuration
	if minimum <= 0 {
		return nil
	}
	var findings []types.Finding
	eachSegment(ctx.Current, func(pi int, p types.Period, as types.AdaptationSet, rep types.Representation, si int, seg types.Segment) {
		if seg.Duration >= minimum {
			return
		}
		f := finding(spec, representationLocation(pi, p, as, rep),
			fmt.Sprintf("Segment at %.3fs of representation %s lasts %.3fs, below the %.3fs minimum", seg.Start, rep.ID, seg.Duration, minimum),
			segmentDetails(pi, p, as, rep, si, seg))
		f.Highlight = []types.Segment{seg}
		findings = append(findings, f)
	})
	return findings
}

func segmentTooLong(spec RuleSpec, ctx Context) []types.Finding {
	maximum := ctx.Config.MaxSegmentDuration
	if maximum <= 0 {
		return nil
	}
	var findings []types.Finding
	eachSegment(ctx.Current, func(pi int, p types.Period, as types.AdaptationSet, rep types.Representation, si int, seg types.Segment) {
		if seg.Duration <= maximum {
			return
		}
		f := finding(spec, representationLocation(pi, p, as, rep),
			fmt.Sprintf("Segment at %.3fs of representation %s lasts %.3fs, above the %.3fs maximum", seg.Start, rep.ID, seg.Duration, maximum),
			segmentDetails(pi, p, as, rep, si, seg))
		f.Highlight = []types.Segment{seg}
		findings = append(findings, f)
	})
	return findings
}

func drmMissing(spec RuleSpec, ctx Context) []types.Finding {
	var findings []types.Finding
	for pi, p := range ctx.Current.Periods {
		if p.DRMPresent {
			continue
		}
		findings = append(findings, finding(spec, periodLocation(pi, p),
			fmt.Sprintf("%s has no ContentProtection descriptor", periodLocation(pi, p)),
			map[string]interface{}{"periodIndex": pi, "periodId": p.ID}))
	}
	return findings
}

// profileMismatch compares every representation of an adaptation set with the
// first one. Unbounded timelines cannot be enumerated and are left out.
func profileMismatch(spec RuleSpec, ctx Context) []types.Finding {
	var findings []types.Finding
	for pi, p := range ctx.Current.Periods {
		for _, as := range p.AdaptationSets {
			first, ok := as.FirstRepresentation()
			if !ok || first.Unbounded {
				continue
			}
			for _, rep := range as.Representations[1:] {
				if rep.Unbounded || compare.EqualSegments(first.Segments, rep.Segments) {
					continue
				}
				findings = append(findings, finding(spec, representationLocation(pi, p, as, rep),
					fmt.Sprintf("Representation %s segments differ from representation %s in %s %s", rep.ID, first.ID, periodLocation(pi, p), as.Type),
					map[string]interface{}{
						"periodIndex":       pi,
						"periodId":          p.ID,
						"contentType":       as.Type,
						"representationId":  rep.ID,
						"referenceId":       first.ID,
						"segmentCount":      len(rep.Segments),
						"referenceSegments": len(first.Segments),
					}))
			}
		}
	}
	return findings
}

func firstSegment(p types.Period, contentType string) (types.Segment, bool) {
	as, ok := p.AdaptationSetByType(contentType)
	if !ok {
		return types.Segment{}, false
	}
	rep, ok := as.FirstRepresentation()
	if !ok || len(rep.Segments) == 0 {
		return types.Segment{}, false
	}
	return rep.Segments[0], true
}

func avDurationMismatch(spec RuleSpec, ctx Context) []types.Finding {
	var findings []types.Finding
	for pi, p := range ctx.Current.Periods {
		video, okV := firstSegment(p, types.ContentTypeVideo)
		audio, okA := firstSegment(p, types.ContentTypeAudio)
		if !okV || !okA || math.Abs(video.Duration-audio.Duration) <= compare.Epsilon {
			continue
		}
		findings = append(findings, finding(spec, periodLocation(pi, p),
			fmt.Sprintf("First video segment lasts %.3fs but first audio segment lasts %.3fs in %s", video.Duration, audio.Duration, periodLocation(pi, p)),
			map[string]interface{}{
				"periodIndex":   pi,
				"periodId":      p.ID,
				"videoDuration": video.Duration,
				"audioDuration": audio.Duration,
			}))
	}
	return findings
}
