// Package normalizer maps a parsed manifest tree onto the canonical
// MPD → Period → AdaptationSet → Representation → Segment model.
package normalizer

import (
	"fmt"
	"strings"

	"github.com/alevsk/mpd-scope/internal/mpdtime"
	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/timeline"
	"github.com/alevsk/mpd-scope/internal/types"
)

// Kinds of the notes emitted while normalizing
const (
	KindTimelineNotVerified  = "TIMELINE_NOT_VERIFIED"
	KindDurationUnparsable   = "DURATION_UNPARSABLE"
	KindAdaptationSetSkipped = "ADAPTATION_SET_SKIPPED"
)

// Normalize converts the manifest tree into the canonical model. Conditions
// that prevent exact normalization are returned as low severity notes rather
// than errors.
func Normalize(root *mpdtree.Node) (*types.MPD, []types.Finding) {
	n := &normalization{notes: []types.Finding{}}
	return n.mpd(root), n.notes
}

type normalization struct {
	notes []types.Finding
}

func (n *normalization) note(sev types.Severity, kind, location, msg string, details map[string]interface{}) {
	n.notes = append(n.notes, types.Finding{
		Kind:     kind,
		Severity: sev,
		Message:  msg,
		Location: location,
		Details:  details,
	})
}

func (n *normalization) duration(node *mpdtree.Node, attr, location string) *float64 {
	raw := node.String(attr)
	if raw == "" {
		return nil
	}
	v, err := mpdtime.ParseDuration(raw)
	if err != nil {
		n.note(types.SeverityLow, KindDurationUnparsable, location,
			fmt.Sprintf("Unparsable %s %q", attr, raw),
			map[string]interface{}{"attribute": attr, "value": raw, "error": err.Error()})
		return nil
	}
	return &v
}

func (n *normalization) mpd(root *mpdtree.Node) *types.MPD {
	m := &types.MPD{
		Type:    root.String("type"),
		Periods: []types.Period{},
	}
	if m.Type == "" {
		m.Type = "static"
	}
	if raw := root.String("publishTime"); raw != "" {
		if v, err := mpdtime.EpochSeconds(raw); err == nil {
			m.PublishTime = &v
		}
	}
	m.Duration = n.duration(root, "mediaPresentationDuration", "MPD")

	periods := root.All("Period")
	for i, p := range periods {
		m.Periods = append(m.Periods, n.period(p, i))
	}
	// templates without a timeline need the period duration to enumerate
	starts := effectiveStarts(m)
	for i, p := range periods {
		n.periodSegments(p, i, m, periodLength(m, starts, i))
	}
	return m
}

func periodLocation(index int, id string) string {
	if id != "" {
		return fmt.Sprintf("Period[id=%s]", id)
	}
	return fmt.Sprintf("Period[%d]", index)
}

func (n *normalization) period(node *mpdtree.Node, index int) types.Period {
	p := types.Period{
		ID:             node.String("id"),
		AdaptationSets: []types.AdaptationSet{},
	}
	loc := periodLocation(index, p.ID)
	p.Start = n.duration(node, "start", loc)
	p.Duration = n.duration(node, "duration", loc)
	p.DRMPresent = hasContentProtection(node)
	return p
}

// hasContentProtection scans adaptation sets and their representations.
func hasContentProtection(period *mpdtree.Node) bool {
	for _, as := range period.All("AdaptationSet") {
		if len(as.All("ContentProtection")) > 0 {
			return true
		}
		for _, rep := range as.All("Representation") {
			if len(rep.All("ContentProtection")) > 0 {
				return true
			}
		}
	}
	return false
}

// effectiveStarts fills in missing period starts from the previous period's
// start and duration, as a player lays out the presentation timeline.
func effectiveStarts(m *types.MPD) []*float64 {
	starts := make([]*float64, len(m.Periods))
	for i, p := range m.Periods {
		switch {
		case p.Start != nil:
			starts[i] = p.Start
		case i == 0 && m.Type != "dynamic":
			zero := 0.0
			starts[i] = &zero
		case i > 0 && starts[i-1] != nil && m.Periods[i-1].Duration != nil:
			v := *starts[i-1] + *m.Periods[i-1].Duration
			starts[i] = &v
		}
	}
	return starts
}

// periodLength is the duration used to enumerate SegmentTemplate@duration.
func periodLength(m *types.MPD, starts []*float64, index int) float64 {
	p := m.Periods[index]
	if p.Duration != nil {
		return *p.Duration
	}
	start := starts[index]
	if start == nil {
		return 0
	}
	if index+1 < len(m.Periods) && starts[index+1] != nil {
		return *starts[index+1] - *start
	}
	if m.Duration != nil {
		return *m.Duration - *start
	}
	return 0
}

// ContentType infers the media type of an adaptation set: explicit
// contentType wins over mimeType, which wins over any representation mimeType.
// It returns "" when the type cannot be inferred.
func ContentType(as *mpdtree.Node) string {
	if ct := strings.ToLower(as.String("contentType")); ct != "" {
		return ct
	}
	if mt := mimeMajor(as.String("mimeType")); mt != "" {
		return mt
	}
	for _, rep := range as.All("Representation") {
		if mt := mimeMajor(rep.String("mimeType")); mt != "" {
			return mt
		}
	}
	return ""
}

func mimeMajor(mime string) string {
	if mime == "" {
		return ""
	}
	major, _, _ := strings.Cut(strings.ToLower(mime), "/")
	return major
}

func (n *normalization) periodSegments(node *mpdtree.Node, index int, m *types.MPD, length float64) {
	p := &m.Periods[index]
	loc := periodLocation(index, p.ID)

	for ai, as := range node.All("AdaptationSet") {
		contentType := ContentType(as)
		if contentType != types.ContentTypeVideo && contentType != types.ContentTypeAudio {
			n.note(types.SeverityInfo, KindAdaptationSetSkipped, fmt.Sprintf("%s/AdaptationSet[%d]", loc, ai),
				fmt.Sprintf("AdaptationSet %d skipped: content type %q is not video or audio", ai, contentType),
				map[string]interface{}{"periodIndex": index, "adaptationSetIndex": ai, "contentType": contentType})
			continue
		}

		set := types.AdaptationSet{Type: contentType, Representations: []types.Representation{}}
		for ri, rep := range as.All("Representation") {
			set.Representations = append(set.Representations, n.representation(rep, as, index, ai, ri, contentType, loc, length))
		}
		if len(set.Representations) == 0 {
			n.note(types.SeverityInfo, KindAdaptationSetSkipped, fmt.Sprintf("%s/AdaptationSet[%d]", loc, ai),
				fmt.Sprintf("AdaptationSet %d skipped: no representations", ai),
				map[string]interface{}{"periodIndex": index, "adaptationSetIndex": ai, "contentType": contentType})
			continue
		}
		p.AdaptationSets = append(p.AdaptationSets, set)
	}
}

// RepresentationID returns the representation id, or a positional id built
// from stable indices when the attribute is missing.
func RepresentationID(rep *mpdtree.Node, periodIndex, setIndex, repIndex int, contentType string) string {
	if id := rep.String("id"); id != "" {
		return id
	}
	return fmt.Sprintf("p%d-%s%d-r%d", periodIndex, contentType, setIndex, repIndex)
}

// SegmentTemplate returns the representation template, falling back to the
// adaptation set template.
func SegmentTemplate(rep, as *mpdtree.Node) *mpdtree.Node {
	if st := rep.Child("SegmentTemplate"); st != nil {
		return st
	}
	return as.Child("SegmentTemplate")
}

func (n *normalization) representation(rep, as *mpdtree.Node, pi, ai, ri int, contentType, periodLoc string, length float64) types.Representation {
	r := types.Representation{
		ID:       RepresentationID(rep, pi, ai, ri, contentType),
		Segments: []types.Segment{},
	}
	if bw, ok := rep.Int("bandwidth"); ok {
		r.Bandwidth = &bw
	}

	st := SegmentTemplate(rep, as)
	if st == nil {
		return r
	}
	timescale, _ := st.Int("timescale")

	if tl := st.Child("SegmentTimeline"); tl != nil {
		entries := timeline.FromNode(tl)
		if timeline.HasOpenEnded(entries) {
			r.Unbounded = true
			n.note(types.SeverityInfo, KindTimelineNotVerified,
				fmt.Sprintf("%s/AdaptationSet[%d]/Representation[%s]", periodLoc, ai, r.ID),
				fmt.Sprintf("Representation %s: SegmentTimeline has an open-ended repeat (r=-1); segments not enumerated", r.ID),
				map[string]interface{}{"periodIndex": pi, "representationId": r.ID})
			return r
		}
		segments, err := timeline.Expand(entries, timescale)
		if err == nil {
			r.Segments = segments
		}
		return r
	}

	if d, ok := st.Int("duration"); ok {
		r.Segments = timeline.FromDuration(d, timescale, length)
	}
	return r
}
