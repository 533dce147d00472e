package compliance

import (
	"fmt"
	"math"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

// Span is a period laid out on the presentation timeline. Start and Duration
// are nil when neither the attributes nor the neighbours determine them.
type Span struct {
	Index    int
	Node     *mpdtree.Node
	ID       string
	Start    *float64
	Duration *float64
	// ExplicitDuration is false when Duration was derived from the next period
	ExplicitDuration bool
	Ad               bool
	AdReason         string
}

// Timeline lays out the periods of a manifest in document order. A missing
// start follows the previous period; a missing duration runs to the next
// period start, or to mediaPresentationDuration for the last period.
func Timeline(root *mpdtree.Node) []Span {
	periods := root.All("Period")
	spans := make([]Span, len(periods))
	dynamic := root.String("type") == "dynamic"

	for i, p := range periods {
		s := Span{Index: i, Node: p, ID: p.String("id")}
		s.Start = durationAttr(p, "start").Value
		s.Duration = durationAttr(p, "duration").Value
		s.ExplicitDuration = s.Duration != nil
		s.Ad, s.AdReason = IsAdPeriod(p)
		if s.Start == nil {
			switch {
			case i == 0 && !dynamic:
				zero := 0.0
				s.Start = &zero
			case i > 0 && spans[i-1].Start != nil && spans[i-1].Duration != nil:
				v := *spans[i-1].Start + *spans[i-1].Duration
				s.Start = &v
			}
		}
		spans[i] = s
		if i > 0 && spans[i-1].Duration == nil && spans[i-1].Start != nil && s.Start != nil {
			v := *s.Start - *spans[i-1].Start
			spans[i-1].Duration = &v
		}
	}

	if n := len(spans); n > 0 && spans[n-1].Duration == nil && spans[n-1].Start != nil {
		if total := durationAttr(root, "mediaPresentationDuration").Value; total != nil {
			v := *total - *spans[n-1].Start
			spans[n-1].Duration = &v
		}
	}
	return spans
}

// contentStart is the period start with the duration of every preceding ad
// period removed, which is where the content sat in the source timeline.
func contentStart(spans []Span, index int) *float64 {
	if spans[index].Start == nil {
		return nil
	}
	v := *spans[index].Start
	for _, s := range spans[:index] {
		if s.Ad && s.Duration != nil {
			v -= *s.Duration
		}
	}
	return &v
}

// PeriodPair links a source period to its SSAI counterpart. Source is nil for
// periods only the SSAI manifest has and SSAI is nil for source periods that
// were not found.
type PeriodPair struct {
	Source    *Span
	SSAI      *Span
	MatchedBy string
	// SSAIContentStart is the SSAI start shifted back over inserted ads
	SSAIContentStart *float64
}

// Location names the pair by the most specific period identity available.
func (p PeriodPair) Location() string {
	if p.SSAI != nil {
		return spanLocation(*p.SSAI)
	}
	return spanLocation(*p.Source)
}

func spanLocation(s Span) string {
	if s.ID != "" {
		return fmt.Sprintf("Period[id=%s]", s.ID)
	}
	return fmt.Sprintf("Period[%d]", s.Index)
}

// MatchPeriods pairs periods by id first. Source periods left over, with or
// without an id, fall back to start time within tolerance, trying the
// absolute SSAI start before the content relative one. Unmatched SSAI
// periods are appended in document order.
func MatchPeriods(source, ssai *mpdtree.Node, tolerance float64) []PeriodPair {
	src := Timeline(source)
	dst := Timeline(ssai)
	used := make([]bool, len(dst))
	pairs := make([]PeriodPair, len(src))

	pick := func(j int, by string, s *Span) PeriodPair {
		used[j] = true
		return PeriodPair{Source: s, SSAI: &dst[j], MatchedBy: by, SSAIContentStart: contentStart(dst, j)}
	}

	for i := range src {
		s := &src[i]
		pairs[i] = PeriodPair{Source: s}
		if s.ID == "" {
			continue
		}
		for j := range dst {
			if !used[j] && dst[j].ID == s.ID {
				pairs[i] = pick(j, "id", s)
				break
			}
		}
	}

	for i := range src {
		s := &src[i]
		if pairs[i].SSAI != nil || s.Start == nil {
			continue
		}
		if j := closestStart(dst, used, *s.Start, tolerance, false); j >= 0 {
			pairs[i] = pick(j, "start", s)
		} else if j := closestStart(dst, used, *s.Start, tolerance, true); j >= 0 {
			pairs[i] = pick(j, "content start", s)
		}
	}

	for j := range dst {
		if !used[j] {
			pairs = append(pairs, PeriodPair{SSAI: &dst[j], SSAIContentStart: contentStart(dst, j)})
		}
	}
	return pairs
}

// closestStart returns the unused content span whose start lies closest to
// start within tolerance, or -1.
func closestStart(spans []Span, used []bool, start, tolerance float64, relative bool) int {
	best, bestDiff := -1, math.Inf(1)
	for j := range spans {
		if used[j] || spans[j].Ad {
			continue
		}
		candidate := spans[j].Start
		if relative {
			candidate = contentStart(spans, j)
		}
		if candidate == nil {
			continue
		}
		if diff := math.Abs(*candidate - start); diff <= tolerance && diff < bestDiff {
			best, bestDiff = j, diff
		}
	}
	return best
}

// checkPeriods reports missing content periods, unexplained SSAI periods and
// start or duration drift of matched ones.
func checkPeriods(in *input) []types.Finding {
	findings := []types.Finding{}
	for _, pair := range in.periods {
		switch {
		case pair.SSAI == nil:
			f := note(KindPeriod, types.SeverityVeryHigh, pair.Location(),
				fmt.Sprintf("Missing content period %s in SSAI manifest", pair.Location()))
			f.SourceValue = pair.Source.ID
			findings = append(findings, f)
		case pair.Source == nil:
			findings = append(findings, durationErrors(pair.SSAI.Node, "SSAI", pair.Location(), "start", "duration")...)
			if !pair.SSAI.Ad {
				findings = append(findings, note(KindPeriod, types.SeverityMedium, pair.Location(),
					fmt.Sprintf("SSAI period %s has no source counterpart and is not recognized as an ad", pair.Location())))
			}
		default:
			findings = append(findings, durationErrors(pair.Source.Node, "source", pair.Location(), "start", "duration")...)
			findings = append(findings, durationErrors(pair.SSAI.Node, "SSAI", pair.Location(), "start", "duration")...)
			findings = append(findings, comparePeriodTiming(in, pair)...)
		}
	}
	return findings
}

func comparePeriodTiming(in *input, pair PeriodPair) []types.Finding {
	var findings []types.Finding
	loc := pair.Location()
	if src, ssai := pair.Source.Start, pair.SSAIContentStart; src != nil && ssai != nil && math.Abs(*src-*ssai) > in.opts.PeriodStartTolerance {
		findings = append(findings, difference(KindPeriod, types.SeverityHigh, loc, "start", seconds(*src), seconds(*ssai),
			fmt.Sprintf("Period start mismatch: source %s, SSAI %s once inserted ads are removed", seconds(*src), seconds(*ssai))))
	}
	if src, ssai := pair.Source, pair.SSAI; src.ExplicitDuration && ssai.ExplicitDuration && math.Abs(*src.Duration-*ssai.Duration) > in.opts.PeriodStartTolerance {
		findings = append(findings, difference(KindPeriod, types.SeverityMedium, loc, "duration", seconds(*src.Duration), seconds(*ssai.Duration),
			fmt.Sprintf("Period duration mismatch: source %s, SSAI %s", seconds(*src.Duration), seconds(*ssai.Duration))))
	}
	return findings
}

// checkContinuity walks the SSAI periods in order. A gap or overlap larger
// than the period start tolerance between explicit period bounds is reported.
func checkContinuity(in *input) []types.Finding {
	findings := []types.Finding{}
	spans := Timeline(in.ssai)
	for i := 1; i < len(spans); i++ {
		prev, curr := spans[i-1], spans[i]
		if prev.Start == nil || !prev.ExplicitDuration || curr.Start == nil {
			continue
		}
		end := *prev.Start + *prev.Duration
		gap := *curr.Start - end
		if math.Abs(gap) <= in.opts.PeriodStartTolerance {
			continue
		}
		kind := "gap"
		if gap < 0 {
			kind = "overlap"
		}
		f := difference(KindContinuity, types.SeverityVeryHigh, spanLocation(curr), "start", seconds(end), seconds(*curr.Start),
			fmt.Sprintf("Timeline %s of %s between %s and %s", kind, seconds(math.Abs(gap)), spanLocation(prev), spanLocation(curr)))
		f.Details = map[string]interface{}{"previousEnd": end, "start": *curr.Start, "gap": gap}
		findings = append(findings, f)
	}
	return findings
}

func totalDuration(spans []Span, skipAds bool) (float64, int) {
	total, counted := 0.0, 0
	for _, s := range spans {
		if s.Duration == nil || (skipAds && s.Ad) {
			continue
		}
		total += *s.Duration
		counted++
	}
	return total, counted
}

// checkDurationParity compares the total source duration with the SSAI
// duration once ad periods are excluded.
func checkDurationParity(in *input) []types.Finding {
	src, counted := totalDuration(Timeline(in.source), false)
	if counted == 0 || src <= 0 {
		return nil
	}
	ssai, _ := totalDuration(Timeline(in.ssai), true)
	tolerance := math.Max(src*0.01, 1)
	if math.Abs(src-ssai) <= tolerance {
		return nil
	}
	f := difference(KindDuration, types.SeverityVeryHigh, "MPD", "duration", seconds(src), seconds(ssai),
		fmt.Sprintf("Content duration mismatch: source %s, SSAI %s excluding ads", seconds(src), seconds(ssai)))
	f.Details = map[string]interface{}{"tolerance": tolerance}
	return []types.Finding{f}
}
