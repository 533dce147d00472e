// Package compare diffs two canonical manifests, typically consecutive
// refreshes of the same stream.
package compare

import (
	"math"
	"sort"

	"github.com/alevsk/mpd-scope/internal/types"
)

// Epsilon is the tolerance, in seconds, under which two segment timings are equal.
const Epsilon = 1e-6

var trackedTypes = []string{types.ContentTypeVideo, types.ContentTypeAudio}

// Compare returns the structural differences from prev to curr. Periods are
// tracked by id; periods without an id cannot be followed across refreshes and
// are left out of the added, removed and modified sets.
func Compare(prev, curr *types.MPD) types.Comparison {
	c := types.Comparison{
		PeriodsAdded:    []string{},
		PeriodsRemoved:  []string{},
		PeriodsModified: []types.PeriodChange{},
		SegmentChanges:  types.SegmentChanges{ByPeriod: []types.PeriodSegmentDelta{}},
	}
	if prev == nil || curr == nil {
		return c
	}
	c.PublishTimeChanged = !sameOptional(prev.PublishTime, curr.PublishTime)

	prevByID := indexPeriods(prev)
	currByID := indexPeriods(curr)

	for _, p := range curr.Periods {
		if !p.HasID() {
			continue
		}
		old, ok := prevByID[p.ID]
		if !ok {
			c.PeriodsAdded = append(c.PeriodsAdded, p.ID)
			recordDelta(&c.SegmentChanges, p.ID, firstRepresentationLengths(p), 0)
			continue
		}
		if change, ok := comparePeriod(old, p); ok {
			c.PeriodsModified = append(c.PeriodsModified, change)
		}
		recordDelta(&c.SegmentChanges, p.ID, firstRepresentationLengths(p), firstRepresentationLengths(old))
	}
	for _, p := range prev.Periods {
		if !p.HasID() {
			continue
		}
		if _, ok := currByID[p.ID]; !ok {
			c.PeriodsRemoved = append(c.PeriodsRemoved, p.ID)
			recordDelta(&c.SegmentChanges, p.ID, 0, firstRepresentationLengths(p))
		}
	}
	return c
}

func indexPeriods(m *types.MPD) map[string]types.Period {
	byID := make(map[string]types.Period, len(m.Periods))
	for _, p := range m.Periods {
		if p.HasID() {
			if _, dup := byID[p.ID]; !dup {
				byID[p.ID] = p
			}
		}
	}
	return byID
}

func comparePeriod(prev, curr types.Period) (types.PeriodChange, bool) {
	change := types.PeriodChange{
		ID:        curr.ID,
		PrevStart: prev.Start,
		CurrStart: curr.Start,
		PrevDRM:   prev.DRMPresent,
		CurrDRM:   curr.DRMPresent,
	}
	change.StartChanged = !sameOptional(prev.Start, curr.Start)
	change.DRMChanged = prev.DRMPresent != curr.DRMPresent

	for _, contentType := range trackedTypes {
		before, hadType := prev.AdaptationSetByType(contentType)
		after, hasType := curr.AdaptationSetByType(contentType)
		switch {
		case !hadType && !hasType:
		case !hadType:
			change.Adaptations = append(change.Adaptations, types.AdaptationChange{Type: contentType, Change: types.ChangeAdded})
		case !hasType:
			change.Adaptations = append(change.Adaptations, types.AdaptationChange{Type: contentType, Change: types.ChangeRemoved})
		default:
			a, b := segmentsOf(before), segmentsOf(after)
			if !EqualSegments(a, b) {
				change.Adaptations = append(change.Adaptations, types.AdaptationChange{
					Type:     contentType,
					Change:   types.ChangeModified,
					Timeline: DiffTimeline(a, b),
				})
			}
		}
	}

	modified := change.StartChanged || change.DRMChanged || len(change.Adaptations) > 0
	return change, modified
}

func segmentsOf(as types.AdaptationSet) []types.Segment {
	if rep, ok := as.FirstRepresentation(); ok {
		return rep.Segments
	}
	return nil
}

// firstRepresentationLengths sums the first representation segment count of
// every tracked content type in the period.
func firstRepresentationLengths(p types.Period) int {
	total := 0
	for _, contentType := range trackedTypes {
		if as, ok := p.AdaptationSetByType(contentType); ok {
			total += len(segmentsOf(as))
		}
	}
	return total
}

func recordDelta(s *types.SegmentChanges, periodID string, curr, prev int) {
	delta := types.PeriodSegmentDelta{PeriodID: periodID}
	switch {
	case curr > prev:
		delta.Added = curr - prev
	case prev > curr:
		delta.Removed = prev - curr
	default:
		return
	}
	s.TotalAdded += delta.Added
	s.TotalRemoved += delta.Removed
	s.ByPeriod = append(s.ByPeriod, delta)
}

// EqualSegments reports whether both lists have the same length and every
// (start, duration) pair agrees within Epsilon.
func EqualSegments(a, b []types.Segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].Start-b[i].Start) > Epsilon || math.Abs(a[i].Duration-b[i].Duration) > Epsilon {
			return false
		}
	}
	return true
}

// DiffTimeline keys segments by start time and returns the starts present on
// only one side. Keying by time keeps an insertion from shifting every later
// segment into the diff.
func DiffTimeline(prev, curr []types.Segment) *types.TimelineDiff {
	before := startSet(prev)
	after := startSet(curr)

	diff := &types.TimelineDiff{Added: []float64{}, Removed: []float64{}}
	for key, start := range after {
		if _, ok := before[key]; !ok {
			diff.Added = append(diff.Added, start)
		}
	}
	for key, start := range before {
		if _, ok := after[key]; !ok {
			diff.Removed = append(diff.Removed, start)
		}
	}
	sort.Float64s(diff.Added)
	sort.Float64s(diff.Removed)
	return diff
}

// startSet keys starts at microsecond resolution.
func startSet(segments []types.Segment) map[int64]float64 {
	set := make(map[int64]float64, len(segments))
	for _, s := range segments {
		key := int64(math.Round(s.Start / Epsilon))
		if _, ok := set[key]; !ok {
			set[key] = s.Start
		}
	}
	return set
}

func sameOptional(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return math.Abs(*a-*b) <= Epsilon
}
