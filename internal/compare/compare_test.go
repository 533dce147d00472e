package compare

import (
	"testing"

	"github.com/alevsk/mpd-scope/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func uniform(start, d float64, n int) []types.Segment {
	segments := make([]types.Segment, n)
	for i := range segments {
		segments[i] = types.Segment{Start: start + float64(i)*d, Duration: d}
	}
	return segments
}

func period(id string, start *float64, drm bool, segments []types.Segment) types.Period {
	return types.Period{
		ID:         id,
		Start:      start,
		DRMPresent: drm,
		AdaptationSets: []types.AdaptationSet{{
			Type:            types.ContentTypeVideo,
			Representations: []types.Representation{{ID: "v", Segments: segments}},
		}},
	}
}

func TestCompareAddedPeriod(t *testing.T) {
	prev := &types.MPD{Type: "dynamic", PublishTime: f(100), Periods: []types.Period{
		period("1", f(0), true, uniform(0, 2, 15)),
	}}
	curr := &types.MPD{Type: "dynamic", PublishTime: f(110), Periods: []types.Period{
		period("1", f(0), true, uniform(0, 2, 15)),
		period("ad1", f(30), true, uniform(0, 2, 5)),
	}}

	c := Compare(prev, curr)
	assert.True(t, c.PublishTimeChanged)
	assert.Equal(t, []string{"ad1"}, c.PeriodsAdded)
	assert.Empty(t, c.PeriodsRemoved)
	assert.Empty(t, c.PeriodsModified)
	assert.Equal(t, 5, c.SegmentChanges.TotalAdded)
	assert.Equal(t, 0, c.SegmentChanges.TotalRemoved)
	assert.True(t, c.HasChanges())
}

func TestCompareSymmetry(t *testing.T) {
	a := &types.MPD{Periods: []types.Period{
		period("1", f(0), false, nil),
		period("2", f(10), false, nil),
		period("", f(20), false, nil),
	}}
	b := &types.MPD{Periods: []types.Period{
		period("2", f(10), false, nil),
		period("3", f(20), false, nil),
		period("", f(30), false, nil),
	}}

	ab := Compare(a, b)
	ba := Compare(b, a)
	assert.Equal(t, ab.PeriodsAdded, ba.PeriodsRemoved)
	assert.Equal(t, ab.PeriodsRemoved, ba.PeriodsAdded)
	assert.Equal(t, []string{"3"}, ab.PeriodsAdded)
	assert.Equal(t, []string{"1"}, ab.PeriodsRemoved)
}

func TestCompareModifiedPeriod(t *testing.T) {
	prev := &types.MPD{Periods: []types.Period{period("1", f(0), true, uniform(0, 2, 3))}}
	curr := &types.MPD{Periods: []types.Period{period("1", f(4), false, []types.Segment{
		{Start: 0, Duration: 2},
		{Start: 1, Duration: 1},
		{Start: 2, Duration: 2},
		{Start: 4, Duration: 2},
	})}}

	c := Compare(prev, curr)
	require.Len(t, c.PeriodsModified, 1)
	change := c.PeriodsModified[0]
	assert.True(t, change.StartChanged)
	assert.True(t, change.DRMChanged)
	assert.True(t, change.PrevDRM)
	assert.False(t, change.CurrDRM)

	require.Len(t, change.Adaptations, 1)
	adaptation := change.Adaptations[0]
	assert.Equal(t, types.ChangeModified, adaptation.Change)
	require.NotNil(t, adaptation.Timeline)
	assert.Equal(t, []float64{1}, adaptation.Timeline.Added, "inserted segment found by time, not index")
	assert.Empty(t, adaptation.Timeline.Removed)

	assert.Equal(t, 1, c.SegmentChanges.TotalAdded)
	require.Len(t, c.SegmentChanges.ByPeriod, 1)
	assert.Equal(t, "1", c.SegmentChanges.ByPeriod[0].PeriodID)
}

func TestCompareAdaptationAddedRemoved(t *testing.T) {
	prev := &types.MPD{Periods: []types.Period{period("1", nil, false, uniform(0, 2, 2))}}
	curr := &types.MPD{Periods: []types.Period{{
		ID: "1",
		AdaptationSets: []types.AdaptationSet{{
			Type:            types.ContentTypeAudio,
			Representations: []types.Representation{{ID: "a", Segments: uniform(0, 2, 2)}},
		}},
	}}}

	c := Compare(prev, curr)
	require.Len(t, c.PeriodsModified, 1)
	assert.Equal(t, []types.AdaptationChange{
		{Type: types.ContentTypeVideo, Change: types.ChangeRemoved},
		{Type: types.ContentTypeAudio, Change: types.ChangeAdded},
	}, c.PeriodsModified[0].Adaptations)
}

func TestCompareUnchanged(t *testing.T) {
	m := &types.MPD{PublishTime: f(1), Periods: []types.Period{period("1", f(0), true, uniform(0, 2, 15))}}
	c := Compare(m, m)
	assert.False(t, c.HasChanges())
	assert.Empty(t, c.SegmentChanges.ByPeriod)
}

func TestEqualSegments(t *testing.T) {
	a := uniform(0, 2, 3)
	b := uniform(0, 2, 3)
	b[1].Start += Epsilon / 2
	assert.True(t, EqualSegments(a, b))

	b[1].Start += Epsilon * 2
	assert.False(t, EqualSegments(a, b))
	assert.False(t, EqualSegments(a, a[:2]))
}
