// Package timeline expands SegmentTimeline encodings into explicit segments.
package timeline

import (
	"errors"
	"math"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

// ErrOpenEnded is returned when an expansion is attempted over an entry with
// r = -1. Callers must check HasOpenEnded first and report the timeline as
// not verified.
var ErrOpenEnded = errors.New("timeline: open-ended repeat cannot be enumerated")

// Entry is one S element of a SegmentTimeline, in timescale ticks.
type Entry struct {
	T    int64
	HasT bool
	D    int64
	R    int64
}

// Count returns the number of segments the entry describes, or -1 when open-ended.
func (e Entry) Count() int64 {
	if e.R < 0 {
		return -1
	}
	return e.R + 1
}

// HasOpenEnded reports whether any entry carries an unbounded repeat.
func HasOpenEnded(entries []Entry) bool {
	for _, e := range entries {
		if e.R < 0 {
			return true
		}
	}
	return false
}

// NormalizeTimescale returns timescale, or 1 when it is missing or invalid.
func NormalizeTimescale(timescale int64) int64 {
	if timescale <= 0 {
		return 1
	}
	return timescale
}

// Expand turns timeline entries into segments in seconds. Each entry starts at
// its explicit t, or where the previous entry ended, and emits r+1 segments of
// duration d.
func Expand(entries []Entry, timescale int64) ([]types.Segment, error) {
	if HasOpenEnded(entries) {
		return nil, ErrOpenEnded
	}
	ts := float64(NormalizeTimescale(timescale))

	segments := []types.Segment{}
	var cursor int64
	for _, e := range entries {
		start := cursor
		if e.HasT {
			start = e.T
		}
		for i := int64(0); i <= e.R; i++ {
			segments = append(segments, types.Segment{
				Start:    float64(start+i*e.D) / ts,
				Duration: float64(e.D) / ts,
			})
		}
		cursor = start + (e.R+1)*e.D
	}
	return segments, nil
}

// TotalTicks returns the summed duration of a bounded timeline.
func TotalTicks(entries []Entry) (int64, error) {
	if HasOpenEnded(entries) {
		return 0, ErrOpenEnded
	}
	var total int64
	for _, e := range entries {
		total += (e.R + 1) * e.D
	}
	return total, nil
}

// FromNode reads the S entries of a SegmentTimeline element.
func FromNode(n *mpdtree.Node) []Entry {
	entries := []Entry{}
	for _, s := range n.All("S") {
		var e Entry
		if t, ok := s.Int("t"); ok {
			e.T, e.HasT = t, true
		}
		e.D, _ = s.Int("d")
		e.R, _ = s.Int("r")
		entries = append(entries, e)
	}
	return entries
}

// FromDuration enumerates segments of a SegmentTemplate that carries a fixed
// @duration instead of a timeline, covering total seconds.
func FromDuration(duration, timescale int64, total float64) []types.Segment {
	segments := []types.Segment{}
	if duration <= 0 || total <= 0 {
		return segments
	}
	segDur := float64(duration) / float64(NormalizeTimescale(timescale))
	count := int(math.Ceil(total/segDur - 1e-9))
	for i := 0; i < count; i++ {
		start := float64(i) * segDur
		d := segDur
		if start+d > total {
			d = total - start
		}
		segments = append(segments, types.Segment{Start: start, Duration: d})
	}
	return segments
}
