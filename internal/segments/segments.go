// Package segments validates enumerated segments against duration and
// download policies using download times observed while playing them.
package segments

import (
	"fmt"
	"strconv"

	"github.com/alevsk/mpd-scope/internal/types"
)

// Rule kinds
const (
	KindDownloadRatio    = "DOWNLOAD_RATIO_EXCEEDED"
	KindDurationTooLong  = "SEGMENT_DURATION_EXCEEDED"
	KindDurationTooShort = "SEGMENT_DURATION_TOO_SHORT"
	KindDownloadTime     = "DOWNLOAD_TIME_EXCEEDED"
)

// cachedDownload is the download time under which a sample is presumed to
// have been served from a cache
const cachedDownload = 0.05

// Config holds the runtime policy. A zero bound disables its rule.
type Config struct {
	MinSegmentDuration float64 `json:"minSegmentDuration" yaml:"minSegmentDuration"`
	MaxSegmentDuration float64 `json:"maxSegmentDuration" yaml:"maxSegmentDuration"`
	MaxDownloadRatio   float64 `json:"maxDownloadRatio" yaml:"maxDownloadRatio"`
	// MaxDownloadTime is an absolute download time bound in seconds
	MaxDownloadTime float64 `json:"maxDownloadTime" yaml:"maxDownloadTime"`
	// ValidateVOD enables the download ratio rule on static manifests
	ValidateVOD bool `json:"validateVod" yaml:"validateVod"`
}

// DefaultConfig returns the standard runtime policy.
func DefaultConfig() Config {
	return Config{MinSegmentDuration: 1, MaxSegmentDuration: 10, MaxDownloadRatio: 1}
}

// Observation is one enumerated segment with its observed download time.
type Observation struct {
	PeriodIndex      int      `json:"periodIndex"`
	PeriodID         string   `json:"periodId,omitempty"`
	ContentType      string   `json:"contentType"`
	RepresentationID string   `json:"representationId"`
	Index            int      `json:"index"`
	Start            float64  `json:"start"`
	Duration         float64  `json:"duration"`
	DownloadTime     *float64 `json:"downloadTime,omitempty"`
}

// Key identifies the observation in a download sample set.
func (o Observation) Key() string {
	return DownloadKey(o.periodKey(), o.RepresentationID, o.Index)
}

// periodKey is the period id, or its index when the period has none.
func (o Observation) periodKey() string {
	if o.PeriodID != "" {
		return o.PeriodID
	}
	return strconv.Itoa(o.PeriodIndex)
}

// DownloadKey is the "period/representationId/segmentIndex" key of a sample.
// period is the period id, or the period index for periods without one.
func DownloadKey(period, representationID string, index int) string {
	return fmt.Sprintf("%s/%s/%d", period, representationID, index)
}

// FirstInPeriod reports whether this is the warm-up segment of its period.
func (o Observation) FirstInPeriod() bool {
	return o.Index == 0
}

func (o Observation) location() string {
	if o.PeriodID != "" {
		return fmt.Sprintf("Period[id=%s]/AdaptationSet[%s]/Representation[%s]", o.PeriodID, o.ContentType, o.RepresentationID)
	}
	return fmt.Sprintf("Period[%d]/AdaptationSet[%s]/Representation[%s]", o.PeriodIndex, o.ContentType, o.RepresentationID)
}

// FromMPD enumerates every segment of the manifest and attaches the download
// time recorded for it, if any.
func FromMPD(m *types.MPD, downloads map[string]float64) []Observation {
	out := []Observation{}
	if m == nil {
		return out
	}
	for pi, p := range m.Periods {
		for _, as := range p.AdaptationSets {
			for _, rep := range as.Representations {
				for si, seg := range rep.Segments {
					o := Observation{
						PeriodIndex:      pi,
						PeriodID:         p.ID,
						ContentType:      as.Type,
						RepresentationID: rep.ID,
						Index:            si,
						Start:            seg.Start,
						Duration:         seg.Duration,
					}
					if d, ok := downloads[o.Key()]; ok {
						d := d
						o.DownloadTime = &d
					}
					out = append(out, o)
				}
			}
		}
	}
	return out
}

// Report aggregates the runtime violations.
type Report struct {
	TotalSegments   int `json:"totalSegments" yaml:"totalSegments"`
	TotalViolations int `json:"totalViolations" yaml:"totalViolations"`
	// ViolatingSegments counts distinct segments, whatever the number of rules they break
	ViolatingSegments int             `json:"violatingSegments" yaml:"violatingSegments"`
	Sampled           int             `json:"sampled" yaml:"sampled"`
	Violations        []types.Finding `json:"violations" yaml:"violations"`
	Summary           types.Summary   `json:"summary" yaml:"summary"`
}

// Validate applies the runtime rules to every observation. dynamic tells
// whether the manifest is live; the download ratio rule is suppressed for VOD
// unless cfg.ValidateVOD is set.
func Validate(observations []Observation, dynamic bool, cfg Config) Report {
	r := Report{TotalSegments: len(observations), Violations: []types.Finding{}}
	for _, o := range observations {
		if o.DownloadTime != nil {
			r.Sampled++
		}
		hits := checkObservation(o, dynamic, cfg)
		if len(hits) > 0 {
			r.ViolatingSegments++
			r.Violations = append(r.Violations, hits...)
		}
	}
	r.TotalViolations = len(r.Violations)
	r.Summary = types.Summarize(r.Violations)
	return r
}

func checkObservation(o Observation, dynamic bool, cfg Config) []types.Finding {
	var hits []types.Finding
	if ratioApplies(o, dynamic, cfg) {
		if ratio := *o.DownloadTime / o.Duration; ratio > cfg.MaxDownloadRatio {
			hits = append(hits, violation(o, KindDownloadRatio, types.SeverityVeryHigh,
				fmt.Sprintf("Segment %s downloaded in %.3fs for %.3fs of media (ratio %.2f > %.2f)", o.Key(), *o.DownloadTime, o.Duration, ratio, cfg.MaxDownloadRatio),
				map[string]interface{}{"ratio": ratio, "downloadTime": *o.DownloadTime}))
		}
	}
	if cfg.MaxSegmentDuration > 0 && o.Duration > cfg.MaxSegmentDuration {
		hits = append(hits, violation(o, KindDurationTooLong, types.SeverityVeryHigh,
			fmt.Sprintf("Segment %s lasts %.3fs, above the %.3fs maximum", o.Key(), o.Duration, cfg.MaxSegmentDuration), nil))
	}
	if cfg.MinSegmentDuration > 0 && o.Duration < cfg.MinSegmentDuration {
		hits = append(hits, violation(o, KindDurationTooShort, types.SeverityVeryHigh,
			fmt.Sprintf("Segment %s lasts %.3fs, below the %.3fs minimum", o.Key(), o.Duration, cfg.MinSegmentDuration), nil))
	}
	if cfg.MaxDownloadTime > 0 && o.DownloadTime != nil && *o.DownloadTime > cfg.MaxDownloadTime {
		hits = append(hits, violation(o, KindDownloadTime, types.SeverityHigh,
			fmt.Sprintf("Segment %s took %.3fs to download, above the %.3fs limit", o.Key(), *o.DownloadTime, cfg.MaxDownloadTime),
			map[string]interface{}{"downloadTime": *o.DownloadTime}))
	}
	return hits
}

// ratioApplies holds the download ratio suppressions: no sample, warm-up
// segment, cache hit and VOD.
func ratioApplies(o Observation, dynamic bool, cfg Config) bool {
	switch {
	case cfg.MaxDownloadRatio <= 0 || o.DownloadTime == nil || o.Duration <= 0:
		return false
	case o.FirstInPeriod():
		return false
	case *o.DownloadTime < cachedDownload:
		return false
	case !dynamic && !cfg.ValidateVOD:
		return false
	}
	return true
}

func violation(o Observation, kind string, sev types.Severity, msg string, extra map[string]interface{}) types.Finding {
	details := map[string]interface{}{
		"periodIndex":      o.PeriodIndex,
		"representationId": o.RepresentationID,
		"segmentIndex":     o.Index,
		"start":            o.Start,
		"duration":         o.Duration,
	}
	for k, v := range extra {
		details[k] = v
	}
	return types.Finding{
		Kind:      kind,
		Severity:  sev,
		Message:   msg,
		Location:  o.location(),
		Details:   details,
		Highlight: []types.Segment{{Start: o.Start, Duration: o.Duration}},
	}
}
