package types

// Content types kept by the normalizer
const (
	ContentTypeVideo = "video"
	ContentTypeAudio = "audio"
)

// MPD is the canonical, strongly shaped view of a DASH manifest.
type MPD struct {
	// Type is "static" or "dynamic"
	Type string `json:"type" yaml:"type"`
	// PublishTime in epoch seconds, nil when absent or unparsable
	PublishTime *float64 `json:"publishTime,omitempty" yaml:"publishTime,omitempty"`
	// Duration is mediaPresentationDuration in seconds, nil when absent
	Duration *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	Periods  []Period `json:"periods" yaml:"periods"`
}

// Period is a contiguous part of the presentation timeline.
type Period struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// Start in seconds, nil when the period carries no start attribute
	Start *float64 `json:"start,omitempty" yaml:"start,omitempty"`
	// Duration in seconds, nil when absent
	Duration *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	// DRMPresent is true iff any ContentProtection exists under the period
	DRMPresent     bool            `json:"drmPresent" yaml:"drmPresent"`
	AdaptationSets []AdaptationSet `json:"adaptationSets" yaml:"adaptationSets"`
}

// AdaptationSet groups interchangeable encodings of one media component.
type AdaptationSet struct {
	// Type is ContentTypeVideo or ContentTypeAudio
	Type            string           `json:"type" yaml:"type"`
	Representations []Representation `json:"representations" yaml:"representations"`
}

// Representation is one encoding within an adaptation set.
type Representation struct {
	ID        string    `json:"id" yaml:"id"`
	Bandwidth *int64    `json:"bandwidth,omitempty" yaml:"bandwidth,omitempty"`
	Segments  []Segment `json:"segments" yaml:"segments"`
	// Unbounded is set when the timeline holds an open-ended repeat and the
	// segment list could not be enumerated.
	Unbounded bool `json:"unbounded,omitempty" yaml:"unbounded,omitempty"`
}

// Segment is a media segment with start and duration in seconds.
type Segment struct {
	Start    float64 `json:"start" yaml:"start"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// HasID reports whether the period can be tracked across refreshes.
func (p Period) HasID() bool {
	return p.ID != ""
}

// AdaptationSetByType returns the first adaptation set of the given type.
func (p Period) AdaptationSetByType(contentType string) (AdaptationSet, bool) {
	for _, as := range p.AdaptationSets {
		if as.Type == contentType {
			return as, true
		}
	}
	return AdaptationSet{}, false
}

// FirstRepresentation returns the first representation of the set.
func (as AdaptationSet) FirstRepresentation() (Representation, bool) {
	if len(as.Representations) == 0 {
		return Representation{}, false
	}
	return as.Representations[0], true
}
