package types

// Comparison is the structural diff of two canonical manifests.
type Comparison struct {
	PublishTimeChanged bool           `json:"publishTimeChanged" yaml:"publishTimeChanged"`
	PeriodsAdded       []string       `json:"periodsAdded" yaml:"periodsAdded"`
	PeriodsRemoved     []string       `json:"periodsRemoved" yaml:"periodsRemoved"`
	PeriodsModified    []PeriodChange `json:"periodsModified" yaml:"periodsModified"`
	SegmentChanges     SegmentChanges `json:"segmentChanges" yaml:"segmentChanges"`
}

// HasChanges reports whether the comparison found any difference.
func (c Comparison) HasChanges() bool {
	return c.PublishTimeChanged || len(c.PeriodsAdded) > 0 || len(c.PeriodsRemoved) > 0 || len(c.PeriodsModified) > 0
}

// PeriodChange describes how a period present in both manifests changed.
type PeriodChange struct {
	ID           string             `json:"id" yaml:"id"`
	StartChanged bool               `json:"startChanged" yaml:"startChanged"`
	PrevStart    *float64           `json:"prevStart,omitempty" yaml:"prevStart,omitempty"`
	CurrStart    *float64           `json:"currStart,omitempty" yaml:"currStart,omitempty"`
	DRMChanged   bool               `json:"drmChanged" yaml:"drmChanged"`
	PrevDRM      bool               `json:"prevDrm" yaml:"prevDrm"`
	CurrDRM      bool               `json:"currDrm" yaml:"currDrm"`
	Adaptations  []AdaptationChange `json:"adaptations,omitempty" yaml:"adaptations,omitempty"`
}

// Adaptation change kinds
const (
	ChangeAdded    = "added"
	ChangeRemoved  = "removed"
	ChangeModified = "modified"
)

// AdaptationChange describes a change of one content type within a period.
type AdaptationChange struct {
	Type     string        `json:"type" yaml:"type"`
	Change   string        `json:"change" yaml:"change"`
	Timeline *TimelineDiff `json:"timeline,omitempty" yaml:"timeline,omitempty"`
}

// TimelineDiff lists segment start times present on one side only.
type TimelineDiff struct {
	Added   []float64 `json:"added" yaml:"added"`
	Removed []float64 `json:"removed" yaml:"removed"`
}

// SegmentChanges aggregates segment count deltas.
type SegmentChanges struct {
	TotalAdded   int                  `json:"totalAdded" yaml:"totalAdded"`
	TotalRemoved int                  `json:"totalRemoved" yaml:"totalRemoved"`
	ByPeriod     []PeriodSegmentDelta `json:"byPeriod,omitempty" yaml:"byPeriod,omitempty"`
}

// PeriodSegmentDelta is the segment count delta of one period.
type PeriodSegmentDelta struct {
	PeriodID string `json:"periodId" yaml:"periodId"`
	Added    int    `json:"added" yaml:"added"`
	Removed  int    `json:"removed" yaml:"removed"`
}
