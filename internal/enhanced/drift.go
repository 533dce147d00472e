package enhanced

import (
	"fmt"
	"math"

	"github.com/alevsk/mpd-scope/internal/compliance"
	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

// detectDrift walks the matched content periods in order, summing how far
// each SSAI period start sits from its source start once inserted ads are
// removed. The first period that pushes the sum over the threshold is
// reported and the walk stops there.
func detectDrift(source, ssai *mpdtree.Node, opts Options) []types.Finding {
	threshold := opts.DriftThreshold
	if threshold <= 0 {
		threshold = DefaultOptions().DriftThreshold
	}

	var cumulative float64
	for _, pair := range compliance.MatchPeriods(source, ssai, opts.Compliance.PeriodStartTolerance) {
		if pair.Source == nil || pair.SSAI == nil || pair.Source.Start == nil || pair.SSAIContentStart == nil {
			continue
		}
		cumulative += math.Abs(*pair.Source.Start - *pair.SSAIContentStart)
		if cumulative <= threshold {
			continue
		}
		f := diff(KindDrift, types.SeverityHigh, pair.Location(), "start",
			fmt.Sprintf("%g", *pair.Source.Start), fmt.Sprintf("%g", *pair.SSAIContentStart),
			fmt.Sprintf("Cumulative timeline drift of %.3fs exceeds %.3fs at %s", cumulative, threshold, pair.Location()))
		f.Details = map[string]interface{}{"cumulativeDrift": cumulative, "threshold": threshold}
		f.Impact = "Accumulated drift desynchronizes the SSAI timeline from the source and eventually from live edge and ad tracking."
		return []types.Finding{f}
	}
	return nil
}
