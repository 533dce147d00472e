package rules

import (
	"fmt"
	"math"

	"github.com/alevsk/mpd-scope/internal/compare"
	"github.com/alevsk/mpd-scope/internal/types"
)

// pairedPeriods calls fn for every index present in both refreshes.
func pairedPeriods(ctx Context, fn func(index int, prev, curr types.Period)) {
	n := len(ctx.Current.Periods)
	if len(ctx.Previous.Periods) < n {
		n = len(ctx.Previous.Periods)
	}
	for i := 0; i < n; i++ {
		fn(i, ctx.Previous.Periods[i], ctx.Current.Periods[i])
	}
}

func formatStart(v *float64) string {
	if v == nil {
		return "unset"
	}
	return fmt.Sprintf("%.3fs", *v)
}

func periodStartChanged(spec RuleSpec, ctx Context) []types.Finding {
	var findings []types.Finding
	pairedPeriods(ctx, func(i int, prev, curr types.Period) {
		if prev.Start == nil && curr.Start == nil {
			return
		}
		if prev.Start != nil && curr.Start != nil && math.Abs(*prev.Start-*curr.Start) <= compare.Epsilon {
			return
		}
		f := finding(spec, periodLocation(i, curr),
			fmt.Sprintf("%s start changed from %s to %s", periodLocation(i, curr), formatStart(prev.Start), formatStart(curr.Start)),
			map[string]interface{}{"periodIndex": i, "periodId": curr.ID, "previousStart": prev.Start, "currentStart": curr.Start})
		f.Attribute = "start"
		f.SourceValue = formatStart(prev.Start)
		f.SSAIValue = formatStart(curr.Start)
		findings = append(findings, f)
	})
	return findings
}

func periodIDChanged(spec RuleSpec, ctx Context) []types.Finding {
	var findings []types.Finding
	pairedPeriods(ctx, func(i int, prev, curr types.Period) {
		if prev.ID == curr.ID {
			return
		}
		f := finding(spec, fmt.Sprintf("Period[%d]", i),
			fmt.Sprintf("Period %d id changed from %q to %q", i, prev.ID, curr.ID),
			map[string]interface{}{"periodIndex": i, "previousId": prev.ID, "currentId": curr.ID})
		f.Attribute = "id"
		f.SourceValue = prev.ID
		f.SSAIValue = curr.ID
		findings = append(findings, f)
	})
	return findings
}
