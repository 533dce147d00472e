// Package rules evaluates the baseline rule catalogue over a normalized
// manifest and, for refresh rules, the previous refresh.
package rules

import (
	"fmt"

	"github.com/alevsk/mpd-scope/internal/types"
)

// KindRuleFailure marks a finding produced by a rule that panicked.
const KindRuleFailure = "RULE_FAILURE"

// registry maps catalogue ids to their implementation
var registry = map[string]RuleFunc{
	"SEGMENT_TOO_SHORT":    segmentTooShort,
	"SEGMENT_TOO_LONG":     segmentTooLong,
	"DRM_MISSING":          drmMissing,
	"PROFILE_MISMATCH":     profileMismatch,
	"AV_DURATION_MISMATCH": avDurationMismatch,
	"PERIOD_START_CHANGED": periodStartChanged,
	"PERIOD_ID_CHANGED":    periodIDChanged,
}

// Evaluation is the outcome of running the catalogue.
type Evaluation struct {
	Findings []types.Finding
	// Executed counts the rules that ran, skipped ones excluded
	Executed int
}

// Evaluate runs every enabled rule in catalogue order and concatenates their
// findings. Refresh rules are skipped when ctx.Previous is nil. A rule that
// panics yields one VeryHigh finding and the remaining rules still run.
func Evaluate(ctx Context) Evaluation {
	eval := Evaluation{Findings: []types.Finding{}}
	if ctx.Current == nil {
		return eval
	}

	disabled := map[string]bool{}
	for _, id := range ctx.Config.DisabledRules {
		disabled[id] = true
	}

	for _, spec := range catalogue {
		if disabled[spec.ID] {
			continue
		}
		if spec.Scope == ScopeRefresh && ctx.Previous == nil {
			continue
		}
		eval.Executed++
		eval.Findings = append(eval.Findings, run(spec, registry[spec.ID], ctx)...)
	}
	return eval
}

func run(spec RuleSpec, fn RuleFunc, ctx Context) (findings []types.Finding) {
	defer func() {
		if r := recover(); r != nil {
			findings = []types.Finding{{
				Kind:     KindRuleFailure,
				Severity: types.SeverityVeryHigh,
				Message:  fmt.Sprintf("Rule %s failed: %v", spec.ID, r),
				Details:  map[string]interface{}{"ruleId": spec.ID},
			}}
		}
	}()
	return fn(spec, ctx)
}

func finding(spec RuleSpec, location, msg string, details map[string]interface{}) types.Finding {
	return types.Finding{
		Kind:     spec.ID,
		Severity: spec.Severity,
		Message:  msg,
		Location: location,
		Details:  details,
	}
}
