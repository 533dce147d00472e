package enhanced

import (
	"strings"

	"github.com/alevsk/mpd-scope/internal/types"
)

// Key identifies a difference for deduplication: kind, location, attribute,
// both values and the message, compared case-insensitively. Two checks
// reporting the same fact produce the same key; distinct facts at one
// location, such as two missing DRM systems, keep distinct keys.
func Key(f types.Finding) string {
	return strings.ToLower(strings.Join([]string{f.Kind, f.Location, f.Attribute, f.SourceValue, f.SSAIValue, f.Message}, "|"))
}

// richer reports whether candidate should replace current on a key collision.
func richer(candidate, current types.Finding) bool {
	if candidate.Severity != current.Severity {
		return candidate.Severity > current.Severity
	}
	if len(candidate.Remediation) != len(current.Remediation) {
		return len(candidate.Remediation) > len(current.Remediation)
	}
	return candidate.Impact != "" && current.Impact == ""
}

// Deduplicate collapses findings sharing a Key, keeping the first position
// and the richer record.
func Deduplicate(findings []types.Finding) []types.Finding {
	out := make([]types.Finding, 0, len(findings))
	index := map[string]int{}
	for _, f := range findings {
		key := Key(f)
		if i, ok := index[key]; ok {
			if richer(f, out[i]) {
				out[i] = f
			}
			continue
		}
		index[key] = len(out)
		out = append(out, f)
	}
	return out
}
