package compliance

import (
	"fmt"

	"github.com/alevsk/mpd-scope/internal/mpdtime"
	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

// DurationResult is the outcome of parsing an xs:duration attribute. Value is
// nil when the attribute is absent or unparsable; Err is set only in the
// latter case.
type DurationResult struct {
	Value *float64
	Err   error
}

// ParseDuration never fails: an unparsable value is returned in Err.
func ParseDuration(raw string) DurationResult {
	if raw == "" {
		return DurationResult{}
	}
	v, err := mpdtime.ParseDuration(raw)
	if err != nil {
		return DurationResult{Err: err}
	}
	return DurationResult{Value: &v}
}

// durationAttr reads a duration attribute of node.
func durationAttr(node *mpdtree.Node, attr string) DurationResult {
	return ParseDuration(node.String(attr))
}

// durationErrors reports every unparsable duration attribute of node.
func durationErrors(node *mpdtree.Node, which, location string, attrs ...string) []types.Finding {
	var findings []types.Finding
	for _, attr := range attrs {
		res := durationAttr(node, attr)
		if res.Err == nil {
			continue
		}
		f := note(KindDuration, types.SeverityLow, location,
			fmt.Sprintf("Unparsable %s in %s manifest: %q", attr, which, node.String(attr)))
		f.Attribute = attr
		f.Details = map[string]interface{}{"manifest": which, "error": res.Err.Error()}
		findings = append(findings, f)
	}
	return findings
}

func seconds(v float64) string {
	return mpdtime.FormatSeconds(v)
}

func optionalSeconds(v *float64) string {
	if v == nil {
		return ""
	}
	return seconds(*v)
}
