package compliance

import (
	"fmt"
	"strings"

	"github.com/alevsk/mpd-scope/internal/types"
)

var rootDurationAttrs = []string{
	"mediaPresentationDuration",
	"minBufferTime",
	"timeShiftBufferDepth",
	"minimumUpdatePeriod",
	"maxSegmentDuration",
	"suggestedPresentationDelay",
}

// manifestType returns the MPD@type, static when absent.
func manifestType(in *input, ssai bool) string {
	root := in.source
	if ssai {
		root = in.ssai
	}
	if t := root.String("type"); t != "" {
		return t
	}
	return "static"
}

func checkRoot(in *input) []types.Finding {
	findings := []types.Finding{}

	srcType, ssaiType := manifestType(in, false), manifestType(in, true)
	if srcType != ssaiType {
		findings = append(findings, difference(KindRoot, types.SeverityVeryHigh, "MPD", "type", srcType, ssaiType,
			fmt.Sprintf("MPD type mismatch: source is %s, SSAI is %s", srcType, ssaiType)))
	}

	findings = append(findings, checkProfiles(in)...)
	findings = append(findings, durationErrors(in.source, "source", "MPD", rootDurationAttrs...)...)
	findings = append(findings, durationErrors(in.ssai, "SSAI", "MPD", rootDurationAttrs...)...)

	if srcType == "static" && ssaiType == "static" {
		src := durationAttr(in.source, "mediaPresentationDuration").Value
		ssai := durationAttr(in.ssai, "mediaPresentationDuration").Value
		if src != nil && ssai != nil && *ssai+in.opts.TimingTolerance < *src {
			findings = append(findings, difference(KindRoot, types.SeverityHigh, "MPD", "mediaPresentationDuration",
				seconds(*src), seconds(*ssai),
				fmt.Sprintf("SSAI mediaPresentationDuration %s is shorter than source %s", seconds(*ssai), seconds(*src))))
		}
	}
	return findings
}

func profileSet(raw string) map[string]bool {
	set := map[string]bool{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = true
		}
	}
	return set
}

// checkProfiles requires every source profile to be kept by the SSAI manifest.
func checkProfiles(in *input) []types.Finding {
	var findings []types.Finding
	srcRaw, ssaiRaw := in.source.String("profiles"), in.ssai.String("profiles")
	ssai := profileSet(ssaiRaw)
	for _, p := range strings.Split(srcRaw, ",") {
		p = strings.TrimSpace(p)
		if p == "" || ssai[p] {
			continue
		}
		findings = append(findings, difference(KindRoot, types.SeverityMedium, "MPD", "profiles", srcRaw, ssaiRaw,
			fmt.Sprintf("Profile %s declared by the source is missing from the SSAI manifest", p)))
	}
	return findings
}
