package compliance

import (
	"fmt"
	"math"
	"strings"

	"github.com/alevsk/mpd-scope/internal/mpdtime"
	"github.com/alevsk/mpd-scope/internal/types"
)

// availabilityStartTolerance is the allowed availabilityStartTime drift in seconds
const availabilityStartTolerance = 1.0

// UTCTimingSchemes are the clock synchronization schemes players understand
var UTCTimingSchemes = map[string]bool{
	"urn:mpeg:dash:utc:ntp:2014":         true,
	"urn:mpeg:dash:utc:sntp:2014":        true,
	"urn:mpeg:dash:utc:http-head:2014":   true,
	"urn:mpeg:dash:utc:http-xsdate:2014": true,
	"urn:mpeg:dash:utc:http-iso:2014":    true,
	"urn:mpeg:dash:utc:http-ntp:2014":    true,
	"urn:mpeg:dash:utc:direct:2014":      true,
	"urn:mpeg:dash:utc:http-head:2012":   true,
	"urn:mpeg:dash:utc:http-xsdate:2012": true,
	"urn:mpeg:dash:utc:http-iso:2012":    true,
	"urn:mpeg:dash:utc:direct:2012":      true,
}

// checkLive validates the live-service descriptors of a dynamic SSAI manifest.
func checkLive(in *input) []types.Finding {
	if manifestType(in, true) != "dynamic" {
		return nil
	}
	findings := []types.Finding{}

	if src, ssai := durationAttr(in.source, "mediaPresentationDuration").Value, durationAttr(in.ssai, "mediaPresentationDuration").Value; src != nil && ssai != nil && *ssai+in.opts.TimingTolerance < *src {
		findings = append(findings, difference(KindLive, types.SeverityHigh, "MPD", "mediaPresentationDuration", seconds(*src), seconds(*ssai),
			fmt.Sprintf("SSAI duration %s is shorter than source duration %s", seconds(*ssai), seconds(*src))))
	}

	findings = append(findings, checkAvailabilityStart(in)...)

	if src, ssai := durationAttr(in.source, "minBufferTime").Value, durationAttr(in.ssai, "minBufferTime").Value; src != nil && ssai != nil && *ssai+in.opts.TimingTolerance < *src {
		findings = append(findings, difference(KindLive, types.SeverityMedium, "MPD", "minBufferTime", seconds(*src), seconds(*ssai),
			fmt.Sprintf("minBufferTime decreased from %s to %s", seconds(*src), seconds(*ssai))))
	}

	if src, ssai := durationAttr(in.source, "timeShiftBufferDepth").Value, durationAttr(in.ssai, "timeShiftBufferDepth").Value; src != nil && ssai != nil && *ssai < *src*(1-in.opts.BufferDepthTolerance) {
		findings = append(findings, difference(KindLive, types.SeverityMedium, "MPD", "timeShiftBufferDepth", seconds(*src), seconds(*ssai),
			fmt.Sprintf("timeShiftBufferDepth reduced by more than %.0f%%: %s to %s", in.opts.BufferDepthTolerance*100, seconds(*src), seconds(*ssai))))
	}

	srcPub, errSrc := mpdtime.EpochSeconds(in.source.String("publishTime"))
	ssaiPub, errSSAI := mpdtime.EpochSeconds(in.ssai.String("publishTime"))
	if errSrc == nil && errSSAI == nil && ssaiPub < srcPub {
		findings = append(findings, difference(KindLive, types.SeverityHigh, "MPD", "publishTime",
			in.source.String("publishTime"), in.ssai.String("publishTime"),
			"SSAI publishTime is earlier than the source publishTime"))
	}

	findings = append(findings, checkUTCTiming(in)...)

	if in.ssai.Child("Location") == nil && in.ssai.Child("PatchLocation") == nil && !in.ssai.Has("minimumUpdatePeriod") {
		findings = append(findings, note(KindLive, types.SeverityHigh, "MPD",
			"Dynamic SSAI manifest has no refresh mechanism (Location, PatchLocation or minimumUpdatePeriod)"))
	}
	return findings
}

func checkAvailabilityStart(in *input) []types.Finding {
	srcRaw, ssaiRaw := in.source.String("availabilityStartTime"), in.ssai.String("availabilityStartTime")
	if srcRaw == "" {
		return nil
	}
	if ssaiRaw == "" {
		return []types.Finding{difference(KindLive, types.SeverityHigh, "MPD", "availabilityStartTime", srcRaw, "",
			"availabilityStartTime is missing from the dynamic SSAI manifest")}
	}
	src, err := mpdtime.EpochSeconds(srcRaw)
	if err != nil {
		return nil
	}
	ssai, err := mpdtime.EpochSeconds(ssaiRaw)
	if err != nil {
		return []types.Finding{difference(KindLive, types.SeverityHigh, "MPD", "availabilityStartTime", srcRaw, ssaiRaw,
			fmt.Sprintf("Unparsable availabilityStartTime in SSAI manifest: %q", ssaiRaw))}
	}
	if math.Abs(ssai-src) > availabilityStartTolerance {
		return []types.Finding{difference(KindLive, types.SeverityHigh, "MPD", "availabilityStartTime", srcRaw, ssaiRaw,
			fmt.Sprintf("availabilityStartTime differs by %s", seconds(math.Abs(ssai-src))))}
	}
	return nil
}

func checkUTCTiming(in *input) []types.Finding {
	timings := in.ssai.All("UTCTiming")
	if len(timings) == 0 {
		return []types.Finding{note(KindLive, types.SeverityHigh, "MPD/UTCTiming",
			"Dynamic SSAI manifest has no UTCTiming element")}
	}
	var findings []types.Finding
	for i, t := range timings {
		loc := fmt.Sprintf("MPD/UTCTiming[%d]", i)
		scheme := t.String("schemeIdUri")
		if !UTCTimingSchemes[strings.ToLower(scheme)] {
			f := note(KindLive, types.SeverityMedium, loc, fmt.Sprintf("Unrecognized UTCTiming scheme %q", scheme))
			f.Attribute = "schemeIdUri"
			f.SSAIValue = scheme
			findings = append(findings, f)
		}
		if t.String("value") == "" {
			f := note(KindLive, types.SeverityMedium, loc, "UTCTiming has an empty value")
			f.Attribute = "value"
			findings = append(findings, f)
		}
	}
	return findings
}
