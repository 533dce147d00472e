package enhanced

import (
	"strings"

	"github.com/alevsk/mpd-scope/internal/types"
)

type remediationTemplate struct {
	keywords    []string
	remediation string
	impact      string
}

// remediationTemplates are tried in order; the first keyword found in the
// lower-cased message wins
var remediationTemplates = []remediationTemplate{
	{[]string{"timescale"},
		"Keep the source SegmentTemplate@timescale in the SSAI manifest, or rescale every t and d value of the timeline together with it.",
		"Players compute every segment time from the timescale; a different value shifts or breaks segment addressing."},
	{[]string{"missing drm", "pssh", "default_kid", "drm system"},
		"Copy the ContentProtection descriptors of the source adaptation set, including cenc:pssh and cenc:default_KID, unchanged into the SSAI manifest.",
		"Devices relying on the missing or altered DRM system cannot acquire a license and fail playback."},
	{[]string{"codec"},
		"Advertise the same codecs string as the source for spliced content, or condition ad transcodes to the source codec profile.",
		"A codec change at a period boundary forces a decoder reset and can stall or fail playback."},
	{[]string{"gap", "overlap", "drift"},
		"Recompute Period@start so each period starts where the previous one ends, using the exact ad durations.",
		"Timeline discontinuities cause players to seek, skip content or stall at period boundaries."},
	{[]string{"period start", "missing content period"},
		"Keep every source period in the SSAI manifest and offset its start only by the duration of the inserted ads.",
		"Content periods that move or disappear drop content from the presentation."},
	{[]string{"duration"},
		"Align the SSAI durations with the source; content duration must not change when ads are spliced in.",
		"Players use durations to build the seek range and detect the end of the presentation."},
	{[]string{"bandwidth", "rendition", "ladder", "representation"},
		"Preserve the source representations and their @bandwidth values in every content period.",
		"Adaptive bitrate selection degrades when renditions disappear or advertise wrong bandwidths."},
	{[]string{"resolution", "frame rate"},
		"Keep the source @width, @height and @frameRate for content representations.",
		"Resolution or frame rate changes between matched renditions cause visible switches and decoder resets."},
	{[]string{"audio", "channel"},
		"Keep the source AudioChannelConfiguration; only downmixes are acceptable under the MPEG channel count schemes.",
		"Channel layout changes break audio passthrough and can mute playback on some receivers."},
	{[]string{"token", "addressing", "startnumber", "segmenttemplate", "segment timing", "segment count"},
		"Keep the source SegmentTemplate media pattern, addressing mode and timeline for content periods.",
		"Segment URLs or timings derived from a different template do not exist on the origin."},
	{[]string{"utctiming", "refresh", "availabilitystarttime", "publishtime", "buffer", "dynamic"},
		"Carry the source live descriptors into the SSAI manifest: UTCTiming, availabilityStartTime, refresh signalling and buffer depths.",
		"Live players cannot synchronize or refresh the manifest reliably."},
	{[]string{"ad period"},
		"No action needed; the ad period was detected and excluded from content accounting.",
		""},
}

const defaultRemediation = "Compare the flagged element of the SSAI manifest with the source manifest and restore the source value."

// Remediate fills in the remediation and impact of a finding from its message
// keywords when they are not set.
func Remediate(f *types.Finding) {
	if f.Remediation != "" {
		return
	}
	msg := strings.ToLower(f.Message)
	for _, t := range remediationTemplates {
		for _, kw := range t.keywords {
			if strings.Contains(msg, kw) {
				f.Remediation = t.remediation
				if f.Impact == "" {
					f.Impact = t.impact
				}
				return
			}
		}
	}
	f.Remediation = defaultRemediation
}
