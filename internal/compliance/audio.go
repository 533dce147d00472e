package compliance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

// Audio channel configuration schemes, lower-cased as they are compared
const (
	SchemeMPEGChannels = "urn:mpeg:dash:23003:3:audio_channel_configuration:2011"
	SchemeCICPChannels = "urn:mpeg:mpegb:cicp:channelconfiguration"
	SchemeDolby2011    = "urn:dolby:dash:audio_channel_configuration:2011"
	SchemeDolby2014    = "tag:dolby.com,2014:dash:audio_channel_configuration:2011"
	SchemeDTS          = "tag:dts.com,2014:dash:audio_channel_configuration:2012"
	SchemeDTSUHD       = "tag:dts.com,2018:uhd:audio_channel_configuration"
)

// cicpChannels maps ChannelConfiguration indices to channel counts
var cicpChannels = map[int]int{
	1: 1, 2: 2, 3: 3, 4: 4, 5: 5, 6: 6, 7: 8, 9: 3, 10: 4, 11: 7, 12: 8,
	13: 24, 14: 8, 15: 12, 16: 10, 17: 12, 18: 14, 19: 12, 20: 14,
}

var channelSchemeNames = map[string]string{
	SchemeMPEGChannels: "MPEG channel count",
	SchemeCICPChannels: "CICP",
	SchemeDolby2011:    "Dolby",
	SchemeDolby2014:    "Dolby",
	SchemeDTS:          "DTS",
	SchemeDTSUHD:       "DTS:X",
}

func channelSchemeName(scheme string) string {
	if name, ok := channelSchemeNames[scheme]; ok {
		return name
	}
	return scheme
}

// channelConfig returns the scheme and value of the audio channel
// configuration of a representation, falling back to its adaptation set.
func channelConfig(rep, as *mpdtree.Node) (string, string, bool) {
	for _, n := range []*mpdtree.Node{rep, as} {
		if c := n.Child("AudioChannelConfiguration"); c != nil {
			return strings.ToLower(c.String("schemeIdUri")), c.String("value"), true
		}
	}
	return "", "", false
}

// channelCount converts counting schemes to a number of channels.
func channelCount(scheme, value string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	switch scheme {
	case SchemeMPEGChannels:
		return n, true
	case SchemeCICPChannels:
		c, ok := cicpChannels[n]
		return c, ok
	}
	return 0, false
}

// checkAudioChannels allows a downmix under the counting schemes and rejects
// an upmix. Dolby and DTS masks must match exactly.
func checkAudioChannels(in *input, set AdaptationPair, reps []RepresentationPair) []types.Finding {
	if set.Key.ContentType != types.ContentTypeAudio {
		return nil
	}
	findings := []types.Finding{}
	for _, pair := range reps {
		if pair.Source == nil || pair.SSAI == nil {
			continue
		}
		srcScheme, srcValue, ok := channelConfig(pair.Source, set.Source)
		if !ok {
			continue
		}
		ssaiScheme, ssaiValue, ok := channelConfig(pair.SSAI, set.SSAI)
		if !ok {
			findings = append(findings, difference(KindAudio, types.SeverityMedium, pair.Location, "AudioChannelConfiguration", srcValue, "",
				"AudioChannelConfiguration is missing from the SSAI representation"))
			continue
		}

		srcCount, srcCounting := channelCount(srcScheme, srcValue)
		ssaiCount, ssaiCounting := channelCount(ssaiScheme, ssaiValue)
		switch {
		case srcCounting && ssaiCounting:
			if ssaiCount > srcCount {
				findings = append(findings, difference(KindAudio, types.SeverityHigh, pair.Location, "AudioChannelConfiguration", srcValue, ssaiValue,
					fmt.Sprintf("Audio upmix from %d to %d channels", srcCount, ssaiCount)))
			} else if ssaiCount < srcCount {
				findings = append(findings, difference(KindAudio, types.SeverityMedium, pair.Location, "AudioChannelConfiguration", srcValue, ssaiValue,
					fmt.Sprintf("Audio downmix from %d to %d channels", srcCount, ssaiCount)))
			}
		case srcScheme != ssaiScheme:
			f := difference(KindAudio, types.SeverityHigh, pair.Location, "AudioChannelConfiguration", srcValue, ssaiValue,
				fmt.Sprintf("Audio channel configuration scheme changed from %s to %s", channelSchemeName(srcScheme), channelSchemeName(ssaiScheme)))
			f.Details = map[string]interface{}{"sourceScheme": srcScheme, "ssaiScheme": ssaiScheme}
			findings = append(findings, f)
		case !strings.EqualFold(srcValue, ssaiValue):
			findings = append(findings, difference(KindAudio, types.SeverityHigh, pair.Location, "AudioChannelConfiguration", srcValue, ssaiValue,
				fmt.Sprintf("Audio channel configuration mismatch under %s: %s vs %s", channelSchemeName(srcScheme), srcValue, ssaiValue)))
		}
	}
	return findings
}
