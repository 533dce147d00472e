package compliance

import (
	"fmt"
	"strings"

	"github.com/alevsk/mpd-scope/internal/types"
)

// KnownCodecPrefixes lists the codec families recognized per content type
var KnownCodecPrefixes = map[string][]string{
	types.ContentTypeVideo: {"avc1", "avc3", "hvc1", "hev1", "dvh1", "dvhe", "dva1", "dvav", "av01", "vp08", "vp09", "vp8", "vp9", "vvc1", "vvi1"},
	types.ContentTypeAudio: {"mp4a", "ac-3", "ec-3", "ac-4", "opus", "flac", "dtsc", "dtse", "dtsh", "dtsl", "dtsx", "mha1", "mhm1", "alac"},
}

// codecFamily returns the first dot segment of the first codec in the list.
func codecFamily(codecs string) string {
	first, _, _ := strings.Cut(codecs, ",")
	family, _, _ := strings.Cut(strings.TrimSpace(first), ".")
	return strings.ToLower(family)
}

// IsKnownCodec reports whether the codec family is recognized for the type.
func IsKnownCodec(contentType, codecs string) bool {
	family := codecFamily(codecs)
	for _, prefix := range KnownCodecPrefixes[contentType] {
		if family == prefix {
			return true
		}
	}
	return false
}

// checkCodecs compares the codecs of every representation pair. A different
// family cannot be decoded by the same pipeline, a different profile or level
// usually can.
func checkCodecs(in *input, set AdaptationPair, reps []RepresentationPair) []types.Finding {
	findings := []types.Finding{}
	contentType := set.Key.ContentType
	reported := map[string]bool{}

	for _, pair := range reps {
		if pair.SSAI == nil {
			continue
		}
		ssaiCodec := inherited(pair.SSAI, set.SSAI, "codecs")
		if _, known := KnownCodecPrefixes[contentType]; known && ssaiCodec != "" && !IsKnownCodec(contentType, ssaiCodec) && !reported[ssaiCodec] {
			reported[ssaiCodec] = true
			f := note(KindCodec, types.SeverityLow, pair.Location, fmt.Sprintf("Unrecognized %s codec %q", contentType, ssaiCodec))
			f.Attribute = "codecs"
			f.SSAIValue = ssaiCodec
			findings = append(findings, f)
		}
		if pair.Source == nil {
			continue
		}

		srcCodec := inherited(pair.Source, set.Source, "codecs")
		if srcCodec == "" || strings.EqualFold(srcCodec, ssaiCodec) {
			continue
		}
		if codecFamily(srcCodec) != codecFamily(ssaiCodec) {
			findings = append(findings, difference(KindCodec, types.SeverityVeryHigh, pair.Location, "codecs", srcCodec, ssaiCodec,
				fmt.Sprintf("Codec family mismatch: %s vs %s", srcCodec, ssaiCodec)))
			continue
		}
		findings = append(findings, difference(KindCodec, types.SeverityMedium, pair.Location, "codecs", srcCodec, ssaiCodec,
			fmt.Sprintf("Codec profile/level mismatch: %s vs %s", srcCodec, ssaiCodec)))
	}
	return findings
}
