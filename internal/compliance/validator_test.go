package compliance

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widevine = "urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed"

func videoSet(extra string, reps ...string) string {
	if len(reps) == 0 {
		reps = []string{`<Representation id="v1" bandwidth="1000000" width="1280" height="720"/>`}
	}
	return fmt.Sprintf(`<AdaptationSet contentType="video" mimeType="video/mp4" codecs="avc1.64001f" frameRate="25">%s
      <SegmentTemplate timescale="90000" media="$RepresentationID$/$Number$.m4s" startNumber="1">
        <SegmentTimeline><S t="0" d="180000" r="14"/></SegmentTimeline>
      </SegmentTemplate>
      %s
    </AdaptationSet>`, extra, strings.Join(reps, "\n      "))
}

func manifest(attrs string, periods ...string) string {
	return fmt.Sprintf(`<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" xmlns:cenc="urn:mpeg:cenc:2013" %s>
  %s
</MPD>`, attrs, strings.Join(periods, "\n  "))
}

func contentPeriod(id, attrs string, sets ...string) string {
	return fmt.Sprintf(`<Period id="%s" %s>
    %s
  </Period>`, id, attrs, strings.Join(sets, "\n    "))
}

func messages(findings []types.Finding) []string {
	out := []string{}
	for _, f := range findings {
		out = append(out, f.Message)
	}
	return out
}

func ofKind(findings []types.Finding, kind string) []types.Finding {
	out := []types.Finding{}
	for _, f := range findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func validate(t *testing.T, source, ssai string) *types.ComplianceReport {
	t.Helper()
	report := Validate(source, ssai, DefaultOptions())
	require.NotNil(t, report)
	require.Empty(t, ofKind(report.All(), KindParse), "fixtures must parse")
	require.Empty(t, ofKind(report.All(), KindInternal))
	return report
}

func TestScenarioAdInsertion(t *testing.T) {
	source := manifest(`type="static" mediaPresentationDuration="PT30S"`,
		contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")))
	ssai := manifest(`type="static" mediaPresentationDuration="PT40S"`,
		contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")),
		contentPeriod("ad1", `start="PT30S" duration="PT10S"`, videoSet("")))

	report := validate(t, source, ssai)
	assert.Zero(t, report.Summary.VeryHigh, messages(report.Errors))
	assert.True(t, report.Summary.IsValid, messages(report.All()))

	ads := ofKind(report.Info, KindAd)
	require.Len(t, ads, 2)
	assert.Equal(t, "Period[id=ad1]", ads[0].Location)
	assert.Contains(t, ads[1].Message, "1 ad period(s) inserted, 10s")
	assert.Empty(t, ofKind(report.All(), KindDuration), "ad periods are excluded from duration parity")
}

func TestScenarioAdInsertedBeforeContent(t *testing.T) {
	source := manifest(`mediaPresentationDuration="PT30S"`,
		contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")))
	ssai := manifest(`mediaPresentationDuration="PT40S"`,
		contentPeriod("preroll-1", `start="PT0S" duration="PT10S"`, videoSet("")),
		contentPeriod("1", `start="PT10S" duration="PT30S"`, videoSet("")))

	report := validate(t, source, ssai)
	assert.Empty(t, ofKind(report.All(), KindPeriod), "content relative start matches")
	assert.True(t, report.Summary.IsValid, messages(report.All()))
}

func TestScenarioTimescaleMismatch(t *testing.T) {
	ssaiSet := strings.Replace(strings.Replace(videoSet(""), `timescale="90000"`, `timescale="48000"`, 1), `d="180000"`, `d="96000"`, 1)
	source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, videoSet("")))
	ssai := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, ssaiSet))

	report := validate(t, source, ssai)
	veryHigh := types.FilterSeverity(report.All(), types.SeverityVeryHigh)
	require.Len(t, veryHigh, 1, messages(veryHigh))
	assert.Contains(t, veryHigh[0].Message, "Timescale mismatch")
	assert.Equal(t, "timescale", veryHigh[0].Attribute)
	assert.Equal(t, "90000", veryHigh[0].SourceValue)
	assert.Equal(t, "48000", veryHigh[0].SSAIValue)
	assert.Empty(t, ofKind(report.All(), KindTimeline), "timing math is skipped")
}

func TestScenarioMissingDRMSystem(t *testing.T) {
	cenc := `<ContentProtection schemeIdUri="urn:mpeg:dash:mp4protection:2011" value="cenc" cenc:default_KID="0123456789abcdef0123456789abcdef"/>`
	wv := `<ContentProtection schemeIdUri="` + widevine + `"/>`
	source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, videoSet(cenc+wv)))
	ssai := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, videoSet(cenc)))

	report := validate(t, source, ssai)
	veryHigh := types.FilterSeverity(report.All(), types.SeverityVeryHigh)
	require.Len(t, veryHigh, 1, messages(veryHigh))
	assert.Equal(t, "Missing DRM system: Widevine", veryHigh[0].Message)
	assert.Equal(t, KindDRM, veryHigh[0].Kind)
}

func TestMissingDRMSystemReportedOncePerPeriod(t *testing.T) {
	playready := `<ContentProtection schemeIdUri="urn:uuid:9a04f079-9840-4286-ab92-e65be0885f95"/>`
	wv := `<ContentProtection schemeIdUri="` + widevine + `"/>`
	french := func(extra string) string {
		return strings.Replace(videoSet(extra), `contentType="video"`, `contentType="video" lang="fr"`, 1)
	}
	source := manifest(`mediaPresentationDuration="PT30S"`,
		contentPeriod("1", `start="PT0S"`, videoSet(wv+playready), french(wv+playready)))
	ssai := manifest(`mediaPresentationDuration="PT30S"`,
		contentPeriod("1", `start="PT0S"`, videoSet(playready), french(playready)))

	report := validate(t, source, ssai)
	drm := ofKind(report.All(), KindDRM)
	require.Len(t, drm, 1, messages(drm))
	assert.Equal(t, "Missing DRM system: Widevine", drm[0].Message)
	assert.Equal(t, "Period[id=1]", drm[0].Location)
	assert.Equal(t, widevine, drm[0].SourceValue)

	ssai = manifest(`mediaPresentationDuration="PT30S"`,
		contentPeriod("1", `start="PT0S"`, videoSet(""), french("")))
	got := messages(ofKind(validate(t, source, ssai).All(), KindDRM))
	assert.ElementsMatch(t, []string{"Missing DRM system: Widevine", "Missing DRM system: PlayReady"}, got)
}

func TestDRMSchemeAndKIDForms(t *testing.T) {
	cp := func(scheme, kid string) string {
		return fmt.Sprintf(`<ContentProtection schemeIdUri="%s" cenc:default_KID="%s"/>`, scheme, kid)
	}
	source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`,
		videoSet(cp(widevine, "0123456789abcdef0123456789abcdef"))))
	ssai := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`,
		videoSet(cp("urn:uuid:EDEF8BA979D64ACEA3C827DCD51D21ED", "01234567-89AB-CDEF-0123-456789ABCDEF"))))

	report := validate(t, source, ssai)
	assert.Empty(t, ofKind(report.All(), KindDRM), "system ids and key ids compare by value")
}

func TestNormalizeScheme(t *testing.T) {
	assert.Equal(t, widevine, NormalizeScheme(" URN:UUID:EDEF8BA9-79D6-4ACE-A3C8-27DCD51D21ED "))
	assert.Equal(t, widevine, NormalizeScheme("urn:uuid:edef8ba979d64acea3c827dcd51d21ed"))
	assert.Equal(t, SchemeMP4Protection, NormalizeScheme("URN:MPEG:DASH:MP4PROTECTION:2011"))
	assert.Equal(t, "urn:uuid:not-a-uuid", NormalizeScheme("urn:uuid:not-a-uuid"))
	assert.Equal(t, "Widevine", DRMSystemName("urn:uuid:EDEF8BA979D64ACEA3C827DCD51D21ED"))
}

func TestBandwidthToleranceBoundary(t *testing.T) {
	rep := func(bw int) string {
		return fmt.Sprintf(`<Representation id="v1" bandwidth="%d" width="1280" height="720"/>`, bw)
	}
	source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, videoSet("", rep(1000000))))

	tests := []struct {
		name      string
		bandwidth int
		findings  int
	}{
		{"identical", 1000000, 0},
		{"exactly one percent", 1010000, 0},
		{"one percent and a bit", 1010001, 1},
		{"one percent below", 990000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ssai := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, videoSet("", rep(tt.bandwidth))))
			report := validate(t, source, ssai)
			var bandwidth []types.Finding
			for _, f := range ofKind(report.All(), KindRepresentation) {
				if f.Attribute == "bandwidth" {
					bandwidth = append(bandwidth, f)
				}
			}
			assert.Len(t, bandwidth, tt.findings)
		})
	}
}

func TestMissingContentPeriodAndParity(t *testing.T) {
	source := manifest(`mediaPresentationDuration="PT60S"`,
		contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")),
		contentPeriod("2", `start="PT30S" duration="PT30S"`, videoSet("")))
	ssai := manifest(`mediaPresentationDuration="PT30S"`,
		contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")))

	report := validate(t, source, ssai)
	assert.Contains(t, messages(report.Errors), "Missing content period Period[id=2] in SSAI manifest")
	parity := ofKind(report.Errors, KindDuration)
	require.Len(t, parity, 1)
	assert.Equal(t, types.SeverityVeryHigh, parity[0].Severity)
	assert.Equal(t, "60s", parity[0].SourceValue)
	assert.Equal(t, "30s", parity[0].SSAIValue)
}

func TestContinuityGap(t *testing.T) {
	source := manifest(`mediaPresentationDuration="PT30S"`,
		contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")))
	ssai := manifest(`mediaPresentationDuration="PT41S"`,
		contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")),
		contentPeriod("ad1", `start="PT31S" duration="PT10S"`, videoSet("")))

	report := validate(t, source, ssai)
	gaps := ofKind(report.Errors, KindContinuity)
	require.Len(t, gaps, 1)
	assert.Contains(t, gaps[0].Message, "Timeline gap of 1s")
}

func TestUnmatchedNonAdPeriod(t *testing.T) {
	source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")))
	ssai := manifest(`mediaPresentationDuration="PT40S"`,
		contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")),
		contentPeriod("bumper", `start="PT30S" duration="PT10S"`, videoSet("")))

	report := validate(t, source, ssai)
	periods := ofKind(report.Warnings, KindPeriod)
	require.Len(t, periods, 1)
	assert.Equal(t, "Period[id=bumper]", periods[0].Location)
}

func TestRootAndTypeMismatch(t *testing.T) {
	source := manifest(`type="static" profiles="urn:mpeg:dash:profile:isoff-live:2011" mediaPresentationDuration="PT30S" minBufferTime="PT2S"`,
		contentPeriod("1", `start="PT0S"`, videoSet("")))
	ssai := manifest(`type="static" mediaPresentationDuration="PT30S" minBufferTime="soon"`,
		contentPeriod("1", `start="PT0S"`, videoSet("")))

	report := validate(t, source, ssai)
	root := ofKind(report.All(), KindRoot)
	require.Len(t, root, 1)
	assert.Equal(t, "profiles", root[0].Attribute)

	durations := ofKind(report.All(), KindDuration)
	require.Len(t, durations, 1)
	assert.Equal(t, "minBufferTime", durations[0].Attribute)
	assert.Equal(t, types.SeverityLow, durations[0].Severity)

	dynamic := manifest(`type="dynamic" mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, videoSet("")))
	report = validate(t, source, dynamic)
	require.NotEmpty(t, report.Errors)
	assert.Equal(t, "MPD type mismatch: source is static, SSAI is dynamic", report.Errors[0].Message)
}

func TestLiveDescriptors(t *testing.T) {
	source := manifest(`type="dynamic" availabilityStartTime="2024-01-01T00:00:00Z" publishTime="2024-01-01T00:10:00Z" minBufferTime="PT4S" timeShiftBufferDepth="PT60S" minimumUpdatePeriod="PT2S"`,
		contentPeriod("1", `start="PT0S"`, videoSet("")))

	t.Run("compliant", func(t *testing.T) {
		ssai := manifest(`type="dynamic" availabilityStartTime="2024-01-01T00:00:00.5Z" publishTime="2024-01-01T00:10:02Z" minBufferTime="PT4S" timeShiftBufferDepth="PT55S" minimumUpdatePeriod="PT2S"`,
			`<UTCTiming schemeIdUri="urn:mpeg:dash:utc:http-xsdate:2014" value="https://time.example.com/"/>`,
			contentPeriod("1", `start="PT0S"`, videoSet("")))
		report := validate(t, source, ssai)
		assert.Empty(t, ofKind(report.All(), KindLive), messages(report.All()))
	})

	t.Run("degraded", func(t *testing.T) {
		ssai := manifest(`type="dynamic" availabilityStartTime="2024-01-01T00:00:05Z" publishTime="2024-01-01T00:09:00Z" minBufferTime="PT2S" timeShiftBufferDepth="PT30S"`,
			`<UTCTiming schemeIdUri="urn:example:clock" value=""/>`,
			contentPeriod("1", `start="PT0S"`, videoSet("")))
		report := validate(t, source, ssai)

		attrs := map[string]bool{}
		for _, f := range ofKind(report.All(), KindLive) {
			attrs[f.Attribute] = true
		}
		for _, attr := range []string{"availabilityStartTime", "publishTime", "minBufferTime", "timeShiftBufferDepth", "schemeIdUri", "value"} {
			assert.True(t, attrs[attr], attr)
		}
		assert.Contains(t, messages(report.Errors), "Dynamic SSAI manifest has no refresh mechanism (Location, PatchLocation or minimumUpdatePeriod)")
	})
}

func TestCodecAndResolution(t *testing.T) {
	source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, videoSet("")))
	hevc := strings.Replace(videoSet("", `<Representation id="v1" bandwidth="1000000" width="1920" height="1080"/>`), "avc1.64001f", "hvc1.1.6.L93.B0", 1)
	ssai := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, hevc))

	report := validate(t, source, ssai)
	codecs := ofKind(report.All(), KindCodec)
	require.Len(t, codecs, 1)
	assert.Equal(t, types.SeverityVeryHigh, codecs[0].Severity)
	assert.Contains(t, codecs[0].Message, "Codec family mismatch")

	assert.Len(t, ofKind(report.All(), KindAdaptationSet), 1, "matched through the relaxed key")

	var resolution []types.Finding
	for _, f := range ofKind(report.All(), KindRepresentation) {
		if f.Attribute == "resolution" {
			resolution = append(resolution, f)
		}
	}
	require.Len(t, resolution, 1)
	assert.Equal(t, "1280x720", resolution[0].SourceValue)

	profile := strings.Replace(videoSet(""), "avc1.64001f", "avc1.640028", 1)
	report = validate(t, source, manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, profile)))
	codecs = ofKind(report.All(), KindCodec)
	require.Len(t, codecs, 1)
	assert.Equal(t, types.SeverityMedium, codecs[0].Severity)
}

func audioSet(scheme, value string) string {
	return fmt.Sprintf(`<AdaptationSet contentType="audio" lang="en" codecs="mp4a.40.2" audioSamplingRate="48000">
      <AudioChannelConfiguration schemeIdUri="%s" value="%s"/>
      <SegmentTemplate timescale="48000" duration="96000" media="a/$Number$.m4s"/>
      <Representation id="a1" bandwidth="128000"/>
    </AdaptationSet>`, scheme, value)
}

func TestAudioChannels(t *testing.T) {
	const mpeg = "urn:mpeg:dash:23003:3:audio_channel_configuration:2011"
	const dolby = "tag:dolby.com,2014:dash:audio_channel_configuration:2011"

	tests := []struct {
		name     string
		src, dst [2]string
		severity types.Severity
		findings int
	}{
		{"same", [2]string{mpeg, "2"}, [2]string{mpeg, "2"}, 0, 0},
		{"downmix", [2]string{mpeg, "6"}, [2]string{mpeg, "2"}, types.SeverityMedium, 1},
		{"upmix", [2]string{mpeg, "2"}, [2]string{mpeg, "6"}, types.SeverityHigh, 1},
		{"cicp downmix", [2]string{"urn:mpeg:mpegB:cicp:ChannelConfiguration", "6"}, [2]string{mpeg, "2"}, types.SeverityMedium, 1},
		{"dolby exact", [2]string{dolby, "F801"}, [2]string{dolby, "f801"}, 0, 0},
		{"dolby differs", [2]string{dolby, "F801"}, [2]string{dolby, "A000"}, types.SeverityHigh, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, audioSet(tt.src[0], tt.src[1])))
			ssai := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, audioSet(tt.dst[0], tt.dst[1])))
			audio := ofKind(validate(t, source, ssai).All(), KindAudio)
			require.Len(t, audio, tt.findings)
			if tt.findings > 0 {
				assert.Equal(t, tt.severity, audio[0].Severity)
			}
		})
	}
}

func validPSSH() string {
	box := make([]byte, 40)
	box[3] = 40
	copy(box[4:8], "pssh")
	return base64.StdEncoding.EncodeToString(box)
}

func TestValidatePSSH(t *testing.T) {
	assert.NoError(t, ValidatePSSH(validPSSH()))
	assert.Error(t, ValidatePSSH("%%%"))
	assert.Error(t, ValidatePSSH(base64.StdEncoding.EncodeToString(make([]byte, 40))), "wrong box type")
	assert.Error(t, ValidatePSSH(base64.StdEncoding.EncodeToString([]byte("\x00\x00\x00\x08pssh"))), "too short")
}

func TestValidKID(t *testing.T) {
	assert.True(t, ValidKID("0123456789abcdef0123456789ABCDEF"))
	assert.True(t, ValidKID("01234567-89ab-cdef-0123-456789abcdef"))
	assert.True(t, ValidKID("{01234567-89ab-cdef-0123-456789abcdef}"))
	assert.False(t, ValidKID("0123456789abcdef"))
	assert.False(t, ValidKID("01234567-89ab-cdef-0123-456789abcdeg"))
	assert.False(t, ValidKID("0123456789-abcdef-0123-456789abcdef"))
	assert.False(t, ValidKID(""))
}

func TestIsAdPeriod(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{"ad id", `<Period id="ad1"/>`, true},
		{"ads in id", `<Period id="break-ads-3"/>`, true},
		{"midroll", `<Period id="MidRoll_2"/>`, true},
		{"download is not an ad", `<Period id="download"/>`, false},
		{"adaptive is not an ad", `<Period id="adaptive-main"/>`, false},
		{"scte35 event stream", `<Period id="p2"><EventStream schemeIdUri="urn:scte:scte35:2013:xml"/></Period>`, true},
		{"asset identifier", `<Period id="p2"><AssetIdentifier schemeIdUri="urn:org:ad-id:2019" value="ABCD0001000H"/></Period>`, true},
		{"vendor property", `<Period id="p2"><AdaptationSet><SupplementalProperty schemeIdUri="urn:aws:mediatailor:ssai"/></AdaptationSet></Period>`, true},
		{"ad role", `<Period id="p2"><AdaptationSet><Role schemeIdUri="urn:mpeg:dash:role:2011" value="ad"/></AdaptationSet></Period>`, true},
		{"content", `<Period id="main"><AdaptationSet><Role value="main"/></AdaptationSet></Period>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := mpdtree.Parse(tt.doc)
			require.NoError(t, err)
			got, reason := IsAdPeriod(n)
			assert.Equal(t, tt.want, got)
			if tt.want {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestMatchPeriodsByStart(t *testing.T) {
	source, err := mpdtree.Parse(`<MPD><Period start="PT0S" duration="PT10S"/><Period start="PT10S" duration="PT10S"/></MPD>`)
	require.NoError(t, err)
	ssai, err := mpdtree.Parse(`<MPD><Period start="PT0S" duration="PT10S"/><Period id="ad" start="PT10S" duration="PT5S"/><Period start="PT15.05S" duration="PT10S"/></MPD>`)
	require.NoError(t, err)

	pairs := MatchPeriods(source, ssai, 0.1)
	require.Len(t, pairs, 3)
	assert.Equal(t, "start", pairs[0].MatchedBy)
	assert.Equal(t, 0, pairs[0].SSAI.Index)
	assert.Equal(t, "content start", pairs[1].MatchedBy)
	assert.Equal(t, 2, pairs[1].SSAI.Index)
	assert.Nil(t, pairs[2].Source)
	assert.True(t, pairs[2].SSAI.Ad)
}

func TestMatchPeriodsFallsBackToStartForRenamedID(t *testing.T) {
	source, err := mpdtree.Parse(`<MPD><Period id="1" start="PT0S" duration="PT30S"/></MPD>`)
	require.NoError(t, err)
	ssai, err := mpdtree.Parse(`<MPD><Period id="content-1" start="PT0S" duration="PT30S"/></MPD>`)
	require.NoError(t, err)

	pairs := MatchPeriods(source, ssai, 0.1)
	require.Len(t, pairs, 1)
	require.NotNil(t, pairs[0].SSAI)
	assert.Equal(t, "start", pairs[0].MatchedBy)
	assert.Equal(t, "content-1", pairs[0].SSAI.ID)
}

func TestMatchPeriodsIDClaimsBeforeStart(t *testing.T) {
	source, err := mpdtree.Parse(`<MPD><Period start="PT0S" duration="PT10S"/><Period id="b" start="PT10S" duration="PT10S"/></MPD>`)
	require.NoError(t, err)
	ssai, err := mpdtree.Parse(`<MPD><Period id="x" start="PT0S" duration="PT10S"/><Period id="b" start="PT10S" duration="PT10S"/></MPD>`)
	require.NoError(t, err)

	pairs := MatchPeriods(source, ssai, 0.1)
	require.Len(t, pairs, 2)
	require.NotNil(t, pairs[0].SSAI, "an SSAI period with an unclaimed id is a start candidate")
	assert.Equal(t, "start", pairs[0].MatchedBy)
	assert.Equal(t, "x", pairs[0].SSAI.ID)
	assert.Equal(t, "id", pairs[1].MatchedBy)
	assert.Equal(t, "b", pairs[1].SSAI.ID)
}

func TestScenarioRenamedContentPeriod(t *testing.T) {
	source := manifest(`mediaPresentationDuration="PT30S"`,
		contentPeriod("1", `start="PT0S" duration="PT30S"`, videoSet("")))
	ssai := manifest(`mediaPresentationDuration="PT30S"`,
		contentPeriod("content-1", `start="PT0S" duration="PT30S"`, videoSet("")))

	report := validate(t, source, ssai)
	assert.Empty(t, ofKind(report.All(), KindPeriod), messages(report.All()))
	assert.Zero(t, report.Summary.VeryHigh, messages(report.Errors))
}

func TestDRMKeysAndPSSH(t *testing.T) {
	box := validPSSH()
	cp := func(kid, pssh string) string {
		return fmt.Sprintf(`<ContentProtection schemeIdUri="%s" cenc:default_KID="%s"><cenc:pssh>%s</cenc:pssh></ContentProtection>`, widevine, kid, pssh)
	}
	source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`,
		videoSet(cp("01234567-89ab-cdef-0123-456789abcdef", box))))

	report := validate(t, source, manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`,
		videoSet(cp("01234567-89AB-CDEF-0123-456789ABCDEF", box)))))
	assert.Empty(t, ofKind(report.All(), KindDRM), "KIDs compare case-insensitively")

	report = validate(t, source, manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`,
		videoSet(cp("not-a-kid", "AAAA")))))
	got := messages(ofKind(report.All(), KindDRM))
	assert.Contains(t, got, "PSSH mismatch for Widevine")
	assert.Contains(t, got, "default_KID mismatch for Widevine")
	assert.Contains(t, got, `Malformed default_KID for Widevine: "not-a-kid"`)
	assert.Contains(t, strings.Join(got, "\n"), "Invalid PSSH for Widevine")
}

func TestTemplateTokensAndTimeline(t *testing.T) {
	source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, videoSet("")))

	timeBased := strings.Replace(videoSet(""), "$RepresentationID$/$Number$.m4s", "v/$Time$.m4s", 1)
	report := validate(t, source, manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, timeBased)))
	got := messages(ofKind(report.All(), KindTemplate))
	assert.ElementsMatch(t, []string{"Missing URL template token $RepresentationID$", "Segment addressing switched between $Number$ and $Time$"}, got)

	openEnded := strings.Replace(videoSet(""), `r="14"`, `r="-1"`, 1)
	report = validate(t, source, manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, openEnded)))
	timelines := ofKind(report.All(), KindTimeline)
	require.Len(t, timelines, 1)
	assert.Equal(t, types.SeverityMedium, timelines[0].Severity)
	assert.Contains(t, timelines[0].Message, "not verified")

	shifted := strings.Replace(videoSet(""), `<S t="0" d="180000" r="14"/>`, `<S t="0" d="180000" r="4"/><S d="181000"/><S d="180000" r="8"/>`, 1)
	report = validate(t, source, manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`, shifted)))
	timelines = ofKind(report.All(), KindTimeline)
	require.Len(t, timelines, 1, "only the first drifting segment is reported")
	assert.Equal(t, 5, timelines[0].Details["segmentIndex"])
}

func TestLadderCoverage(t *testing.T) {
	rung := func(id string, bw int) string {
		return fmt.Sprintf(`<Representation id="%s" bandwidth="%d" width="1280" height="720"/>`, id, bw)
	}
	source := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`,
		videoSet("", rung("low", 400000), rung("mid", 800000), rung("high", 1600000), rung("top", 3200000))))
	ssai := manifest(`mediaPresentationDuration="PT30S"`, contentPeriod("1", `start="PT0S"`,
		videoSet("", rung("mid", 800000), rung("high", 1600000))))

	report := validate(t, source, ssai)
	ladder := messages(ofKind(report.All(), KindLadder))
	assert.Contains(t, ladder, "Low-end rendition lost: lowest bandwidth 400000 in source, 800000 in SSAI")
	assert.Contains(t, ladder, "High-end rendition lost: highest bandwidth 3200000 in source, 1600000 in SSAI")
	assert.Len(t, ofKind(report.Errors, KindRepresentation), 2, "low and top are missing")
}

func TestValidateParseFailure(t *testing.T) {
	report := Validate("", "<MPD/>", DefaultOptions())
	require.Len(t, report.Errors, 1)
	assert.Equal(t, KindParse, report.Errors[0].Kind)
	assert.Equal(t, types.SeverityVeryHigh, report.Errors[0].Severity)
	assert.False(t, report.Summary.IsValid)
}

func TestCheckFailureIsIsolated(t *testing.T) {
	root, err := mpdtree.Parse("<MPD/>")
	require.NoError(t, err)

	got := runCheck(check{name: "exploding", run: func(*input) []types.Finding { panic("boom") }}, &input{source: root, ssai: root})
	require.Len(t, got, 1)
	assert.Equal(t, KindInternal, got[0].Kind)
	assert.Equal(t, "Validation of exploding failed: boom", got[0].Message)
}
