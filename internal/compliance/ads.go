package compliance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

var (
	// "ad", "ads", "ad1", "pre-ad" but not "download" or "adaptive"
	adWordPattern = regexp.MustCompile(`(^|[^a-z])ads?([^a-z]|$)`)
	adBreakWords  = []string{"preroll", "midroll", "postroll", "pre-roll", "mid-roll", "post-roll", "advert"}

	adAssetHints    = []string{"ad-id", "adid", "ad-insertion", "urn:ad"}
	spliceHints     = []string{"scte35", "scte:35", "scte-35", "splice"}
	ssaiVendorHints = []string{"mediatailor", "urn:google:dai", "yospace", "freewheel", "brightcove:ssai", "uplynk", "ssai"}
)

func hasAdWord(s string) bool {
	s = strings.ToLower(s)
	if adWordPattern.MatchString(s) {
		return true
	}
	for _, w := range adBreakWords {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func containsAny(s string, hints []string) bool {
	s = strings.ToLower(s)
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// IsAdPeriod applies the ad-break heuristics to a period and returns the
// reason for a positive match.
func IsAdPeriod(period *mpdtree.Node) (bool, string) {
	if id := period.String("id"); id != "" && hasAdWord(id) {
		return true, fmt.Sprintf("id %q", id)
	}
	for _, a := range period.All("AssetIdentifier") {
		if containsAny(a.String("schemeIdUri"), adAssetHints) {
			return true, fmt.Sprintf("AssetIdentifier scheme %s", a.String("schemeIdUri"))
		}
	}
	for _, e := range period.All("EventStream") {
		if containsAny(e.String("schemeIdUri"), spliceHints) {
			return true, fmt.Sprintf("EventStream scheme %s", e.String("schemeIdUri"))
		}
	}

	scopes := append([]*mpdtree.Node{period}, period.All("AdaptationSet")...)
	for _, scope := range scopes {
		for _, tag := range []string{"EssentialProperty", "SupplementalProperty"} {
			for _, prop := range scope.All(tag) {
				if containsAny(prop.String("schemeIdUri"), ssaiVendorHints) {
					return true, fmt.Sprintf("%s scheme %s", tag, prop.String("schemeIdUri"))
				}
			}
		}
		for _, role := range scope.All("Role") {
			if hasAdWord(role.String("value")) {
				return true, fmt.Sprintf("Role %q", role.String("value"))
			}
		}
	}
	return false, ""
}

// checkAdPeriods reports every detected ad period and the inserted total.
func checkAdPeriods(in *input) []types.Finding {
	findings := []types.Finding{}
	var count int
	var total float64
	for _, s := range Timeline(in.ssai) {
		if !s.Ad {
			continue
		}
		count++
		f := note(KindAd, types.SeverityInfo, spanLocation(s), fmt.Sprintf("Ad period detected: %s (%s)", spanLocation(s), s.AdReason))
		f.Details = map[string]interface{}{"reason": s.AdReason}
		if s.Duration != nil {
			total += *s.Duration
			f.Details["duration"] = *s.Duration
		}
		findings = append(findings, f)
	}
	if count > 0 {
		f := note(KindAd, types.SeverityInfo, "MPD", fmt.Sprintf("%d ad period(s) inserted, %s of ad content", count, seconds(total)))
		f.Details = map[string]interface{}{"count": count, "duration": total}
		findings = append(findings, f)
	}
	return findings
}
