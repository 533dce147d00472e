package compliance

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
	"github.com/gofrs/uuid"
)

// SchemeMP4Protection is the common encryption signalling scheme
const SchemeMP4Protection = "urn:mpeg:dash:mp4protection:2011"

// DRMSystems names the well known ContentProtection schemes
var DRMSystems = map[string]string{
	"urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed": "Widevine",
	"urn:uuid:9a04f079-9840-4286-ab92-e65be0885f95": "PlayReady",
	"urn:uuid:94ce86fb-07ff-4f43-adb8-93d2fa968ca2": "FairPlay",
	"urn:uuid:e2719d58-a985-b3c9-781a-b030af78d30e": "ClearKey",
	"urn:uuid:1077efec-c0b2-4d02-ace3-3c1e52e2fb4b": "W3C Common PSSH",
	"urn:uuid:5e629af5-38da-4063-8977-97ffbd9902d4": "Marlin",
	SchemeMP4Protection:                             "CENC",
}

const (
	minPSSHSize = 32
	uuidScheme  = "urn:uuid:"
)

// NormalizeScheme lower-cases a schemeIdUri and rewrites urn:uuid schemes to
// the canonical hyphenated form, so hash-like and upper-case system ids
// compare equal.
func NormalizeScheme(scheme string) string {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	if !strings.HasPrefix(scheme, uuidScheme) {
		return scheme
	}
	id, err := uuid.FromString(scheme)
	if err != nil {
		return scheme
	}
	return uuidScheme + id.String()
}

// DRMSystemName returns the readable name of a scheme, or the scheme itself.
func DRMSystemName(scheme string) string {
	if name, ok := DRMSystems[NormalizeScheme(scheme)]; ok {
		return name
	}
	return scheme
}

type protection struct {
	scheme string
	pssh   string
	kid    string
}

// protections returns the ContentProtection descriptors of an adaptation set
// and its representations keyed by normalized scheme, first one wins.
func protections(as *mpdtree.Node) ([]string, map[string]protection) {
	order := []string{}
	byScheme := map[string]protection{}
	nodes := append([]*mpdtree.Node{}, as.All("ContentProtection")...)
	for _, rep := range as.All("Representation") {
		nodes = append(nodes, rep.All("ContentProtection")...)
	}
	for _, cp := range nodes {
		scheme := NormalizeScheme(cp.String("schemeIdUri"))
		if scheme == "" {
			continue
		}
		if _, seen := byScheme[scheme]; seen {
			continue
		}
		p := protection{scheme: scheme, kid: cp.String("cenc:default_KID")}
		if p.kid == "" {
			p.kid = cp.String("default_KID")
		}
		if pssh := cp.Child("pssh"); pssh != nil {
			p.pssh = pssh.Text
		}
		order = append(order, scheme)
		byScheme[scheme] = p
	}
	return order, byScheme
}

// ValidatePSSH checks that a base64 PSSH decodes to a plausible pssh box.
func ValidatePSSH(encoded string) error {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return fmt.Errorf("not valid base64: %w", err)
	}
	if len(data) < minPSSHSize {
		return fmt.Errorf("box is %d bytes, expected at least %d", len(data), minPSSHSize)
	}
	if !bytes.Equal(data[4:8], []byte("pssh")) {
		return fmt.Errorf("box type is %q, expected \"pssh\"", data[4:8])
	}
	return nil
}

// ValidKID reports whether the key id parses as a UUID, hyphenated or as 32
// hex digits.
func ValidKID(kid string) bool {
	_, err := uuid.FromString(strings.TrimSpace(kid))
	return err == nil
}

// sameKID compares two key ids by value, falling back to a case-insensitive
// text match when either does not parse.
func sameKID(a, b string) bool {
	ua, errA := uuid.FromString(strings.TrimSpace(a))
	ub, errB := uuid.FromString(strings.TrimSpace(b))
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return ua == ub
}

// checkDRM requires every source protection scheme to survive in the SSAI
// adaptation set with identical PSSH and default KID. A scheme missing from
// several adaptation sets of one period is reported once, at the period.
func checkDRM(in *input, set AdaptationPair, _ []RepresentationPair) []types.Finding {
	findings := []types.Finding{}
	srcOrder, src := protections(set.Source)
	ssaiOrder, ssai := protections(set.SSAI)

	for _, scheme := range srcOrder {
		name := DRMSystemName(scheme)
		s := src[scheme]
		d, ok := ssai[scheme]
		if !ok {
			key := set.Period + "|" + scheme
			if in.missingDRM[key] {
				continue
			}
			if in.missingDRM == nil {
				in.missingDRM = map[string]bool{}
			}
			in.missingDRM[key] = true
			f := difference(KindDRM, types.SeverityVeryHigh, set.Period, "ContentProtection", scheme, "",
				fmt.Sprintf("Missing DRM system: %s", name))
			f.Details = map[string]interface{}{"schemeIdUri": scheme, "adaptationSet": set.Location}
			findings = append(findings, f)
			continue
		}
		if s.pssh != "" && s.pssh != d.pssh {
			findings = append(findings, difference(KindDRM, types.SeverityVeryHigh, set.Location, "pssh", s.pssh, d.pssh,
				fmt.Sprintf("PSSH mismatch for %s", name)))
		}
		if s.kid != "" && !sameKID(s.kid, d.kid) {
			findings = append(findings, difference(KindDRM, types.SeverityVeryHigh, set.Location, "default_KID", s.kid, d.kid,
				fmt.Sprintf("default_KID mismatch for %s", name)))
		}
	}

	for _, scheme := range ssaiOrder {
		d := ssai[scheme]
		name := DRMSystemName(scheme)
		if _, ok := src[scheme]; !ok {
			findings = append(findings, difference(KindDRM, types.SeverityInfo, set.Location, "ContentProtection", "", scheme,
				fmt.Sprintf("Additional DRM system in SSAI manifest: %s", name)))
		}
		if d.pssh != "" {
			if err := ValidatePSSH(d.pssh); err != nil {
				findings = append(findings, difference(KindDRM, types.SeverityHigh, set.Location, "pssh", "", d.pssh,
					fmt.Sprintf("Invalid PSSH for %s: %v", name, err)))
			}
		}
		if d.kid != "" && !ValidKID(d.kid) {
			findings = append(findings, difference(KindDRM, types.SeverityHigh, set.Location, "default_KID", "", d.kid,
				fmt.Sprintf("Malformed default_KID for %s: %q", name, d.kid)))
		}
	}
	return findings
}
