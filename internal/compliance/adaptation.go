package compliance

import (
	"fmt"
	"strings"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/normalizer"
	"github.com/alevsk/mpd-scope/internal/types"
)

// AdaptationKey identifies an adaptation set independently of its position.
type AdaptationKey struct {
	ContentType string
	Lang        string
	Role        string
	BaseCodec   string
}

func (k AdaptationKey) String() string {
	parts := []string{k.ContentType}
	if k.Lang != "" {
		parts = append(parts, k.Lang)
	}
	if k.Role != "" {
		parts = append(parts, k.Role)
	}
	return strings.Join(parts, ":")
}

// relaxed drops the codec component for the fuzzy match
func (k AdaptationKey) relaxed() AdaptationKey {
	k.BaseCodec = ""
	return k
}

// KeyOf builds the composite key of an adaptation set.
func KeyOf(as *mpdtree.Node) AdaptationKey {
	k := AdaptationKey{
		ContentType: normalizer.ContentType(as),
		Lang:        strings.ToLower(as.String("lang")),
	}
	if role := as.Child("Role"); role != nil {
		k.Role = strings.ToLower(role.String("value"))
	}
	codecs := as.String("codecs")
	if codecs == "" {
		if rep := as.Child("Representation"); rep != nil {
			codecs = rep.String("codecs")
		}
	}
	k.BaseCodec = codecFamily(codecs)
	return k
}

// AdaptationPair links a source adaptation set to its SSAI counterpart.
type AdaptationPair struct {
	Key      AdaptationKey
	Source   *mpdtree.Node
	SSAI     *mpdtree.Node
	Fuzzy    bool
	Location string
	// Period is the location of the enclosing period
	Period string
}

// MatchAdaptationSets pairs adaptation sets by composite key and falls back
// to the key without the codec. Source sets left unmatched have a nil SSAI.
func MatchAdaptationSets(periodLoc string, source, ssai []*mpdtree.Node) []AdaptationPair {
	keys := make([]AdaptationKey, len(ssai))
	for j, as := range ssai {
		keys[j] = KeyOf(as)
	}
	used := make([]bool, len(ssai))

	pairs := make([]AdaptationPair, 0, len(source))
	for _, as := range source {
		key := KeyOf(as)
		pair := AdaptationPair{Key: key, Source: as, Period: periodLoc, Location: fmt.Sprintf("%s/AdaptationSet[%s]", periodLoc, key)}
		j := findKey(keys, used, func(k AdaptationKey) bool { return k == key })
		if j < 0 {
			j = findKey(keys, used, func(k AdaptationKey) bool { return k.relaxed() == key.relaxed() })
			pair.Fuzzy = j >= 0
		}
		if j >= 0 {
			used[j] = true
			pair.SSAI = ssai[j]
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

func findKey(keys []AdaptationKey, used []bool, match func(AdaptationKey) bool) int {
	for j, k := range keys {
		if !used[j] && match(k) {
			return j
		}
	}
	return -1
}

type setCheck struct {
	name string
	run  func(in *input, pair AdaptationPair, reps []RepresentationPair) []types.Finding
}

var setChecks = []setCheck{
	{"representations", checkRepresentations},
	{"codecs", checkCodecs},
	{"audio channels", checkAudioChannels},
	{"drm", checkDRM},
	{"segment templates", checkTemplates},
	{"abr ladder", checkLadder},
}

// checkAdaptationSets pairs the adaptation sets of every matched period and
// runs the per-set checks on each pair.
func checkAdaptationSets(in *input) []types.Finding {
	findings := []types.Finding{}
	for _, period := range in.periods {
		if period.Source == nil || period.SSAI == nil {
			continue
		}
		pairs := MatchAdaptationSets(period.Location(), period.Source.Node.All("AdaptationSet"), period.SSAI.Node.All("AdaptationSet"))
		for _, pair := range pairs {
			if pair.SSAI == nil {
				sev := types.SeverityHigh
				if pair.Key.ContentType == types.ContentTypeVideo || pair.Key.ContentType == types.ContentTypeAudio {
					sev = types.SeverityVeryHigh
				}
				f := note(KindAdaptationSet, sev, pair.Location, fmt.Sprintf("Missing adaptation set %s in SSAI manifest", pair.Key))
				f.SourceValue = pair.Key.String()
				findings = append(findings, f)
				continue
			}
			if pair.Fuzzy {
				f := difference(KindAdaptationSet, types.SeverityLow, pair.Location, "codecs", pair.Key.BaseCodec, KeyOf(pair.SSAI).BaseCodec,
					fmt.Sprintf("Adaptation set %s matched with a different codec family", pair.Key))
				findings = append(findings, f)
			}

			reps := MatchRepresentations(pair, in.opts)
			for _, c := range setChecks {
				findings = append(findings, runSetCheck(c, in, pair, reps)...)
			}
		}
	}
	return findings
}

func runSetCheck(c setCheck, in *input, pair AdaptationPair, reps []RepresentationPair) (findings []types.Finding) {
	defer func() {
		if r := recover(); r != nil {
			f := internalFailure(c.name, r)
			f.Location = pair.Location
			findings = []types.Finding{f}
		}
	}()
	return c.run(in, pair, reps)
}

// inherited returns a representation attribute, falling back to its
// adaptation set.
func inherited(rep, as *mpdtree.Node, attr string) string {
	if v := rep.String(attr); v != "" {
		return v
	}
	return as.String(attr)
}
