package compliance

import (
	"fmt"
	"math"
	"sort"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

// Representation match scoring
const (
	scoreBandwidthExact = 50
	scoreBandwidthNear  = 30
	scoreResolution     = 20
	scoreCodec          = 20
	scoreBaseCodec      = 10
	scoreFrameRate      = 10
	scoreID             = 30
	scoreSamplingRate   = 10

	// MatchScoreFloor is the minimum score for two representations to pair
	MatchScoreFloor = 40

	nearBandwidthTolerance = 0.05
)

// RepresentationPair links a source representation to its best SSAI match.
type RepresentationPair struct {
	Source   *mpdtree.Node
	SSAI     *mpdtree.Node
	Score    int
	Location string
}

func representationLabel(rep *mpdtree.Node, index int) string {
	if id := rep.String("id"); id != "" {
		return id
	}
	return fmt.Sprintf("#%d", index)
}

// bandwidthDelta returns |a-b| relative to a.
func bandwidthDelta(a, b int64) float64 {
	if a == 0 {
		if b == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(float64(a-b)) / float64(a)
}

// Score rates how likely cand is the SSAI rendition of src.
func Score(src, srcSet, cand, candSet *mpdtree.Node, opts Options) int {
	score := 0
	if a, okA := src.Int("bandwidth"); okA {
		if b, okB := cand.Int("bandwidth"); okB {
			switch d := bandwidthDelta(a, b); {
			case d <= opts.BandwidthTolerance:
				score += scoreBandwidthExact
			case d <= nearBandwidthTolerance:
				score += scoreBandwidthNear
			}
		}
	}

	if w, h := inherited(src, srcSet, "width"), inherited(src, srcSet, "height"); w != "" && h != "" &&
		w == inherited(cand, candSet, "width") && h == inherited(cand, candSet, "height") {
		score += scoreResolution
	}

	srcCodec, candCodec := inherited(src, srcSet, "codecs"), inherited(cand, candSet, "codecs")
	switch {
	case srcCodec != "" && srcCodec == candCodec:
		score += scoreCodec
	case srcCodec != "" && codecFamily(srcCodec) == codecFamily(candCodec):
		score += scoreBaseCodec
	}

	if fr := inherited(src, srcSet, "frameRate"); fr != "" && sameFrameRate(fr, inherited(cand, candSet, "frameRate")) {
		score += scoreFrameRate
	}
	if id := src.String("id"); id != "" && id == cand.String("id") {
		score += scoreID
	}
	if sr := inherited(src, srcSet, "audioSamplingRate"); sr != "" && sr == inherited(cand, candSet, "audioSamplingRate") {
		score += scoreSamplingRate
	}
	return score
}

// MatchRepresentations pairs source and SSAI representations, highest
// scoring candidates first, so a rendition that was dropped cannot pull its
// neighbour away from the rendition that really matches it. Pairs below
// MatchScoreFloor leave SSAI nil. Unpaired SSAI representations are appended
// with a nil Source.
func MatchRepresentations(set AdaptationPair, opts Options) []RepresentationPair {
	src := set.Source.All("Representation")
	dst := set.SSAI.All("Representation")

	type candidate struct{ i, j, score int }
	var candidates []candidate
	for i, rep := range src {
		for j, cand := range dst {
			if s := Score(rep, set.Source, cand, set.SSAI, opts); s >= MatchScoreFloor {
				candidates = append(candidates, candidate{i, j, s})
			}
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].score > candidates[b].score })

	pairs := make([]RepresentationPair, len(src))
	for i, rep := range src {
		pairs[i] = RepresentationPair{
			Source:   rep,
			Location: fmt.Sprintf("%s/Representation[%s]", set.Location, representationLabel(rep, i)),
		}
	}
	used := make([]bool, len(dst))
	for _, c := range candidates {
		if used[c.j] || pairs[c.i].SSAI != nil {
			continue
		}
		used[c.j] = true
		pairs[c.i].SSAI = dst[c.j]
		pairs[c.i].Score = c.score
	}

	for j, rep := range dst {
		if !used[j] {
			pairs = append(pairs, RepresentationPair{
				SSAI:     rep,
				Location: fmt.Sprintf("%s/Representation[%s]", set.Location, representationLabel(rep, j)),
			})
		}
	}
	return pairs
}

func sameFrameRate(a, b string) bool {
	fa, okA := parseFrameRate(a)
	fb, okB := parseFrameRate(b)
	return okA && okB && math.Abs(fa-fb) < 0.001
}

// parseFrameRate reads "25", "30000/1001" style frame rates.
func parseFrameRate(s string) (float64, bool) {
	var num, den float64
	if n, _ := fmt.Sscanf(s, "%g/%g", &num, &den); n == 2 && den != 0 {
		return num / den, true
	}
	if n, _ := fmt.Sscanf(s, "%g", &num); n == 1 {
		return num, true
	}
	return 0, false
}

func checkRepresentations(in *input, set AdaptationPair, reps []RepresentationPair) []types.Finding {
	findings := []types.Finding{}
	for _, pair := range reps {
		switch {
		case pair.SSAI == nil:
			f := note(KindRepresentation, types.SeverityHigh, pair.Location,
				fmt.Sprintf("Missing representation %s (bandwidth %s) in SSAI manifest", pair.Source.String("id"), pair.Source.String("bandwidth")))
			f.SourceValue = pair.Source.String("bandwidth")
			findings = append(findings, f)
		case pair.Source == nil:
			findings = append(findings, note(KindRepresentation, types.SeverityInfo, pair.Location,
				fmt.Sprintf("Additional representation %s (bandwidth %s) in SSAI manifest", pair.SSAI.String("id"), pair.SSAI.String("bandwidth"))))
		default:
			findings = append(findings, compareRepresentation(in, set, pair)...)
		}
	}
	return findings
}

func compareRepresentation(in *input, set AdaptationPair, pair RepresentationPair) []types.Finding {
	var findings []types.Finding
	if a, okA := pair.Source.Int("bandwidth"); okA {
		if b, okB := pair.SSAI.Int("bandwidth"); okB && bandwidthDelta(a, b) > in.opts.BandwidthTolerance {
			findings = append(findings, difference(KindRepresentation, types.SeverityMedium, pair.Location, "bandwidth",
				fmt.Sprint(a), fmt.Sprint(b),
				fmt.Sprintf("Bandwidth mismatch: %d vs %d (%.2f%% difference)", a, b, bandwidthDelta(a, b)*100)))
		}
	}

	srcRes := inherited(pair.Source, set.Source, "width") + "x" + inherited(pair.Source, set.Source, "height")
	ssaiRes := inherited(pair.SSAI, set.SSAI, "width") + "x" + inherited(pair.SSAI, set.SSAI, "height")
	if srcRes != "x" && srcRes != ssaiRes {
		findings = append(findings, difference(KindRepresentation, types.SeverityHigh, pair.Location, "resolution", srcRes, ssaiRes,
			fmt.Sprintf("Resolution mismatch: %s vs %s", srcRes, ssaiRes)))
	}

	if fr := inherited(pair.Source, set.Source, "frameRate"); fr != "" {
		ssaiFR := inherited(pair.SSAI, set.SSAI, "frameRate")
		if !sameFrameRate(fr, ssaiFR) {
			findings = append(findings, difference(KindRepresentation, types.SeverityMedium, pair.Location, "frameRate", fr, ssaiFR,
				fmt.Sprintf("Frame rate mismatch: %s vs %s", fr, ssaiFR)))
		}
	}
	return findings
}
