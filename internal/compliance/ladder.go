package compliance

import (
	"fmt"
	"sort"

	"github.com/alevsk/mpd-scope/internal/mpdtree"
	"github.com/alevsk/mpd-scope/internal/types"
)

// ladderSpreadFactor is how much wider the average rung step may become
const ladderSpreadFactor = 2.0

func bandwidths(as *mpdtree.Node) []int64 {
	out := []int64{}
	for _, rep := range as.All("Representation") {
		if bw, ok := rep.Int("bandwidth"); ok && bw > 0 {
			out = append(out, bw)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// averageStep is the mean ratio between consecutive rungs of a sorted ladder.
func averageStep(ladder []int64) (float64, bool) {
	if len(ladder) < 2 {
		return 0, false
	}
	var sum float64
	for i := 1; i < len(ladder); i++ {
		sum += float64(ladder[i]) / float64(ladder[i-1])
	}
	return sum / float64(len(ladder)-1), true
}

// checkLadder verifies that the SSAI ABR ladder still covers the source
// bandwidth range and did not thin out.
func checkLadder(in *input, set AdaptationPair, _ []RepresentationPair) []types.Finding {
	src, ssai := bandwidths(set.Source), bandwidths(set.SSAI)
	if len(src) == 0 || len(ssai) == 0 {
		return nil
	}
	findings := []types.Finding{}
	tol := in.opts.LadderTolerance

	srcMin, srcMax := src[0], src[len(src)-1]
	ssaiMin, ssaiMax := ssai[0], ssai[len(ssai)-1]
	if float64(ssaiMin) > float64(srcMin)*(1+tol) {
		findings = append(findings, difference(KindLadder, types.SeverityHigh, set.Location, "bandwidth", fmt.Sprint(srcMin), fmt.Sprint(ssaiMin),
			fmt.Sprintf("Low-end rendition lost: lowest bandwidth %d in source, %d in SSAI", srcMin, ssaiMin)))
	}
	if float64(ssaiMax) < float64(srcMax)*(1-tol) {
		findings = append(findings, difference(KindLadder, types.SeverityHigh, set.Location, "bandwidth", fmt.Sprint(srcMax), fmt.Sprint(ssaiMax),
			fmt.Sprintf("High-end rendition lost: highest bandwidth %d in source, %d in SSAI", srcMax, ssaiMax)))
	}

	srcStep, okSrc := averageStep(src)
	ssaiStep, okSSAI := averageStep(ssai)
	if okSrc && okSSAI && ssaiStep > srcStep*ladderSpreadFactor {
		f := note(KindLadder, types.SeverityMedium, set.Location,
			fmt.Sprintf("ABR ladder gaps widened: average step %.2fx in SSAI, %.2fx in source", ssaiStep, srcStep))
		f.Details = map[string]interface{}{"sourceStep": srcStep, "ssaiStep": ssaiStep}
		findings = append(findings, f)
	}
	return findings
}
