package segments

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alevsk/mpd-scope/internal/types"
)

func twoPeriods() *types.MPD {
	rep := func(id string, durations ...float64) types.Representation {
		r := types.Representation{ID: id, Segments: []types.Segment{}}
		start := 0.0
		for _, d := range durations {
			r.Segments = append(r.Segments, types.Segment{Start: start, Duration: d})
			start += d
		}
		return r
	}
	return &types.MPD{
		Type: "dynamic",
		Periods: []types.Period{
			{ID: "1", AdaptationSets: []types.AdaptationSet{
				{Type: "video", Representations: []types.Representation{rep("v1", 2, 2, 2)}},
				{Type: "audio", Representations: []types.Representation{rep("a1", 2, 2)}},
			}},
			{ID: "ad1", AdaptationSets: []types.AdaptationSet{
				{Type: "video", Representations: []types.Representation{rep("v1-ad", 2, 2)}},
			}},
		},
	}
}

func TestFromMPD(t *testing.T) {
	obs := FromMPD(twoPeriods(), map[string]float64{"1/v1/1": 0.5, "1/a1/0": 0.2})
	require.Len(t, obs, 7)

	assert.Equal(t, "1/v1/0", obs[0].Key())
	assert.Nil(t, obs[0].DownloadTime)
	require.NotNil(t, obs[1].DownloadTime)
	assert.Equal(t, 0.5, *obs[1].DownloadTime)
	assert.Equal(t, 2.0, obs[1].Start)
	assert.Equal(t, "audio", obs[3].ContentType)
	require.NotNil(t, obs[3].DownloadTime)

	last := obs[6]
	assert.Equal(t, 1, last.PeriodIndex)
	assert.Equal(t, "ad1", last.PeriodID)
	assert.Equal(t, 1, last.Index)

	assert.Empty(t, FromMPD(nil, nil))
}

func TestDownloadKeyIsScopedToThePeriod(t *testing.T) {
	rep := types.Representation{ID: "v1", Segments: []types.Segment{{Start: 0, Duration: 2}, {Start: 2, Duration: 2}}}
	m := &types.MPD{
		Type: "dynamic",
		Periods: []types.Period{
			{ID: "a", AdaptationSets: []types.AdaptationSet{{Type: "video", Representations: []types.Representation{rep}}}},
			{ID: "b", AdaptationSets: []types.AdaptationSet{{Type: "video", Representations: []types.Representation{rep}}}},
			{AdaptationSets: []types.AdaptationSet{{Type: "video", Representations: []types.Representation{rep}}}},
		},
	}

	obs := FromMPD(m, map[string]float64{"a/v1/1": 5, "2/v1/1": 0.1})
	require.Len(t, obs, 6)
	require.NotNil(t, obs[1].DownloadTime)
	assert.Equal(t, 5.0, *obs[1].DownloadTime)
	assert.Nil(t, obs[3].DownloadTime, "a sample of period a never applies to period b")
	assert.Equal(t, "2/v1/1", obs[5].Key())
	require.NotNil(t, obs[5].DownloadTime)

	r := Validate(obs, true, DefaultConfig())
	require.Len(t, r.Violations, 1)
	assert.Equal(t, "Period[id=a]/AdaptationSet[video]/Representation[v1]", r.Violations[0].Location)
	assert.Contains(t, r.Violations[0].Message, "a/v1/1")
}

func sample(v float64) *float64 { return &v }

func TestDownloadRatioSuppressions(t *testing.T) {
	cfg := DefaultConfig()
	slow := Observation{RepresentationID: "v1", Index: 3, Duration: 2, DownloadTime: sample(3)}

	tests := []struct {
		name    string
		obs     Observation
		dynamic bool
		cfg     Config
		want    int
	}{
		{name: "live slow download", obs: slow, dynamic: true, cfg: cfg, want: 1},
		{name: "within ratio", obs: Observation{RepresentationID: "v1", Index: 3, Duration: 2, DownloadTime: sample(1.9)}, dynamic: true, cfg: cfg, want: 0},
		{name: "no sample", obs: Observation{RepresentationID: "v1", Index: 3, Duration: 2}, dynamic: true, cfg: cfg, want: 0},
		{name: "first segment of period", obs: Observation{RepresentationID: "v1", Index: 0, Duration: 2, DownloadTime: sample(3)}, dynamic: true, cfg: cfg, want: 0},
		{name: "cache hit", obs: Observation{RepresentationID: "v1", Index: 3, Duration: 0.02, DownloadTime: sample(0.04)}, dynamic: true, cfg: Config{MaxDownloadRatio: 1}, want: 0},
		{name: "vod suppressed", obs: slow, dynamic: false, cfg: cfg, want: 0},
		{name: "vod enabled", obs: slow, dynamic: false, cfg: Config{MinSegmentDuration: 1, MaxSegmentDuration: 10, MaxDownloadRatio: 1, ValidateVOD: true}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate([]Observation{tt.obs}, tt.dynamic, tt.cfg)
			assert.Len(t, r.Violations, tt.want)
			for _, v := range r.Violations {
				assert.Equal(t, KindDownloadRatio, v.Kind)
				assert.Equal(t, types.SeverityVeryHigh, v.Severity)
			}
		})
	}
}

func TestDistinctViolatingSegments(t *testing.T) {
	cfg := Config{MinSegmentDuration: 1, MaxSegmentDuration: 10, MaxDownloadRatio: 1}
	obs := []Observation{
		// short and slow: two rule hits on one segment
		{PeriodID: "1", ContentType: "video", RepresentationID: "v1", Index: 2, Start: 4, Duration: 0.5, DownloadTime: sample(1)},
		{PeriodID: "1", ContentType: "video", RepresentationID: "v1", Index: 3, Start: 4.5, Duration: 12},
		{PeriodID: "1", ContentType: "video", RepresentationID: "v1", Index: 4, Start: 16.5, Duration: 2, DownloadTime: sample(0.4)},
	}
	r := Validate(obs, true, cfg)

	assert.Equal(t, 3, r.TotalSegments)
	assert.Equal(t, 3, r.TotalViolations)
	assert.Equal(t, 2, r.ViolatingSegments)
	assert.Equal(t, 2, r.Sampled)
	assert.Equal(t, 3, r.Summary.VeryHigh)
	assert.False(t, r.Summary.IsValid)

	kinds := []string{}
	for _, v := range r.Violations {
		kinds = append(kinds, v.Kind)
	}
	assert.Equal(t, []string{KindDownloadRatio, KindDurationTooShort, KindDurationTooLong}, kinds)

	short := r.Violations[1]
	assert.Equal(t, "Period[id=1]/AdaptationSet[video]/Representation[v1]", short.Location)
	assert.Equal(t, 4.0, short.Details["start"])
	assert.Equal(t, []types.Segment{{Start: 4, Duration: 0.5}}, short.Highlight)
}

func TestMaxDownloadTime(t *testing.T) {
	obs := []Observation{
		{RepresentationID: "v1", Index: 0, Duration: 4, DownloadTime: sample(3)},
		{RepresentationID: "v1", Index: 1, Duration: 4, DownloadTime: sample(1)},
	}

	r := Validate(obs, false, Config{MaxDownloadTime: 2})
	require.Len(t, r.Violations, 1)
	assert.Equal(t, KindDownloadTime, r.Violations[0].Kind)
	assert.Equal(t, types.SeverityHigh, r.Violations[0].Severity)
	assert.Equal(t, "Period[0]/AdaptationSet[]/Representation[v1]", r.Violations[0].Location)

	r = Validate(obs, false, Config{})
	assert.Empty(t, r.Violations)
	assert.True(t, r.Summary.IsValid)
}

func TestReadDownloads(t *testing.T) {
	samples, err := ReadDownloads(strings.NewReader(`{"1/v1/0": 0.4, "1/a1/3": 1.25}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"1/v1/0": 0.4, "1/a1/3": 1.25}, samples)

	_, err = ReadDownloads(strings.NewReader(`{"1/v1/0": -1}`))
	assert.Error(t, err)

	_, err = ReadDownloads(strings.NewReader(`[1, 2]`))
	assert.Error(t, err)
}

func TestLoadDownloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "times.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1/v1/2": 0.8}`), 0o600))

	samples, err := LoadDownloads(path)
	require.NoError(t, err)
	assert.Equal(t, 0.8, samples["1/v1/2"])

	_, err = LoadDownloads(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
