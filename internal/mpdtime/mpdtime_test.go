package mpdtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"PT30S", 30, false},
		{"PT0S", 0, false},
		{"PT1H2M3.5S", 3723.5, false},
		{"PT1.5M", 90, false},
		{"P1D", 86400, false},
		{"P1DT1S", 86401, false},
		{"PT0.001S", 0.001, false},
		{"-PT5S", -5, false},
		{" PT2S ", 2, false},
		{"", 0, true},
		{"P", 0, true},
		{"PT", 0, true},
		{"P1DT", 0, true},
		{"30", 0, true},
		{"PT5X", 0, true},
		{"PTS", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDuration)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseDateTime(t *testing.T) {
	got, err := EpochSeconds("1970-01-01T00:00:10Z")
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)

	got, err = EpochSeconds("1970-01-01T00:00:10.5")
	require.NoError(t, err)
	assert.Equal(t, 10.5, got)

	got, err = EpochSeconds("1970-01-01T01:00:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	_, err = ParseDateTime("yesterday")
	assert.ErrorIs(t, err, ErrInvalidDateTime)
	_, err = ParseDateTime("")
	assert.ErrorIs(t, err, ErrInvalidDateTime)
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "2s", FormatSeconds(2))
	assert.Equal(t, "0.5s", FormatSeconds(0.5))
	assert.Equal(t, "0.3s", FormatSeconds(0.1+0.2))
}
