package measurement

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Measurement
	}{
		{
			name:    "four segments",
			payload: "12.5,1,830,4.2",
			want:    Measurement{Azimuth: 12.5, Elevation: 1, Range: 830, Timestamp: 4.2, Doppler: DefaultDoppler},
		},
		{
			name:    "five segments",
			payload: " 12.5, 1, 830, 4.2, -3.1 \r",
			want:    Measurement{Azimuth: 12.5, Elevation: 1, Range: 830, Timestamp: 4.2, Doppler: -3.1},
		},
		{
			name:    "json",
			payload: `{"azimuth":1,"elevation":2,"range":3,"timestamp":4,"doppler":5}`,
			want:    Measurement{Azimuth: 1, Elevation: 2, Range: 3, Timestamp: 4, Doppler: 5},
		},
		{
			name:    "json without doppler",
			payload: `{"azimuth":1,"elevation":2,"range":3,"timestamp":4}`,
			want:    Measurement{Azimuth: 1, Elevation: 2, Range: 3, Timestamp: 4, Doppler: DefaultDoppler},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	for _, payload := range []string{
		"1,2,3",
		"1,2,3,4,5,6",
		"1,2,x,4",
		`{"azimuth":1}`,
		`{"azimuth":`,
		"1,2,Inf,4",
	} {
		_, err := ParseLine(payload)
		assert.Error(t, err, payload)
		assert.NotErrorIs(t, err, ErrEmptyLine, payload)
	}
}

func TestParseLineEmpty(t *testing.T) {
	for _, payload := range []string{"", "   ", "# comment"} {
		_, err := ParseLine(payload)
		assert.ErrorIs(t, err, ErrEmptyLine)
	}
}

func TestFormatLineParses(t *testing.T) {
	m := Measurement{Azimuth: 33.3, Elevation: -1.5, Range: 1200, Timestamp: 17.25, Doppler: -8}
	got, err := ParseLine(FormatLine(m))
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestUnmarshalJSONSlice(t *testing.T) {
	var ms []Measurement
	err := json.Unmarshal([]byte(`[
		{"azimuth":1,"elevation":2,"range":300,"timestamp":0.5},
		{"azimuth":1,"elevation":2,"range":301,"timestamp":1,"doppler":-4}
	]`), &ms)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, DefaultDoppler, ms[0].Doppler)
	assert.Equal(t, -4.0, ms[1].Doppler)

	err = json.Unmarshal([]byte(`[{"azimuth":1,"range":300,"timestamp":0.5}]`), &ms)
	assert.ErrorIs(t, err, ErrMissingColumn)
}
