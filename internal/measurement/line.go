package measurement

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyLine is returned by ParseLine for blank or comment lines. Callers
// reading a stream normally skip these.
var ErrEmptyLine = errors.New("empty line")

type jsonMeasurement struct {
	Azimuth   *float64 `json:"azimuth"`
	Elevation *float64 `json:"elevation"`
	Range     *float64 `json:"range"`
	Doppler   *float64 `json:"doppler"`
	Timestamp *float64 `json:"timestamp"`
}

// ParseLine decodes one detection emitted by a sensor feed. Two encodings
// are accepted:
//
//	{"azimuth":12.5,"elevation":1.0,"range":830,"timestamp":4.2,"doppler":-3.1}
//	12.5,1.0,830,4.2[,-3.1]
//
// The comma form follows the CSV column order (azimuth, elevation, range,
// timestamp) with an optional trailing doppler. Doppler defaults to
// DefaultDoppler when omitted.
func ParseLine(payload string) (Measurement, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" || strings.HasPrefix(payload, "#") {
		return Measurement{}, ErrEmptyLine
	}

	var m Measurement
	if strings.HasPrefix(payload, "{") {
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return Measurement{}, err
		}
	} else {
		segments := strings.Split(payload, ",")
		if len(segments) != 4 && len(segments) != 5 {
			return Measurement{}, fmt.Errorf("invalid payload format: %s, expected 4 or 5 segments", payload)
		}
		vals := make([]float64, len(segments))
		for i, s := range segments {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return Measurement{}, fmt.Errorf("failed to parse segment %d: %v", i, err)
			}
			vals[i] = v
		}
		m = Measurement{
			Azimuth:   vals[0],
			Elevation: vals[1],
			Range:     vals[2],
			Timestamp: vals[3],
			Doppler:   DefaultDoppler,
		}
		if len(vals) == 5 {
			m.Doppler = vals[4]
		}
	}

	if !m.IsFinite() {
		return Measurement{}, fmt.Errorf("non-finite value in %q", payload)
	}
	return m, nil
}

// UnmarshalJSON decodes the object form. Azimuth, elevation, range and
// timestamp are required; doppler defaults to DefaultDoppler.
func (m *Measurement) UnmarshalJSON(b []byte) error {
	var jm jsonMeasurement
	if err := json.Unmarshal(b, &jm); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %v", err)
	}
	if jm.Azimuth == nil || jm.Elevation == nil || jm.Range == nil || jm.Timestamp == nil {
		return fmt.Errorf("%w in %s", ErrMissingColumn, b)
	}
	*m = Measurement{
		Azimuth:   *jm.Azimuth,
		Elevation: *jm.Elevation,
		Range:     *jm.Range,
		Timestamp: *jm.Timestamp,
		Doppler:   DefaultDoppler,
	}
	if jm.Doppler != nil {
		m.Doppler = *jm.Doppler
	}
	return nil
}

// FormatLine renders m in the comma form accepted by ParseLine.
func FormatLine(m Measurement) string {
	return strings.Join([]string{
		strconv.FormatFloat(m.Azimuth, 'g', -1, 64),
		strconv.FormatFloat(m.Elevation, 'g', -1, 64),
		strconv.FormatFloat(m.Range, 'g', -1, 64),
		strconv.FormatFloat(m.Timestamp, 'g', -1, 64),
		strconv.FormatFloat(m.Doppler, 'g', -1, 64),
	}, ",")
}
