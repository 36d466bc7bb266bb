// Package testutil provides shared test helpers and measurement fixtures.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/trackinit/internal/measurement"
	"github.com/banshee-data/trackinit/internal/monitoring"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// DoJSON sends a request with body encoded as JSON (nil for none) through h.
func DoJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "127.0.0.1:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON decodes a recorded response body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// ApproachingTarget returns n detections of a target closing on the radar at
// 2 m per half second along a fixed bearing.
func ApproachingTarget(n int, azimuth, startRange, startTime float64) []measurement.Measurement {
	ms := make([]measurement.Measurement, n)
	for i := range ms {
		ms[i] = measurement.Measurement{
			Azimuth:   azimuth,
			Elevation: 2,
			Range:     startRange - 2*float64(i),
			Doppler:   measurement.DefaultDoppler,
			Timestamp: startTime + 0.5*float64(i),
		}
	}
	return ms
}

// WriteCSVFixture writes ms as a measurement CSV named name under dir.
func WriteCSVFixture(t *testing.T, dir, name string, ms []measurement.Measurement) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	defer f.Close()
	if err := measurement.WriteCSV(f, ms); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// MuteLogs silences the monitoring logger for the duration of the test.
// Tests calling it must not run in parallel.
func MuteLogs(t *testing.T) {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(orig) })
}
