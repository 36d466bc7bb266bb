package testutil

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/banshee-data/trackinit/internal/measurement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTB captures Errorf calls instead of failing the test.
type recordingTB struct {
	testing.TB
	errors []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		got, want int
		wantErr   []string
	}{
		{"match", http.StatusOK, http.StatusOK, nil},
		{"mismatch", http.StatusOK, http.StatusBadRequest, []string{"status code = 200, want 400"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := &recordingTB{}
			AssertStatusCode(rec, tt.got, tt.want)
			assert.Equal(t, tt.wantErr, rec.errors)
		})
	}
}

func TestDoJSON(t *testing.T) {
	t.Parallel()
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	rec := DoJSON(t, h, http.MethodPost, "/x", map[string]int{"a": 1})

	var resp map[string]bool
	DecodeJSON(t, rec, &resp)
	assert.True(t, resp["ok"])
}

func TestApproachingTargetCSVFixture(t *testing.T) {
	t.Parallel()
	ms := ApproachingTarget(4, 30, 500, 10)
	require.Len(t, ms, 4)
	assert.Equal(t, 494.0, ms[3].Range)
	assert.Equal(t, 11.5, ms[3].Timestamp)

	path := WriteCSVFixture(t, t.TempDir(), "target.csv", ms)
	got, err := measurement.LoadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, ms, got)
}
