package api

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/banshee-data/trackinit/internal/config"
	"github.com/banshee-data/trackinit/internal/db"
	"github.com/banshee-data/trackinit/internal/initiation"
	"github.com/banshee-data/trackinit/internal/measurement"
	"github.com/banshee-data/trackinit/internal/testutil"
	"github.com/banshee-data/trackinit/internal/trackid"
	"github.com/banshee-data/trackinit/internal/tracker"
	"github.com/banshee-data/trackinit/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	mux     http.Handler
	db      *db.DB
	dataDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	store, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg, err := tracker.NewRegistry(tracker.DefaultParams())
	require.NoError(t, err)

	dataDir := t.TempDir()
	srv := NewServer(store, reg, config.DefaultTrackingConfig(), dataDir)
	return testEnv{mux: srv.ServeMux(), db: store, dataDir: dataDir}
}

func ptr[T any](v T) *T { return &v }

func TestShowConfigAndVersion(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := testutil.DoJSON(t, env.mux, http.MethodGet, "/api/config", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var p tracker.Params
	testutil.DecodeJSON(t, rec, &p)
	assert.Equal(t, tracker.DefaultParams(), p)

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, "/api/version", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var v version.Info
	testutil.DecodeJSON(t, rec, &v)
	assert.Equal(t, version.Get(), v)
}

func TestCreateRunFromMeasurements(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := RunRequest{
		Source:       "inline",
		Config:       &config.TrackingConfig{Mode: ptr("5-state")},
		Measurements: testutil.ApproachingTarget(5, 20, 800, 0),
	}
	rec := testutil.DoJSON(t, env.mux, http.MethodPost, "/api/runs", req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	var resp RunResponse
	testutil.DecodeJSON(t, rec, &resp)
	require.NotEmpty(t, resp.RunID)
	assert.Equal(t, initiation.FiveState, resp.Result.Params.Mode)
	assert.Equal(t, config.DefaultRangeThreshold, resp.Result.Params.RangeThreshold)
	require.Len(t, resp.Result.Tracks, 1)
	assert.Equal(t, initiation.Firm, resp.Result.Tracks[0].State)
	assert.Equal(t, []trackid.ID{1}, resp.Result.FirmIDs)

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, "/api/runs/"+resp.RunID, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var run db.Run
	testutil.DecodeJSON(t, rec, &run)
	assert.Equal(t, "inline", run.Source)
	assert.Equal(t, resp.Result.Tracks, run.Result.Tracks)

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, "/api/runs?limit=5", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var runs []db.RunSummary
	testutil.DecodeJSON(t, rec, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].FirmTracks)
}

func TestCreateRunFromFile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	testutil.WriteCSVFixture(t, env.dataDir, "pass.csv", testutil.ApproachingTarget(3, 45, 1000, 0))

	rec := testutil.DoJSON(t, env.mux, http.MethodPost, "/api/runs", RunRequest{File: "pass.csv"})
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	var resp RunResponse
	testutil.DecodeJSON(t, rec, &resp)
	require.Len(t, resp.Result.Tracks, 1)
	assert.Equal(t, initiation.Firm, resp.Result.Tracks[0].State)

	run, err := env.db.GetRun(t.Context(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "pass.csv", run.Source)
}

func TestCreateRunRejectsBadRequests(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	testutil.WriteCSVFixture(t, env.dataDir, "ok.csv", testutil.ApproachingTarget(1, 0, 10, 0))

	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown mode", RunRequest{Config: &config.TrackingConfig{Mode: ptr("9-state")}}},
		{"zero range", RunRequest{Config: &config.TrackingConfig{RangeThreshold: ptr(0.0)}}},
		{"path traversal", RunRequest{File: "../secret.csv"}},
		{"missing file", RunRequest{File: "absent.csv"}},
		{"both sources", RunRequest{File: "ok.csv", Measurements: testutil.ApproachingTarget(1, 0, 10, 0)}},
		{"unknown field", map[string]interface{}{"bogus": true}},
		{"missing measurement field", map[string]interface{}{
			"measurements": []map[string]float64{{"azimuth": 1, "range": 2}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := testutil.DoJSON(t, env.mux, http.MethodPost, "/api/runs", tt.body)
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
			var e map[string]string
			testutil.DecodeJSON(t, rec, &e)
			assert.NotEmpty(t, e["error"])
		})
	}
}

func TestEmptyRun(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	rec := testutil.DoJSON(t, env.mux, http.MethodPost, "/api/runs", RunRequest{})
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	var resp RunResponse
	testutil.DecodeJSON(t, rec, &resp)
	assert.Empty(t, resp.Result.Tracks)
	assert.Empty(t, resp.Result.Slots)
}

func TestRunNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	for _, path := range []string{
		"/api/runs/nope",
		"/api/runs/nope/table",
		"/api/runs/nope/chart",
		"/api/runs/nope/plot.png",
	} {
		rec := testutil.DoJSON(t, env.mux, http.MethodGet, path, nil)
		testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
	}
	rec := testutil.DoJSON(t, env.mux, http.MethodDelete, "/api/runs/nope", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, "/api/runs?limit=0", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestRunRenderings(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	rec := testutil.DoJSON(t, env.mux, http.MethodPost, "/api/runs", RunRequest{
		Source:       "north/site 1",
		Measurements: testutil.ApproachingTarget(3, 10, 500, 0),
	})
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	var resp RunResponse
	testutil.DecodeJSON(t, rec, &resp)
	base := "/api/runs/" + resp.RunID

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, base+"/table", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "Track Initialization Completed!")
	assert.NotContains(t, rec.Body.String(), "History:")

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, base+"/table?history=1", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Body.String(), "History:")
	assert.Regexp(t, `(?m)^1\s+3\s+Firm\s`, rec.Body.String())

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, base+"/chart", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, base+"/plot.png", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "north_site_1-"+resp.RunID)
	assert.Equal(t, []byte("\x89PNG"), rec.Body.Bytes()[:4])

	rec = testutil.DoJSON(t, env.mux, http.MethodDelete, base, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNoContent)
	rec = testutil.DoJSON(t, env.mux, http.MethodGet, base, nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

func TestFeeds(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := testutil.DoJSON(t, env.mux, http.MethodGet, "/api/feeds/north/tracks", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)

	batch := testutil.ApproachingTarget(2, 0, 300, 0)
	rec = testutil.DoJSON(t, env.mux, http.MethodPost, "/api/feeds/north/measurements", batch)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var res tracker.Result
	testutil.DecodeJSON(t, rec, &res)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, initiation.Tentative1, res.Tracks[0].State)

	// the table persists between requests
	rec = testutil.DoJSON(t, env.mux, http.MethodPost, "/api/feeds/north/measurements",
		[]measurement.Measurement{{Range: 296, Elevation: 2, Doppler: 1, Timestamp: 1}})
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.DecodeJSON(t, rec, &res)
	assert.Equal(t, initiation.Firm, res.Tracks[0].State)

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, "/api/feeds", nil)
	var feeds map[string][]string
	testutil.DecodeJSON(t, rec, &feeds)
	assert.Equal(t, []string{"north"}, feeds["feeds"])

	rec = testutil.DoJSON(t, env.mux, http.MethodGet, "/api/feeds/north/tracks", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	rec = testutil.DoJSON(t, env.mux, http.MethodDelete, "/api/feeds/south", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)

	rec = testutil.DoJSON(t, env.mux, http.MethodPost, "/api/feeds/north/measurements", map[string]int{"x": 1})
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestResetFeedKeepsLiveTable(t *testing.T) {
	t.Parallel()
	store, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	reg, err := tracker.NewRegistry(tracker.DefaultParams())
	require.NoError(t, err)
	mux := NewServer(store, reg, nil, t.TempDir()).ServeMux()

	// a live source holds the manager it was bound to at startup
	live := reg.Get("serial")
	require.NoError(t, live.Process(measurement.Measurement{Range: 500, Doppler: 1, Timestamp: 0}))

	rec := testutil.DoJSON(t, mux, http.MethodDelete, "/api/feeds/serial", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNoContent)

	rec = testutil.DoJSON(t, mux, http.MethodGet, "/api/feeds/serial/tracks", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var res tracker.Result
	testutil.DecodeJSON(t, rec, &res)
	assert.Empty(t, res.Tracks)
	assert.Zero(t, res.Stats.Processed)

	require.NoError(t, live.Process(measurement.Measurement{Range: 400, Doppler: 1, Timestamp: 1}))
	rec = testutil.DoJSON(t, mux, http.MethodPost, "/api/feeds/serial/measurements",
		[]measurement.Measurement{{Range: 398, Doppler: 1, Timestamp: 1.5}})
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	testutil.DecodeJSON(t, rec, &res)
	require.Len(t, res.Tracks, 1, "live and pushed measurements share one table")
	assert.Equal(t, 2, res.Tracks[0].Hits)
	assert.Equal(t, []string{"serial"}, reg.Feeds())
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	rec := testutil.DoJSON(t, env.mux, http.MethodPut, "/api/runs", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestLoggingMiddleware(t *testing.T) {
	testutil.MuteLogs(t)
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := testutil.DoJSON(t, h, http.MethodGet, "/x", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusTeapot)
	assert.Contains(t, statusCodeColor(http.StatusTeapot), "418")
}
