package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackinit/internal/config"
	"github.com/banshee-data/trackinit/internal/db"
	"github.com/banshee-data/trackinit/internal/initiation"
	"github.com/banshee-data/trackinit/internal/serialmux"
	"github.com/banshee-data/trackinit/internal/testutil"
	"github.com/banshee-data/trackinit/internal/tracker"
	"github.com/banshee-data/trackinit/internal/version"
)

func TestFlagDefaults(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ":8080", *listen)
	assert.Equal(t, db.DefaultPath, *dbPath)
	assert.Equal(t, "", *serialPort)
	assert.Equal(t, serialmux.DefaultBaudRate, *baudRate)
	assert.Equal(t, "serial", *feedName)
}

func TestSplitCommands(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"OJ", []string{"OJ"}},
		{" OJ , OM,,A2 ", []string{"OJ", "OM", "A2"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, splitCommands(tt.in)); diff != "" {
			t.Errorf("splitCommands(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTrackingConfig(), cfg)

	path := filepath.Join(t.TempDir(), "tracking.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mode":"5-state"}`), 0o644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "5-state", cfg.GetModeName())
	assert.Equal(t, 50.0, cfg.GetRangeThreshold())

	_, err = loadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestNewHandler(t *testing.T) {
	t.Parallel()
	store, err := db.NewDB(filepath.Join(t.TempDir(), "trackd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	feeds, err := tracker.NewRegistry(tracker.DefaultParams())
	require.NoError(t, err)

	h, err := newHandler(store, feeds, config.DefaultTrackingConfig(), t.TempDir(), serialmux.NewDisabledSerialMux())
	require.NoError(t, err)

	rec := testutil.DoJSON(t, h, http.MethodGet, "/api/version", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var info version.Info
	testutil.DecodeJSON(t, rec, &info)
	assert.Equal(t, version.Get(), info)

	rec = testutil.DoJSON(t, h, http.MethodGet, "/debug/serial-disabled", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "serial disabled", rec.Body.String())
}

func TestRunFeed(t *testing.T) {
	testutil.MuteLogs(t)
	feeds, err := tracker.NewRegistry(tracker.DefaultParams())
	require.NoError(t, err)

	port := serialmux.NewTestableSerialPort()
	sensor := serialmux.NewSerialMux(port)

	// the whole input is readable before the feed starts; none of it may
	// be lost to a late subscription
	port.AddReadData([]byte("10,1,500,0\n10,1,498,0.5\n10,1,496,1.0\n"))
	port.EndReads()

	done := make(chan error, 1)
	go func() { done <- runFeed(context.Background(), sensor, feeds, "north") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop at end of input")
	}
	assert.True(t, port.Closed())

	mgr, ok := feeds.Lookup("north")
	require.True(t, ok)
	res := mgr.Snapshot()
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, initiation.Firm, res.Tracks[0].State)
	assert.Len(t, res.FirmIDs, 1)
}

func TestRunFeedCancelled(t *testing.T) {
	testutil.MuteLogs(t)
	feeds, err := tracker.NewRegistry(tracker.DefaultParams())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runFeed(ctx, serialmux.NewDisabledSerialMux(), feeds, "idle") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
}
