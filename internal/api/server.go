// Package api serves stored initiation runs and live per-feed track tables
// over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/trackinit/internal/config"
	"github.com/banshee-data/trackinit/internal/db"
	"github.com/banshee-data/trackinit/internal/httputil"
	"github.com/banshee-data/trackinit/internal/monitoring"
	"github.com/banshee-data/trackinit/internal/tracker"
	"github.com/banshee-data/trackinit/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// RunStore is the persistence used by the run handlers. *db.DB implements it.
type RunStore interface {
	InsertRun(ctx context.Context, source string, res tracker.Result) (string, error)
	GetRun(ctx context.Context, id string) (*db.Run, error)
	ListRuns(ctx context.Context, limit int) ([]db.RunSummary, error)
	DeleteRun(ctx context.Context, id string) error
}

type Server struct {
	store    RunStore
	feeds    *tracker.Registry
	defaults *config.TrackingConfig
	dataDir  string
}

// NewServer builds a server. defaults fills fields a run request leaves
// unset; dataDir, when non-empty, is the only directory run requests may
// read CSV files from.
func NewServer(store RunStore, feeds *tracker.Registry, defaults *config.TrackingConfig, dataDir string) *Server {
	if defaults == nil {
		defaults = config.DefaultTrackingConfig()
	}
	return &Server{
		store:    store,
		feeds:    feeds,
		defaults: defaults,
		dataDir:  dataDir,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("GET /api/version", s.showVersion)

	mux.HandleFunc("POST /api/runs", s.createRun)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)
	mux.HandleFunc("DELETE /api/runs/{id}", s.deleteRun)
	mux.HandleFunc("GET /api/runs/{id}/table", s.runTable)
	mux.HandleFunc("GET /api/runs/{id}/chart", s.runChart)
	mux.HandleFunc("GET /api/runs/{id}/plot.png", s.runPlot)

	mux.HandleFunc("GET /api/feeds", s.listFeeds)
	mux.HandleFunc("GET /api/feeds/{feed}/tracks", s.feedTracks)
	mux.HandleFunc("POST /api/feeds/{feed}/measurements", s.feedMeasurements)
	mux.HandleFunc("DELETE /api/feeds/{feed}", s.resetFeed)
	return mux
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	params, err := tracker.ParamsFromConfig(s.defaults)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, params)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Get())
}
