package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/trackinit/internal/config"
	"github.com/banshee-data/trackinit/internal/db"
	"github.com/banshee-data/trackinit/internal/httputil"
	"github.com/banshee-data/trackinit/internal/measurement"
	"github.com/banshee-data/trackinit/internal/monitoring"
	"github.com/banshee-data/trackinit/internal/report"
	"github.com/banshee-data/trackinit/internal/security"
	"github.com/banshee-data/trackinit/internal/tracker"
)

// RunRequest submits a measurement stream for initiation. Exactly one of
// Measurements and File must be given; File names a CSV under the server's
// data directory.
type RunRequest struct {
	Source       string                    `json:"source,omitempty"`
	Config       *config.TrackingConfig    `json:"config,omitempty"`
	Measurements []measurement.Measurement `json:"measurements,omitempty"`
	File         string                    `json:"file,omitempty"`
}

// RunResponse is returned by POST /api/runs.
type RunResponse struct {
	RunID  string         `json:"run_id"`
	Result tracker.Result `json:"result"`
}

func (s *Server) params(override *config.TrackingConfig) (tracker.Params, error) {
	if override != nil {
		if err := override.Validate(); err != nil {
			return tracker.Params{}, err
		}
	}
	return tracker.ParamsFromConfig(s.defaults.Merge(override))
}

func (s *Server) loadRequest(req RunRequest) ([]measurement.Measurement, string, error) {
	switch {
	case req.File != "" && len(req.Measurements) > 0:
		return nil, "", errors.New("give either measurements or file, not both")
	case req.File != "":
		path, err := security.ResolveDataFile(s.dataDir, req.File)
		if err != nil {
			return nil, "", err
		}
		ms, err := measurement.LoadCSVFile(path)
		if err != nil {
			return nil, "", err
		}
		source := req.Source
		if source == "" {
			source = req.File
		}
		return ms, source, nil
	default:
		for i, m := range req.Measurements {
			if !m.IsFinite() {
				return nil, "", fmt.Errorf("measurement %d: non-finite value", i)
			}
		}
		return req.Measurements, req.Source, nil
	}
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	params, err := s.params(req.Config)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	ms, source, err := s.loadRequest(req)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	res, err := tracker.Initialize(r.Context(), ms, params)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("initiation failed: %v", err))
		return
	}
	id, err := s.store.InsertRun(r.Context(), source, res)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to store run: %v", err))
		return
	}
	monitoring.Logf("[api] run %s: %d measurements, %d active tracks, %d firm",
		id, len(ms), len(res.Tracks), len(res.FirmIDs))
	httputil.WriteJSON(w, http.StatusCreated, RunResponse{RunID: id, Result: res})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

// lookupRun writes the error response itself and returns nil on failure.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) *db.Run {
	run, err := s.store.GetRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return nil
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load run: %v", err))
		return nil
	}
	return run
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if run := s.lookupRun(w, r); run != nil {
		httputil.WriteJSONOK(w, run)
	}
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to delete run: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runTable(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.WriteTable(w, run.Result); err != nil {
		monitoring.Logf("[api] failed to write table for run %s: %v", run.ID, err)
		return
	}
	if r.URL.Query().Get("history") == "1" {
		fmt.Fprintln(w)
		if err := report.WriteHistory(w, run.Result); err != nil {
			monitoring.Logf("[api] failed to write history for run %s: %v", run.ID, err)
		}
	}
}

func (s *Server) runChart(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, run.Result); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) runPlot(w http.ResponseWriter, r *http.Request) {
	run := s.lookupRun(w, r)
	if run == nil {
		return
	}
	var buf bytes.Buffer
	if err := report.WritePNG(&buf, run.Result); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	name := security.SanitizeFilename(run.Source)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s-%s.png", name, run.ID))
	_, _ = w.Write(buf.Bytes())
}
