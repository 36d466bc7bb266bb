package api

import (
	"fmt"
	"net/http"

	"github.com/banshee-data/trackinit/internal/httputil"
	"github.com/banshee-data/trackinit/internal/measurement"
)

func (s *Server) listFeeds(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string][]string{"feeds": s.feeds.Feeds()})
}

func (s *Server) feedTracks(w http.ResponseWriter, r *http.Request) {
	feed := r.PathValue("feed")
	mgr, ok := s.feeds.Lookup(feed)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("unknown feed %q", feed))
		return
	}
	httputil.WriteJSONOK(w, mgr.Snapshot())
}

// feedMeasurements folds a batch of detections into the feed's live table,
// creating the feed on first use.
func (s *Server) feedMeasurements(w http.ResponseWriter, r *http.Request) {
	var ms []measurement.Measurement
	if err := httputil.DecodeJSON(w, r, &ms); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	for i, m := range ms {
		if !m.IsFinite() {
			httputil.BadRequest(w, fmt.Sprintf("measurement %d: non-finite value", i))
			return
		}
	}

	mgr := s.feeds.Get(r.PathValue("feed"))
	if n, err := mgr.ProcessBatch(r.Context(), ms); err != nil {
		if r.Context().Err() != nil {
			httputil.WriteJSONError(w, http.StatusServiceUnavailable, fmt.Sprintf("cancelled after %d of %d measurements", n, len(ms)))
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, mgr.Snapshot())
}

// resetFeed clears a feed's table. The feed stays registered so a live
// source bound to it keeps feeding the table the API reads.
func (s *Server) resetFeed(w http.ResponseWriter, r *http.Request) {
	feed := r.PathValue("feed")
	if !s.feeds.Reset(feed) {
		httputil.NotFound(w, fmt.Sprintf("unknown feed %q", feed))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
