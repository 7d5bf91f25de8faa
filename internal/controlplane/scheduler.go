package controlplane

import (
	"net/http"
	"strconv"
)

// handleSchedulerJobs serves GET /scheduler/jobs, a read-only snapshot of
// every job the process-wide scheduler currently tracks (agent, name,
// cron expression, lifecycle state).
func (s *Server) handleSchedulerJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, s.scheduler.Jobs())
}

// handleSchedulerFires serves GET /scheduler/fires/<agent>/<job>, the
// scheduler's fire history for one job (dispatched/skipped/failed, per
// spec.md §8 scenario 3's "recorded events show one skip and one
// dispatch").
func (s *Server) handleSchedulerFires(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	parts := pathSegments(r.URL.Path, "/scheduler/fires/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "expected /scheduler/fires/<agent>/<job>")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	fires, err := s.scheduler.Fires(r.Context(), parts[0], parts[1], limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fires)
}
