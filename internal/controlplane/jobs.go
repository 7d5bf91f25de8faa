package controlplane

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

// handleJobs serves GET (list), PUT (upsert), and DELETE ?name=<n> on
// /jobs/<agent>, the scheduled-job CRUD spec.md §6 names.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/jobs/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "expected /jobs/<agent>")
		return
	}
	a, ok := s.swarm.Lookup(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		jobs, err := a.Store().ListJobs(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, jobs)
	case http.MethodPut:
		var job models.ScheduledJob
		if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
			writeError(w, http.StatusBadRequest, "invalid job: "+err.Error())
			return
		}
		job.Agent = parts[0]
		now := time.Now()
		job.UpdatedAt = now
		if job.CreatedAt.IsZero() {
			job.CreatedAt = now
		}
		if err := a.Store().UpsertJob(r.Context(), &job); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, job)
	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		if name == "" {
			writeError(w, http.StatusBadRequest, "expected ?name=<job>")
			return
		}
		if err := a.Store().DeleteJob(r.Context(), name); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET, PUT, or DELETE only")
	}
}
