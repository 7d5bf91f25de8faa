package controlplane

import (
	"encoding/json"
	"net/http"

	"github.com/haasonsaas/nexus/pkg/models"
)

// handleAgents serves GET (list) and POST (create) on /agents.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		names := s.swarm.List()
		out := make([]models.Agent, 0, len(names))
		for _, name := range names {
			a, ok := s.swarm.Lookup(name)
			if !ok {
				continue
			}
			out = append(out, a.Def())
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var def models.Agent
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			writeError(w, http.StatusBadRequest, "invalid agent definition: "+err.Error())
			return
		}
		if def.Profile.MaxMemoryMB == 0 && len(def.Profile.Filesystem) == 0 && !def.Profile.Network {
			def.Profile = models.DefaultCapabilityProfile()
		}
		a, err := s.swarm.CreateAgent(r.Context(), def)
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, a.Def())
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or POST only")
	}
}

// handleAgentByName serves DELETE /agents/<name> and POST
// /agents/<name>/restart.
func (s *Server) handleAgentByName(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/agents/")
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "expected /agents/<name>")
		return
	}
	name := parts[0]

	if len(parts) == 2 && parts[1] == "restart" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		a, ok := s.swarm.Lookup(name)
		if !ok {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		if err := a.Restart(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
		return
	}

	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "expected /agents/<name> or /agents/<name>/restart")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a, ok := s.swarm.Lookup(name)
		if !ok {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeJSON(w, http.StatusOK, a.Def())
	case http.MethodDelete:
		if err := s.swarm.RemoveAgent(r.Context(), name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or DELETE only")
	}
}
