package controlplane

import (
	"encoding/json"
	"net/http"

	"github.com/haasonsaas/nexus/pkg/models"
)

// handleToolServers serves GET (list), POST (add), and DELETE ?name=<n> on
// /toolservers/<agent>, the external tool server CRUD spec.md §6 names.
// A server registered here takes effect on the agent's next boot or
// restart (internal/agent.Actor.connectToolServers reads the store once
// at Boot time); it is not hot-reloaded mid-turn.
func (s *Server) handleToolServers(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/toolservers/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "expected /toolservers/<agent>")
		return
	}
	a, ok := s.swarm.Lookup(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		servers, err := a.Store().ListToolServers(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, servers)
	case http.MethodPost:
		var srv models.ExternalToolServer
		if err := json.NewDecoder(r.Body).Decode(&srv); err != nil {
			writeError(w, http.StatusBadRequest, "invalid tool server: "+err.Error())
			return
		}
		srv.Agent = parts[0]
		if err := a.Store().UpsertToolServer(r.Context(), &srv); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, srv)
	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		if name == "" {
			writeError(w, http.StatusBadRequest, "expected ?name=<server>")
			return
		}
		if err := a.Store().DeleteToolServer(r.Context(), name); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET, POST, or DELETE only")
	}
}
