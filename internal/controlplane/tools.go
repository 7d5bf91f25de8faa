package controlplane

import (
	"net/http"
)

// handleTools serves GET (list), GET ?name=<n> (read one), and DELETE
// ?name=<n> (remove) on /tools/<agent> — tool catalog operations for
// unprivileged tools only (spec.md §6), matching skills.Catalog's actual
// mutation surface (ScanWorkspace/RegisterExternalTool/Remove). Install
// and upgrade are a re-scan of the agent's workspace skills directory,
// since there is no separate package-fetch step in this system: dropping
// a new skill directory in place and re-scanning is this repo's install/
// upgrade path.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/tools/")
	if len(parts) == 0 {
		writeError(w, http.StatusNotFound, "expected /tools/<agent>")
		return
	}
	a, ok := s.swarm.Lookup(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	if len(parts) == 2 && parts[1] == "rescan" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		if err := a.Catalog().ScanWorkspace(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, a.Catalog().List())
		return
	}

	switch r.Method {
	case http.MethodGet:
		if name := r.URL.Query().Get("name"); name != "" {
			skill, found := a.Catalog().Resolve(name)
			if !found {
				writeError(w, http.StatusNotFound, "tool not found")
				return
			}
			writeJSON(w, http.StatusOK, skill.Manifest)
			return
		}
		writeJSON(w, http.StatusOK, a.Catalog().List())
	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		if name == "" {
			writeError(w, http.StatusBadRequest, "expected ?name=<tool>")
			return
		}
		if err := a.Catalog().Remove(name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or DELETE only")
	}
}
