package controlplane

import (
	"net/http"
)

// handleMemory serves GET /memory/<agent>, returning both the short-term
// snapshot (recent session turns) and the long-term fact list spec.md §6
// names ("Read short-term / long-term memory | Text snapshot + list of
// facts").
func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	parts := pathSegments(r.URL.Path, "/memory/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "expected /memory/<agent>")
		return
	}
	a, ok := s.swarm.Lookup(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	recent, err := a.Store().RecentMessages(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := r.URL.Query().Get("q")
	var facts any
	if query != "" {
		facts, err = a.Memory().Recall(r.Context(), query)
	} else {
		facts, err = a.Store().AllFacts(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"short_term": recent,
		"long_term":  facts,
	})
}
