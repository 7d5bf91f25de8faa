package controlplane

import (
	"encoding/json"
	"net/http"

	"github.com/haasonsaas/nexus/pkg/models"
)

// handleDelegate serves POST /delegate/<agent>, routing a prompt to a
// second agent as a turn and returning its final answer (spec.md §6
// "Delegate to another agent"). This is the same internal dispatch
// endpoint the delegate_task built-in calls into directly within a turn;
// reaching it over HTTP bypasses that built-in's depth cap, so it is
// authenticated the same way every other control-plane call is, not
// exposed to agents themselves.
func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	parts := pathSegments(r.URL.Path, "/delegate/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "expected /delegate/<agent>")
		return
	}

	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := s.swarm.Dispatch(r.Context(), models.Trigger{
		Agent:  parts[0],
		Source: models.TriggerDelegation,
		Prompt: body.Prompt,
	}, func(models.TurnEvent) {})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
