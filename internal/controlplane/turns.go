package controlplane

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/haasonsaas/nexus/pkg/models"
)

type dispatchRequest struct {
	Prompt string `json:"prompt"`
	Source string `json:"source,omitempty"`
	Stream bool   `json:"stream,omitempty"`
}

// handleDispatchTurn serves POST /turns/<agent>, the HTTP face of
// Swarm.Dispatch, the blocking path that waits on the agent's turn mutex.
// Scheduled jobs and webhook ingress reach the actor through
// Swarm.TryDispatch instead (skipping a busy agent), and delegate_task
// calls Swarm.Dispatch in-process rather than through this handler.
func (s *Server) handleDispatchTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	parts := pathSegments(r.URL.Path, "/turns/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "expected /turns/<agent>")
		return
	}
	agentName := parts[0]

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	source := models.TriggerChat
	if req.Source != "" {
		source = models.TriggerSource(req.Source)
	}
	trig := models.Trigger{Agent: agentName, Source: source, Prompt: req.Prompt}

	if req.Stream || r.URL.Query().Get("stream") == "1" {
		s.streamTurn(w, r, trig)
		return
	}

	result, err := s.swarm.Dispatch(r.Context(), trig, func(models.TurnEvent) {})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// streamTurn serves the on-wire streamed event sequence spec.md §6/§9
// documents: thinking, skill_invoke, skill_result, response, error, each
// as its own SSE frame, terminated by done. No third-party SSE library is
// in the example pack's dependency surface (none of the teacher's
// channels push server-sent events; internal/mcp's HTTP transport only
// consumes SSE as a client), so this uses the standard http.Flusher idiom
// directly rather than introduce an unneeded dependency.
func (s *Server) streamTurn(w http.ResponseWriter, r *http.Request, trig models.Trigger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_, err := s.swarm.Dispatch(r.Context(), trig, func(ev models.TurnEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		flusher.Flush()
	})
	if err != nil {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", models.EventError, mustJSON(map[string]string{"error": err.Error()}))
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", models.EventDone, mustJSON(models.TurnEvent{Type: models.EventDone}))
		flusher.Flush()
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
