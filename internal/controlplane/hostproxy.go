package controlplane

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/haasonsaas/nexus/internal/hostproxy"
)

type hostProxyRequest struct {
	Kind       string   `json:"kind"`
	Command    string   `json:"command"`
	Args       []string `json:"args,omitempty"`
	WorkingDir string   `json:"working_dir"`
	TimeoutMS  int      `json:"timeout_ms,omitempty"`
}

// handleHostProxyExecute serves POST /hostproxy/execute. This is the one
// HTTP path a privileged built-in's execution ultimately resolves through
// (spec.md §4.3 "tools POST to an internal HTTP endpoint"); the proxy
// itself, not this handler, validates workspace confinement.
func (s *Server) handleHostProxyExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	if s.hostProxy == nil {
		writeError(w, http.StatusServiceUnavailable, "host proxy not configured")
		return
	}

	var req hostProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	timeout := 30 * time.Second
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	resp, err := s.hostProxy.Execute(r.Context(), hostproxy.Request{
		Kind:       hostproxy.Kind(req.Kind),
		Command:    req.Command,
		Args:       req.Args,
		WorkingDir: req.WorkingDir,
		Timeout:    timeout,
	})
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
