package controlplane

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

// handleWebhookRegistrations serves GET (list), POST (register), PATCH
// ?source=<s>&enabled=<bool> (enable/disable), and DELETE ?source=<s> on
// /webhook-registrations/<agent>. This is registration CRUD, distinct from
// the unauthenticated ingress endpoint /webhooks/<agent>/<source> the
// webhook package itself serves.
func (s *Server) handleWebhookRegistrations(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/webhook-registrations/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "expected /webhook-registrations/<agent>")
		return
	}
	a, ok := s.swarm.Lookup(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		regs, err := a.Store().ListWebhooks(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, regs)
	case http.MethodPost:
		var reg models.WebhookRegistration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid registration: "+err.Error())
			return
		}
		reg.Agent = parts[0]
		now := time.Now()
		reg.UpdatedAt = now
		if reg.CreatedAt.IsZero() {
			reg.CreatedAt = now
		}
		if err := a.Store().UpsertWebhook(r.Context(), &reg); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, reg)
	case http.MethodPatch:
		source := r.URL.Query().Get("source")
		enabled := r.URL.Query().Get("enabled")
		if source == "" || (enabled != "true" && enabled != "false") {
			writeError(w, http.StatusBadRequest, "expected ?source=<s>&enabled=true|false")
			return
		}
		if err := a.Store().SetWebhookEnabled(r.Context(), source, enabled == "true"); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	case http.MethodDelete:
		source := r.URL.Query().Get("source")
		if source == "" {
			writeError(w, http.StatusBadRequest, "expected ?source=<s>")
			return
		}
		if err := a.Store().DeleteWebhook(r.Context(), source); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET, POST, PATCH, or DELETE only")
	}
}
