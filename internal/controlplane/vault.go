package controlplane

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haasonsaas/nexus/internal/vault"
)

// handleVault serves GET (list keys), GET ?key=<k> (read one), PUT (set),
// and DELETE ?key=<k> (remove) on /vault/<agent>, the per-agent secret ops
// spec.md §6 names.
func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r.URL.Path, "/vault/")
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "expected /vault/<agent>")
		return
	}
	agentName := parts[0]
	v := s.swarm.Deps().Vault

	switch r.Method {
	case http.MethodGet:
		if key := r.URL.Query().Get("key"); key != "" {
			value, err := v.Get(r.Context(), agentName, key)
			if err != nil {
				if errors.Is(err, vault.ErrNotFound) {
					writeError(w, http.StatusNotFound, "secret not found")
					return
				}
				writeError(w, http.StatusInternalServerError, "vault read failed")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
			return
		}
		keys, err := v.List(r.Context(), agentName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, keys)
	case http.MethodPut:
		var body struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
			writeError(w, http.StatusBadRequest, "expected {\"key\":...,\"value\":...}")
			return
		}
		if err := v.Set(r.Context(), agentName, body.Key, body.Value); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
	case http.MethodDelete:
		key := r.URL.Query().Get("key")
		if key == "" {
			writeError(w, http.StatusBadRequest, "expected ?key=<name>")
			return
		}
		if err := v.Remove(r.Context(), agentName, key); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET, PUT, or DELETE only")
	}
}
