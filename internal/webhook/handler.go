// Package webhook implements spec.md §4.4's webhook fire path: an external
// POST to /webhooks/<agent>/<source>, verified against a per-registration
// shared secret and dispatched through the same non-blocking trigger path
// the scheduler uses.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/pkg/models"
)

const defaultMaxBodyBytes = 256 << 10

// RegistrationSource looks up a webhook registration by (agent, source).
// A nil, nil result means no such registration exists.
type RegistrationSource interface {
	GetWebhook(ctx context.Context, agent, source string) (*models.WebhookRegistration, error)
}

// AgentDispatcher fires a trigger without blocking; identical in shape to
// cron.AgentDispatcher so agent.CronDispatcher satisfies both without
// either package importing the other.
type AgentDispatcher interface {
	TryDispatch(ctx context.Context, trig models.Trigger) (ran bool, err error)
}

// Handler serves POST /webhooks/{agent}/{source}.
type Handler struct {
	registrations RegistrationSource
	dispatcher    AgentDispatcher
	log           *observability.Logger
	maxBodyBytes  int64
	now           func() time.Time
}

// New builds a webhook handler. Mount it at "/webhooks/" on the internal
// control-plane mux.
func New(registrations RegistrationSource, dispatcher AgentDispatcher, log *observability.Logger) *Handler {
	return &Handler{
		registrations: registrations,
		dispatcher:    dispatcher,
		log:           log.Component("webhook"),
		maxBodyBytes:  defaultMaxBodyBytes,
		now:           time.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	agent, source, ok := splitPath(r.URL.Path)
	if !ok {
		http.Error(w, "expected /webhooks/<agent>/<source>", http.StatusNotFound)
		return
	}

	reg, err := h.registrations.GetWebhook(r.Context(), agent, source)
	if err != nil {
		h.log.Warn("lookup webhook registration", "agent", agent, "source", source, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if reg == nil {
		http.Error(w, "not registered", http.StatusNotFound)
		return
	}
	if !reg.Enabled {
		http.Error(w, "webhook disabled", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(body)) > h.maxBodyBytes {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if err := verify(r, body, reg.Secret); err != nil {
		h.log.Warn("webhook signature rejected", "agent", agent, "source", source, "error", err)
		http.Error(w, "signature verification failed", http.StatusUnauthorized)
		return
	}

	prompt, err := renderPrompt(reg.PromptTemplate, body, h.now())
	if err != nil {
		h.log.Warn("render webhook prompt", "agent", agent, "source", source, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	ran, err := h.dispatcher.TryDispatch(r.Context(), models.Trigger{
		Agent:   agent,
		Source:  models.TriggerWebhook,
		Prompt:  prompt,
		Payload: json.RawMessage(body),
	})
	if err != nil {
		h.log.Warn("dispatch webhook trigger", "agent", agent, "source", source, "error", err)
		http.Error(w, "dispatch failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !ran {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"skipped"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"dispatched"}`))
}

// splitPath extracts "<agent>/<source>" from "/webhooks/<agent>/<source>".
func splitPath(path string) (agent, source string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/webhooks/")
	if trimmed == path {
		return "", "", false
	}
	parts := strings.SplitN(strings.Trim(trimmed, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// renderPrompt expands a registration's template with the raw body (parsed
// as JSON when possible, so a template can address "{{.foo}}") and the
// fire time. A template with no "{{" action is returned verbatim as the
// prompt; the body is not included in that case.
func renderPrompt(tmplText string, body []byte, firedAt time.Time) (string, error) {
	if !strings.Contains(tmplText, "{{") {
		return tmplText, nil
	}
	tmpl, err := template.New("webhook").Option("missingkey=zero").Parse(tmplText)
	if err != nil {
		return "", err
	}
	data := map[string]any{
		"now":  firedAt,
		"body": string(body),
	}
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		for k, v := range parsed {
			data[k] = v
		}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute webhook template: %w", err)
	}
	return buf.String(), nil
}
