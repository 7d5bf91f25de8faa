package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/pkg/models"
)

type fakeRegistrations struct {
	regs map[string]*models.WebhookRegistration
}

func (f *fakeRegistrations) GetWebhook(ctx context.Context, agent, source string) (*models.WebhookRegistration, error) {
	return f.regs[agent+"/"+source], nil
}

type fakeDispatcher struct {
	lastTrigger models.Trigger
	ran         bool
	err         error
}

func (f *fakeDispatcher) TryDispatch(ctx context.Context, trig models.Trigger) (bool, error) {
	f.lastTrigger = trig
	return f.ran, f.err
}

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newTestHandler(reg *models.WebhookRegistration, dispatcher *fakeDispatcher) *Handler {
	return New(&fakeRegistrations{regs: map[string]*models.WebhookRegistration{"alpha/gh": reg}}, dispatcher, observability.NewLogger(observability.Config{}))
}

func TestWebhookHandlerDispatchesOnValidSignature(t *testing.T) {
	body := `{"event":"push"}`
	reg := &models.WebhookRegistration{Agent: "alpha", Source: "gh", Secret: "shh", Enabled: true, PromptTemplate: "saw a push"}
	dispatcher := &fakeDispatcher{ran: true}
	h := newTestHandler(reg, dispatcher)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/alpha/gh", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign(body, "shh"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if dispatcher.lastTrigger.Agent != "alpha" || dispatcher.lastTrigger.Source != models.TriggerWebhook {
		t.Fatalf("unexpected trigger: %+v", dispatcher.lastTrigger)
	}
	if dispatcher.lastTrigger.Prompt != "saw a push" {
		t.Fatalf("expected literal prompt template, got %q", dispatcher.lastTrigger.Prompt)
	}
}

func TestWebhookHandlerRejectsBadSignature(t *testing.T) {
	reg := &models.WebhookRegistration{Agent: "alpha", Source: "gh", Secret: "shh", Enabled: true, PromptTemplate: "x"}
	h := newTestHandler(reg, &fakeDispatcher{ran: true})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/alpha/gh", strings.NewReader("{}"))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhookHandlerRejectsDisabledRegistration(t *testing.T) {
	reg := &models.WebhookRegistration{Agent: "alpha", Source: "gh", Secret: "shh", Enabled: false, PromptTemplate: "x"}
	h := newTestHandler(reg, &fakeDispatcher{ran: true})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/alpha/gh", strings.NewReader("{}"))
	req.Header.Set("X-Hub-Signature-256", sign("{}", "shh"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestWebhookHandlerRejectsUnknownRegistration(t *testing.T) {
	h := newTestHandler(nil, &fakeDispatcher{})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/alpha/ghost", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWebhookHandlerReportsSkippedWhenAgentBusy(t *testing.T) {
	body := "{}"
	reg := &models.WebhookRegistration{Agent: "alpha", Source: "gh", Secret: "shh", Enabled: true, PromptTemplate: "x"}
	h := newTestHandler(reg, &fakeDispatcher{ran: false})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/alpha/gh", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign(body, "shh"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestSplitPathRequiresAgentAndSource(t *testing.T) {
	cases := map[string]bool{
		"/webhooks/alpha/gh": true,
		"/webhooks/alpha/":   false,
		"/webhooks/":         false,
		"/other/alpha/gh":    false,
	}
	for path, want := range cases {
		_, _, ok := splitPath(path)
		if ok != want {
			t.Fatalf("splitPath(%q): got ok=%v, want %v", path, ok, want)
		}
	}
}
