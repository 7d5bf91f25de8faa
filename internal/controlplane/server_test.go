package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/hostproxy"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/provider"
	"github.com/haasonsaas/nexus/internal/vault"
	"github.com/haasonsaas/nexus/pkg/models"
)

type noopEmbedder struct{}

func (noopEmbedder) Name() string   { return "noop" }
func (noopEmbedder) Dimension() int { return 1 }
func (noopEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0}, nil
}

const testToken = "test-internal-token"

func newTestServer(t *testing.T) (*Server, *agent.Swarm) {
	t.Helper()
	dataRoot := t.TempDir()

	reg, err := provider.NewRegistry(config.LLMConfig{
		DefaultProvider: "anthropic",
		Providers: map[string]config.LLMProviderConfig{
			"anthropic": {APIKey: "sk-ant-test"},
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	masterKey, err := vault.LoadOrCreateMasterKey(filepath.Join(dataRoot, "vault.key"))
	if err != nil {
		t.Fatalf("LoadOrCreateMasterKey: %v", err)
	}
	v, err := vault.Open(filepath.Join(dataRoot, "vault.db"), masterKey)
	if err != nil {
		t.Fatalf("vault.Open: %v", err)
	}
	t.Cleanup(func() { v.Close() })

	log := observability.NewLogger(observability.Config{})
	hp, err := hostproxy.New(dataRoot, log)
	if err != nil {
		t.Fatalf("hostproxy.New: %v", err)
	}

	deps := &agent.Deps{
		DataRoot:  dataRoot,
		Vault:     v,
		Providers: reg,
		HostProxy: hp,
		Embedder:  noopEmbedder{},
		Loop:      config.LoopConfig{},
		Sandbox:   config.SandboxConfig{},
		Memory:    memory.Config{},
		Log:       log,
	}
	swarm := agent.NewSwarm(deps)
	t.Cleanup(func() { swarm.Shutdown(context.Background()) })

	if _, err := swarm.CreateAgent(context.Background(), models.Agent{
		Name:     "alpha",
		Persona:  "a test agent",
		Runtime:  models.RuntimeNative,
		Profile:  models.DefaultCapabilityProfile(),
		Provider: "anthropic",
	}); err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}

	srv := New(swarm, nil, nil, hp, testToken, log)
	return srv, swarm
}

func doRequest(t *testing.T, srv *Server, method, path string, body any, withToken bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if withToken {
		req.Header.Set(TokenHeader, testToken)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestControlPlaneRejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/agents", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestControlPlaneRejectsWrongToken(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	req.Header.Set(TokenHeader, "wrong")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestControlPlaneListsAgents(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/agents", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out []models.Agent
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].Name != "alpha" {
		t.Fatalf("expected one agent named alpha, got %+v", out)
	}
}

func TestControlPlaneCreateAndRemoveAgent(t *testing.T) {
	srv, swarm := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/agents", models.Agent{
		Name:     "beta",
		Persona:  "another test agent",
		Runtime:  models.RuntimeNative,
		Provider: "anthropic",
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := swarm.Lookup("beta"); !ok {
		t.Fatalf("expected beta to be registered in the swarm")
	}

	rec = doRequest(t, srv, http.MethodDelete, "/agents/beta", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := swarm.Lookup("beta"); ok {
		t.Fatalf("expected beta to be removed from the swarm")
	}
}

func TestControlPlaneRestartUnknownAgentNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/agents/ghost/restart", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestControlPlaneVaultRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/vault/alpha", map[string]string{"key": "api_key", "value": "s3cr3t"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/vault/alpha?key=api_key", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["value"] != "s3cr3t" {
		t.Fatalf("expected round-tripped secret, got %+v", got)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/vault/alpha?key=api_key", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, srv, http.MethodGet, "/vault/alpha?key=api_key", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after removal, got %d", rec.Code)
	}
}

func TestControlPlaneJobUpsertIsIdempotentByName(t *testing.T) {
	srv, _ := newTestServer(t)
	job := models.ScheduledJob{Name: "nightly", CronExpr: "0 0 3 * * *", PromptTemplate: "good morning"}

	for i := 0; i < 2; i++ {
		rec := doRequest(t, srv, http.MethodPut, "/jobs/alpha", job, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/jobs/alpha", nil, true)
	var jobs []*models.ScheduledJob
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected exactly one job after two identical upserts, got %d", len(jobs))
	}
}

func TestControlPlaneWebhookRegistrationEnableDisable(t *testing.T) {
	srv, _ := newTestServer(t)
	reg := models.WebhookRegistration{Source: "gh", Secret: "shh", PromptTemplate: "event", Enabled: true}

	rec := doRequest(t, srv, http.MethodPost, "/webhook-registrations/alpha", reg, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodPatch, "/webhook-registrations/alpha?source=gh&enabled=false", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/webhook-registrations/alpha", nil, true)
	var regs []*models.WebhookRegistration
	if err := json.Unmarshal(rec.Body.Bytes(), &regs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(regs) != 1 || regs[0].Enabled {
		t.Fatalf("expected the registration to be disabled, got %+v", regs)
	}
}

func TestControlPlaneHostProxyRejectsEscapeOutsideRoot(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/hostproxy/execute", map[string]any{
		"kind":        "shell",
		"command":     "/bin/echo",
		"args":        []string{"hi"},
		"working_dir": "/etc",
	}, true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a working dir outside the moxxy root, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestControlPlaneSessionReadUnknownAgent(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/sessions/ghost", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
