// Package controlplane implements spec.md's internal HTTP API: every
// operation on the swarm, a session, the vault, the scheduler, or the host
// proxy goes through this one surface, authenticated by a process-scoped
// internal token header on every call except webhook ingress (spec.md §7
// "Privilege / policy ... missing internal token ... fatal").
package controlplane

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/hostproxy"
	"github.com/haasonsaas/nexus/internal/observability"
)

// TokenHeader is the well-known header carrying the internal secret
// (spec.md §3 "Internal endpoints demand the internal token").
const TokenHeader = "X-Internal-Token"

// Scheduler is the subset of cron.Scheduler's read surface the control
// plane exposes for inspection. Declared locally so this package doesn't
// import internal/cron just to name a type.
type Scheduler interface {
	Jobs() []JobSnapshot
	Fires(ctx context.Context, agent, job string, limit, offset int) ([]FireRecord, error)
}

// JobSnapshot and FireRecord mirror cron.JobSnapshot/cron.Fire's exported
// fields. The control plane never imports internal/cron directly, so
// cmd/moxxyd hands in a Scheduler implementation that performs that
// conversion. cron.JobSnapshot carries no cron expression, so that
// adapter fills CronExpr from the agent's persisted job listing.
type JobSnapshot struct {
	Agent    string `json:"agent"`
	Name     string `json:"name"`
	CronExpr string `json:"cron_expr"`
	State    string `json:"state"`
}

type FireRecord struct {
	ID       string `json:"id"`
	Agent    string `json:"agent"`
	Job      string `json:"job"`
	Status   string `json:"status"`
	FiredAt  string `json:"fired_at"`
	Error    string `json:"error,omitempty"`
}

// Server is the internal control-plane HTTP handler.
type Server struct {
	swarm     *agent.Swarm
	scheduler Scheduler // nil when no scheduler is wired (e.g. tests)
	webhooks  http.Handler
	hostProxy *hostproxy.Proxy
	token     string
	log       *observability.Logger
	mux       *http.ServeMux
}

// New builds the control-plane handler. webhooks, if non-nil, is mounted
// unauthenticated at /webhooks/ (spec.md §6 "External-unauthenticated;
// HMAC-verified if secret configured").
func New(swarm *agent.Swarm, scheduler Scheduler, webhooks http.Handler, hostProxy *hostproxy.Proxy, token string, log *observability.Logger) *Server {
	s := &Server{
		swarm:     swarm,
		scheduler: scheduler,
		webhooks:  webhooks,
		hostProxy: hostProxy,
		token:     token,
		log:       log.Component("controlplane"),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	if s.webhooks != nil {
		s.mux.Handle("/webhooks/", s.webhooks)
	}

	auth := s.requireToken

	s.mux.Handle("/agents", auth(http.HandlerFunc(s.handleAgents)))
	s.mux.Handle("/agents/", auth(http.HandlerFunc(s.handleAgentByName)))

	s.mux.Handle("/sessions/", auth(http.HandlerFunc(s.handleSession)))
	s.mux.Handle("/turns/", auth(http.HandlerFunc(s.handleDispatchTurn)))
	s.mux.Handle("/memory/", auth(http.HandlerFunc(s.handleMemory)))
	s.mux.Handle("/tools/", auth(http.HandlerFunc(s.handleTools)))
	s.mux.Handle("/vault/", auth(http.HandlerFunc(s.handleVault)))
	s.mux.Handle("/jobs/", auth(http.HandlerFunc(s.handleJobs)))
	s.mux.Handle("/toolservers/", auth(http.HandlerFunc(s.handleToolServers)))
	s.mux.Handle("/webhook-registrations/", auth(http.HandlerFunc(s.handleWebhookRegistrations)))
	s.mux.Handle("/hostproxy/execute", auth(http.HandlerFunc(s.handleHostProxyExecute)))
	s.mux.Handle("/delegate/", auth(http.HandlerFunc(s.handleDelegate)))

	if s.scheduler != nil {
		s.mux.Handle("/scheduler/jobs", auth(http.HandlerFunc(s.handleSchedulerJobs)))
		s.mux.Handle("/scheduler/fires/", auth(http.HandlerFunc(s.handleSchedulerFires)))
	}
}

// requireToken refuses any request lacking or misstating the internal
// secret before any handler runs a side effect (spec.md §8 invariant: "For
// all internal control-plane requests lacking the internal token or
// presenting a wrong one: the request is refused before any side-effect").
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(TokenHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			s.log.Warn("rejected control-plane request missing or bad internal token", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "missing or invalid internal token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
