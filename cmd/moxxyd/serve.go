package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/controlplane"
	"github.com/haasonsaas/nexus/internal/cron"
	"github.com/haasonsaas/nexus/internal/hostproxy"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/internal/memory/embeddings"
	"github.com/haasonsaas/nexus/internal/memory/embeddings/ollama"
	"github.com/haasonsaas/nexus/internal/memory/embeddings/openai"
	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/haasonsaas/nexus/internal/provider"
	"github.com/haasonsaas/nexus/internal/sandbox"
	"github.com/haasonsaas/nexus/internal/storage"
	"github.com/haasonsaas/nexus/internal/vault"
	"github.com/haasonsaas/nexus/internal/webhook"
)

const defaultConfigPath = "moxxy.yaml"

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Boot the swarm and serve the internal control plane",
		Long: `serve loads the process configuration, boots every configured agent to
Ready, starts the scheduler and webhook ingress, and listens for internal
control-plane requests until SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

// schedulerAdapter converts cron.Scheduler's own snapshot types into the
// shape controlplane.Scheduler expects, so internal/controlplane never
// needs to import internal/cron (see controlplane.Scheduler's doc comment).
// It also holds the swarm, since cron.JobSnapshot doesn't carry the cron
// expression itself and the agent's own store is the source of truth for it.
type schedulerAdapter struct {
	*cron.Scheduler
	swarm *agent.Swarm
}

func (a schedulerAdapter) Jobs() []controlplane.JobSnapshot {
	jobs := a.Scheduler.Jobs()
	out := make([]controlplane.JobSnapshot, len(jobs))
	for i, j := range jobs {
		out[i] = controlplane.JobSnapshot{
			Agent:    j.Agent,
			Name:     j.Name,
			CronExpr: a.cronExprFor(j.Agent, j.Name),
			State:    string(j.State),
		}
	}
	return out
}

func (a schedulerAdapter) cronExprFor(agentName, jobName string) string {
	act, ok := a.swarm.Lookup(agentName)
	if !ok {
		return ""
	}
	jobs, err := act.Store().ListJobs(context.Background())
	if err != nil {
		return ""
	}
	for _, j := range jobs {
		if j.Name == jobName {
			return j.CronExpr
		}
	}
	return ""
}

func (a schedulerAdapter) Fires(ctx context.Context, agentName, job string, limit, offset int) ([]controlplane.FireRecord, error) {
	fires, err := a.Scheduler.Fires(ctx, agentName, job, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]controlplane.FireRecord, len(fires))
	for i, f := range fires {
		out[i] = controlplane.FireRecord{
			ID:      f.ID,
			Agent:   f.Agent,
			Job:     f.Job,
			Status:  string(f.Status),
			FiredAt: f.FiredAt.Format("2006-01-02T15:04:05Z07:00"),
			Error:   f.Error,
		}
	}
	return out, nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := observability.NewLogger(observability.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}

	masterKey, err := vault.LoadOrCreateMasterKey(cfg.Vault.KeyPath)
	if err != nil {
		return fmt.Errorf("load vault master key: %w", err)
	}
	v, err := vault.Open(filepath.Join(cfg.DataRoot, "vault.db"), masterKey)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}
	defer v.Close()

	swarmStore, err := storage.OpenSwarmStore(filepath.Join(cfg.DataRoot, "swarm.db"))
	if err != nil {
		return fmt.Errorf("open swarm store: %w", err)
	}
	defer swarmStore.Close()

	providers, err := provider.NewRegistry(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build provider registry: %w", err)
	}

	hp, err := hostproxy.New(cfg.DataRoot, log)
	if err != nil {
		return fmt.Errorf("build host proxy: %w", err)
	}

	embedder, err := buildEmbedder(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}

	deps := &agent.Deps{
		DataRoot:  cfg.DataRoot,
		Swarm:     swarmStore,
		Vault:     v,
		Providers: providers,
		HostProxy: hp,
		Embedder:  embedder,
		Loop:      cfg.Loop,
		Sandbox:   cfg.Sandbox,
		Memory: memory.Config{
			TopK:             cfg.Loop.RecallTopK,
			SimilarityThresh: cfg.Memory.SimilarityThresh,
			AnnouncementN:    cfg.Loop.AnnouncementRecentN,
		},
		Log: log,
	}
	if cfg.Sandbox.OSSandboxEnabled {
		deps.OSSandbox = sandbox.NewOSExecutor()
	}
	if cfg.Sandbox.WasmEnabled {
		deps.WasmSandbox = sandbox.NewWasmExecutor()
	}

	swarm := agent.NewSwarm(deps)
	if err := swarm.Boot(ctx, cfg.Agents); err != nil {
		return fmt.Errorf("boot swarm: %w", err)
	}
	defer swarm.Shutdown(context.Background())

	scheduler := cron.New(swarm, agent.CronDispatcher{Swarm: swarm}, log)
	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	go scheduler.Run(schedCtx)

	webhooks := webhook.New(swarm, agent.CronDispatcher{Swarm: swarm}, log)

	srv := controlplane.New(swarm, schedulerAdapter{scheduler, swarm}, webhooks, hp, cfg.InternalAPI.Token, log)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("control plane listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("control plane: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Loop.CancelGracePeriod)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildEmbedder picks a long-term recall embedding provider from the
// configured LLM providers: OpenAI's hosted embedding models if an OpenAI
// key is configured, otherwise a local Ollama server, matching spec.md
// §4.5's recall requirement without forcing every install to carry an
// OpenAI key.
func buildEmbedder(cfg config.LLMConfig) (embeddings.Provider, error) {
	if oai, ok := cfg.Providers["openai"]; ok && oai.APIKey != "" {
		return openai.New(openai.Config{APIKey: oai.APIKey, BaseURL: oai.BaseURL})
	}
	return ollama.New(ollama.Config{})
}
