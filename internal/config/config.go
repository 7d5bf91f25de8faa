// Package config loads the process-wide moxxy configuration.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a moxxy process.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	DataRoot    string            `yaml:"data_root"`
	InternalAPI InternalAPIConfig `yaml:"internal_api"`
	Vault       VaultConfig       `yaml:"vault"`
	Sandbox     SandboxConfig     `yaml:"sandbox"`
	LLM         LLMConfig         `yaml:"llm"`
	Loop        LoopConfig        `yaml:"loop"`
	Memory      MemoryConfig      `yaml:"memory"`
	Logging     LoggingConfig     `yaml:"logging"`
	Agents      []AgentConfig     `yaml:"agents"`
}

// ServerConfig configures the internal control-plane HTTP listener.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	MetricsPort  int    `yaml:"metrics_port"`
}

// InternalAPIConfig configures the process-scoped internal secret token
// required on every control-plane request (spec.md §3 "Internal endpoints
// demand the internal token").
type InternalAPIConfig struct {
	// Token is the shared secret. If empty at boot, MOXXY_INTERNAL_TOKEN is
	// used; if that is empty too, a random one is generated and
	// never logged, matching spec.md §5 "established at boot, never logged".
	Token string `yaml:"token"`
}

// VaultConfig configures per-agent secret encryption.
type VaultConfig struct {
	// KeyPath is where the AES-256 master key is persisted if MOXXY_VAULT_KEY
	// is not set in the environment.
	KeyPath string `yaml:"key_path"`
}

// SandboxConfig configures the OS-sandbox / WASM execution layer.
type SandboxConfig struct {
	// OSSandboxEnabled toggles the per-platform OS sandbox for agent-added tools.
	OSSandboxEnabled bool `yaml:"os_sandbox_enabled"`
	// WasmEnabled toggles the wazero-backed WASM executor.
	WasmEnabled bool `yaml:"wasm_enabled"`
	// DefaultTimeout bounds tool subprocess execution (spec.md §4.3 step 5).
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	// OutputCapBytes bounds captured stdout (spec.md §4.3 step 6).
	OutputCapBytes int `yaml:"output_cap_bytes"`
}

// LLMConfig configures the default model provider.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig holds one named provider's credentials/endpoint.
type LLMProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LoopConfig configures the brain's bounded control flow (spec.md §4.2).
type LoopConfig struct {
	MaxIterations       int           `yaml:"max_iterations"`
	TriggerQueueSize    int           `yaml:"trigger_queue_size"`
	CancelGracePeriod   time.Duration `yaml:"cancel_grace_period"`
	RecallTopK          int           `yaml:"recall_top_k"`
	SessionWindow       int           `yaml:"session_window"`
	AnnouncementRecentN int           `yaml:"announcement_recent_n"`
	DelegationDepthCap  int           `yaml:"delegation_depth_cap"`
}

// MemoryConfig configures vector recall.
type MemoryConfig struct {
	EmbeddingDim      int     `yaml:"embedding_dim"`
	SimilarityThresh  float64 `yaml:"similarity_threshold"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// AgentConfig is the declarative boot-time description of one swarm member.
// Only used to seed the store on first boot; afterwards the supervisor is
// authoritative (spec.md §3 "mutated only by the supervisor").
type AgentConfig struct {
	Name     string `yaml:"name"`
	Persona  string `yaml:"persona"`
	Runtime  string `yaml:"runtime"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Load reads, expands, and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	_ = godotenv.Load(envFileNear(path))

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envFileNear(configPath string) string {
	dir := "."
	if idx := strings.LastIndexByte(configPath, '/'); idx >= 0 {
		dir = configPath[:idx]
	}
	return dir + "/.env"
}

func applyDefaults(cfg *Config) {
	if cfg.DataRoot == "" {
		cfg.DataRoot = "./data"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8777
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9777
	}
	if cfg.InternalAPI.Token == "" {
		cfg.InternalAPI.Token = os.Getenv("MOXXY_INTERNAL_TOKEN")
	}
	if cfg.InternalAPI.Token == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err == nil {
			cfg.InternalAPI.Token = hex.EncodeToString(buf)
		}
	}
	if cfg.Vault.KeyPath == "" {
		cfg.Vault.KeyPath = cfg.DataRoot + "/vault.key"
	}
	if cfg.Sandbox.DefaultTimeout == 0 {
		cfg.Sandbox.DefaultTimeout = 2 * time.Minute
	}
	if cfg.Sandbox.OutputCapBytes == 0 {
		cfg.Sandbox.OutputCapBytes = 64 << 10
	}
	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "anthropic"
	}
	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop.MaxIterations = 10
	}
	if cfg.Loop.TriggerQueueSize == 0 {
		cfg.Loop.TriggerQueueSize = 16
	}
	if cfg.Loop.CancelGracePeriod == 0 {
		cfg.Loop.CancelGracePeriod = 5 * time.Second
	}
	if cfg.Loop.RecallTopK == 0 {
		cfg.Loop.RecallTopK = 5
	}
	if cfg.Loop.SessionWindow == 0 {
		cfg.Loop.SessionWindow = 40
	}
	if cfg.Loop.AnnouncementRecentN == 0 {
		cfg.Loop.AnnouncementRecentN = 10
	}
	if cfg.Loop.DelegationDepthCap == 0 {
		cfg.Loop.DelegationDepthCap = 3
	}
	if cfg.Memory.EmbeddingDim == 0 {
		cfg.Memory.EmbeddingDim = 1536
	}
	if cfg.Memory.SimilarityThresh == 0 {
		cfg.Memory.SimilarityThresh = 0.75
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	hasDefault := false
	for _, a := range cfg.Agents {
		if a.Name == "default" {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		cfg.Agents = append([]AgentConfig{{
			Name:     "default",
			Persona:  "You are a helpful assistant. Reply briefly.",
			Runtime:  "native",
			Provider: cfg.LLM.DefaultProvider,
		}}, cfg.Agents...)
	}
}

func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Agents))
	for _, a := range cfg.Agents {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("agent config missing name")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name %q in config", a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}
