package provider

import (
	"fmt"

	"github.com/haasonsaas/nexus/internal/config"
)

// Registry resolves a named provider (configured in internal/config) to a
// live Provider instance, built once at boot and shared across agents.
type Registry struct {
	providers map[string]Provider
	def       string
}

// NewRegistry constructs every provider named in cfg.LLM.Providers.
func NewRegistry(cfg config.LLMConfig) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(cfg.Providers)), def: cfg.DefaultProvider}

	for name, pcfg := range cfg.Providers {
		p, err := build(name, pcfg)
		if err != nil {
			return nil, fmt.Errorf("provider registry: %s: %w", name, err)
		}
		r.providers[name] = p
	}
	return r, nil
}

func build(name string, pcfg config.LLMProviderConfig) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropic(AnthropicConfig{APIKey: pcfg.APIKey, BaseURL: pcfg.BaseURL, Model: pcfg.Model})
	case "openai":
		return NewOpenAI(OpenAIConfig{APIKey: pcfg.APIKey, BaseURL: pcfg.BaseURL, Model: pcfg.Model})
	default:
		return nil, fmt.Errorf("unknown provider kind %q", name)
	}
}

// Resolve returns the provider for name, or the configured default if name
// is empty (spec.md §3 "assigned model provider + model id").
func (r *Registry) Resolve(name string) (Provider, error) {
	if name == "" {
		name = r.def
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider registry: %q is not configured", name)
	}
	return p, nil
}
