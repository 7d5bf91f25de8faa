// Package models defines the core entities shared across the swarm: agents,
// session messages, long-term and shared facts, scheduled jobs, webhook
// registrations, and external tool servers.
package models

import "time"

// RuntimeKind is the execution kind an agent's tools run under.
type RuntimeKind string

const (
	RuntimeNative    RuntimeKind = "native"
	RuntimeSandboxed RuntimeKind = "sandboxed"
	RuntimeWasm      RuntimeKind = "wasm"
)

// DefaultAgentName is the reserved swarm member that can never be removed.
const DefaultAgentName = "default"

// CapabilityProfile bounds what an agent's unprivileged tools may do.
// Fields mirror the container.<config> schema in spec.md §6.
type CapabilityProfile struct {
	Filesystem  []string `json:"filesystem" yaml:"filesystem"`
	Network     bool     `json:"network" yaml:"network"`
	MaxMemoryMB int      `json:"max_memory_mb" yaml:"max_memory_mb"`
	EnvInherit  bool     `json:"env_inherit" yaml:"env_inherit"`
}

// DefaultCapabilityProfile returns the deny-by-default profile spec.md §6 requires.
func DefaultCapabilityProfile() CapabilityProfile {
	return CapabilityProfile{
		Filesystem:  nil,
		Network:     false,
		MaxMemoryMB: 512,
		EnvInherit:  false,
	}
}

// Agent is the persisted identity of one swarm member.
type Agent struct {
	Name       string            `json:"name"`
	Persona    string            `json:"persona"`
	Runtime    RuntimeKind       `json:"runtime"`
	Profile    CapabilityProfile `json:"profile"`
	Provider   string            `json:"provider"`
	Model      string            `json:"model"`
	WasmImage  string            `json:"wasm_image,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
