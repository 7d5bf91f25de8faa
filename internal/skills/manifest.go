// Package skills resolves a named tool to an executable artifact and
// dispatches it under the appropriate privilege tier (spec.md §4.3).
package skills

import (
	"fmt"
	"regexp"
)

// ExecutorKind is the body-artifact shape a manifest declares.
type ExecutorKind string

const (
	ExecutorNative        ExecutorKind = "native"
	ExecutorWasm          ExecutorKind = "wasm"
	ExecutorExternalProxy ExecutorKind = "external_proxy"
)

// PrivilegeTier is a static property assigned at registration, never
// derived from the manifest itself (spec.md §3 "Privilege is static").
type PrivilegeTier string

const (
	PrivilegeBuiltin      PrivilegeTier = "privileged"
	PrivilegeUnprivileged PrivilegeTier = "unprivileged"
)

// ArgConvention is how a tool declares its invocation body should be parsed
// (spec.md §4.2 step 3 / §6 "Invocation syntax").
type ArgConvention string

const (
	ArgString     ArgConvention = "string"
	ArgJSONArray  ArgConvention = "json_array"
	ArgPipeDelim  ArgConvention = "pipe_delimited"
)

var manifestNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Manifest is the on-disk description of one skill (spec.md §6 "Skill
// manifest schema").
type Manifest struct {
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	Version      string        `yaml:"version"`
	ExecutorType ExecutorKind  `yaml:"executor_type"`
	Entrypoint   string        `yaml:"entrypoint"`
	RunCommand   string        `yaml:"run_command"`
	ArgStyle     ArgConvention `yaml:"arg_style"`
	Timeout      string        `yaml:"timeout"`

	NeedsNetwork bool `yaml:"needs_network"`
	NeedsFSRead  bool `yaml:"needs_fs_read"`
	NeedsFSWrite bool `yaml:"needs_fs_write"`
	NeedsEnv     bool `yaml:"needs_env"`
}

// Validate checks the manifest fields the catalog relies on before
// registering a skill (spec.md §6: "name must equal directory name,
// snake_case").
func (m *Manifest) Validate(dirName string) error {
	if m.Name == "" {
		return fmt.Errorf("skill manifest: name is required")
	}
	if !manifestNamePattern.MatchString(m.Name) {
		return fmt.Errorf("skill manifest: name %q must be snake_case", m.Name)
	}
	if m.Name != dirName {
		return fmt.Errorf("skill manifest: name %q must equal directory name %q", m.Name, dirName)
	}
	switch m.ExecutorType {
	case ExecutorNative, ExecutorWasm, ExecutorExternalProxy:
	default:
		return fmt.Errorf("skill manifest: unknown executor_type %q", m.ExecutorType)
	}
	if m.ExecutorType != ExecutorExternalProxy && m.Entrypoint == "" {
		return fmt.Errorf("skill manifest: entrypoint is required for executor_type %q", m.ExecutorType)
	}
	switch m.ArgStyle {
	case "", ArgString, ArgJSONArray, ArgPipeDelim:
	default:
		return fmt.Errorf("skill manifest: unknown arg_style %q", m.ArgStyle)
	}
	return nil
}

// Skill is a fully resolved catalog entry: a manifest plus its static
// privilege tier and the filesystem location of its body artifact.
type Skill struct {
	Manifest Manifest
	Tier     PrivilegeTier
	Dir      string // skill directory, empty for external-proxy entries
	Server   string // originating external tool server, empty otherwise

	// RemoteName is the tool's name as the external tool server knows it,
	// before RegisterExternalTool namespaces Manifest.Name to
	// "<server>_<tool>". Empty for non-proxy skills.
	RemoteName string
}
