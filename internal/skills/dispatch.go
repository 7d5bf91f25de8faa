package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/sandbox"
)

// DispatchContext carries everything a privileged built-in or a sandboxed
// tool needs from its agent (spec.md §4.3 step 2).
type DispatchContext struct {
	AgentName       string
	AgentHome       string
	AgentWorkspace  string
	ControlPlaneURL string
	VaultEnv        map[string]string // decrypted vault, only handed to needs_env privileged tools
	Vault           VaultAccessor     // source for VaultEnv; nil if no vault is configured
	OSSandbox       sandbox.Executor
	WasmSandbox     sandbox.Executor
	DefaultTimeout  time.Duration
	OutputCapBytes  int
	WasmEnabled     bool

	// DelegationDepth is the current turn's delegation depth, set by the
	// brain at the start of RunTurn so the delegate_task built-in can
	// enforce spec.md §3's delegation depth cap without the dispatch
	// signature itself needing to carry it.
	DelegationDepth int

	// ExternalCaller routes ExecutorExternalProxy skills to the MCP server
	// that exports them (spec.md §4.3 step 3). Nil if no external tool
	// servers are configured for this agent.
	ExternalCaller ExternalToolCaller
}

// ExternalToolCaller invokes one tool on an already-connected external tool
// server. The args map is the tool's JSON argument object, decoded from the
// invocation body.
type ExternalToolCaller interface {
	CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error)
}

// VaultAccessor decrypts an agent's full secret set for injection into a
// needs_env privileged tool's environment (spec.md §3 "at-most-one secret
// leak on path", §4.3 step 2).
type VaultAccessor interface {
	AllDecrypted(ctx context.Context, agent string) (map[string]string, error)
}

// Observation is what the brain sees after a dispatch: stdout-shaped text
// plus whether it represents an error (spec.md §4.3 step 1: "Unknown name →
// failure observable to the brain").
type Observation struct {
	Text    string
	IsError bool
}

// argvLimit is the platform-safe command-line size past which args are
// delivered over stdin instead (spec.md §4.3 step 4).
const argvLimit = 64 << 10

// Dispatch resolves and runs one tool invocation.
func (c *Catalog) Dispatch(ctx context.Context, dc *DispatchContext, toolName string, rawArgs string) Observation {
	s, ok := c.Resolve(toolName)
	if !ok {
		return Observation{Text: fmt.Sprintf("unknown tool: %s", toolName), IsError: true}
	}

	args, err := splitArgs(s.Manifest.ArgStyle, rawArgs)
	if err != nil {
		return Observation{Text: err.Error(), IsError: true}
	}

	if s.Tier == PrivilegeBuiltin {
		return dispatchBuiltin(ctx, c, dc, s, args)
	}
	return dispatchSandboxed(ctx, dc, s, args)
}

func dispatchBuiltin(ctx context.Context, c *Catalog, dc *DispatchContext, s *Skill, args []string) Observation {
	builtin, ok := c.builtinFunc(s.Manifest.Name)
	if !ok {
		return Observation{Text: fmt.Sprintf("privileged tool %q has no implementation wired", s.Manifest.Name), IsError: true}
	}

	dc.VaultEnv = nil
	if s.Manifest.NeedsEnv {
		if dc.Vault == nil {
			return Observation{Text: fmt.Sprintf("privileged tool %q needs the vault, but none is configured", s.Manifest.Name), IsError: true}
		}
		decrypted, err := dc.Vault.AllDecrypted(ctx, dc.AgentName)
		if err != nil {
			return Observation{Text: fmt.Sprintf("decrypt vault for %q: %v", s.Manifest.Name, err), IsError: true}
		}
		dc.VaultEnv = decrypted // exposed for builtins that read dc.VaultEnv directly
	}

	out, err := builtin.Func(dc, args)
	if err != nil {
		return Observation{Text: err.Error(), IsError: true}
	}
	return Observation{Text: out}
}

func dispatchSandboxed(ctx context.Context, dc *DispatchContext, s *Skill, args []string) Observation {
	if s.Manifest.ExecutorType == ExecutorExternalProxy {
		return dispatchExternal(ctx, dc, s, args)
	}

	env := buildEnv(dc, false, false) // unprivileged tools never receive the vault

	req := sandbox.Request{
		Entrypoint:   s.Manifest.Entrypoint,
		RunCommand:   s.Manifest.RunCommand,
		Args:         args,
		ArgsMode:     sandbox.ArgsModeArgv,
		Env:          env,
		WorkspaceDir: dc.AgentWorkspace,
		NeedsNetwork: s.Manifest.NeedsNetwork,
		Timeout:      dc.DefaultTimeout,
		OutputCap:    dc.OutputCapBytes,
	}

	if argvSize(args) > argvLimit {
		req.ArgsMode = sandbox.ArgsModeStdin
		req.StdinPayload = []byte(strings.Join(args, "\n"))
		req.Env["MOXXY_ARGS_MODE"] = "stdin"
	}

	executor := dc.OSSandbox
	if s.Manifest.ExecutorType == ExecutorWasm {
		if !dc.WasmEnabled || dc.WasmSandbox == nil {
			return Observation{Text: fmt.Sprintf("tool %q requires the wasm executor, which is not enabled", s.Manifest.Name), IsError: true}
		}
		executor = dc.WasmSandbox
	}
	if executor == nil {
		return Observation{Text: "no sandbox executor configured", IsError: true}
	}

	result, err := executor.Run(ctx, req)
	if err != nil {
		return Observation{Text: err.Error(), IsError: true}
	}
	if result.ExecErr != nil {
		return Observation{Text: result.ExecErr.Error(), IsError: true}
	}
	if result.TimedOut {
		return Observation{Text: fmt.Sprintf("tool %q timed out after %s", s.Manifest.Name, req.Timeout), IsError: true}
	}
	if result.ExitCode != 0 {
		return Observation{Text: string(result.Output), IsError: true}
	}
	return Observation{Text: string(result.Output)}
}

// dispatchExternal routes an external_proxy skill to its owning MCP server
// (spec.md §4.3 step 3). The invocation body is a JSON object literal, e.g.
// <invoke name="fs_read_file">{"path":"x"}</invoke>; an empty body dispatches
// with no arguments.
func dispatchExternal(ctx context.Context, dc *DispatchContext, s *Skill, args []string) Observation {
	if dc.ExternalCaller == nil {
		return Observation{Text: fmt.Sprintf("external tool %q has no server connection configured", s.Manifest.Name), IsError: true}
	}

	params := map[string]any{}
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		if err := json.Unmarshal([]byte(args[0]), &params); err != nil {
			return Observation{Text: fmt.Sprintf("invoke: %s expects a JSON object body: %v", s.Manifest.Name, err), IsError: true}
		}
	}

	out, err := dc.ExternalCaller.CallTool(ctx, s.Server, s.RemoteName, params)
	if err != nil {
		return Observation{Text: err.Error(), IsError: true}
	}
	return Observation{Text: out}
}

func buildEnv(dc *DispatchContext, privileged, needsEnv bool) map[string]string {
	env := map[string]string{
		"AGENT_NAME":           dc.AgentName,
		"AGENT_HOME":           dc.AgentHome,
		"AGENT_WORKSPACE":      dc.AgentWorkspace,
		"MOXXY_CONTROL_PLANE":  dc.ControlPlaneURL,
	}
	if privileged && needsEnv {
		for k, v := range dc.VaultEnv {
			env[k] = v
		}
	}
	return env
}

func argvSize(args []string) int {
	total := 0
	for _, a := range args {
		total += len(a) + 1
	}
	return total
}

// splitArgs parses the invocation body per the tool's declared convention
// (spec.md §6 "Invocation syntax").
func splitArgs(style ArgConvention, raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	switch style {
	case ArgJSONArray:
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("invoke: invalid json array args: %w", err)
		}
		return out, nil
	case ArgPipeDelim:
		if raw == "" {
			return nil, nil
		}
		return strings.Split(raw, "|"), nil
	default: // ArgString
		if raw == "" {
			return nil, nil
		}
		return []string{raw}, nil
	}
}
