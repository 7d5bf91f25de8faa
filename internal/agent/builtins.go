package agent

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/hostproxy"
	"github.com/haasonsaas/nexus/internal/sandbox"
	"github.com/haasonsaas/nexus/internal/skills"
	"github.com/haasonsaas/nexus/pkg/models"
)

// registerBuiltins loads the closed set of privileged built-ins into an
// actor's catalog (spec.md §4.3 "Registration" step 1, §3
// PrivilegedAllowlist). Each implementation here is the only body a name on
// the allow-list may ever run.
func registerBuiltins(a *Actor) error {
	builtins := []*skills.Builtin{
		workspaceShellBuiltin(a),
		hostShellBuiltin(a),
		hostInterpreterBuiltin(a),
		hostOSAutomationBuiltin(a),
		delegateTaskBuiltin(a),
		rememberFactBuiltin(a),
		recallFactsBuiltin(a),
	}
	for _, b := range builtins {
		if err := a.catalog.RegisterBuiltin(b); err != nil {
			return err
		}
	}
	return nil
}

func (a *Actor) toolTimeout() time.Duration {
	if a.deps.Sandbox.DefaultTimeout > 0 {
		return a.deps.Sandbox.DefaultTimeout
	}
	return 2 * time.Minute
}

// workspaceShellBuiltin runs a shell line directly under the host identity,
// confined by working directory (not by OS sandbox) to the agent's own
// workspace (spec.md §4.3 step 3 "Privileged built-in → direct execution
// with the host's real identity"). The invocation body is a two-element
// JSON array, [dir, command]: dir is resolved against the agent's workspace
// and checked for escape via sandbox.ConfineToWorkspace before command ever
// runs (spec.md §8 scenarios 1 and 2).
func workspaceShellBuiltin(a *Actor) *skills.Builtin {
	return &skills.Builtin{
		Manifest: skills.Manifest{
			Name:         "workspace_shell",
			Description:  "Run a shell command in (or under) the agent's own workspace directory: [dir, command].",
			ExecutorType: skills.ExecutorNative,
			Entrypoint:   "builtin",
			ArgStyle:     skills.ArgJSONArray,
		},
		Func: func(dc *skills.DispatchContext, args []string) (string, error) {
			if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
				return "", fmt.Errorf("workspace_shell: expected [dir, command]")
			}

			dir := dc.AgentWorkspace
			if strings.TrimSpace(args[0]) != "" {
				confined, err := sandbox.ConfineToWorkspace(dc.AgentWorkspace, args[0])
				if err != nil {
					return fmt.Sprintf("refused: %v", err), nil // policy refusal, not a Go error
				}
				dir = confined
			}

			ctx, cancel := context.WithTimeout(context.Background(), a.toolTimeout())
			defer cancel()

			cmd := exec.CommandContext(ctx, "/bin/sh", "-c", args[1])
			cmd.Dir = dir
			out, err := cmd.CombinedOutput()
			if err != nil {
				if _, ok := err.(*exec.ExitError); ok {
					return string(out), nil // nonzero exit is a tool-result error, not a Go error
				}
				return "", fmt.Errorf("workspace_shell: %w", err)
			}
			return string(out), nil
		},
	}
}

// hostProxyBuiltin shapes the three builtins that reach the host proxy.
// All three declare needs_env: running under the host's real identity is
// exactly where a script legitimately needs a vault-stored API key or
// credential (spec.md §4.3 step 2).
func hostProxyBuiltin(a *Actor, name, description string, style skills.ArgConvention, toReq func(args []string) (hostproxy.Request, error)) *skills.Builtin {
	return &skills.Builtin{
		Manifest: skills.Manifest{
			Name:         name,
			Description:  description,
			ExecutorType: skills.ExecutorNative,
			Entrypoint:   "builtin",
			ArgStyle:     style,
			NeedsEnv:     true,
		},
		Func: func(dc *skills.DispatchContext, args []string) (string, error) {
			req, err := toReq(args)
			if err != nil {
				return "", err
			}
			if req.Timeout == 0 {
				req.Timeout = a.toolTimeout()
			}
			req.Env = dc.VaultEnv
			resp, err := a.deps.HostProxy.Execute(context.Background(), req)
			if err != nil {
				return "", fmt.Errorf("%s: %w", name, err)
			}
			if resp.ExitCode != 0 {
				return fmt.Sprintf("exit %d\nstdout:\n%s\nstderr:\n%s", resp.ExitCode, resp.Stdout, resp.Stderr), nil
			}
			return resp.Stdout, nil
		},
	}
}

func hostShellBuiltin(a *Actor) *skills.Builtin {
	return hostProxyBuiltin(a, "host_shell", "Run a shell command under the host's real identity via the host proxy.", skills.ArgString,
		func(args []string) (hostproxy.Request, error) {
			if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
				return hostproxy.Request{}, fmt.Errorf("host_shell: a command is required")
			}
			return hostproxy.Request{Kind: hostproxy.KindShell, Command: args[0]}, nil
		})
}

func hostInterpreterBuiltin(a *Actor) *skills.Builtin {
	return hostProxyBuiltin(a, "host_interpreter", "Run an interpreter command (e.g. python3 script.py) under the host's real identity.", skills.ArgJSONArray,
		func(args []string) (hostproxy.Request, error) {
			if len(args) == 0 {
				return hostproxy.Request{}, fmt.Errorf("host_interpreter: an interpreter command is required")
			}
			return hostproxy.Request{Kind: hostproxy.KindInterpreter, Command: args[0], Args: args[1:]}, nil
		})
}

func hostOSAutomationBuiltin(a *Actor) *skills.Builtin {
	return hostProxyBuiltin(a, "host_os_automation", "Run an OS automation command under the host's real identity.", skills.ArgJSONArray,
		func(args []string) (hostproxy.Request, error) {
			if len(args) == 0 {
				return hostproxy.Request{}, fmt.Errorf("host_os_automation: a command is required")
			}
			return hostproxy.Request{Kind: hostproxy.KindOSAutomation, Command: args[0], Args: args[1:]}, nil
		})
}

// delegateTaskBuiltin hands a prompt to another swarm member, enforcing the
// delegation depth cap (spec.md §3) before dispatching through the same
// single-flight path an ordinary trigger takes.
func delegateTaskBuiltin(a *Actor) *skills.Builtin {
	return &skills.Builtin{
		Manifest: skills.Manifest{
			Name:         "delegate_task",
			Description:  "Delegate a prompt to another agent in the swarm: target_agent|prompt.",
			ExecutorType: skills.ExecutorNative,
			Entrypoint:   "builtin",
			ArgStyle:     skills.ArgPipeDelim,
		},
		Func: func(dc *skills.DispatchContext, args []string) (string, error) {
			if len(args) != 2 || strings.TrimSpace(args[0]) == "" {
				return "", fmt.Errorf("delegate_task: expected target_agent|prompt")
			}
			if a.swarm == nil {
				return "", fmt.Errorf("delegate_task: swarm is not wired for this agent")
			}
			depthCap := a.deps.Loop.DelegationDepthCap
			if depthCap <= 0 {
				depthCap = 3
			}
			if dc.DelegationDepth+1 > depthCap {
				return "", fmt.Errorf("delegate_task: delegation depth cap of %d reached", depthCap)
			}

			trig := models.Trigger{
				Agent:           strings.TrimSpace(args[0]),
				Source:          models.TriggerDelegation,
				Prompt:          args[1],
				DelegationDepth: dc.DelegationDepth + 1,
			}
			res, err := a.swarm.Dispatch(context.Background(), trig, func(models.TurnEvent) {})
			if err != nil {
				return "", fmt.Errorf("delegate_task: %w", err)
			}
			return res.FinalResponse, nil
		},
	}
}

func rememberFactBuiltin(a *Actor) *skills.Builtin {
	return &skills.Builtin{
		Manifest: skills.Manifest{
			Name:         "remember_fact",
			Description:  "Persist a long-term fact for this agent, retrievable later by similarity.",
			ExecutorType: skills.ExecutorNative,
			Entrypoint:   "builtin",
			ArgStyle:     skills.ArgString,
		},
		Func: func(dc *skills.DispatchContext, args []string) (string, error) {
			if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
				return "", fmt.Errorf("remember_fact: fact text is required")
			}
			if _, err := a.memMgr.Remember(context.Background(), args[0]); err != nil {
				return "", fmt.Errorf("remember_fact: %w", err)
			}
			return "remembered", nil
		},
	}
}

func recallFactsBuiltin(a *Actor) *skills.Builtin {
	return &skills.Builtin{
		Manifest: skills.Manifest{
			Name:         "recall_facts",
			Description:  "Recall this agent's long-term facts most similar to a query.",
			ExecutorType: skills.ExecutorNative,
			Entrypoint:   "builtin",
			ArgStyle:     skills.ArgString,
		},
		Func: func(dc *skills.DispatchContext, args []string) (string, error) {
			if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
				return "", fmt.Errorf("recall_facts: a query is required")
			}
			facts, err := a.memMgr.Recall(context.Background(), args[0])
			if err != nil {
				return "", fmt.Errorf("recall_facts: %w", err)
			}
			if len(facts) == 0 {
				return "no relevant facts found", nil
			}
			var sb strings.Builder
			for _, f := range facts {
				sb.WriteString("- ")
				sb.WriteString(f.Text)
				sb.WriteString("\n")
			}
			return sb.String(), nil
		},
	}
}
