// Package hostproxy is the single process-global endpoint that performs
// truly privileged host operations on behalf of privileged built-in tools
// (spec.md §4.3 "Host proxy").
package hostproxy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/haasonsaas/nexus/internal/observability"
)

// Kind is the privileged operation requested.
type Kind string

const (
	KindShell       Kind = "shell"
	KindInterpreter Kind = "interpreter"
	KindOSAutomation Kind = "os_automation"
)

// Request is one privileged-execution call, always made by a built-in tool
// through the internal control plane, never directly by an agent-added
// tool (spec.md §4.3 "tools POST to an internal HTTP endpoint").
type Request struct {
	Kind       Kind
	Command    string
	Args       []string
	WorkingDir string
	Timeout    time.Duration

	// Env is additional process environment layered over the host's own
	// (spec.md §4.3 step 2 "full decrypted vault"), used only by builtins
	// whose manifest sets needs_env.
	Env map[string]string
}

// Response is the command's observable result.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Proxy is the only path from an unprivileged-but-authorized builtin to
// true host capability. Exactly one Proxy exists per process.
type Proxy struct {
	root string // the moxxy data root; working directories must resolve under it
	log  *observability.Logger
}

// New builds a host proxy rooted at dataRoot.
func New(dataRoot string, log *observability.Logger) (*Proxy, error) {
	abs, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("hostproxy: resolve data root: %w", err)
	}
	return &Proxy{root: abs, log: log.Component("hostproxy")}, nil
}

// Execute runs a privileged request under the host's real identity, after
// validating that req.WorkingDir resolves under the moxxy root (spec.md
// §4.3 "validates that any working-directory parameter resolves under the
// moxxy root").
func (p *Proxy) Execute(ctx context.Context, req Request) (Response, error) {
	workdir, err := p.resolveWorkingDir(req.WorkingDir)
	if err != nil {
		p.log.Warn("rejected privileged execution outside moxxy root", "working_dir", req.WorkingDir, "err", err)
		return Response{}, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	switch req.Kind {
	case KindShell:
		script := strings.Join(append([]string{req.Command}, req.Args...), " ")
		cmd = exec.CommandContext(runCtx, "/bin/sh", "-c", script)
	case KindInterpreter, KindOSAutomation:
		cmd = exec.CommandContext(runCtx, req.Command, req.Args...)
	default:
		return Response{}, fmt.Errorf("hostproxy: unknown operation kind %q", req.Kind)
	}
	cmd.Dir = workdir
	if len(req.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range req.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	resp := Response{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		resp.ExitCode = exitErr.ExitCode()
		return resp, nil
	}
	if runErr != nil {
		return resp, fmt.Errorf("hostproxy: exec: %w", runErr)
	}
	return resp, nil
}

func (p *Proxy) resolveWorkingDir(dir string) (string, error) {
	if dir == "" {
		return p.root, nil
	}
	candidate := dir
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(p.root, candidate)
	}
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		resolved = filepath.Clean(candidate)
	}
	if resolved != p.root && !strings.HasPrefix(resolved, p.root+string(filepath.Separator)) {
		return "", fmt.Errorf("hostproxy: working directory %q does not resolve under the moxxy root", dir)
	}
	return resolved, nil
}
