//go:build linux

package sandbox

import (
	"context"
	"os/exec"
)

// LinuxJail runs unprivileged tools inside a bubblewrap user-namespace
// sandbox, binding only the workspace read-write and a minimal read-only
// system root (spec.md §4.3 step 3 "user-namespace jail on Linux").
type LinuxJail struct {
	BwrapPath string // resolved path to bwrap; "bwrap" if empty
}

// NewOSExecutor returns the platform OS sandbox.
func NewOSExecutor() Executor {
	return &LinuxJail{BwrapPath: "bwrap"}
}

func (j *LinuxJail) Run(ctx context.Context, req Request) (Result, error) {
	bwrap := j.BwrapPath
	if bwrap == "" {
		bwrap = "bwrap"
	}

	args := []string{
		"--ro-bind", "/usr", "/usr",
		"--ro-bind", "/lib", "/lib",
		"--ro-bind-try", "/lib64", "/lib64",
		"--ro-bind", "/bin", "/bin",
		"--bind", req.WorkspaceDir, req.WorkspaceDir,
		"--chdir", req.WorkspaceDir,
		"--die-with-parent",
		"--unshare-pid",
	}
	if !req.NeedsNetwork {
		args = append(args, "--unshare-net")
	}

	inner := []string{req.Entrypoint}
	if req.RunCommand != "" {
		inner = []string{req.RunCommand, req.Entrypoint}
	}
	if req.ArgsMode != ArgsModeStdin {
		inner = append(inner, req.Args...)
	}
	args = append(args, inner...)

	cmd := exec.CommandContext(ctx, bwrap, args...)
	cmd.Dir = req.WorkspaceDir
	cmd.Env = envSlice(req.Env)

	return runAndCollect(ctx, cmd, req)
}
