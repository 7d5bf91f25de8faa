//go:build darwin

package sandbox

import (
	"context"
	"fmt"
	"os/exec"
)

// DarwinSeatbelt runs unprivileged tools under the macOS kernel sandbox
// (sandbox-exec), with a profile granting read-write only to the
// workspace and read-only to the rest of the filesystem (spec.md §4.3
// step 3 "kernel sandbox on macOS").
type DarwinSeatbelt struct{}

// NewOSExecutor returns the platform OS sandbox.
func NewOSExecutor() Executor {
	return &DarwinSeatbelt{}
}

func (d *DarwinSeatbelt) Run(ctx context.Context, req Request) (Result, error) {
	profile := seatbeltProfile(req.WorkspaceDir, req.NeedsNetwork)

	inner := req.Entrypoint
	innerArgs := req.Args
	if req.RunCommand != "" {
		innerArgs = append([]string{req.Entrypoint}, req.Args...)
		inner = req.RunCommand
	}
	if req.ArgsMode == ArgsModeStdin {
		innerArgs = nil
		if req.RunCommand != "" {
			innerArgs = []string{req.Entrypoint}
		}
	}

	args := append([]string{"-p", profile, inner}, innerArgs...)
	cmd := exec.CommandContext(ctx, "sandbox-exec", args...)
	cmd.Dir = req.WorkspaceDir
	cmd.Env = envSlice(req.Env)

	return runAndCollect(ctx, cmd, req)
}

func seatbeltProfile(workspace string, network bool) string {
	netRule := "(deny network*)"
	if network {
		netRule = "(allow network*)"
	}
	return fmt.Sprintf(`(version 1)
(deny default)
(allow process-fork process-exec)
(allow file-read*)
(allow file-write* (subpath %q))
%s
`, workspace, netRule)
}
