//go:build !linux && !darwin

package sandbox

import (
	"context"
	"os/exec"
)

// unsupportedOS runs tools with workspace confinement enforced only by
// argument validation, since no OS sandbox primitive is wired for this
// platform. Agents on such hosts should be configured for the WASM
// executor instead.
type unsupportedOS struct{}

// NewOSExecutor returns the platform OS sandbox.
func NewOSExecutor() Executor {
	return &unsupportedOS{}
}

func (u *unsupportedOS) Run(ctx context.Context, req Request) (Result, error) {
	inner := req.Entrypoint
	args := req.Args
	if req.RunCommand != "" {
		args = append([]string{req.Entrypoint}, req.Args...)
		inner = req.RunCommand
	}
	if req.ArgsMode == ArgsModeStdin {
		if req.RunCommand != "" {
			args = []string{req.Entrypoint}
		} else {
			args = nil
		}
	}

	cmd := exec.CommandContext(ctx, inner, args...)
	cmd.Dir = req.WorkspaceDir
	cmd.Env = envSlice(req.Env)

	return runAndCollect(ctx, cmd, req)
}
