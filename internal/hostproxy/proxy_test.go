package hostproxy

import (
	"context"
	"strings"
	"testing"

	"github.com/haasonsaas/nexus/internal/observability"
)

func newTestProxy(t *testing.T) *Proxy {
	t.Helper()
	p, err := New(t.TempDir(), observability.NewLogger(observability.Config{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestExecuteShellRunsUnderRoot(t *testing.T) {
	p := newTestProxy(t)
	resp, err := p.Execute(context.Background(), Request{Kind: KindShell, Command: "pwd"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d (stderr=%s)", resp.ExitCode, resp.Stderr)
	}
	if !strings.Contains(resp.Stdout, p.root) {
		t.Fatalf("expected pwd output to mention root %q, got %q", p.root, resp.Stdout)
	}
}

func TestExecuteRejectsWorkingDirEscape(t *testing.T) {
	p := newTestProxy(t)
	_, err := p.Execute(context.Background(), Request{Kind: KindShell, Command: "pwd", WorkingDir: "../../etc"})
	if err == nil {
		t.Fatalf("expected working-dir escape to be rejected")
	}
}

func TestExecuteCapturesNonZeroExit(t *testing.T) {
	p := newTestProxy(t)
	resp, err := p.Execute(context.Background(), Request{Kind: KindShell, Command: "exit 3"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", resp.ExitCode)
	}
}

func TestExecuteUnknownKindErrors(t *testing.T) {
	p := newTestProxy(t)
	_, err := p.Execute(context.Background(), Request{Kind: "bogus", Command: "true"})
	if err == nil {
		t.Fatalf("expected unknown kind to error")
	}
}
