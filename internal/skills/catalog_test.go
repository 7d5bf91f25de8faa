package skills

import (
	"os"
	"path/filepath"
	"testing"
)

func writeWorkspaceTool(t *testing.T, root, name, manifestYAML string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifestYAML), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestCatalogWorkspaceToolCannotOverridePrivileged(t *testing.T) {
	root := t.TempDir()
	writeWorkspaceTool(t, root, "workspace_shell", "name: workspace_shell\nexecutor_type: native\nentrypoint: run.sh\n")

	c := NewCatalog(root)
	if err := c.RegisterBuiltin(&Builtin{
		Manifest: Manifest{Name: "workspace_shell", ExecutorType: ExecutorNative, Entrypoint: "builtin"},
		Func:     func(*DispatchContext, []string) (string, error) { return "builtin ran", nil },
	}); err != nil {
		t.Fatalf("register builtin: %v", err)
	}

	if err := c.ScanWorkspace(); err != nil {
		t.Fatalf("scan workspace: %v", err)
	}

	s, ok := c.Resolve("workspace_shell")
	if !ok {
		t.Fatalf("expected workspace_shell to resolve")
	}
	if s.Tier != PrivilegeBuiltin {
		t.Fatalf("expected privileged tier to win, got %v", s.Tier)
	}
}

func TestCatalogRemoveRejectsPrivileged(t *testing.T) {
	c := NewCatalog(t.TempDir())
	if err := c.RegisterBuiltin(&Builtin{
		Manifest: Manifest{Name: "remember_fact", ExecutorType: ExecutorNative, Entrypoint: "builtin"},
		Func:     func(*DispatchContext, []string) (string, error) { return "", nil },
	}); err != nil {
		t.Fatalf("register builtin: %v", err)
	}
	if err := c.Remove("remember_fact"); err == nil {
		t.Fatalf("expected removing a privileged built-in to fail")
	}
}

func TestCatalogExternalToolNamespacing(t *testing.T) {
	c := NewCatalog(t.TempDir())
	c.RegisterExternalTool("github", Manifest{Name: "list_issues", Description: "list issues"})

	s, ok := c.Resolve("github_list_issues")
	if !ok {
		t.Fatalf("expected namespaced tool to resolve")
	}
	if s.Server != "github" {
		t.Fatalf("expected server=github, got %q", s.Server)
	}
}
