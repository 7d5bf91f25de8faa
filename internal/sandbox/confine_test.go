package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfineToWorkspaceAllowsInsidePaths(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	resolved, err := ConfineToWorkspace(root, "sub/file.txt")
	if err != nil {
		t.Fatalf("ConfineToWorkspace: %v", err)
	}
	wantPrefix, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	if !withinRoot(wantPrefix, resolved) {
		t.Fatalf("resolved path %q not under root %q", resolved, wantPrefix)
	}
}

func TestConfineToWorkspaceRejectsEscape(t *testing.T) {
	root := t.TempDir()
	_, err := ConfineToWorkspace(root, "../../etc/passwd")
	if err != ErrWorkspaceEscape {
		t.Fatalf("expected ErrWorkspaceEscape, got %v", err)
	}
}

func TestConfineToWorkspaceRejectsAbsoluteEscape(t *testing.T) {
	root := t.TempDir()
	_, err := ConfineToWorkspace(root, "/etc/passwd")
	if err != ErrWorkspaceEscape {
		t.Fatalf("expected ErrWorkspaceEscape, got %v", err)
	}
}

func TestConfineToWorkspaceAllowsNonexistentFile(t *testing.T) {
	root := t.TempDir()
	resolved, err := ConfineToWorkspace(root, "new_output.txt")
	if err != nil {
		t.Fatalf("ConfineToWorkspace: %v", err)
	}
	if filepath.Dir(resolved) != mustEval(t, root) {
		t.Fatalf("expected parent dir to be workspace root, got %q", resolved)
	}
}

func mustEval(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	return resolved
}
