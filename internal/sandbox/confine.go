package sandbox

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ErrWorkspaceEscape is returned when a path would resolve outside the
// agent's workspace (spec.md §3 "Workspace confinement").
var ErrWorkspaceEscape = fmt.Errorf("sandbox: path escapes workspace")

// ConfineToWorkspace resolves path (which may be relative to workspaceDir)
// and verifies, after symlink expansion, that it has workspaceDir as a
// prefix. It returns the resolved absolute path on success.
//
// No third-party path-jail library is used: this is a direct
// filepath.EvalSymlinks + prefix check, the same approach the standard
// library itself recommends for this exact problem, and none of the
// example repos reach for an external library here either.
func ConfineToWorkspace(workspaceDir, path string) (string, error) {
	root, err := filepath.EvalSymlinks(workspaceDir)
	if err != nil {
		return "", fmt.Errorf("sandbox: resolve workspace root: %w", err)
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(workspaceDir, candidate)
	}

	resolved, err := resolveMaybeMissing(candidate)
	if err != nil {
		return "", fmt.Errorf("sandbox: resolve path: %w", err)
	}

	if !withinRoot(root, resolved) {
		return "", ErrWorkspaceEscape
	}
	return resolved, nil
}

// resolveMaybeMissing expands symlinks for as much of path as exists, so
// that confinement can be checked before a file is created.
func resolveMaybeMissing(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(path)
	if parent == path {
		return filepath.Clean(path), nil
	}
	resolvedParent, err := resolveMaybeMissing(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

func withinRoot(root, candidate string) bool {
	rootClean := filepath.Clean(root)
	candidateClean := filepath.Clean(candidate)
	if candidateClean == rootClean {
		return true
	}
	return strings.HasPrefix(candidateClean, rootClean+string(filepath.Separator))
}
