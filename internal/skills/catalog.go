package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Builtin is a privileged tool shipped with the binary: its body is Go code,
// not a script or WASM module, so it is represented directly as a Func.
type Builtin struct {
	Manifest Manifest
	Func     func(ctx *DispatchContext, args []string) (string, error)
}

// Catalog is an agent's resolved tool set, built once at boot (spec.md §4.3
// "Registration") and re-scanned when workspace tools change.
type Catalog struct {
	mu      sync.RWMutex
	skills  map[string]*Skill
	funcs   map[string]*Builtin
	workDir string
}

// NewCatalog builds an empty catalog for an agent whose workspace tools
// live under workspaceToolsDir.
func NewCatalog(workspaceToolsDir string) *Catalog {
	return &Catalog{
		skills:  make(map[string]*Skill),
		funcs:   make(map[string]*Builtin),
		workDir: workspaceToolsDir,
	}
}

// RegisterBuiltin loads a privileged built-in. The name must be on
// PrivilegedAllowlist; callers control that set, this only enforces it.
func (c *Catalog) RegisterBuiltin(b *Builtin) error {
	if !IsPrivilegedName(b.Manifest.Name) {
		return fmt.Errorf("catalog: %q is not on the privileged allow-list", b.Manifest.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[b.Manifest.Name] = b
	c.skills[b.Manifest.Name] = &Skill{Manifest: b.Manifest, Tier: PrivilegeBuiltin}
	return nil
}

// ScanWorkspace loads every skill directory under the agent's workspace
// tools directory. A collision with a privileged built-in is refused
// (spec.md §4.3 "A name collision prefers the privileged built-in. An
// agent-added tool cannot override a privileged name.").
func (c *Catalog) ScanWorkspace() error {
	entries, err := os.ReadDir(c.workDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("catalog: scan workspace: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(c.workDir, name)
		manifest, err := loadManifest(dir)
		if err != nil {
			return fmt.Errorf("catalog: %s: %w", name, err)
		}
		if err := manifest.Validate(name); err != nil {
			return err
		}
		c.registerWorkspaceSkill(dir, manifest)
	}
	return nil
}

func (c *Catalog) registerWorkspaceSkill(dir string, manifest Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if IsPrivilegedName(manifest.Name) {
		return // privileged built-in wins, silently
	}
	c.skills[manifest.Name] = &Skill{Manifest: manifest, Tier: PrivilegeUnprivileged, Dir: dir}
}

// RegisterExternalTool registers one tool exported by an external tool
// server, namespaced as "<server>_<tool>" (spec.md §4.3 step 3).
func (c *Catalog) RegisterExternalTool(server string, manifest Manifest) {
	remote := manifest.Name
	name := server + "_" + remote
	c.mu.Lock()
	defer c.mu.Unlock()
	if IsPrivilegedName(name) {
		return
	}
	manifest.Name = name
	manifest.ArgStyle = ArgString
	manifest.ExecutorType = ExecutorExternalProxy
	c.skills[name] = &Skill{Manifest: manifest, Tier: PrivilegeUnprivileged, Server: server, RemoteName: remote}
}

// Remove deletes an agent-added tool. Privileged built-ins cannot be removed
// this way.
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.skills[name]
	if !ok {
		return fmt.Errorf("catalog: %q not found", name)
	}
	if s.Tier == PrivilegeBuiltin {
		return fmt.Errorf("catalog: %q is a privileged built-in and cannot be removed", name)
	}
	delete(c.skills, name)
	return nil
}

// Resolve looks up a tool by name.
func (c *Catalog) Resolve(name string) (*Skill, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.skills[name]
	return s, ok
}

// builtinFunc returns the Go function behind a privileged built-in, if any.
func (c *Catalog) builtinFunc(name string) (*Builtin, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.funcs[name]
	return b, ok
}

// List returns every catalog entry's name and description, the only shape
// the model is shown (spec.md §9 "Dynamic tool surface").
func (c *Catalog) List() []Manifest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Manifest, 0, len(c.skills))
	for _, s := range c.skills {
		out = append(out, s.Manifest)
	}
	return out
}

func loadManifest(dir string) (Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
