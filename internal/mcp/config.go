package mcp

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Validate rejects a server config that would hand an untrusted command,
// argument, or path straight to a subprocess. ServerConfig values built from
// a persisted tool-server record (internal/agent/toolservers.go) are never
// assumed safe just because they came out of the agent's own store.
func (c *ServerConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("server ID is required")
	}

	if c.Transport == TransportStdio {
		if err := c.validateStdioConfig(); err != nil {
			return fmt.Errorf("stdio config for %s: %w", c.ID, err)
		}
	}
	if c.Transport == TransportHTTP {
		if err := c.validateHTTPConfig(); err != nil {
			return fmt.Errorf("http config for %s: %w", c.ID, err)
		}
	}
	return nil
}

func (c *ServerConfig) validateStdioConfig() error {
	if c.Command == "" {
		return fmt.Errorf("command is required")
	}
	if err := validatePath(c.Command, "command"); err != nil {
		return err
	}
	if c.WorkDir != "" {
		if err := validatePath(c.WorkDir, "workdir"); err != nil {
			return err
		}
	}
	for i, arg := range c.Args {
		if containsShellMetachars(arg) {
			return fmt.Errorf("arg[%d] contains suspicious shell metacharacters: %q", i, arg)
		}
	}
	return nil
}

func (c *ServerConfig) validateHTTPConfig() error {
	if c.URL == "" {
		return fmt.Errorf("URL is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	return nil
}

// validatePath rejects a path that still contains ".." after cleaning,
// i.e. one that climbs above wherever it's about to be joined.
func validatePath(path, fieldName string) error {
	if path == "" {
		return nil
	}
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return fmt.Errorf("%s contains path traversal: %q", fieldName, path)
	}
	return nil
}

// containsShellMetachars flags the patterns that suggest command chaining
// or substitution rather than a plain argument value. Spaces and quotes are
// allowed since they're common in legitimate args.
func containsShellMetachars(s string) bool {
	dangerous := []string{
		"$(", "${", // command substitution
		"`",        // backtick substitution
		"&&", "||", // command chaining
		";",
		"|",
		">", "<",
		"\n", "\r",
	}
	for _, pattern := range dangerous {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
