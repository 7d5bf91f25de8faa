package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/nexus/internal/mcp"
	"github.com/haasonsaas/nexus/internal/skills"
)

// connectToolServers spawns every external tool server persisted for this
// agent, handshakes with it, and registers each tool it exports into the
// catalog under "<server>_<tool>" (spec.md §4.3 step 3). A server that
// fails to connect is logged and skipped; it never fails Boot, since a
// single broken server should not keep the rest of the agent's tools from
// loading.
func (a *Actor) connectToolServers(ctx context.Context) error {
	servers, err := a.store.ListToolServers(ctx)
	if err != nil {
		return fmt.Errorf("list tool servers: %w", err)
	}
	if len(servers) == 0 {
		return nil
	}

	cfg := &mcp.Config{Enabled: true}
	for _, srv := range servers {
		cfg.Servers = append(cfg.Servers, &mcp.ServerConfig{
			ID:        srv.Name,
			Name:      srv.Name,
			Transport: mcp.TransportStdio,
			Command:   srv.Command,
			Args:      srv.Args,
			Env:       srv.Env,
			AutoStart: true,
		})
	}

	mgr := mcp.NewManager(cfg, a.log.Slog())
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start tool servers: %w", err)
	}
	a.toolServers = mgr
	a.dc.ExternalCaller = &mcpCaller{mgr: mgr}

	for server, tools := range mgr.AllTools() {
		for _, tool := range tools {
			a.catalog.RegisterExternalTool(server, skills.Manifest{
				Name:        tool.Name,
				Description: tool.Description,
			})
		}
	}
	return nil
}

// mcpCaller adapts an *mcp.Manager to skills.ExternalToolCaller.
type mcpCaller struct {
	mgr *mcp.Manager
}

func (c *mcpCaller) CallTool(ctx context.Context, server, tool string, args map[string]any) (string, error) {
	result, err := c.mgr.CallTool(ctx, server, tool, args)
	if err != nil {
		return "", err
	}
	return formatToolResult(result), nil
}

// formatToolResult renders an MCP tool result as the plain-text observation
// the brain sees, joining text segments and falling back to a JSON dump for
// anything else (images, embedded resources).
func formatToolResult(result *mcp.ToolCallResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, c := range result.Content {
		if c.Type == "text" && c.Text != "" {
			parts = append(parts, c.Text)
			continue
		}
		if raw, err := json.Marshal(c); err == nil {
			parts = append(parts, string(raw))
		}
	}
	return strings.Join(parts, "\n")
}
