package agent

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/internal/mcp"
)

func TestFormatToolResultJoinsTextContent(t *testing.T) {
	result := &mcp.ToolCallResult{Content: []mcp.ToolResultContent{
		{Type: "text", Text: "first"},
		{Type: "text", Text: "second"},
	}}
	got := formatToolResult(result)
	if got != "first\nsecond" {
		t.Fatalf("formatToolResult: got %q", got)
	}
}

func TestFormatToolResultFallsBackToJSONForNonText(t *testing.T) {
	result := &mcp.ToolCallResult{Content: []mcp.ToolResultContent{
		{Type: "image", Data: "base64data", MimeType: "image/png"},
	}}
	got := formatToolResult(result)
	if got == "" {
		t.Fatalf("expected a non-empty fallback rendering")
	}
}

func TestFormatToolResultHandlesNil(t *testing.T) {
	if got := formatToolResult(nil); got != "" {
		t.Fatalf("expected empty string for nil result, got %q", got)
	}
}

func TestActorBootWithNoToolServersLeavesCallerUnset(t *testing.T) {
	deps := newTestDeps(t)
	a, err := newActor(testAgentDef("alpha"), deps)
	if err != nil {
		t.Fatalf("newActor: %v", err)
	}
	t.Cleanup(func() { a.store.Close() })

	if err := a.Boot(context.Background()); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if a.toolServers != nil {
		t.Fatalf("expected no tool server manager when none are configured")
	}
	if a.dc.ExternalCaller != nil {
		t.Fatalf("expected no external caller when no tool servers are configured")
	}
}
