package models

import (
	"encoding/json"
	"time"
)

// Role identifies the author of a session message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// TriggerSource identifies what caused a turn (spec.md §4.2 "Input").
type TriggerSource string

const (
	TriggerChat       TriggerSource = "chat"
	TriggerScheduler  TriggerSource = "scheduler"
	TriggerWebhook    TriggerSource = "webhook"
	TriggerDelegation TriggerSource = "delegation"
)

// InvocationMeta captures the invoke that produced a tool message, so a
// session read can show which tool produced which observation.
type InvocationMeta struct {
	ToolName string          `json:"tool_name"`
	Args     json.RawMessage `json:"args,omitempty"`
	IsError  bool            `json:"is_error,omitempty"`
}

// Message is one row of an agent's append-only session log.
//
// IDs are dense and strictly increasing within an agent (spec.md §3, §8):
// a consumer paging by "messages after id N" observes every message
// exactly once and never sees a gap appear later.
type Message struct {
	ID         int64           `json:"id"`
	Agent      string          `json:"agent"`
	Role       Role            `json:"role"`
	Content    string          `json:"content"`
	Invocation *InvocationMeta `json:"invocation,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Trigger is one inbound request to run a turn.
type Trigger struct {
	Agent          string
	Source         TriggerSource
	Prompt         string
	Payload        json.RawMessage
	DelegationDepth int
}
