package models

import "encoding/json"

// TurnEventType is the on-wire event kind for a streamed turn (spec.md §6,
// §9 "Streaming events"). The sequence is append-only and terminates with
// EventDone; intermediate events are not persisted, only the final
// messages that produced them are.
type TurnEventType string

const (
	EventThinking    TurnEventType = "thinking"
	EventSkillInvoke TurnEventType = "skill_invoke"
	EventSkillResult TurnEventType = "skill_result"
	EventResponse    TurnEventType = "response"
	EventError       TurnEventType = "error"
	EventDone        TurnEventType = "done"
)

// TurnEvent is one element of the streamed event sequence for a dispatched turn.
type TurnEvent struct {
	Type     TurnEventType   `json:"type"`
	Content  string          `json:"content,omitempty"`
	ToolName string          `json:"tool_name,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
	Error    string          `json:"error,omitempty"`
}
