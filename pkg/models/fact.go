package models

import "time"

// LongTermFact is a per-agent memory row with an optional recall embedding.
// Content hash makes writes idempotent (spec.md §4.5 "Writes").
type LongTermFact struct {
	ContentHash string    `json:"content_hash"`
	Agent       string    `json:"agent"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SharedFact is a swarm-wide fact announced by an agent via `[ANNOUNCE]`.
type SharedFact struct {
	ContentHash    string    `json:"content_hash"`
	SourceAgent    string    `json:"source_agent"`
	Text           string    `json:"text"`
	AnnouncedAt    time.Time `json:"announced_at"`
}
