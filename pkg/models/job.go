package models

import "time"

// ScheduledJob is a cron-triggered synthetic turn, keyed by (agent, name).
// CronExpr is the 6-field "sec min hour day month dow" form spec.md §6 requires.
type ScheduledJob struct {
	Agent          string    `json:"agent"`
	Name           string    `json:"name"`
	CronExpr       string    `json:"cron_expr"`
	PromptTemplate string    `json:"prompt_template"`
	SourceTag      string    `json:"source_tag,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WebhookRegistration is keyed by (agent, source slug).
type WebhookRegistration struct {
	Agent          string    `json:"agent"`
	Source         string    `json:"source"`
	Secret         string    `json:"secret,omitempty"`
	PromptTemplate string    `json:"prompt_template"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ExternalToolServer is a persisted stdio-connected child process record,
// keyed by (agent, name). Its exported tools are merged into the skill
// catalog under the `<name>_<tool>` prefix (spec.md §4.3).
type ExternalToolServer struct {
	Agent   string   `json:"agent"`
	Name    string   `json:"name"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}
