package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

// UpsertJob replaces on (agent, name): writing a job with the same name
// twice yields one row with the second write's fields (spec.md §4.5, §8).
func (s *Store) UpsertJob(ctx context.Context, job *models.ScheduledJob) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (agent, name, cron_expr, prompt_template, source_tag, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent, name) DO UPDATE SET
			cron_expr = excluded.cron_expr,
			prompt_template = excluded.prompt_template,
			source_tag = excluded.source_tag,
			updated_at = excluded.updated_at
	`, s.agent, job.Name, job.CronExpr, job.PromptTemplate, job.SourceTag, now, now)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

// DeleteJob removes a scheduled job by name.
func (s *Store) DeleteJob(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE agent = ? AND name = ?`, s.agent, name)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// ListJobs returns every scheduled job for this agent.
func (s *Store) ListJobs(ctx context.Context) ([]*models.ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, cron_expr, prompt_template, source_tag, created_at, updated_at FROM jobs WHERE agent = ?`, s.agent)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*models.ScheduledJob
	for rows.Next() {
		j := &models.ScheduledJob{Agent: s.agent}
		var sourceTag sql.NullString
		if err := rows.Scan(&j.Name, &j.CronExpr, &j.PromptTemplate, &sourceTag, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		j.SourceTag = sourceTag.String
		out = append(out, j)
	}
	return out, rows.Err()
}

// UpsertWebhook replaces on (agent, source).
func (s *Store) UpsertWebhook(ctx context.Context, wh *models.WebhookRegistration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhooks (agent, source, secret, prompt_template, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent, source) DO UPDATE SET
			secret = excluded.secret,
			prompt_template = excluded.prompt_template,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`, s.agent, wh.Source, wh.Secret, wh.PromptTemplate, boolToInt(wh.Enabled), now, now)
	if err != nil {
		return fmt.Errorf("upsert webhook: %w", err)
	}
	return nil
}

// GetWebhook looks up a webhook registration by source slug.
func (s *Store) GetWebhook(ctx context.Context, source string) (*models.WebhookRegistration, error) {
	wh := &models.WebhookRegistration{Agent: s.agent, Source: source}
	var secret sql.NullString
	var enabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT secret, prompt_template, enabled, created_at, updated_at FROM webhooks WHERE agent = ? AND source = ?`,
		s.agent, source).Scan(&secret, &wh.PromptTemplate, &enabled, &wh.CreatedAt, &wh.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook: %w", err)
	}
	wh.Secret = secret.String
	wh.Enabled = enabled != 0
	return wh, nil
}

// SetWebhookEnabled flips a registration's enabled flag.
func (s *Store) SetWebhookEnabled(ctx context.Context, source string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE webhooks SET enabled = ?, updated_at = ? WHERE agent = ? AND source = ?`,
		boolToInt(enabled), time.Now().UTC(), s.agent, source)
	if err != nil {
		return fmt.Errorf("set webhook enabled: %w", err)
	}
	return nil
}

// DeleteWebhook removes a webhook registration.
func (s *Store) DeleteWebhook(ctx context.Context, source string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE agent = ? AND source = ?`, s.agent, source)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// ListWebhooks returns every webhook registration for this agent.
func (s *Store) ListWebhooks(ctx context.Context) ([]*models.WebhookRegistration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, secret, prompt_template, enabled, created_at, updated_at FROM webhooks WHERE agent = ?`, s.agent)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var out []*models.WebhookRegistration
	for rows.Next() {
		wh := &models.WebhookRegistration{Agent: s.agent}
		var secret sql.NullString
		var enabled int
		if err := rows.Scan(&wh.Source, &secret, &wh.PromptTemplate, &enabled, &wh.CreatedAt, &wh.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list webhooks: %w", err)
		}
		wh.Secret = secret.String
		wh.Enabled = enabled != 0
		out = append(out, wh)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
