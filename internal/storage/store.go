// Package storage provides the per-agent embedded relational store (spec.md
// §4.5): session messages, long-term facts, scheduled jobs, webhook
// registrations, and external tool server records. It is backed by
// database/sql over github.com/mattn/go-sqlite3, one database file per
// agent under <data-root>/agents/<name>/memory.db.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/haasonsaas/nexus/pkg/models"
)

// DefaultSessionWindow is the trim bound applied when Open is given a
// non-positive window, mirroring the brain's own default fold size.
const DefaultSessionWindow = 40

// Store is the per-agent persistent store. The owning agent actor writes
// session messages and facts; the control plane's job and webhook
// handlers also write to it, and other paths may read concurrently
// (spec.md §4.5 "Concurrency").
type Store struct {
	db            *sql.DB
	agent         string
	sessionWindow int
}

// Open opens (creating if necessary) the sqlite store at path for agent.
// sessionWindow bounds how many trailing messages AppendTurn retains (spec.md
// §3 "trimmed from the head when the session window exceeds a configured
// bound"); a non-positive value falls back to DefaultSessionWindow.
func Open(path, agent string, sessionWindow int) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer sqlite file; avoids SQLITE_BUSY storms
	if sessionWindow <= 0 {
		sessionWindow = DefaultSessionWindow
	}
	s := &Store{db: db, agent: agent, sessionWindow: sessionWindow}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			invocation TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_agent_id ON messages(agent, id)`,
		`CREATE TABLE IF NOT EXISTS facts (
			content_hash TEXT PRIMARY KEY,
			agent TEXT NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			agent TEXT NOT NULL,
			name TEXT NOT NULL,
			cron_expr TEXT NOT NULL,
			prompt_template TEXT NOT NULL,
			source_tag TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (agent, name)
		)`,
		`CREATE TABLE IF NOT EXISTS webhooks (
			agent TEXT NOT NULL,
			source TEXT NOT NULL,
			secret TEXT,
			prompt_template TEXT NOT NULL,
			enabled INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (agent, source)
		)`,
		`CREATE TABLE IF NOT EXISTS tool_servers (
			agent TEXT NOT NULL,
			name TEXT NOT NULL,
			command TEXT NOT NULL,
			args TEXT,
			env TEXT,
			PRIMARY KEY (agent, name)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// AppendMessage inserts a message and assigns it the next dense id for this
// agent. It is meant to run inside the transaction built by AppendTurn.
func appendMessage(ctx context.Context, tx *sql.Tx, agent string, msg *models.Message) error {
	var invocation sql.NullString
	if msg.Invocation != nil {
		b, err := marshalInvocation(msg.Invocation)
		if err != nil {
			return err
		}
		invocation = sql.NullString{String: b, Valid: true}
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (agent, role, content, invocation, created_at) VALUES (?, ?, ?, ?, ?)`,
		agent, string(msg.Role), msg.Content, invocation, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	msg.ID = id
	msg.Agent = agent
	return nil
}

// AppendTurn commits the user message (if any), every tool-result message,
// and the final assistant message as a single transaction (spec.md §4.2
// "Output side-effects"). On any error the whole write rolls back, so a
// session read never observes an orphan tool-result without its preceding
// user turn.
func (s *Store) AppendTurn(ctx context.Context, msgs ...*models.Message) ([]*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, m := range msgs {
		if m == nil {
			continue
		}
		if err := appendMessage(ctx, tx, s.agent, m); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	if err := s.TrimSession(ctx, s.sessionWindow); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MessagesAfter pages session history: "messages after id N, limit L".
// Returned ids are strictly increasing and contiguous with any prior read
// (spec.md §3, §8).
func (s *Store) MessagesAfter(ctx context.Context, afterID int64, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, invocation, created_at FROM messages
		 WHERE agent = ? AND id > ? ORDER BY id ASC LIMIT ?`,
		s.agent, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("messages after: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m := &models.Message{Agent: s.agent}
		var role string
		var invocation sql.NullString
		if err := rows.Scan(&m.ID, &role, &m.Content, &invocation, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("messages after: %w", err)
		}
		m.Role = models.Role(role)
		if invocation.Valid {
			inv, err := unmarshalInvocation(invocation.String)
			if err != nil {
				return nil, err
			}
			m.Invocation = inv
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecentMessages returns the last n messages in ascending id order, used to
// assemble the brain's session window (spec.md §4.2 step 1, §4.5 "Retrieval").
func (s *Store) RecentMessages(ctx context.Context, n int) ([]*models.Message, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, invocation, created_at FROM messages
		 WHERE agent = ? ORDER BY id DESC LIMIT ?`, s.agent, n)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var reversed []*models.Message
	for rows.Next() {
		m := &models.Message{Agent: s.agent}
		var role string
		var invocation sql.NullString
		if err := rows.Scan(&m.ID, &role, &m.Content, &invocation, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("recent messages: %w", err)
		}
		m.Role = models.Role(role)
		if invocation.Valid {
			inv, err := unmarshalInvocation(invocation.String)
			if err != nil {
				return nil, err
			}
			m.Invocation = inv
		}
		reversed = append(reversed, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*models.Message, len(reversed))
	for i, m := range reversed {
		out[len(reversed)-1-i] = m
	}
	return out, nil
}
