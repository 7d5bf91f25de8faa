package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/haasonsaas/nexus/pkg/models"
)

// SwarmStore is the process-global shared fact store (spec.md §3, §4.5).
// Writes are serialized across agents with a single mutex; reads are
// unlocked snapshots, matching spec.md §4.5 "Concurrency" and the Open
// Question about per-shard locking: a single mutex is kept here since
// content-hash idempotence already bounds write contention to one row
// insert per unique announcement.
type SwarmStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSwarmStore opens the process-wide swarm.<store> database.
func OpenSwarmStore(path string) (*SwarmStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open swarm store: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &SwarmStore{db: db}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS shared_facts (
		content_hash TEXT PRIMARY KEY,
		source_agent TEXT NOT NULL,
		text TEXT NOT NULL,
		announced_at DATETIME NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("open swarm store: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SwarmStore) Close() error { return s.db.Close() }

// Announce writes a shared fact idempotently on content hash. Visibility is
// monotonic: once visible to any reader it remains visible (spec.md §5).
func (s *SwarmStore) Announce(ctx context.Context, sourceAgent, text string) (*models.SharedFact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := ContentHash(text)
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shared_facts (content_hash, source_agent, text, announced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING
	`, hash, sourceAgent, text, now)
	if err != nil {
		return nil, fmt.Errorf("announce: %w", err)
	}
	return &models.SharedFact{ContentHash: hash, SourceAgent: sourceAgent, Text: text, AnnouncedAt: now}, nil
}

// Recent returns the m most recently announced swarm facts (spec.md §4.5
// "Retrieval" step 4).
func (s *SwarmStore) Recent(ctx context.Context, m int) ([]*models.SharedFact, error) {
	if m <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_hash, source_agent, text, announced_at FROM shared_facts
		 ORDER BY announced_at DESC LIMIT ?`, m)
	if err != nil {
		return nil, fmt.Errorf("recent shared facts: %w", err)
	}
	defer rows.Close()

	var out []*models.SharedFact
	for rows.Next() {
		f := &models.SharedFact{}
		if err := rows.Scan(&f.ContentHash, &f.SourceAgent, &f.Text, &f.AnnouncedAt); err != nil {
			return nil, fmt.Errorf("recent shared facts: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
