package storage

import (
	"context"
	"fmt"
)

// TrimSession deletes the oldest messages once the session exceeds window,
// keeping only the most recent window messages (spec.md §3 "trimmed from
// the head when the session window exceeds a configured bound").
func (s *Store) TrimSession(ctx context.Context, window int) error {
	if window <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE agent = ? AND id NOT IN (
			SELECT id FROM messages WHERE agent = ? ORDER BY id DESC LIMIT ?
		)`, s.agent, s.agent, window)
	if err != nil {
		return fmt.Errorf("trim session: %w", err)
	}
	return nil
}
