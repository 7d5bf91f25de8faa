package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/nexus/pkg/models"
)

// UpsertToolServer persists an external tool server record, keyed by
// (agent, name) (spec.md §3, §4.3).
func (s *Store) UpsertToolServer(ctx context.Context, srv *models.ExternalToolServer) error {
	args, err := json.Marshal(srv.Args)
	if err != nil {
		return fmt.Errorf("upsert tool server: %w", err)
	}
	env, err := json.Marshal(srv.Env)
	if err != nil {
		return fmt.Errorf("upsert tool server: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tool_servers (agent, name, command, args, env)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(agent, name) DO UPDATE SET
			command = excluded.command, args = excluded.args, env = excluded.env
	`, s.agent, srv.Name, srv.Command, string(args), string(env))
	if err != nil {
		return fmt.Errorf("upsert tool server: %w", err)
	}
	return nil
}

// DeleteToolServer removes a persisted external tool server record.
func (s *Store) DeleteToolServer(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tool_servers WHERE agent = ? AND name = ?`, s.agent, name)
	if err != nil {
		return fmt.Errorf("delete tool server: %w", err)
	}
	return nil
}

// ListToolServers returns every persisted external tool server for this agent.
func (s *Store) ListToolServers(ctx context.Context) ([]*models.ExternalToolServer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, command, args, env FROM tool_servers WHERE agent = ?`, s.agent)
	if err != nil {
		return nil, fmt.Errorf("list tool servers: %w", err)
	}
	defer rows.Close()

	var out []*models.ExternalToolServer
	for rows.Next() {
		srv := &models.ExternalToolServer{Agent: s.agent}
		var args, env string
		if err := rows.Scan(&srv.Name, &srv.Command, &args, &env); err != nil {
			return nil, fmt.Errorf("list tool servers: %w", err)
		}
		if err := json.Unmarshal([]byte(args), &srv.Args); err != nil {
			return nil, fmt.Errorf("list tool servers: %w", err)
		}
		if err := json.Unmarshal([]byte(env), &srv.Env); err != nil {
			return nil, fmt.Errorf("list tool servers: %w", err)
		}
		out = append(out, srv)
	}
	return out, rows.Err()
}
