package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/nexus/pkg/models"
)

// ContentHash returns the content-addressed id for a long-term/shared fact.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// WriteFact idempotently persists a long-term fact: a second write with
// identical text is a no-op against the same row (spec.md §4.5, §8).
func (s *Store) WriteFact(ctx context.Context, text string, embedding []float32) (*models.LongTermFact, error) {
	hash := ContentHash(text)
	blob, err := encodeEmbedding(embedding)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO facts (content_hash, agent, text, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash) DO NOTHING`,
		hash, s.agent, text, blob, now)
	if err != nil {
		return nil, fmt.Errorf("write fact: %w", err)
	}
	return &models.LongTermFact{ContentHash: hash, Agent: s.agent, Text: text, Embedding: embedding, CreatedAt: now}, nil
}

// AllFacts returns every long-term fact for this agent, used by the vector
// recall layer to rank by cosine similarity (spec.md §4.5 "Retrieval").
func (s *Store) AllFacts(ctx context.Context) ([]*models.LongTermFact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_hash, text, embedding, created_at FROM facts WHERE agent = ?`, s.agent)
	if err != nil {
		return nil, fmt.Errorf("all facts: %w", err)
	}
	defer rows.Close()

	var out []*models.LongTermFact
	for rows.Next() {
		f := &models.LongTermFact{Agent: s.agent}
		var blob []byte
		if err := rows.Scan(&f.ContentHash, &f.Text, &blob, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("all facts: %w", err)
		}
		f.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func encodeEmbedding(v []float32) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal(blob, &v); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return v, nil
}
