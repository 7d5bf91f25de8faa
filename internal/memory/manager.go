// Package memory ranks an agent's long-term facts by cosine similarity to a
// query embedding, and folds in the swarm's recent shared facts (spec.md
// §4.5 "Retrieval").
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/haasonsaas/nexus/internal/memory/embeddings"
	"github.com/haasonsaas/nexus/internal/storage"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Config bounds a recall call.
type Config struct {
	TopK             int     `yaml:"top_k"`
	SimilarityThresh float64 `yaml:"similarity_threshold"`
	AnnouncementN    int     `yaml:"announcement_recent_n"`
}

// Manager performs vector recall against one agent's long-term facts plus
// the process-wide swarm announcements.
type Manager struct {
	store    *storage.Store
	swarm    *storage.SwarmStore
	embedder embeddings.Provider
	cfg      Config
}

// New builds a recall manager for a single agent's store.
func New(store *storage.Store, swarm *storage.SwarmStore, embedder embeddings.Provider, cfg Config) *Manager {
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}
	if cfg.SimilarityThresh == 0 {
		cfg.SimilarityThresh = 0.75
	}
	if cfg.AnnouncementN == 0 {
		cfg.AnnouncementN = 10
	}
	return &Manager{store: store, swarm: swarm, embedder: embedder, cfg: cfg}
}

// Remember embeds and idempotently persists a long-term fact.
func (m *Manager) Remember(ctx context.Context, text string) (*models.LongTermFact, error) {
	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("memory: embed: %w", err)
	}
	return m.store.WriteFact(ctx, text, embedding)
}

// scored pairs a fact with its similarity to the current query.
type scored struct {
	fact  *models.LongTermFact
	score float64
}

// Recall returns the top-k long-term facts above the similarity threshold,
// most-similar first (spec.md §4.5 "Retrieval" steps 1-3).
func (m *Manager) Recall(ctx context.Context, query string) ([]*models.LongTermFact, error) {
	queryEmbedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embed query: %w", err)
	}

	facts, err := m.store.AllFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: recall: %w", err)
	}

	ranked := make([]scored, 0, len(facts))
	for _, f := range facts {
		sim := cosineSimilarity(queryEmbedding, f.Embedding)
		if sim < m.cfg.SimilarityThresh {
			continue
		}
		ranked = append(ranked, scored{fact: f, score: sim})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > m.cfg.TopK {
		ranked = ranked[:m.cfg.TopK]
	}
	out := make([]*models.LongTermFact, len(ranked))
	for i, r := range ranked {
		out[i] = r.fact
	}
	return out, nil
}

// RecentAnnouncements returns the swarm's most recent shared facts,
// independent of similarity: recency alone gates visibility here (spec.md
// §4.5 "Retrieval" step 4).
func (m *Manager) RecentAnnouncements(ctx context.Context) ([]*models.SharedFact, error) {
	if m.swarm == nil {
		return nil, nil
	}
	return m.swarm.Recent(ctx, m.cfg.AnnouncementN)
}

// Announce shares a fact with the rest of the swarm.
func (m *Manager) Announce(ctx context.Context, sourceAgent, text string) (*models.SharedFact, error) {
	if m.swarm == nil {
		return nil, fmt.Errorf("memory: no swarm store configured")
	}
	return m.swarm.Announce(ctx, sourceAgent, text)
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 for
// mismatched or empty vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
