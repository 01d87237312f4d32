// Package resolve maps entity mentions to canonical graph entities.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/internal/util"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/logger"
	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/store"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyMention = fmt.Errorf("%w: empty entity mention", ErrInvalidInput)
)

const (
	DefaultSimilarityThreshold = 0.85
	DefaultShortlist           = 10
)

// CacheStats describes the session cache.
type CacheStats struct {
	CachedMentions int `json:"cached_mentions"`
	UniqueEntities int `json:"unique_entities"`
}

// Resolver resolves mentions in order: session cache, exact name or alias,
// embedding similarity, and finally a new entity. It is safe for concurrent
// use but resolution of the same new mention from two goroutines may race
// into the store's upsert, which merges them.
type Resolver struct {
	store      store.GraphStore
	embedder   ai.Embedder
	embeddings *EmbeddingCache
	threshold  float64
	shortlist  int

	mu      sync.Mutex
	session map[string]string
}

type Option func(*Resolver)

// WithThreshold sets the similarity a candidate must exceed.
func WithThreshold(t float64) Option {
	return func(r *Resolver) {
		if t > 0 {
			r.threshold = t
		}
	}
}

// WithShortlist sets how many nearest entities are compared when the store
// can rank embeddings. Zero compares every embedded entity.
func WithShortlist(k int) Option {
	return func(r *Resolver) {
		if k >= 0 {
			r.shortlist = k
		}
	}
}

// WithEmbeddingCache shares an embedding cache between resolvers.
func WithEmbeddingCache(c *EmbeddingCache) Option {
	return func(r *Resolver) {
		if c != nil {
			r.embeddings = c
		}
	}
}

// NewResolver creates a resolver. A nil embedder disables the similarity
// step and new entities are stored without an embedding.
func NewResolver(s store.GraphStore, embedder ai.Embedder, opts ...Option) *Resolver {
	r := &Resolver{
		store:     s,
		embedder:  embedder,
		threshold: DefaultSimilarityThreshold,
		shortlist: DefaultShortlist,
		session:   make(map[string]string),
	}
	for _, o := range opts {
		o(r)
	}
	if r.embeddings == nil {
		r.embeddings = NewEmbeddingCache(DefaultEmbeddingTTL, DefaultEmbeddingMaxEntries)
	}
	return r
}

func (r *Resolver) cached(mention string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.session[mention]
	return name, ok
}

func (r *Resolver) remember(mention, name string) string {
	r.mu.Lock()
	r.session[mention] = name
	r.mu.Unlock()
	return name
}

// ResolveEntity returns the canonical name for mention, creating the
// entity when nothing matches. documentID is recorded on the entity.
func (r *Resolver) ResolveEntity(ctx context.Context, mention, documentID string) (string, error) {
	mention = util.CollapseWhitespace(util.SanitizePostgresText(mention))
	if mention == "" {
		return "", ErrEmptyMention
	}
	if name, ok := r.cached(mention); ok {
		return name, nil
	}

	existing, err := r.store.FindEntityByNameOrAlias(ctx, mention)
	switch {
	case err == nil:
		if !slices.Contains(existing.DocumentIDs, documentID) {
			if err := r.store.AddEntityAlias(ctx, existing.CanonicalName, mention, documentID); err != nil {
				return "", fmt.Errorf("record document on %s: %w", existing.CanonicalName, err)
			}
		}
		return r.remember(mention, existing.CanonicalName), nil
	case !errors.Is(err, store.ErrEntityNotFound):
		return "", fmt.Errorf("lookup entity %q: %w", mention, err)
	}

	var embedding []float32
	if r.embedder != nil {
		embedding, err = r.embeddings.Embed(ctx, r.embedder, mention)
		if err != nil {
			return "", fmt.Errorf("embed mention %q: %w", mention, err)
		}

		best, sim, err := r.mostSimilar(ctx, embedding)
		if err != nil {
			return "", err
		}
		if best != "" {
			logger.Debug("[Resolve] Matched by similarity", "mention", mention, "entity", best, "similarity", sim)
			if err := r.store.AddEntityAlias(ctx, best, mention, documentID); err != nil {
				return "", fmt.Errorf("add alias %q to %s: %w", mention, best, err)
			}
			return r.remember(mention, best), nil
		}
	}

	err = r.store.UpsertEntity(ctx, store.Entity{
		CanonicalName: mention,
		Aliases:       []string{mention},
		DocumentIDs:   []string{documentID},
		Embedding:     embedding,
	})
	if err != nil {
		return "", fmt.Errorf("create entity %q: %w", mention, err)
	}
	logger.Debug("[Resolve] Created entity", "name", mention, "document_id", documentID)
	return r.remember(mention, mention), nil
}

// mostSimilar returns the entity whose embedding is most similar to vec
// when that similarity exceeds the threshold. Exact ties go to the
// lexicographically smallest name.
func (r *Resolver) mostSimilar(ctx context.Context, vec []float32) (string, float64, error) {
	candidates, err := r.candidates(ctx, vec)
	if err != nil {
		return "", 0, fmt.Errorf("load entity embeddings: %w", err)
	}
	var (
		best    string
		bestSim float64
	)
	for _, c := range candidates {
		sim := CosineSimilarity(vec, c.Embedding)
		if sim <= r.threshold {
			continue
		}
		if best == "" || sim > bestSim || (sim == bestSim && c.CanonicalName < best) {
			best, bestSim = c.CanonicalName, sim
		}
	}
	return best, bestSim, nil
}

// candidates returns the entities to compare against vec. Stores that rank
// embeddings themselves return a shortlist; the rest return everything.
func (r *Resolver) candidates(ctx context.Context, vec []float32) ([]store.Entity, error) {
	if f, ok := r.store.(store.NearestEntityFinder); ok && r.shortlist > 0 {
		return f.NearestEntities(ctx, vec, r.shortlist)
	}
	return r.store.GetEntitiesWithEmbeddings(ctx)
}

// ClearCache forgets the session's resolved mentions. The embedding cache
// is kept.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = make(map[string]string)
}

func (r *Resolver) CacheStats() CacheStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	unique := make(map[string]struct{}, len(r.session))
	for _, name := range r.session {
		unique[name] = struct{}{}
	}
	return CacheStats{CachedMentions: len(r.session), UniqueEntities: len(unique)}
}
