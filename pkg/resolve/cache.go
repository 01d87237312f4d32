package resolve

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"slices"
	"time"

	"github.com/Vedsaga/nvidia-aws-agentic-ai-sub000/pkg/ai"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultEmbeddingTTL        = time.Hour
	DefaultEmbeddingMaxEntries = 10000
)

// EmbeddingCache memoizes embeddings by the md5 of their input text.
// Entries expire after the TTL; once MaxEntries live entries exist new
// vectors are returned uncached until expiry frees room.
type EmbeddingCache struct {
	cache      *gocache.Cache
	maxEntries int
}

func NewEmbeddingCache(ttl time.Duration, maxEntries int) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultEmbeddingMaxEntries
	}
	return &EmbeddingCache{
		cache:      gocache.New(ttl, ttl/6),
		maxEntries: maxEntries,
	}
}

func cacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	v, ok := c.cache.Get(cacheKey(text))
	if !ok {
		return nil, false
	}
	return slices.Clone(v.([]float32)), true
}

func (c *EmbeddingCache) Set(text string, vec []float32) {
	if c.cache.ItemCount() >= c.maxEntries {
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxEntries {
			return
		}
	}
	c.cache.SetDefault(cacheKey(text), slices.Clone(vec))
}

func (c *EmbeddingCache) Len() int {
	return c.cache.ItemCount()
}

func (c *EmbeddingCache) Flush() {
	c.cache.Flush()
}

// Embed returns the cached vector for text or asks embedder for it.
func (c *EmbeddingCache) Embed(ctx context.Context, embedder ai.Embedder, text string) ([]float32, error) {
	if v, ok := c.Get(text); ok {
		return v, nil
	}
	v, err := embedder.GenerateEmbedding(ctx, []byte(text))
	if err != nil {
		return nil, err
	}
	c.Set(text, v)
	return v, nil
}
