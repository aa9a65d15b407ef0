// ABOUTME: Embedder interface and a cache-backed decorator for dashboard matching.
// ABOUTME: The cache is consulted before the remote embed call and filled after it.
package embeddings

import (
	"context"
	"log/slog"

	"github.com/2389-research/dashmatch/internal/logging"
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model names the embedding model. Vectors from different models are
	// not comparable.
	Model() string
}

// VectorCache stores embed results keyed by model and text.
type VectorCache interface {
	Get(model, text string) ([]float32, bool, error)
	Put(model, text string, vector []float32) error
}

// CachedEmbedder wraps an Embedder with a look-aside VectorCache. Cache
// failures are logged and never fail an embed.
type CachedEmbedder struct {
	inner  Embedder
	cache  VectorCache
	logger *slog.Logger
}

// NewCachedEmbedder returns inner unchanged when cache is nil.
func NewCachedEmbedder(inner Embedder, cache VectorCache, logger *slog.Logger) Embedder {
	if cache == nil {
		return inner
	}
	return &CachedEmbedder{inner: inner, cache: cache, logger: logging.OrDiscard(logger)}
}

// Model returns the wrapped embedder's model.
func (c *CachedEmbedder) Model() string {
	return c.inner.Model()
}

// Embed returns the cached vector for text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := c.inner.Model()

	vec, ok, err := c.cache.Get(model, text)
	if err != nil {
		c.logger.Warn("embedding cache read failed", "error", err)
	} else if ok {
		c.logger.Debug("embedding cache hit", "model", model)
		return vec, nil
	}

	vec, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(model, text, vec); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}
