// ABOUTME: Ranks dashboards against a free-text query using vector embeddings.
// ABOUTME: Cosine similarity, stable descending sort, and top-K truncation.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/2389-research/dashmatch/internal/models"
)

var (
	// ErrNegativeTop is returned when a match is requested with top < 0.
	ErrNegativeTop = errors.New("top must be zero or greater")

	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("query is empty")
)

// CosineSimilarity computes the cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
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

// Matcher turns queries into ranked dashboard matches.
type Matcher struct {
	embedder Embedder
}

// NewMatcher creates a Matcher that embeds queries with embedder.
func NewMatcher(embedder Embedder) *Matcher {
	return &Matcher{embedder: embedder}
}

// Match embeds query and returns the top dashboards by similarity. Empty
// embeddings or top == 0 give an empty result without calling the embedder.
// Otherwise a blank query fails with ErrEmptyQuery, top < 0 with
// ErrNegativeTop, and a failed query embed with the embedder's error.
func (m *Matcher) Match(ctx context.Context, query string, embs []models.DashboardEmbedding, top int) ([]models.QueryMatch, error) {
	if len(embs) == 0 {
		return []models.QueryMatch{}, nil
	}
	if top < 0 {
		return nil, ErrNegativeTop
	}
	if top == 0 {
		return []models.QueryMatch{}, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return Rank(queryVec, embs, top), nil
}

// Rank scores every embedding against queryVec and returns at most top
// matches, highest score first. Equal scores keep their input order.
func Rank(queryVec []float32, embs []models.DashboardEmbedding, top int) []models.QueryMatch {
	if top <= 0 || len(embs) == 0 {
		return []models.QueryMatch{}
	}

	results := make([]models.QueryMatch, len(embs))
	for i, e := range embs {
		results[i] = models.QueryMatch{
			DashboardID: e.DashboardID,
			Title:       e.Title,
			Score:       CosineSimilarity(queryVec, e.Vector),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if top > len(results) {
		top = len(results)
	}
	results = results[:top:top]
	for i := range results {
		results[i].Rank = i
	}
	return results
}
