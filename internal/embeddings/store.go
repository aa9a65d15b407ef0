// ABOUTME: Builds the session's dashboard embeddings from host metadata.
// ABOUTME: Fetches every dashboard, renders its text, and embeds it with bounded fan-out.
package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/2389-research/dashmatch/internal/logging"
	"github.com/2389-research/dashmatch/internal/models"
)

const defaultWorkers = 4

// DashboardSource is the subset of the host client the store reads from.
type DashboardSource interface {
	ListDashboards(ctx context.Context) ([]models.Dashboard, error)
	Dashboard(ctx context.Context, id string) (*models.Dashboard, error)
}

// Store loads DashboardEmbedding values for every dashboard on the host.
type Store struct {
	source   DashboardSource
	embedder Embedder
	workers  int
	logger   *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithWorkers bounds how many dashboards are fetched and embedded at once.
func WithWorkers(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logging.OrDiscard(l)
	}
}

// NewStore creates a Store.
func NewStore(source DashboardSource, embedder Embedder, opts ...StoreOption) *Store {
	s := &Store{
		source:   source,
		embedder: embedder,
		workers:  defaultWorkers,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns one embedding per dashboard, in host order. Any failure
// fails the whole load.
func (s *Store) Load(ctx context.Context) ([]models.DashboardEmbedding, error) {
	summaries, err := s.source.ListDashboards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	s.logger.Info("loading dashboard embeddings", "dashboards", len(summaries), "workers", s.workers)

	out := make([]models.DashboardEmbedding, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, summary := range summaries {
		g.Go(func() error {
			emb, err := s.embedDashboard(gctx, summary.ID)
			if err != nil {
				return err
			}
			out[i] = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("dashboard embeddings loaded", "count", len(out))
	return out, nil
}

func (s *Store) embedDashboard(ctx context.Context, id string) (models.DashboardEmbedding, error) {
	d, err := s.source.Dashboard(ctx, id)
	if err != nil {
		return models.DashboardEmbedding{}, fmt.Errorf("failed to fetch dashboard %s: %w", id, err)
	}

	text := BuildEmbeddingText(*d)
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return models.DashboardEmbedding{}, fmt.Errorf("failed to embed dashboard %s: %w", id, err)
	}
	s.logger.Debug("embedded dashboard", "id", id, "dimension", len(vec))
	return models.NewDashboardEmbedding(*d, text, vec), nil
}

// BuildEmbeddingText renders the metadata that represents a dashboard: the
// title, the description, then each tile's title, subtitle and note. Empty
// parts are skipped.
func BuildEmbeddingText(d models.Dashboard) string {
	var lines []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}

	add(d.DisplayTitle())
	add(d.Description)
	for _, t := range d.Tiles {
		add(t.Title)
		add(t.Subtitle)
		add(t.Note)
	}
	return strings.Join(lines, "\n")
}
