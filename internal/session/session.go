// ABOUTME: Runs the remote load and match calls and turns their results into state events.
// ABOUTME: Shared by the TUI commands, the one-shot CLI commands, and the MCP server.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389-research/dashmatch/internal/logging"
	"github.com/2389-research/dashmatch/internal/models"
	"github.com/2389-research/dashmatch/internal/remote"
	"github.com/2389-research/dashmatch/internal/state"
)

const defaultTop = 3

// ErrSuperseded is returned by Submit when a newer match request or an
// embeddings reload replaced the request before its result was applied.
var ErrSuperseded = errors.New("match request superseded")

// Loader produces the session's dashboard embeddings.
type Loader interface {
	Load(ctx context.Context) ([]models.DashboardEmbedding, error)
}

// Matcher ranks embeddings against a query.
type Matcher interface {
	Match(ctx context.Context, query string, embs []models.DashboardEmbedding, top int) ([]models.QueryMatch, error)
}

// Session connects a Loader and Matcher to the state machine.
type Session struct {
	loader  Loader
	matcher Matcher
	top     int
	logger  *slog.Logger

	loadMu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithTop sets how many matches a query returns.
func WithTop(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.top = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logging.OrDiscard(l)
	}
}

// New creates a Session.
func New(loader Loader, matcher Matcher, opts ...Option) *Session {
	s := &Session{
		loader:  loader,
		matcher: matcher,
		top:     defaultTop,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Top returns the configured match count.
func (s *Session) Top() int {
	return s.top
}

// LoadEmbeddings runs the loader and returns EmbeddingsReady or EmbeddingsFail.
func (s *Session) LoadEmbeddings(ctx context.Context) state.Event {
	embs, err := s.loader.Load(ctx)
	if err != nil {
		s.logger.Error("embedding load failed", "remote", remote.IsServiceError(err), "error", err)
		return state.EmbeddingsFail{Err: err}
	}
	s.logger.Info("embeddings ready", "count", len(embs))
	return state.EmbeddingsReady{Embeddings: embs}
}

// FindMatches runs the matcher for the request and returns MatchesComplete
// or MatchesFail tagged with the same request id.
func (s *Session) FindMatches(ctx context.Context, req uuid.UUID, query string, embs []models.DashboardEmbedding) state.Event {
	return s.findMatches(ctx, req, query, embs, s.top)
}

func (s *Session) findMatches(ctx context.Context, req uuid.UUID, query string, embs []models.DashboardEmbedding, top int) state.Event {
	matches, err := s.matcher.Match(ctx, query, embs, top)
	if err != nil {
		s.logger.Error("match failed", "query", query, "remote", remote.IsServiceError(err), "error", err)
		return state.MatchesFail{Request: req, Err: err}
	}
	s.logger.Debug("matches found", "query", query, "count", len(matches))
	return state.MatchesComplete{Request: req, Query: query, Matches: matches}
}

// Load dispatches EmbeddingsLoad, runs the loader, and dispatches the
// result. A load already in flight on d is left alone.
func (s *Session) Load(ctx context.Context, d *state.Dispatcher) (state.State, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.loadLocked(ctx, d)
}

// EnsureLoaded loads embeddings unless they are already present. Callers
// queued behind a load reuse its result.
func (s *Session) EnsureLoaded(ctx context.Context, d *state.Dispatcher) (state.State, error) {
	if cur := d.State(); cur.Ready() {
		return cur, nil
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if cur := d.State(); cur.Ready() {
		return cur, nil
	}
	return s.loadLocked(ctx, d)
}

func (s *Session) loadLocked(ctx context.Context, d *state.Dispatcher) (state.State, error) {
	if cur := d.State(); cur.LoadingEmbeddings {
		return cur, nil
	}
	if _, err := d.Dispatch(state.EmbeddingsLoad{}); err != nil {
		return state.State{}, err
	}

	ev := s.LoadEmbeddings(ctx)
	st, err := d.Dispatch(ev)
	if err != nil {
		return st, err
	}
	if fail, ok := ev.(state.EmbeddingsFail); ok {
		return st, fail.Err
	}
	return st, nil
}

// Submit records query, runs a match against the loaded embeddings, and
// dispatches the result. It returns the match error, if any.
func (s *Session) Submit(ctx context.Context, d *state.Dispatcher, query string) (state.State, error) {
	return s.SubmitTop(ctx, d, query, s.top)
}

// SubmitTop is Submit with an explicit match count. The returned state is
// the snapshot right after this request's result was applied, so its
// matches always belong to query. A request replaced in the meantime
// returns ErrSuperseded.
func (s *Session) SubmitTop(ctx context.Context, d *state.Dispatcher, query string, top int) (state.State, error) {
	if _, err := d.Dispatch(state.SetQuery(query)); err != nil {
		return state.State{}, err
	}
	load := state.NewMatchesLoad()
	st, err := d.Dispatch(load)
	if err != nil {
		return st, err
	}

	ev := s.findMatches(ctx, load.Request, query, st.Embeddings, top)
	st, err = d.Dispatch(ev)
	if err != nil {
		return st, err
	}
	if fail, ok := ev.(state.MatchesFail); ok {
		return st, fmt.Errorf("match %q: %w", query, fail.Err)
	}
	// Reduce keeps MatchRequest on the completed request and clears
	// LoadingMatches only when the completion was applied.
	if st.MatchRequest != load.Request || st.LoadingMatches {
		s.logger.Debug("match result dropped", "query", query)
		return st, fmt.Errorf("match %q: %w", query, ErrSuperseded)
	}
	return st, nil
}
