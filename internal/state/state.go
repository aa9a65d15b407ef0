// ABOUTME: Application state for dashboard matching and the events that change it.
// ABOUTME: Reduce is a pure transition function over an immutable State value.
package state

import (
	"slices"

	"github.com/google/uuid"

	"github.com/2389-research/dashmatch/internal/models"
)

// State is a snapshot of the session. Treat it as a value: Reduce never
// mutates the slices of the State it is given.
type State struct {
	LoadingEmbeddings bool
	Embeddings        []models.DashboardEmbedding

	Query          string
	LoadingMatches bool
	MatchRequest   uuid.UUID
	MatchedQuery   string
	Matches        []models.QueryMatch

	// SelectedDashboardID is empty when nothing is selected.
	SelectedDashboardID string

	// ErrorMessage is empty when there is no error to show.
	ErrorMessage string
}

// Initial returns the state a session starts in.
func Initial() State {
	return State{
		Embeddings: []models.DashboardEmbedding{},
		Matches:    []models.QueryMatch{},
	}
}

// Loaded returns the state right after embs finished loading.
func Loaded(embs []models.DashboardEmbedding) State {
	return Reduce(Reduce(Initial(), EmbeddingsLoad{}), EmbeddingsReady{Embeddings: embs})
}

// Ready reports whether embeddings are loaded and matching can run.
func (s State) Ready() bool {
	return !s.LoadingEmbeddings && len(s.Embeddings) > 0
}

// Selected returns the match for the selected dashboard, if any.
func (s State) Selected() (models.QueryMatch, bool) {
	if s.SelectedDashboardID == "" {
		return models.QueryMatch{}, false
	}
	for _, m := range s.Matches {
		if m.DashboardID == s.SelectedDashboardID {
			return m, true
		}
	}
	return models.QueryMatch{}, false
}

// SelectedEmbedding returns the embedding of the selected dashboard, if any.
func (s State) SelectedEmbedding() (models.DashboardEmbedding, bool) {
	if s.SelectedDashboardID == "" {
		return models.DashboardEmbedding{}, false
	}
	return models.FindEmbedding(s.Embeddings, s.SelectedDashboardID)
}

// Event is a state transition request. The set of events is closed.
type Event interface {
	isEvent()
}

// EmbeddingsLoad starts loading dashboard embeddings.
type EmbeddingsLoad struct{}

// EmbeddingsReady carries the loaded embeddings.
type EmbeddingsReady struct {
	Embeddings []models.DashboardEmbedding
}

// EmbeddingsFail reports a failed embeddings load.
type EmbeddingsFail struct {
	Err error
}

// MatchesLoad starts a match request. A newer request supersedes older ones.
type MatchesLoad struct {
	Request uuid.UUID
}

// MatchesComplete carries the result of the match request with the same id.
type MatchesComplete struct {
	Request uuid.UUID
	Query   string
	Matches []models.QueryMatch
}

// MatchesFail reports a failed match request.
type MatchesFail struct {
	Request uuid.UUID
	Err     error
}

// SetState merges the non-nil fields into the state.
type SetState struct {
	Query               *string
	SelectedDashboardID *string
}

// DismissError clears the error banner.
type DismissError struct{}

func (EmbeddingsLoad) isEvent()  {}
func (EmbeddingsReady) isEvent() {}
func (EmbeddingsFail) isEvent()  {}
func (MatchesLoad) isEvent()     {}
func (MatchesComplete) isEvent() {}
func (MatchesFail) isEvent()     {}
func (SetState) isEvent()        {}
func (DismissError) isEvent()    {}

// NewMatchesLoad returns a MatchesLoad with a fresh request id.
func NewMatchesLoad() MatchesLoad {
	return MatchesLoad{Request: uuid.New()}
}

// SetQuery returns a SetState that only changes the query.
func SetQuery(q string) SetState {
	return SetState{Query: &q}
}

// Select returns a SetState that only changes the selection.
func Select(id string) SetState {
	return SetState{SelectedDashboardID: &id}
}

// Reduce applies e to s and returns the new state. Events whose
// precondition does not hold return s unchanged.
func Reduce(s State, e Event) State {
	switch e := e.(type) {
	case EmbeddingsLoad:
		if s.LoadingEmbeddings {
			return s
		}
		s.LoadingEmbeddings = true
		s.ErrorMessage = ""
		return s

	case EmbeddingsReady:
		if !s.LoadingEmbeddings {
			return s
		}
		s.LoadingEmbeddings = false
		s.Embeddings = cloneEmbeddings(e.Embeddings)
		// Matches were computed against the old set.
		s.Matches = []models.QueryMatch{}
		s.MatchedQuery = ""
		s.SelectedDashboardID = ""
		s.LoadingMatches = false
		s.MatchRequest = uuid.Nil
		return s

	case EmbeddingsFail:
		if !s.LoadingEmbeddings {
			return s
		}
		s.LoadingEmbeddings = false
		s.ErrorMessage = failureMessage("failed to load dashboard embeddings", e.Err)
		return s

	case MatchesLoad:
		s.LoadingMatches = true
		s.MatchRequest = e.Request
		return s

	case MatchesComplete:
		if !s.LoadingMatches || e.Request != s.MatchRequest {
			return s
		}
		s.LoadingMatches = false
		s.Matches = slices.Clone(e.Matches)
		if s.Matches == nil {
			s.Matches = []models.QueryMatch{}
		}
		s.MatchedQuery = e.Query
		return autoSelect(s)

	case MatchesFail:
		if !s.LoadingMatches || e.Request != s.MatchRequest {
			return s
		}
		s.LoadingMatches = false
		s.ErrorMessage = failureMessage("failed to match dashboards", e.Err)
		return s

	case SetState:
		if e.Query != nil {
			s.Query = *e.Query
		}
		if e.SelectedDashboardID != nil {
			id := *e.SelectedDashboardID
			if id == "" || models.ContainsMatch(s.Matches, id) {
				s.SelectedDashboardID = id
			}
		}
		return s

	case DismissError:
		s.ErrorMessage = ""
		return s
	}
	return s
}

// autoSelect selects the top match when it differs from the current
// selection, and drops a selection that is no longer among the matches.
func autoSelect(s State) State {
	if len(s.Matches) == 0 {
		s.SelectedDashboardID = ""
		return s
	}
	if s.Matches[0].DashboardID != s.SelectedDashboardID {
		s.SelectedDashboardID = s.Matches[0].DashboardID
	}
	return s
}

func failureMessage(prefix string, err error) string {
	if err == nil {
		return prefix
	}
	return prefix + ": " + err.Error()
}

func cloneEmbeddings(in []models.DashboardEmbedding) []models.DashboardEmbedding {
	out := make([]models.DashboardEmbedding, len(in))
	copy(out, in)
	return out
}
