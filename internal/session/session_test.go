// ABOUTME: Tests for the session glue between remote calls and state events.
// ABOUTME: Uses stub loaders and matchers with a live dispatcher.
package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/dashmatch/internal/logging"
	"github.com/2389-research/dashmatch/internal/models"
	"github.com/2389-research/dashmatch/internal/remote"
	"github.com/2389-research/dashmatch/internal/state"
)

type stubLoader struct {
	embs  []models.DashboardEmbedding
	err   error
	calls int
}

func (l *stubLoader) Load(context.Context) ([]models.DashboardEmbedding, error) {
	l.calls++
	return l.embs, l.err
}

type stubMatcher struct {
	matches []models.QueryMatch
	err     error
	gotTop  int
	gotEmbs int
}

func (m *stubMatcher) Match(_ context.Context, _ string, embs []models.DashboardEmbedding, top int) ([]models.QueryMatch, error) {
	m.gotTop = top
	m.gotEmbs = len(embs)
	return m.matches, m.err
}

func sampleEmbeddings() []models.DashboardEmbedding {
	return []models.DashboardEmbedding{
		{DashboardID: "d1", Title: "Sales", Vector: []float32{1, 0}},
		{DashboardID: "d2", Title: "Ops", Vector: []float32{0, 1}},
	}
}

func newDispatcher(t *testing.T) *state.Dispatcher {
	t.Helper()
	d := state.NewDispatcher(state.Initial())
	t.Cleanup(d.Close)
	return d
}

func TestLoadEmbeddingsEvents(t *testing.T) {
	s := New(&stubLoader{embs: sampleEmbeddings()}, &stubMatcher{})
	if _, ok := s.LoadEmbeddings(context.Background()).(state.EmbeddingsReady); !ok {
		t.Error("expected EmbeddingsReady")
	}

	s = New(&stubLoader{err: errors.New("down")}, &stubMatcher{})
	if _, ok := s.LoadEmbeddings(context.Background()).(state.EmbeddingsFail); !ok {
		t.Error("expected EmbeddingsFail")
	}
}

func TestFindMatchesCarriesRequest(t *testing.T) {
	req := uuid.New()
	s := New(&stubLoader{}, &stubMatcher{matches: []models.QueryMatch{{DashboardID: "d1"}}})

	ev, ok := s.FindMatches(context.Background(), req, "q", sampleEmbeddings()).(state.MatchesComplete)
	if !ok {
		t.Fatal("expected MatchesComplete")
	}
	if ev.Request != req || ev.Query != "q" {
		t.Errorf("unexpected event %+v", ev)
	}

	s = New(&stubLoader{}, &stubMatcher{err: errors.New("quota")})
	fail, ok := s.FindMatches(context.Background(), req, "q", nil).(state.MatchesFail)
	if !ok || fail.Request != req {
		t.Errorf("expected MatchesFail for request, got %+v", fail)
	}
}

func TestLoad(t *testing.T) {
	d := newDispatcher(t)
	s := New(&stubLoader{embs: sampleEmbeddings()}, &stubMatcher{})

	st, err := s.Load(context.Background(), d)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !st.Ready() || len(st.Embeddings) != 2 {
		t.Errorf("expected ready state, got %+v", st)
	}
}

func TestLoadFailure(t *testing.T) {
	d := newDispatcher(t)
	boom := errors.New("401")
	s := New(&stubLoader{err: boom}, &stubMatcher{})

	st, err := s.Load(context.Background(), d)
	if !errors.Is(err, boom) {
		t.Errorf("expected load error, got %v", err)
	}
	if st.LoadingEmbeddings || st.ErrorMessage == "" {
		t.Errorf("expected failed state, got %+v", st)
	}
}

func TestLoadSkipsWhenAlreadyLoading(t *testing.T) {
	d := newDispatcher(t)
	if _, err := d.Dispatch(state.EmbeddingsLoad{}); err != nil {
		t.Fatal(err)
	}
	loader := &stubLoader{embs: sampleEmbeddings()}

	st, err := New(loader, &stubMatcher{}).Load(context.Background(), d)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loader.calls != 0 || !st.LoadingEmbeddings {
		t.Errorf("expected in-flight load left alone, calls=%d", loader.calls)
	}
}

func TestEnsureLoadedOnlyOnce(t *testing.T) {
	d := newDispatcher(t)
	loader := &stubLoader{embs: sampleEmbeddings()}
	s := New(loader, &stubMatcher{})

	for i := 0; i < 3; i++ {
		if _, err := s.EnsureLoaded(context.Background(), d); err != nil {
			t.Fatalf("EnsureLoaded error: %v", err)
		}
	}
	if loader.calls != 1 {
		t.Errorf("expected one load, got %d", loader.calls)
	}
}

func TestSubmit(t *testing.T) {
	d := newDispatcher(t)
	matcher := &stubMatcher{matches: []models.QueryMatch{{DashboardID: "d2", Rank: 0}, {DashboardID: "d1", Rank: 1}}}
	s := New(&stubLoader{embs: sampleEmbeddings()}, matcher, WithTop(2))

	if _, err := s.Load(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	st, err := s.Submit(context.Background(), d, "ops")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	if st.Query != "ops" || st.MatchedQuery != "ops" {
		t.Errorf("expected query recorded, got %+v", st)
	}
	if st.SelectedDashboardID != "d2" {
		t.Errorf("expected top match selected, got %q", st.SelectedDashboardID)
	}
	if matcher.gotTop != 2 || matcher.gotEmbs != 2 {
		t.Errorf("expected matcher called with top=2 over 2 embeddings, got top=%d embs=%d", matcher.gotTop, matcher.gotEmbs)
	}
}

func TestSubmitFailure(t *testing.T) {
	d := newDispatcher(t)
	boom := errors.New("quota")
	s := New(&stubLoader{embs: sampleEmbeddings()}, &stubMatcher{err: boom})
	_, _ = s.Load(context.Background(), d)

	st, err := s.SubmitTop(context.Background(), d, "x", 5)
	if !errors.Is(err, boom) {
		t.Errorf("expected match error, got %v", err)
	}
	if st.LoadingMatches || st.ErrorMessage == "" {
		t.Errorf("expected failed match state, got %+v", st)
	}
}

func TestWithTopIgnoresNegative(t *testing.T) {
	s := New(&stubLoader{}, &stubMatcher{}, WithTop(-4))
	if s.Top() != defaultTop {
		t.Errorf("expected default top, got %d", s.Top())
	}
}

// slowLoader takes a while to load and counts calls from any goroutine.
type slowLoader struct {
	delay time.Duration
	calls atomic.Int32
}

func (l *slowLoader) Load(context.Context) ([]models.DashboardEmbedding, error) {
	l.calls.Add(1)
	time.Sleep(l.delay)
	return sampleEmbeddings(), nil
}

func TestEnsureLoadedConcurrentCallersShareOneLoad(t *testing.T) {
	d := newDispatcher(t)
	loader := &slowLoader{delay: 50 * time.Millisecond}
	s := New(loader, &stubMatcher{})

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := s.EnsureLoaded(context.Background(), d)
			if err == nil && !st.Ready() {
				err = errors.New("state not ready")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("EnsureLoaded error: %v", err)
		}
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("expected one load, got %d", n)
	}
}

// gatedMatcher returns one match named after the query. Queries listed in
// gates block until their channel is closed.
type gatedMatcher struct {
	gates   map[string]chan struct{}
	entered chan string
}

func (m *gatedMatcher) Match(_ context.Context, query string, _ []models.DashboardEmbedding, _ int) ([]models.QueryMatch, error) {
	if gate, ok := m.gates[query]; ok {
		m.entered <- query
		<-gate
	}
	return []models.QueryMatch{{DashboardID: "d-" + query, Title: query}}, nil
}

func TestSubmitSupersededByNewerQuery(t *testing.T) {
	d := newDispatcher(t)
	release := make(chan struct{})
	matcher := &gatedMatcher{
		gates:   map[string]chan struct{}{"slow": release},
		entered: make(chan string, 1),
	}
	s := New(&stubLoader{embs: sampleEmbeddings()}, matcher)
	if _, err := s.Load(context.Background(), d); err != nil {
		t.Fatal(err)
	}

	type outcome struct {
		st  state.State
		err error
	}
	slowDone := make(chan outcome, 1)
	go func() {
		st, err := s.Submit(context.Background(), d, "slow")
		slowDone <- outcome{st, err}
	}()
	<-matcher.entered

	st, err := s.Submit(context.Background(), d, "fast")
	if err != nil {
		t.Fatalf("Submit(fast) error: %v", err)
	}
	if st.MatchedQuery != "fast" || st.SelectedDashboardID != "d-fast" {
		t.Errorf("unexpected fast state %+v", st)
	}

	close(release)
	slow := <-slowDone
	if !errors.Is(slow.err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded for the older query, got err=%v matched=%q", slow.err, slow.st.MatchedQuery)
	}
	if cur := d.State(); cur.MatchedQuery != "fast" || cur.Matches[0].DashboardID != "d-fast" {
		t.Errorf("expected newer results kept, got %+v", cur)
	}
}

func TestSubmitSupersededByReload(t *testing.T) {
	d := newDispatcher(t)
	release := make(chan struct{})
	matcher := &gatedMatcher{
		gates:   map[string]chan struct{}{"slow": release},
		entered: make(chan string, 1),
	}
	s := New(&stubLoader{embs: sampleEmbeddings()}, matcher)
	if _, err := s.Load(context.Background(), d); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), d, "slow")
		errc <- err
	}()
	<-matcher.entered

	if _, err := s.Load(context.Background(), d); err != nil {
		t.Fatalf("reload error: %v", err)
	}
	close(release)
	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded after reload, got %v", err)
	}
}

func TestLoadFailureLogsRemoteErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("debug", "text", &buf)
	se := &remote.ServiceError{Service: remote.ServiceHost, Op: "login", StatusCode: 401}

	s := New(&stubLoader{err: se}, &stubMatcher{}, WithLogger(logger))
	s.LoadEmbeddings(context.Background())
	if !strings.Contains(buf.String(), "remote=true") {
		t.Errorf("expected remote failure tagged in log, got:\n%s", buf.String())
	}

	buf.Reset()
	s = New(&stubLoader{err: errors.New("bad input")}, &stubMatcher{}, WithLogger(logger))
	s.LoadEmbeddings(context.Background())
	if !strings.Contains(buf.String(), "remote=false") {
		t.Errorf("expected local failure tagged in log, got:\n%s", buf.String())
	}
}
