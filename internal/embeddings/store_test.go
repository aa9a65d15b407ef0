// ABOUTME: Tests for loading dashboard embeddings from a host source.
// ABOUTME: Checks host ordering, text rendering, and all-or-nothing failures.
package embeddings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/2389-research/dashmatch/internal/models"
)

type fakeSource struct {
	mu         sync.Mutex
	dashboards []models.Dashboard
	listErr    error
	failID     string
	fetched    []string
}

func (f *fakeSource) ListDashboards(context.Context) ([]models.Dashboard, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Dashboard, len(f.dashboards))
	for i, d := range f.dashboards {
		out[i] = models.Dashboard{ID: d.ID, Title: d.Title}
	}
	return out, nil
}

func (f *fakeSource) Dashboard(_ context.Context, id string) (*models.Dashboard, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()
	if id == f.failID {
		return nil, errors.New("host unavailable")
	}
	for _, d := range f.dashboards {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, errors.New("not found")
}

// lockedEmbedder is safe for the store's concurrent workers.
type lockedEmbedder struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (e *lockedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (e *lockedEmbedder) Model() string { return "locked" }

func sampleSource() *fakeSource {
	return &fakeSource{dashboards: []models.Dashboard{
		{ID: "1", Title: "Sales", Description: "Revenue", Tiles: []models.Tile{{Title: "By region", Note: "EMEA split"}}},
		{ID: "2", Title: "Marketing"},
		{ID: "3", Title: "Support", Tiles: []models.Tile{{Subtitle: "open tickets"}}},
	}}
}

func TestStoreLoadKeepsHostOrder(t *testing.T) {
	src := sampleSource()
	store := NewStore(src, &lockedEmbedder{}, WithWorkers(3))

	embs, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(embs) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(embs))
	}
	for i, id := range []string{"1", "2", "3"} {
		if embs[i].DashboardID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, embs[i].DashboardID)
		}
		if len(embs[i].Vector) != 2 {
			t.Errorf("position %d: expected vector, got %v", i, embs[i].Vector)
		}
	}
	if embs[0].Text != "Sales\nRevenue\nBy region\nEMEA split" {
		t.Errorf("unexpected embedding text %q", embs[0].Text)
	}
}

func TestStoreLoadListFailure(t *testing.T) {
	src := sampleSource()
	src.listErr = errors.New("unauthorized")

	_, err := NewStore(src, &lockedEmbedder{}).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("expected list error, got %v", err)
	}
}

func TestStoreLoadFetchFailureFailsAll(t *testing.T) {
	src := sampleSource()
	src.failID = "2"

	embs, err := NewStore(src, &lockedEmbedder{}, WithWorkers(1)).Load(context.Background())
	if err == nil {
		t.Fatal("expected load to fail")
	}
	if embs != nil {
		t.Errorf("expected no partial result, got %d embeddings", len(embs))
	}
	if !strings.Contains(err.Error(), "dashboard 2") {
		t.Errorf("expected error to name dashboard 2, got %v", err)
	}
}

func TestStoreLoadEmbedFailure(t *testing.T) {
	boom := errors.New("quota")
	_, err := NewStore(sampleSource(), &lockedEmbedder{err: boom}).Load(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped embed error, got %v", err)
	}
}

func TestStoreLoadEmptyHost(t *testing.T) {
	embs, err := NewStore(&fakeSource{}, &lockedEmbedder{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(embs) != 0 {
		t.Errorf("expected no embeddings, got %d", len(embs))
	}
}

func TestBuildEmbeddingText(t *testing.T) {
	tests := []struct {
		name string
		d    models.Dashboard
		want string
	}{
		{
			name: "title only",
			d:    models.Dashboard{ID: "1", Title: "Ops"},
			want: "Ops",
		},
		{
			name: "untitled",
			d:    models.Dashboard{ID: "7"},
			want: "Untitled dashboard 7",
		},
		{
			name: "tiles with blanks",
			d: models.Dashboard{
				ID:          "2",
				Title:       "Finance",
				Description: "  ",
				Tiles:       []models.Tile{{Title: "Cash"}, {Subtitle: " weekly "}, {}},
			},
			want: "Finance\nCash\nweekly",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildEmbeddingText(tt.d); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
