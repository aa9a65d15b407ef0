// ABOUTME: Tests for the SQLite embedding cache.
// ABOUTME: Uses a temp database file to cover get/put, keys, reopen, and clear.
package storage

import (
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T) *EmbeddingCache {
	t.Helper()
	cache, err := OpenEmbeddingCache(filepath.Join(t.TempDir(), "nested", "embeddings.db"))
	if err != nil {
		t.Fatalf("OpenEmbeddingCache error: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestContentKey(t *testing.T) {
	a := ContentKey("m1", "sales")
	if a != ContentKey("m1", "sales") {
		t.Error("expected key to be deterministic")
	}
	if a == ContentKey("m2", "sales") {
		t.Error("expected model to be part of the key")
	}
	if a == ContentKey("m1", "Sales") {
		t.Error("expected text to be part of the key")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256 key, got %d chars", len(a))
	}
}

func TestCacheMiss(t *testing.T) {
	cache := openTestCache(t)

	vec, ok, err := cache.Get("m", "nothing here")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok || vec != nil {
		t.Errorf("expected miss, got ok=%v vec=%v", ok, vec)
	}
}

func TestCachePutGet(t *testing.T) {
	cache := openTestCache(t)

	want := []float32{0.25, -0.5, 1}
	if err := cache.Put("m", "sales overview", want); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok, err := cache.Get("m", "sales overview")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: got %v want %v", i, got[i], want[i])
		}
	}

	// Same text under another model is a different entry.
	if _, ok, _ := cache.Get("other-model", "sales overview"); ok {
		t.Error("expected miss for a different model")
	}
}

func TestCachePutReplaces(t *testing.T) {
	cache := openTestCache(t)

	_ = cache.Put("m", "t", []float32{1})
	_ = cache.Put("m", "t", []float32{2})

	got, _, _ := cache.Get("m", "t")
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("expected replaced vector [2], got %v", got)
	}
	n, err := cache.Count()
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
}

func TestCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.db")

	first, err := OpenEmbeddingCache(path)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	if err := first.Put("m", "text", []float32{3, 4}); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	_ = first.Close()

	second, err := OpenEmbeddingCache(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer func() { _ = second.Close() }()

	if _, ok, _ := second.Get("m", "text"); !ok {
		t.Error("expected entry to survive reopen")
	}
	if second.Path() != path {
		t.Errorf("expected path %q, got %q", path, second.Path())
	}
}

func TestCacheClear(t *testing.T) {
	cache := openTestCache(t)
	_ = cache.Put("m", "a", []float32{1})
	_ = cache.Put("m", "b", []float32{2})

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	n, _ := cache.Count()
	if n != 0 {
		t.Errorf("expected empty cache, got %d", n)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := OpenEmbeddingCache(""); err == nil {
		t.Error("expected error for empty path")
	}
}
