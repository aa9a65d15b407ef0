// ABOUTME: SQLite-backed cache of embedding vectors keyed by model and content hash.
// ABOUTME: Lets repeated loads skip the remote embed call for unchanged dashboard text.
package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// EmbeddingCache stores embed(text) results. Entries are immutable: a
// changed text produces a new key.
type EmbeddingCache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// ContentKey returns the cache key for text embedded with model.
func ContentKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// OpenEmbeddingCache opens (creating if needed) the cache database at path
// and runs schema migrations.
func OpenEmbeddingCache(path string) (*EmbeddingCache, error) {
	if path == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// A single connection keeps SQLite writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	c := &EmbeddingCache{db: db, path: path}
	if err := c.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run cache migrations: %w", err)
	}
	return c, nil
}

// Path returns the database file path.
func (c *EmbeddingCache) Path() string {
	return c.path
}

// Get returns the cached vector for (model, text), if any.
func (c *EmbeddingCache) Get(model, text string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var raw string
	err := c.db.QueryRow(
		`SELECT vector FROM embeddings WHERE content_key = ?`,
		ContentKey(model, text),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query embedding: %w", err)
	}

	vector, err := jsonToVector(raw)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse cached vector: %w", err)
	}
	return vector, true, nil
}

// Put stores the vector for (model, text), replacing any previous value.
func (c *EmbeddingCache) Put(model, text string, vector []float32) error {
	raw, err := vectorToJSON(vector)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO embeddings (content_key, model, dimension, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ContentKey(model, text), model, len(vector), raw, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached vectors.
func (c *EmbeddingCache) Count() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}

// Clear removes every cached vector.
func (c *EmbeddingCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(`DELETE FROM embeddings`); err != nil {
		return fmt.Errorf("failed to clear embeddings: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *EmbeddingCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// vectorToJSON converts a float32 vector to JSON for storage.
func vectorToJSON(vector []float32) (string, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vector: %w", err)
	}
	return string(data), nil
}

// jsonToVector parses JSON storage back to a float32 vector.
func jsonToVector(raw string) ([]float32, error) {
	var vector []float32
	if err := json.Unmarshal([]byte(raw), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}
