// ABOUTME: Schema migrations for the embedding cache database.
// ABOUTME: Applies numbered migrations once and records them in schema_migrations.
package storage

import "fmt"

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// runMigrations executes pending schema migrations in order.
func (c *EmbeddingCache) runMigrations() error {
	if _, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := c.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	migrations := []migration{
		{version: 1, name: "embeddings", up: c.migration001Embeddings},
	}

	for _, m := range migrations {
		if current >= m.version {
			continue
		}
		if err := m.up(); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
		if _, err := c.db.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (c *EmbeddingCache) migration001Embeddings() error {
	if _, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			content_key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			dimension INTEGER NOT NULL,
			vector TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create embeddings table: %w", err)
	}
	if _, err := c.db.Exec(`CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model)`); err != nil {
		return fmt.Errorf("failed to create embeddings model index: %w", err)
	}
	return nil
}
