// Package sqlite stores story snapshots in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/echoforge/echoforge-go/persistence"
	"github.com/echoforge/echoforge-go/story"
)

const schema = `
CREATE TABLE IF NOT EXISTS stories (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	snapshot   BLOB NOT NULL
);
`

// Repository implements persistence.Repository over a SQLite database.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Save upserts the snapshot for its story id.
func (r *Repository) Save(ctx context.Context, snap *story.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("snapshot has no story id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO stories (id, created_at, updated_at, snapshot)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			snapshot   = excluded.snapshot`,
		snap.ID, snap.CreatedAt.UTC().Format(time.RFC3339), now, data)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot for a story id.
func (r *Repository) Load(ctx context.Context, storyID string) (*story.Snapshot, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT snapshot FROM stories WHERE id = ?`, storyID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap story.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}
