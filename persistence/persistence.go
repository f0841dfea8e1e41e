// Package persistence stores story snapshots. The core exposes the
// serialization contract (story.Snapshot); this package supplies the
// durable side: a JSON file repository for local use and a SQLite
// repository under persistence/sqlite.
package persistence

import (
	"context"
	"errors"

	"github.com/echoforge/echoforge-go/story"
)

// ErrNotFound is returned by Load when no snapshot exists for the id.
var ErrNotFound = errors.New("story not found")

// Repository saves and loads story snapshots by story id.
type Repository interface {
	Save(ctx context.Context, snap *story.Snapshot) error
	Load(ctx context.Context, storyID string) (*story.Snapshot, error)
}
