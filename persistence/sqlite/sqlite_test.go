package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/echoforge/echoforge-go/graph"
	"github.com/echoforge/echoforge-go/persistence"
	"github.com/echoforge/echoforge-go/persistence/sqlite"
	"github.com/echoforge/echoforge-go/story"
)

func openRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "stories.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_SaveLoad(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	start := graph.NewNode("start", "Start", "It begins.")
	g, err := graph.New(start)
	if err != nil {
		t.Fatal(err)
	}
	snap := &story.Snapshot{
		ID:        "story-abc",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Title:     "The Drowned Rat",
		Graph:     g.Export(),
	}

	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := repo.Load(ctx, "story-abc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != snap.ID || loaded.Title != snap.Title {
		t.Errorf("identity fields lost: %+v", loaded)
	}
	if loaded.Graph.StartID != "start" {
		t.Errorf("graph state lost: %+v", loaded.Graph)
	}

	// Upsert replaces the stored snapshot.
	snap.Title = "Act II"
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatal(err)
	}
	loaded, err = repo.Load(ctx, "story-abc")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Title != "Act II" {
		t.Errorf("upsert lost, title=%q", loaded.Title)
	}
}

func TestRepository_NotFound(t *testing.T) {
	repo := openRepo(t)

	_, err := repo.Load(context.Background(), "missing")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
