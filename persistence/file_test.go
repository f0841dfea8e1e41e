package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/echoforge/echoforge-go/graph"
	"github.com/echoforge/echoforge-go/memory"
	"github.com/echoforge/echoforge-go/persistence"
	"github.com/echoforge/echoforge-go/story"
)

func sampleSnapshot(t *testing.T) *story.Snapshot {
	t.Helper()

	entrance := graph.NewNode("tavern_entrance", "The Tavern", "A smoky room.")
	bar := graph.NewNode("bar_node", "The Bar", "Bottles line the wall.")
	g, err := graph.New(entrance, bar)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.AddBranch("tavern_entrance", "approach_bartender", "bar_node"); err != nil {
		t.Fatal(err)
	}

	return &story.Snapshot{
		ID:        "story-123",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Title:     "The Drowned Rat",
		Graph:     g.Export(),
		Narrative: []memory.Record{
			{
				Content:   "You push open the door.",
				Metadata:  map[string]any{"type": "beat", memory.ScopeKey: memory.NarrativeScope},
				Embedding: []float32{1, 0, 0},
				Seq:       1,
			},
		},
	}
}

func TestFileRepository_SaveLoad(t *testing.T) {
	repo, err := persistence.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	snap := sampleSnapshot(t)

	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := repo.Load(ctx, snap.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != snap.ID || loaded.Title != snap.Title {
		t.Errorf("identity fields lost: %+v", loaded)
	}
	if loaded.Graph.CurrentID != "tavern_entrance" {
		t.Errorf("graph state lost, current=%q", loaded.Graph.CurrentID)
	}
	if len(loaded.Narrative) != 1 || loaded.Narrative[0].Seq != 1 {
		t.Errorf("narrative records lost: %v", loaded.Narrative)
	}

	// Saving again overwrites in place.
	snap.Title = "The Drowned Rat, Act II"
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatal(err)
	}
	loaded, err = repo.Load(ctx, snap.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Title != "The Drowned Rat, Act II" {
		t.Errorf("overwrite lost, title=%q", loaded.Title)
	}
}

func TestFileRepository_NotFound(t *testing.T) {
	repo, err := persistence.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, err = repo.Load(context.Background(), "missing")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
