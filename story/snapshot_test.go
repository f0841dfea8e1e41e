package story_test

import (
	"context"
	"testing"

	"github.com/echoforge/echoforge-go/llm"
	"github.com/echoforge/echoforge-go/story"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	gen := &fakeGenerator{
		beatFn: func(req *llm.BeatRequest) (*llm.BeatResponse, error) {
			return &llm.BeatResponse{
				Text:   "Old Tom waves you over.",
				Branch: "approach_bartender",
				CharacterUpdates: map[string]llm.CharacterUpdate{
					"Old Tom": {
						TraitDeltas: map[string]float64{"gruff": -0.1},
						Learned:     []string{"The newcomer tips well."},
					},
				},
			}, nil
		},
	}
	s := tavernStory(t, gen)
	ctx := context.Background()

	if _, err := s.Advance(ctx, "I wave at the bartender."); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.ID != s.ID() {
		t.Errorf("snapshot id %q != story id %q", snap.ID, s.ID())
	}
	if len(snap.Characters) != 2 {
		t.Fatalf("expected 2 character snapshots, got %d", len(snap.Characters))
	}

	restored, err := story.FromSnapshot(snap, gen, stubEmbedder{}, fastConfig())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.ID() != s.ID() {
		t.Errorf("restored id %q != %q", restored.ID(), s.ID())
	}
	if !restored.CreatedAt().Equal(s.CreatedAt()) {
		t.Errorf("creation time changed across restore")
	}
	if restored.CurrentNodeID() != "bar_node" {
		t.Errorf("current node lost, at %q", restored.CurrentNodeID())
	}

	names := restored.CharacterNames()
	if len(names) != 2 || names[0] != "Old Tom" || names[1] != "The Stranger" {
		t.Errorf("character order lost: %v", names)
	}

	// Personality survived, including the applied update.
	tom, ok := restored.Character("Old Tom")
	if !ok {
		t.Fatal("Old Tom missing after restore")
	}
	p := tom.Personality()
	if got := p.Traits["gruff"].Intensity; got < 0.69 || got > 0.71 {
		t.Errorf("expected updated gruff near 0.7, got %f", got)
	}

	// Memories survived: the seeded record plus the learned one, without
	// re-seeding on restore.
	if got := tom.Memory().Size(); got != 2 {
		t.Errorf("expected 2 private records, got %d", got)
	}
	recalled, err := tom.Recall(ctx, "newcomer tips", 5)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range recalled {
		if r == "The newcomer tips well." {
			found = true
		}
	}
	if !found {
		t.Errorf("learned fact lost across restore: %v", recalled)
	}

	if got := restored.NarrativeMemory().Size(); got != s.NarrativeMemory().Size() {
		t.Errorf("narrative memory count changed: %d != %d", got, s.NarrativeMemory().Size())
	}

	// The restored story keeps advancing from where it left off.
	gen.beatFn = func(req *llm.BeatRequest) (*llm.BeatResponse, error) {
		return &llm.BeatResponse{Text: "Tom nods toward the corner.", Branch: "ask_about_stranger"}, nil
	}
	result, err := restored.Advance(ctx, "Who's in the corner?")
	if err != nil {
		t.Fatal(err)
	}
	if result.NodeID != "corner_node" {
		t.Errorf("restored story must keep advancing, at %q", result.NodeID)
	}
}
