package graph_test

import (
	"errors"
	"testing"

	"github.com/echoforge/echoforge-go/graph"
)

func tavernGraph(t *testing.T) *graph.Graph {
	t.Helper()

	entrance := graph.NewNode("tavern_entrance", "The Tavern", "You stand at the door of a smoky tavern.")
	bar := graph.NewNode("bar_node", "The Bar", "Old Tom polishes a glass behind the bar.")
	corner := graph.NewNode("corner_node", "The Corner", "A hooded stranger sits alone.")

	g, err := graph.New(entrance, bar, corner)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	if err := g.AddBranch("tavern_entrance", "approach_bartender", "bar_node"); err != nil {
		t.Fatal(err)
	}
	if err := g.AddBranch("tavern_entrance", "approach_stranger", "corner_node"); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGraph_New(t *testing.T) {
	g := tavernGraph(t)

	if g.Len() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Len())
	}
	if g.Current().ID != "tavern_entrance" {
		t.Errorf("start node must be current, got %q", g.Current().ID)
	}
	if g.StartID() != "tavern_entrance" {
		t.Errorf("unexpected start id %q", g.StartID())
	}
}

func TestGraph_DuplicateNode(t *testing.T) {
	g := tavernGraph(t)

	err := g.AddNode(graph.NewNode("bar_node", "Again", "duplicate"))
	var cerr *graph.ConstructionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConstructionError, got %v", err)
	}
	if g.Len() != 3 {
		t.Errorf("failed add must not change the graph, len=%d", g.Len())
	}
}

func TestGraph_BranchErrors(t *testing.T) {
	g := tavernGraph(t)
	var cerr *graph.ConstructionError

	// Dangling target.
	if err := g.AddBranch("bar_node", "leave", "nowhere"); !errors.As(err, &cerr) {
		t.Errorf("expected ConstructionError for dangling target, got %v", err)
	}
	// Redefining an existing label.
	if err := g.AddBranch("tavern_entrance", "approach_bartender", "corner_node"); !errors.As(err, &cerr) {
		t.Errorf("expected ConstructionError for label collision, got %v", err)
	}
	// Unknown source.
	if err := g.AddBranch("nowhere", "leave", "bar_node"); !errors.As(err, &cerr) {
		t.Errorf("expected ConstructionError for unknown source, got %v", err)
	}
	// Empty label.
	if err := g.AddBranch("bar_node", "", "tavern_entrance"); !errors.As(err, &cerr) {
		t.Errorf("expected ConstructionError for empty label, got %v", err)
	}
}

func TestGraph_Transition(t *testing.T) {
	g := tavernGraph(t)

	if moved := g.Transition("approach_bartender"); !moved {
		t.Fatal("declared branch must transition")
	}
	if g.Current().ID != "bar_node" {
		t.Fatalf("expected bar_node, got %q", g.Current().ID)
	}

	// A label the current node does not declare is a normal
	// non-transitioning interaction, not an error.
	if moved := g.Transition("approach_stranger"); moved {
		t.Error("undeclared label must not move the pointer")
	}
	if g.Current().ID != "bar_node" {
		t.Errorf("pointer drifted to %q", g.Current().ID)
	}
}

func TestGraph_Terminal(t *testing.T) {
	g := tavernGraph(t)

	if g.Current().Terminal() {
		t.Error("entrance declares branches, must not be terminal")
	}
	bar, _ := g.Node("bar_node")
	if !bar.Terminal() {
		t.Error("bar_node has no branches, must be terminal")
	}
}

func TestGraph_ExportImport(t *testing.T) {
	g := tavernGraph(t)
	g.Transition("approach_stranger")

	restored, err := graph.FromState(g.Export())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Len() != g.Len() {
		t.Errorf("expected %d nodes, got %d", g.Len(), restored.Len())
	}
	if restored.Current().ID != "corner_node" {
		t.Errorf("current pointer must survive the round trip, got %q", restored.Current().ID)
	}
	if restored.StartID() != "tavern_entrance" {
		t.Errorf("start id must survive, got %q", restored.StartID())
	}

	entrance, ok := restored.Node("tavern_entrance")
	if !ok {
		t.Fatal("entrance missing after restore")
	}
	if target, ok := entrance.BranchTarget("approach_bartender"); !ok || target != "bar_node" {
		t.Errorf("branch lost in round trip: %q %v", target, ok)
	}
}

func TestGraph_FromStateValidates(t *testing.T) {
	state := tavernGraph(t).Export()
	state.CurrentID = "nowhere"
	if _, err := graph.FromState(state); err == nil {
		t.Error("expected error for unknown current node")
	}

	state = tavernGraph(t).Export()
	state.Nodes[0].Branches["leave"] = "nowhere"
	if _, err := graph.FromState(state); err == nil {
		t.Error("expected error for dangling branch")
	}
}
