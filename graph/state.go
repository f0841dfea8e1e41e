package graph

import "fmt"

// NodeState is the serialized form of a Node.
type NodeState struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Branches map[string]string `json:"branches,omitempty"`
}

// State is the serialized form of a Graph: nodes in insertion order plus the
// start and current pointers.
type State struct {
	Nodes     []NodeState `json:"nodes"`
	StartID   string      `json:"start_id"`
	CurrentID string      `json:"current_id"`
}

// Export captures the graph for persistence.
func (g *Graph) Export() State {
	s := State{
		Nodes:     make([]NodeState, 0, len(g.order)),
		StartID:   g.startID,
		CurrentID: g.currentID,
	}
	for _, id := range g.order {
		n := g.nodes[id]
		s.Nodes = append(s.Nodes, NodeState{
			ID:       n.ID,
			Title:    n.Title,
			Content:  n.Content,
			Branches: n.Branches(),
		})
	}
	return s
}

// FromState rebuilds a graph from its serialized form, applying the same
// construction checks as incremental building.
func FromState(s State) (*Graph, error) {
	if len(s.Nodes) == 0 {
		return nil, &ConstructionError{Reason: "state has no nodes"}
	}
	g := &Graph{nodes: make(map[string]*Node)}

	// Nodes first, branches second: serialized branches may point forward.
	for _, ns := range s.Nodes {
		if err := g.AddNode(NewNode(ns.ID, ns.Title, ns.Content)); err != nil {
			return nil, err
		}
	}
	for _, ns := range s.Nodes {
		for label, target := range ns.Branches {
			if err := g.AddBranch(ns.ID, label, target); err != nil {
				return nil, err
			}
		}
	}

	if _, ok := g.nodes[s.StartID]; !ok {
		return nil, &ConstructionError{Reason: fmt.Sprintf("start node %q not found in state", s.StartID)}
	}
	g.startID = s.StartID
	if s.CurrentID == "" {
		g.currentID = s.StartID
	} else {
		if err := g.SetCurrent(s.CurrentID); err != nil {
			return nil, err
		}
	}
	return g, nil
}
