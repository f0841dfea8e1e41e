// Package graph implements the branching narrative state machine.
//
// A Graph is a directed graph of story nodes with labeled branches. One node
// is always current; the orchestrator moves the pointer by resolving a
// branch label per turn. Nodes and branches are append-only: duplicate node
// ids and dangling branch targets are construction errors, never silently
// accepted.
package graph

import (
	"fmt"
	"log"
)

// ConstructionError reports an invalid graph mutation: a duplicate node id,
// a dangling branch target, or a branch label collision.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return "graph construction: " + e.Reason
}

// Node is a single narrative state: content plus labeled outgoing branches.
// Branches are owned by the Graph and mutated only through Graph.AddBranch.
type Node struct {
	ID      string
	Title   string
	Content string

	branches map[string]string // branch label -> target node id
}

// NewNode creates a node with no outgoing branches.
func NewNode(id, title, content string) *Node {
	return &Node{
		ID:       id,
		Title:    title,
		Content:  content,
		branches: make(map[string]string),
	}
}

// Branches returns a copy of the node's branch mapping.
func (n *Node) Branches() map[string]string {
	out := make(map[string]string, len(n.branches))
	for label, target := range n.branches {
		out[label] = target
	}
	return out
}

// BranchTarget returns the target node id for a branch label.
func (n *Node) BranchTarget(label string) (string, bool) {
	target, ok := n.branches[label]
	return target, ok
}

// Terminal reports whether the node has no outgoing branches.
func (n *Node) Terminal() bool {
	return len(n.branches) == 0
}

// Graph holds the story's nodes and the current-node pointer.
// It is not safe for concurrent mutation; the orchestrator serializes writes.
type Graph struct {
	nodes     map[string]*Node
	order     []string // node ids in insertion order, for deterministic export
	startID   string
	currentID string
}

// New creates a graph rooted at start. Additional nodes may be passed up
// front; branches between them are added with AddBranch afterwards.
func New(start *Node, nodes ...*Node) (*Graph, error) {
	if start == nil {
		return nil, &ConstructionError{Reason: "start node is required"}
	}
	g := &Graph{
		nodes:     make(map[string]*Node),
		startID:   start.ID,
		currentID: start.ID,
	}
	if err := g.AddNode(start); err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddNode appends a node. Re-adding an existing id is a ConstructionError:
// node identity must stay unambiguous. Any branches the node already carries
// must target nodes present in the graph (or the node itself).
func (g *Graph) AddNode(n *Node) error {
	if n == nil {
		return &ConstructionError{Reason: "nil node"}
	}
	if n.ID == "" {
		return &ConstructionError{Reason: "node id is empty"}
	}
	if _, exists := g.nodes[n.ID]; exists {
		return &ConstructionError{Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
	}
	if n.branches == nil {
		n.branches = make(map[string]string)
	}
	for label, target := range n.branches {
		if _, ok := g.nodes[target]; !ok && target != n.ID {
			return &ConstructionError{Reason: fmt.Sprintf("branch %q on node %q targets unknown node %q", label, n.ID, target)}
		}
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return nil
}

// AddBranch adds a labeled transition from one node to another.
// Branches are append-only; redefining an existing label is an error.
func (g *Graph) AddBranch(nodeID, label, targetID string) error {
	n, ok := g.nodes[nodeID]
	if !ok {
		return &ConstructionError{Reason: fmt.Sprintf("branch source node %q not found", nodeID)}
	}
	if label == "" {
		return &ConstructionError{Reason: fmt.Sprintf("empty branch label on node %q", nodeID)}
	}
	if _, ok := g.nodes[targetID]; !ok {
		return &ConstructionError{Reason: fmt.Sprintf("branch %q on node %q targets unknown node %q", label, nodeID, targetID)}
	}
	if _, exists := n.branches[label]; exists {
		return &ConstructionError{Reason: fmt.Sprintf("branch %q already defined on node %q", label, nodeID)}
	}
	n.branches[label] = targetID
	return nil
}

// Node returns a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Current returns the active node.
func (g *Graph) Current() *Node {
	return g.nodes[g.currentID]
}

// StartID returns the id of the designated start node.
func (g *Graph) StartID() string {
	return g.startID
}

// SetCurrent moves the current pointer to an existing node.
func (g *Graph) SetCurrent(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return &ConstructionError{Reason: fmt.Sprintf("current node %q not found", id)}
	}
	g.currentID = id
	return nil
}

// Transition follows a branch label from the current node and reports
// whether the pointer moved. A label the current node does not declare is a
// normal non-transitioning interaction. A dangling target cannot be built
// through the public API, but if one is ever observed the pointer stays put
// rather than entering an unknown state.
func (g *Graph) Transition(label string) bool {
	current := g.nodes[g.currentID]
	target, ok := current.branches[label]
	if !ok {
		return false
	}
	if _, ok := g.nodes[target]; !ok {
		log.Printf("[GRAPH] branch %q on node %q targets missing node %q, staying put", label, g.currentID, target)
		return false
	}
	g.currentID = target
	return true
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}
