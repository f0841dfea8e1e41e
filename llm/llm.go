// Package llm defines the generative-text boundary the orchestrator calls
// through. The core depends on structured responses, not free text: beat
// generation must return one of the current node's declared branch labels,
// a new-node hint, or an explicit no-transition, which keeps the story
// state machine deterministic for a fixed response.
package llm

import (
	"context"
	"fmt"
)

// Generator is the generative-text capability consumed by the orchestrator.
// Implementations: anthropic, openai, plus test fakes.
type Generator interface {
	// GenerateBeat produces the turn's narrative outcome. Exactly one beat
	// call is made per turn; its response is validated before anything is
	// applied.
	GenerateBeat(ctx context.Context, req *BeatRequest) (*BeatResponse, error)

	// GenerateReflection produces one character's private internal
	// monologue for the turn.
	GenerateReflection(ctx context.Context, req *ReflectionRequest) (string, error)
}

// CharacterContext is the plain-data view of a character handed to the
// generator.
type CharacterContext struct {
	Name          string
	Traits        map[string]float64
	Goals         []GoalContext
	Relationships map[string]float64
	Archetype     string
	Background    string
	Memories      []string
}

// GoalContext is one goal in a character context.
type GoalContext struct {
	Description string
	Priority    float64
	Progress    float64
}

// BeatRequest carries everything the beat call is conditioned on.
type BeatRequest struct {
	NodeContent  string
	UserInput    string
	Memories     []string          // narrative memories, most relevant first
	Monologues   map[string]string // character name -> internal monologue
	BranchLabels []string          // labels declared on the current node
	Characters   []CharacterContext
}

// ReflectionRequest asks for one character's internal monologue conditioned
// on the user input and shared narrative memories. Reflections are
// independent of one another within a turn.
type ReflectionRequest struct {
	Character         CharacterContext
	UserInput         string
	NarrativeMemories []string
}

// GoalHint is a new goal directive in a beat response.
type GoalHint struct {
	Description string  `json:"description"`
	Priority    float64 `json:"priority"`
}

// CharacterUpdate is the per-character state-update directive in a beat
// response. Every field is optional; the orchestrator validates and clamps
// before applying.
type CharacterUpdate struct {
	TraitDeltas   map[string]float64 `json:"trait_deltas,omitempty"`
	GoalProgress  map[string]float64 `json:"goal_progress,omitempty"`
	Relationships map[string]float64 `json:"relationships,omitempty"`
	NewGoals      []GoalHint         `json:"new_goals,omitempty"`
	Learned       []string           `json:"learned,omitempty"`
}

// NewNodeHint asks the orchestrator to continue the story into a freshly
// generated node reached by BranchLabel from the current one.
type NewNodeHint struct {
	Title       string `json:"title,omitempty"`
	Content     string `json:"content"`
	BranchLabel string `json:"branch_label"`
}

// BeatResponse is the structured beat-generation output. It is untrusted
// boundary data: every field may be absent and must be validated before
// application.
type BeatResponse struct {
	// Text is the narrative beat shown to the player.
	Text string `json:"text"`

	// Branch names one of the declared branch labels to follow. Empty
	// means no declared branch was taken.
	Branch string `json:"branch,omitempty"`

	// NoTransition explicitly marks a non-transitioning interaction, such
	// as a look-around action.
	NoTransition bool `json:"no_transition,omitempty"`

	// NewNode, if set, continues the story into a generated node.
	NewNode *NewNodeHint `json:"new_node,omitempty"`

	// CharacterUpdates maps character name to state-update directives.
	CharacterUpdates map[string]CharacterUpdate `json:"character_updates,omitempty"`

	// ImportantFacts are flagged for narrative memory.
	ImportantFacts []string `json:"important_facts,omitempty"`
}

// CallError wraps a transport-level failure of a generation call: network
// errors, timeouts, provider errors. Call errors are retried with bounded
// backoff before surfacing.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("generation call %s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ContractError reports a structurally invalid generation response: missing
// required fields, an undeclared branch label, directives for unknown
// characters. Contract errors are not retried; the turn aborts with no
// state change.
type ContractError struct {
	Reason string
}

func (e *ContractError) Error() string {
	return "generation contract: " + e.Reason
}
