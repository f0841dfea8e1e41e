package character

import "github.com/echoforge/echoforge-go/memory"

// State is the serialized form of a character, minus memory records, which
// the story snapshot exports from the backing store directly.
type State struct {
	Name             string      `json:"name"`
	Personality      Personality `json:"personality"`
	InitialKnowledge []string    `json:"initial_knowledge,omitempty"`
}

// Export captures the character for persistence.
func (c *Character) Export() State {
	return State{
		Name:             c.name,
		Personality:      copyPersonality(c.personality),
		InitialKnowledge: append([]string(nil), c.initialKnowledge...),
	}
}

// FromState rebuilds a character over a fresh store. Memory records are
// restored separately by the story snapshot; initial knowledge is not
// re-seeded, it is already among the restored records.
func FromState(s State, store memory.Store) *Character {
	c := New(s.Name, s.Personality, store)
	c.initialKnowledge = append([]string(nil), s.InitialKnowledge...)
	return c
}
