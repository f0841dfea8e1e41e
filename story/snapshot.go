package story

import (
	"fmt"
	"time"

	"github.com/echoforge/echoforge-go/character"
	"github.com/echoforge/echoforge-go/graph"
	"github.com/echoforge/echoforge-go/llm"
	"github.com/echoforge/echoforge-go/memory"
)

// Snapshot is the full serialized form of a story for the persistence
// collaborator: graph topology, character states with their memory records
// in creation order, and narrative memory records in creation order.
type Snapshot struct {
	ID          string              `json:"id"`
	CreatedAt   time.Time           `json:"created_at"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Graph       graph.State         `json:"graph"`
	Narrative   []memory.Record     `json:"narrative"`
	Characters  []CharacterSnapshot `json:"characters"`
}

// CharacterSnapshot pairs a character's state with its memory records.
type CharacterSnapshot struct {
	Character character.State `json:"character"`
	Memories  []memory.Record `json:"memories"`
}

// Snapshot captures the story. The memory backend must support export; the
// default VectorStore does.
func (s *Story) Snapshot() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	narrative, err := exportRecords(s.narrative.Backing())
	if err != nil {
		return nil, fmt.Errorf("narrative memory: %w", err)
	}

	snap := &Snapshot{
		ID:          s.id,
		CreatedAt:   s.createdAt,
		Title:       s.config.Title,
		Description: s.config.Description,
		Graph:       s.graph.Export(),
		Narrative:   narrative,
	}
	for _, name := range s.order {
		c := s.characters[name]
		records, err := exportRecords(c.Memory().Backing())
		if err != nil {
			return nil, fmt.Errorf("memory of %s: %w", name, err)
		}
		snap.Characters = append(snap.Characters, CharacterSnapshot{
			Character: c.Export(),
			Memories:  records,
		})
	}
	return snap, nil
}

// FromSnapshot rebuilds a story with identical graph topology, character
// set, and memory record order. Initial knowledge is not re-seeded; the
// restored records already contain it.
func FromSnapshot(snap *Snapshot, gen llm.Generator, embedder memory.Embedder, config *Config, opts ...Option) (*Story, error) {
	g, err := graph.FromState(snap.Graph)
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = DefaultConfig
	}
	cfg := *config
	if cfg.Title == "" {
		cfg.Title = snap.Title
	}
	if cfg.Description == "" {
		cfg.Description = snap.Description
	}

	s := New(g, gen, embedder, &cfg, opts...)
	s.id = snap.ID
	s.createdAt = snap.CreatedAt

	if err := importRecords(s.narrative.Backing(), snap.Narrative); err != nil {
		return nil, fmt.Errorf("narrative memory: %w", err)
	}

	for _, cs := range snap.Characters {
		store := s.newStore()
		if err := importRecords(store, cs.Memories); err != nil {
			return nil, fmt.Errorf("memory of %s: %w", cs.Character.Name, err)
		}
		c := character.FromState(cs.Character, store)
		name := c.Name()
		if _, exists := s.characters[name]; exists {
			return nil, fmt.Errorf("duplicate character %q in snapshot", name)
		}
		s.characters[name] = c
		s.order = append(s.order, name)
	}
	return s, nil
}

func exportRecords(store memory.Store) ([]memory.Record, error) {
	exp, ok := store.(memory.Exporter)
	if !ok {
		return nil, fmt.Errorf("store %T does not support export", store)
	}
	return exp.Export(), nil
}

func importRecords(store memory.Store, records []memory.Record) error {
	exp, ok := store.(memory.Exporter)
	if !ok {
		return fmt.Errorf("store %T does not support import", store)
	}
	return exp.Import(records)
}
