// Package story is the turn orchestrator. A Story owns a narrative graph,
// a narrative memory bank, and an ordered set of characters, and advances
// them one turn at a time: retrieve, reflect, generate, validate, commit.
package story

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echoforge/echoforge-go/character"
	"github.com/echoforge/echoforge-go/graph"
	"github.com/echoforge/echoforge-go/llm"
	"github.com/echoforge/echoforge-go/memory"
)

// Config holds story-level settings.
type Config struct {
	Title       string
	Description string

	// MemoryCapacity caps each memory store (narrative and per-character).
	// Defaults to 1000.
	MemoryCapacity int

	// RetrievalTopK bounds memory retrieval per query. Defaults to 5.
	RetrievalTopK int

	// Retry bounds every generation call. Zero value uses llm.DefaultRetry.
	Retry llm.RetryConfig
}

// DefaultConfig matches the original engine's defaults.
var DefaultConfig = &Config{
	MemoryCapacity: 1000,
	RetrievalTopK:  5,
}

// StoreFactory builds a fresh memory store. Each call must return an
// instance not shared with any other bank.
type StoreFactory func() memory.Store

// Story is one narrative session: graph, memories, and characters. It is
// the unit of persistence and of concurrency isolation; turns on the same
// Story are serialized, and no memory store is shared across stories.
type Story struct {
	id        string
	createdAt time.Time
	config    Config
	retry     llm.RetryConfig

	gen      llm.Generator
	embedder memory.Embedder
	newStore StoreFactory

	// mu serializes turns: a second Advance cannot begin while a prior
	// turn is in flight, so graph transitions never interleave.
	mu         sync.Mutex
	graph      *graph.Graph
	narrative  *memory.Bank
	characters map[string]*character.Character
	order      []string // character names in insertion order
}

// Option configures a story.
type Option func(*Story)

// WithID fixes the story id instead of generating one.
func WithID(id string) Option {
	return func(s *Story) {
		s.id = id
	}
}

// WithStoreFactory swaps the memory backend used for the narrative bank and
// for characters created through NewCharacter.
func WithStoreFactory(f StoreFactory) Option {
	return func(s *Story) {
		s.newStore = f
	}
}

// New creates a story over an already-built graph. The graph's start node
// is the initial current node.
func New(g *graph.Graph, gen llm.Generator, embedder memory.Embedder, config *Config, opts ...Option) *Story {
	if config == nil {
		config = DefaultConfig
	}
	cfg := *config
	if cfg.MemoryCapacity == 0 {
		cfg.MemoryCapacity = DefaultConfig.MemoryCapacity
	}
	if cfg.RetrievalTopK == 0 {
		cfg.RetrievalTopK = DefaultConfig.RetrievalTopK
	}
	retry := cfg.Retry
	if retry.Attempts == 0 {
		retry = llm.DefaultRetry
	}

	s := &Story{
		id:         uuid.New().String(),
		createdAt:  time.Now(),
		config:     cfg,
		retry:      retry,
		gen:        gen,
		embedder:   embedder,
		graph:      g,
		characters: make(map[string]*character.Character),
	}
	s.newStore = func() memory.Store {
		return memory.NewVectorStore(embedder, &memory.Config{Capacity: cfg.MemoryCapacity})
	}
	for _, opt := range opts {
		opt(s)
	}
	s.narrative = memory.NewBank(s.newStore(), memory.NarrativeScope)
	return s
}

// ID returns the story id.
func (s *Story) ID() string {
	return s.id
}

// CreatedAt returns the story creation timestamp.
func (s *Story) CreatedAt() time.Time {
	return s.createdAt
}

// Title returns the configured title.
func (s *Story) Title() string {
	return s.config.Title
}

// CharacterNames returns character names in their deterministic story
// order, the order reflections run and merged monologues follow.
func (s *Story) CharacterNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Character returns a character by name.
func (s *Story) Character(name string) (*character.Character, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[name]
	return c, ok
}

// CurrentNodeID returns the id of the graph's current node.
func (s *Story) CurrentNodeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Current().ID
}

// NarrativeMemory returns the story-wide bank.
func (s *Story) NarrativeMemory() *memory.Bank {
	return s.narrative
}

// AddCharacter registers a pre-built character and seeds its initial
// knowledge. Character names must be unique within the story.
func (s *Story) AddCharacter(ctx context.Context, c *character.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := c.Name()
	if _, exists := s.characters[name]; exists {
		return fmt.Errorf("character %q already in story", name)
	}
	if err := c.SeedKnowledge(ctx); err != nil {
		return err
	}
	s.characters[name] = c
	s.order = append(s.order, name)
	return nil
}

// NewCharacter builds a character over a store from the story's factory and
// adds it.
func (s *Story) NewCharacter(ctx context.Context, name string, p character.Personality, opts ...character.Option) (*character.Character, error) {
	c := character.New(name, p, s.newStore(), opts...)
	if err := s.AddCharacter(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Start positions the story at its entry node (or entryNodeID if given) and
// returns the opening beat.
func (s *Story) Start(entryNodeID string) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryNodeID == "" {
		entryNodeID = s.graph.StartID()
	}
	if err := s.graph.SetCurrent(entryNodeID); err != nil {
		return nil, err
	}
	node := s.graph.Current()
	return &TurnResult{
		Beat:    node.Content,
		NodeID:  node.ID,
		Choices: branchLabels(node),
		Ended:   node.Terminal(),
	}, nil
}

// Speak generates dialogue-style text for one character on a topic, using
// the character's personality and private memories. Read-only.
func (s *Story) Speak(ctx context.Context, name, topic string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.characters[name]
	if !ok {
		return "", fmt.Errorf("character %q not in story", name)
	}
	cc, err := s.assembleContext(ctx, c, topic)
	if err != nil {
		return "", err
	}

	var text string
	err = llm.Retry(ctx, s.retry, func(ctx context.Context) error {
		var callErr error
		text, callErr = s.gen.GenerateReflection(ctx, &llm.ReflectionRequest{
			Character: cc,
			UserInput: topic,
		})
		return callErr
	})
	return text, err
}

// assembleContext converts a character's assembled view into the generator's
// plain-data form.
func (s *Story) assembleContext(ctx context.Context, c *character.Character, topic string) (llm.CharacterContext, error) {
	cc, err := c.Context(ctx, topic, s.config.RetrievalTopK)
	if err != nil {
		return llm.CharacterContext{}, err
	}

	goals := make([]llm.GoalContext, len(cc.Goals))
	for i, g := range cc.Goals {
		goals[i] = llm.GoalContext{
			Description: g.Description,
			Priority:    g.Priority,
			Progress:    g.Progress,
		}
	}
	memories := make([]string, len(cc.Memories))
	for i, m := range cc.Memories {
		memories[i] = m.Content
	}

	return llm.CharacterContext{
		Name:          cc.Name,
		Traits:        cc.Traits,
		Goals:         goals,
		Relationships: cc.Relationships,
		Archetype:     cc.Archetype,
		Background:    cc.Background,
		Memories:      memories,
	}, nil
}

// personalityContext is the no-retrieval fallback when memory retrieval for
// a character fails mid-turn.
func personalityContext(c *character.Character) llm.CharacterContext {
	p := c.Personality()
	traits := make(map[string]float64, len(p.Traits))
	for name, t := range p.Traits {
		traits[name] = t.Intensity
	}
	goals := make([]llm.GoalContext, len(p.Goals))
	for i, g := range p.Goals {
		goals[i] = llm.GoalContext{Description: g.Description, Priority: g.Priority, Progress: g.Progress}
	}
	return llm.CharacterContext{
		Name:          c.Name(),
		Traits:        traits,
		Goals:         goals,
		Relationships: p.Relationships,
		Archetype:     p.Archetype,
		Background:    p.Background,
	}
}

func branchLabels(n *graph.Node) []string {
	branches := n.Branches()
	labels := make([]string, 0, len(branches))
	for label := range branches {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
