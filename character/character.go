// Package character models story characters: a personality of traits and
// goals plus a private memory bank. Characters assemble their own context
// for generation but never call the generation collaborator themselves;
// the orchestrator mediates every model call, which keeps this package
// testable without a live model.
package character

import (
	"context"
	"fmt"
	"math"

	"github.com/echoforge/echoforge-go/memory"
)

// Trait is a named personality trait with an intensity in [0,1].
type Trait struct {
	Name        string  `json:"name"`
	Intensity   float64 `json:"intensity"`
	Description string  `json:"description,omitempty"`
}

// Goal is something the character is working toward.
type Goal struct {
	Description string  `json:"description"`
	Priority    float64 `json:"priority"`
	LongTerm    bool    `json:"long_term,omitempty"`
	Progress    float64 `json:"progress,omitempty"`
}

// Personality holds a character's trait intensities, ordered goals, and
// sentiment toward other characters.
type Personality struct {
	Traits        map[string]Trait   `json:"traits,omitempty"`
	Goals         []Goal             `json:"goals,omitempty"`
	Relationships map[string]float64 `json:"relationships,omitempty"` // other name -> sentiment [-1,1]
	Archetype     string             `json:"archetype,omitempty"`
	Background    string             `json:"background,omitempty"`
}

// Update carries the state changes a generated beat directed at one
// character. All numeric values are clamped on application, never rejected.
type Update struct {
	TraitDeltas   map[string]float64
	GoalProgress  map[string]float64 // goal description -> absolute progress
	Relationships map[string]float64 // other name -> absolute sentiment
	NewGoals      []Goal
	Learned       []string
}

// Character binds a name, a personality, and an exclusively owned memory
// bank scoped to the character's name.
type Character struct {
	name             string
	personality      Personality
	bank             *memory.Bank
	initialKnowledge []string
}

// Option configures a character.
type Option func(*Character)

// WithInitialKnowledge seeds facts into the character's memory when the
// character joins a story.
func WithInitialKnowledge(facts ...string) Option {
	return func(c *Character) {
		c.initialKnowledge = append(c.initialKnowledge, facts...)
	}
}

// New creates a character over its own memory store. The store must not be
// shared with any other character or with the narrative bank.
func New(name string, personality Personality, store memory.Store, opts ...Option) *Character {
	if personality.Traits == nil {
		personality.Traits = make(map[string]Trait)
	}
	if personality.Relationships == nil {
		personality.Relationships = make(map[string]float64)
	}
	c := &Character{
		name:        name,
		personality: personality,
		bank:        memory.NewBank(store, name),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the character's name, unique within a story.
func (c *Character) Name() string {
	return c.name
}

// Personality returns a copy of the personality state.
func (c *Character) Personality() Personality {
	return copyPersonality(c.personality)
}

// Memory returns the character's private bank.
func (c *Character) Memory() *memory.Bank {
	return c.bank
}

// SeedKnowledge writes the character's initial knowledge into memory.
// Called once when the character joins a story.
func (c *Character) SeedKnowledge(ctx context.Context) error {
	for _, fact := range c.initialKnowledge {
		_, err := c.bank.Store(ctx, fact, map[string]any{"type": "initial_knowledge"})
		if err != nil {
			return fmt.Errorf("seed knowledge for %s: %w", c.name, err)
		}
	}
	return nil
}

// Context is the character's assembled view for a generation call.
type Context struct {
	Name          string
	Traits        map[string]float64
	Goals         []Goal
	Relationships map[string]float64
	Archetype     string
	Background    string
	Memories      []memory.Result
}

// Context assembles trait intensities, active goals, and the top-k personal
// memories relevant to topic. Read-only: no character state changes.
func (c *Character) Context(ctx context.Context, topic string, topK int) (*Context, error) {
	memories, err := c.bank.Retrieve(ctx, topic, topK, nil)
	if err != nil {
		return nil, err
	}

	traits := make(map[string]float64, len(c.personality.Traits))
	for name, t := range c.personality.Traits {
		traits[name] = t.Intensity
	}

	return &Context{
		Name:          c.name,
		Traits:        traits,
		Goals:         append([]Goal(nil), c.personality.Goals...),
		Relationships: copyFloatMap(c.personality.Relationships),
		Archetype:     c.personality.Archetype,
		Background:    c.personality.Background,
		Memories:      memories,
	}, nil
}

// Learn writes new knowledge to the character's private memory. It never
// touches the personality.
func (c *Character) Learn(ctx context.Context, knowledge string, metadata map[string]any) error {
	md := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		md[k] = v
	}
	if _, ok := md["type"]; !ok {
		md["type"] = "learned_knowledge"
	}
	_, err := c.bank.Store(ctx, knowledge, md)
	return err
}

// Recall retrieves the character's own memories relevant to query.
func (c *Character) Recall(ctx context.Context, query string, limit int) ([]string, error) {
	results, err := c.bank.Retrieve(ctx, query, limit, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Content
	}
	return out, nil
}

// ApplyUpdate is the only personality mutator. Trait intensities, goal
// progress, and priorities saturate into [0,1]; relationship sentiment
// saturates into [-1,1]. Values never wrap and never error on overflow.
func (c *Character) ApplyUpdate(u Update) {
	for name, delta := range u.TraitDeltas {
		t, ok := c.personality.Traits[name]
		if !ok {
			t = Trait{Name: name}
		}
		t.Intensity = clamp(t.Intensity+delta, 0, 1)
		c.personality.Traits[name] = t
	}

	for desc, progress := range u.GoalProgress {
		for i := range c.personality.Goals {
			if c.personality.Goals[i].Description == desc {
				c.personality.Goals[i].Progress = clamp(progress, 0, 1)
				break
			}
		}
	}

	for other, sentiment := range u.Relationships {
		c.personality.Relationships[other] = clamp(sentiment, -1, 1)
	}

	for _, g := range u.NewGoals {
		g.Priority = clamp(g.Priority, 0, 1)
		g.Progress = clamp(g.Progress, 0, 1)
		c.personality.Goals = append(c.personality.Goals, g)
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

func copyPersonality(p Personality) Personality {
	out := Personality{
		Traits:        make(map[string]Trait, len(p.Traits)),
		Goals:         append([]Goal(nil), p.Goals...),
		Relationships: copyFloatMap(p.Relationships),
		Archetype:     p.Archetype,
		Background:    p.Background,
	}
	for k, v := range p.Traits {
		out.Traits[k] = v
	}
	return out
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
