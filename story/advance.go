package story

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/echoforge/echoforge-go/character"
	"github.com/echoforge/echoforge-go/graph"
	"github.com/echoforge/echoforge-go/llm"
	"github.com/echoforge/echoforge-go/memory"
)

// Warning reports a degraded reflection for one character: the turn went
// through, but that character's monologue is absent.
type Warning struct {
	Character string
	Err       error
}

// TurnResult is what one turn returns to the caller.
type TurnResult struct {
	// Beat is the generated narrative text.
	Beat string

	// NodeID is the current node after the turn.
	NodeID string

	// Choices are the branch labels declared on the current node.
	Choices []string

	// Monologues maps character name to internal monologue. Characters
	// whose reflection failed are absent; iterate in
	// Story.CharacterNames() order for deterministic output.
	Monologues map[string]string

	// Warnings lists characters whose reflections degraded.
	Warnings []Warning

	// Ended reports that the current node is terminal: no declared
	// branches and no generated continuation.
	Ended bool
}

// Advance runs one turn: narrative retrieval, concurrent per-character
// reflections, one beat-generation call, validation, then an atomic commit
// of the graph transition, character updates, and memory writes.
//
// A reflection failure degrades to a Warning and the turn proceeds. A beat
// failure or contract violation aborts the turn with no observable state
// change; the caller may safely retry with the same input. Cancellation is
// honored up to the commit boundary; once the commit starts it completes.
func (s *Story) Advance(ctx context.Context, userInput string) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.graph.Current()
	labels := branchLabels(current)

	// Step 1: retrieve narrative memories (read-only).
	retrieved, err := s.narrative.Retrieve(ctx, userInput, s.config.RetrievalTopK, nil)
	if err != nil {
		return nil, err
	}
	memories := make([]string, len(retrieved))
	for i, r := range retrieved {
		memories[i] = r.Content
	}

	// Step 2: fan out reflections, one per character, merged back in
	// story order.
	charCtxs, monologues, warnings := s.reflect(ctx, userInput, memories)

	// Step 3: the single beat call. This is the sole authority on the
	// turn's outcome and the commit gate for all mutation.
	req := &llm.BeatRequest{
		NodeContent:  current.Content,
		UserInput:    userInput,
		Memories:     memories,
		Monologues:   monologues,
		BranchLabels: labels,
		Characters:   charCtxs,
	}
	var resp *llm.BeatResponse
	err = llm.Retry(ctx, s.retry, func(ctx context.Context) error {
		var callErr error
		resp, callErr = s.gen.GenerateBeat(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	// Step 4: validate the untrusted response and stage every mutation,
	// including memory embeddings. Nothing is applied yet; any failure
	// here leaves the story untouched.
	staged, err := s.stageTurn(ctx, userInput, current, resp)
	if err != nil {
		return nil, err
	}

	// Last cancellation point before the commit boundary.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Steps 5-6: commit. Uninterruptible by design.
	if err := s.commitTurn(staged); err != nil {
		return nil, err
	}

	after := s.graph.Current()
	return &TurnResult{
		Beat:       resp.Text,
		NodeID:     after.ID,
		Choices:    branchLabels(after),
		Monologues: monologues,
		Warnings:   warnings,
		// A freshly generated node is itself the continuation, so only a
		// branchless node reached without one ends the session.
		Ended: after.Terminal() && staged.newNode == nil,
	}, nil
}

// reflect issues one reflection call per character concurrently. Calls are
// independent: no character's reflection sees another's from the same turn.
// Results merge by story order regardless of completion order, and each
// failure degrades to a warning rather than aborting the turn.
func (s *Story) reflect(ctx context.Context, userInput string, narrative []string) ([]llm.CharacterContext, map[string]string, []Warning) {
	n := len(s.order)
	charCtxs := make([]llm.CharacterContext, n)
	monologues := make([]string, n)
	reflected := make([]bool, n)
	failures := make([]error, n)

	var g errgroup.Group
	for i, name := range s.order {
		i := i
		c := s.characters[name]
		g.Go(func() error {
			cc, err := s.assembleContext(ctx, c, userInput)
			if err != nil {
				charCtxs[i] = personalityContext(c)
				failures[i] = err
				return nil
			}
			charCtxs[i] = cc

			var mono string
			err = llm.Retry(ctx, s.retry, func(ctx context.Context) error {
				var callErr error
				mono, callErr = s.gen.GenerateReflection(ctx, &llm.ReflectionRequest{
					Character:         cc,
					UserInput:         userInput,
					NarrativeMemories: narrative,
				})
				return callErr
			})
			if err != nil {
				failures[i] = err
				return nil
			}
			monologues[i] = mono
			reflected[i] = true
			return nil
		})
	}
	// Goroutines report failures through the slices, never as errors, so
	// one character cannot cancel another's reflection.
	_ = g.Wait()

	merged := make(map[string]string, n)
	var warnings []Warning
	for i, name := range s.order {
		if reflected[i] {
			merged[name] = monologues[i]
			continue
		}
		log.Printf("[STORY] reflection degraded for %s: %v", name, failures[i])
		warnings = append(warnings, Warning{Character: name, Err: failures[i]})
	}
	return charCtxs, merged, warnings
}

// stagedTurn carries a validated turn's mutations, ready to apply without
// further failure points.
type stagedTurn struct {
	newNode     *graph.Node
	branchFrom  string
	branchLabel string
	moveTo      string // node id to become current; empty means stay

	updates []stagedUpdate
	learned []stagedLearning
	beats   []*memory.Staged // narrative records
}

type stagedUpdate struct {
	target *character.Character
	update character.Update
}

type stagedLearning struct {
	target *character.Character
	staged *memory.Staged
}

// stageTurn validates the beat response against the current node and
// character set and pre-embeds every memory write. The response is boundary
// data: nothing in it is trusted until checked here.
func (s *Story) stageTurn(ctx context.Context, userInput string, current *graph.Node, resp *llm.BeatResponse) (*stagedTurn, error) {
	if resp == nil || resp.Text == "" {
		return nil, &llm.ContractError{Reason: "beat text is missing"}
	}
	if resp.Branch != "" && resp.NewNode != nil {
		return nil, &llm.ContractError{Reason: "response sets both branch and new_node"}
	}
	if resp.NoTransition && (resp.Branch != "" || resp.NewNode != nil) {
		return nil, &llm.ContractError{Reason: "no_transition contradicts a transition directive"}
	}

	st := &stagedTurn{branchFrom: current.ID}

	switch {
	case resp.Branch != "":
		target, ok := current.BranchTarget(resp.Branch)
		if !ok {
			return nil, &llm.ContractError{Reason: fmt.Sprintf("branch %q is not declared on node %q", resp.Branch, current.ID)}
		}
		st.moveTo = target
	case resp.NewNode != nil:
		hint := resp.NewNode
		if hint.Content == "" {
			return nil, &llm.ContractError{Reason: "new_node content is missing"}
		}
		if hint.BranchLabel == "" {
			return nil, &llm.ContractError{Reason: "new_node branch_label is missing"}
		}
		if _, exists := current.BranchTarget(hint.BranchLabel); exists {
			return nil, &llm.ContractError{Reason: fmt.Sprintf("new_node label %q already declared on node %q", hint.BranchLabel, current.ID)}
		}
		title := hint.Title
		if title == "" {
			title = fmt.Sprintf("Response to: %.48s", userInput)
		}
		st.newNode = graph.NewNode(uuid.New().String(), title, hint.Content)
		st.branchLabel = hint.BranchLabel
		st.moveTo = st.newNode.ID
	}

	// Character directives must name known characters and carry finite
	// numbers; a malformed directive rejects the whole response rather
	// than applying partially.
	for name := range resp.CharacterUpdates {
		if _, ok := s.characters[name]; !ok {
			return nil, &llm.ContractError{Reason: fmt.Sprintf("update targets unknown character %q", name)}
		}
	}
	for _, name := range s.order {
		u, ok := resp.CharacterUpdates[name]
		if !ok {
			continue
		}
		c := s.characters[name]
		update := character.Update{
			TraitDeltas:   u.TraitDeltas,
			GoalProgress:  u.GoalProgress,
			Relationships: u.Relationships,
		}
		for _, vals := range []map[string]float64{u.TraitDeltas, u.GoalProgress, u.Relationships} {
			for key, v := range vals {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, &llm.ContractError{Reason: fmt.Sprintf("non-finite value for %q in update of %q", key, name)}
				}
			}
		}
		for _, g := range u.NewGoals {
			if g.Description == "" {
				return nil, &llm.ContractError{Reason: fmt.Sprintf("empty goal description in update of %q", name)}
			}
			update.NewGoals = append(update.NewGoals, character.Goal{
				Description: g.Description,
				Priority:    g.Priority,
			})
		}
		st.updates = append(st.updates, stagedUpdate{target: c, update: update})

		for _, fact := range u.Learned {
			if fact == "" {
				continue
			}
			pending, err := c.Memory().Stage(ctx, fact, map[string]any{"type": "learned_knowledge"})
			if err != nil {
				return nil, err
			}
			st.learned = append(st.learned, stagedLearning{target: c, staged: pending})
		}
	}

	// Narrative writes: the beat itself plus any flagged facts.
	beatNodeID := current.ID
	if st.moveTo != "" {
		beatNodeID = st.moveTo
	}
	pending, err := s.narrative.Stage(ctx, resp.Text, map[string]any{
		"type":  "beat",
		"node":  beatNodeID,
		"input": userInput,
	})
	if err != nil {
		return nil, err
	}
	st.beats = append(st.beats, pending)
	for _, fact := range resp.ImportantFacts {
		if fact == "" {
			continue
		}
		pending, err := s.narrative.Stage(ctx, fact, map[string]any{
			"type":       "fact",
			"importance": 0.8,
		})
		if err != nil {
			return nil, err
		}
		st.beats = append(st.beats, pending)
	}

	return st, nil
}

// commitTurn applies a staged turn. Every failable step ran in stageTurn;
// the graph errors below are unreachable for validated input and exist as
// construction-invariant checks.
func (s *Story) commitTurn(st *stagedTurn) error {
	if st.newNode != nil {
		if err := s.graph.AddNode(st.newNode); err != nil {
			return err
		}
		if err := s.graph.AddBranch(st.branchFrom, st.branchLabel, st.newNode.ID); err != nil {
			return err
		}
	}
	if st.moveTo != "" {
		if err := s.graph.SetCurrent(st.moveTo); err != nil {
			return err
		}
	}

	for _, u := range st.updates {
		u.target.ApplyUpdate(u.update)
	}
	for _, l := range st.learned {
		l.target.Memory().Commit(l.staged)
	}
	for _, b := range st.beats {
		s.narrative.Commit(b)
	}
	return nil
}
