package llm

import (
	"fmt"
	"sort"
	"strings"
)

// BeatSystemPrompt frames the beat-generation call.
const BeatSystemPrompt = "You are a master storyteller running a turn-based interactive narrative."

// ReflectionSystemPrompt frames reflection calls.
const ReflectionSystemPrompt = "You write a character's private internal monologue. Stay in character; the monologue is never shown as narrative text."

// BuildBeatPrompt renders a BeatRequest as the prompt text both adapters
// share. The structured decision itself (branch, updates) is carried by the
// response schema, not by prose instructions.
func BuildBeatPrompt(req *BeatRequest) string {
	var b strings.Builder

	b.WriteString("Current story state:\n")
	b.WriteString(req.NodeContent)
	b.WriteString("\n\nRelevant memories:\n")
	writeList(&b, req.Memories)

	if len(req.Characters) > 0 {
		b.WriteString("\nCharacters present:\n")
		for _, c := range req.Characters {
			writeCharacter(&b, c)
		}
	}

	if len(req.Monologues) > 0 {
		b.WriteString("\nPrivate character reflections for this turn (do not quote verbatim):\n")
		for _, name := range sortedKeys(req.Monologues) {
			fmt.Fprintf(&b, "%s: %s\n", name, req.Monologues[name])
		}
	}

	if len(req.BranchLabels) > 0 {
		b.WriteString("\nDeclared branches from the current scene: ")
		b.WriteString(strings.Join(req.BranchLabels, ", "))
		b.WriteString("\n")
	}

	b.WriteString("\nPlayer input:\n")
	b.WriteString(req.UserInput)
	b.WriteString(`

Continue the story in second person. Respond naturally to the player's input,
stay consistent with memories and character knowledge, and advance character
relationships where the scene warrants it. Choose exactly one of: a declared
branch label, a new scene continuation, or an explicit no-transition for
interactions that stay in the current scene.`)

	return b.String()
}

// BuildReflectionPrompt renders a ReflectionRequest as prompt text.
func BuildReflectionPrompt(req *ReflectionRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s.\n", req.Character.Name)
	writeCharacter(&b, req.Character)

	b.WriteString("\nWhat everyone knows about the scene:\n")
	writeList(&b, req.NarrativeMemories)

	b.WriteString("\nThe player just did the following:\n")
	b.WriteString(req.UserInput)
	b.WriteString(`

Write a short internal monologue: what this character privately notices,
feels, and intends right now. First person, a few sentences, no narration.`)

	return b.String()
}

func writeCharacter(b *strings.Builder, c CharacterContext) {
	fmt.Fprintf(b, "- %s", c.Name)
	if c.Archetype != "" {
		fmt.Fprintf(b, " (%s)", c.Archetype)
	}
	b.WriteString("\n")
	if c.Background != "" {
		fmt.Fprintf(b, "  Background: %s\n", c.Background)
	}
	if len(c.Traits) > 0 {
		names := make([]string, 0, len(c.Traits))
		for name := range c.Traits {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s %.1f", name, c.Traits[name]))
		}
		fmt.Fprintf(b, "  Traits: %s\n", strings.Join(parts, ", "))
	}
	for _, g := range c.Goals {
		fmt.Fprintf(b, "  Goal (priority %.1f): %s\n", g.Priority, g.Description)
	}
	if len(c.Memories) > 0 {
		b.WriteString("  Private memories:\n")
		for _, m := range c.Memories {
			fmt.Fprintf(b, "    - %s\n", m)
		}
	}
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
