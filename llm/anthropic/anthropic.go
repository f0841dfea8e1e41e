// Package anthropic adapts the Claude API to the llm.Generator contract.
// Beat generation forces a tool call whose input schema is the constrained
// BeatResponse schema, so the model cannot answer with free text.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/echoforge/echoforge-go/llm"
)

const beatToolName = "emit_story_beat"

// Config configures the generator.
type Config struct {
	// Model defaults to claude-sonnet-4-20250514.
	Model string

	// MaxTokens is the maximum response tokens. Defaults to 4096.
	MaxTokens int64
}

// Generator implements llm.Generator over the Anthropic client.
type Generator struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// New creates a generator with the given Anthropic client.
func New(client *anthropic.Client, cfg *Config) *Generator {
	g := &Generator{
		client:    client,
		model:     "claude-sonnet-4-20250514",
		maxTokens: 4096,
	}
	if cfg != nil {
		if cfg.Model != "" {
			g.model = cfg.Model
		}
		if cfg.MaxTokens > 0 {
			g.maxTokens = cfg.MaxTokens
		}
	}
	return g
}

// GenerateBeat requests the next story beat as a forced tool call against
// the branch-constrained schema.
func (g *Generator) GenerateBeat(ctx context.Context, req *llm.BeatRequest) (*llm.BeatResponse, error) {
	names := make([]string, 0, len(req.Characters))
	for _, c := range req.Characters {
		names = append(names, c.Name)
	}
	schema := llm.BeatResponseSchema(req.BranchLabels, names)

	var required []string
	if r, ok := schema["required"].([]string); ok {
		required = r
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: llm.BeatSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(llm.BuildBeatPrompt(req))),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        beatToolName,
					Description: anthropic.String("Emit the next story beat as structured data."),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: schema["properties"],
						Required:   required,
					},
				},
			},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: beatToolName},
		},
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &llm.CallError{Op: "anthropic beat", Err: err}
	}

	for _, block := range resp.Content {
		if block.Type != "tool_use" || block.Name != beatToolName {
			continue
		}
		var beat llm.BeatResponse
		if err := json.Unmarshal(block.Input, &beat); err != nil {
			return nil, &llm.ContractError{Reason: fmt.Sprintf("beat tool input is not valid JSON: %v", err)}
		}
		return &beat, nil
	}
	return nil, &llm.ContractError{Reason: "response contains no beat tool call"}
}

// GenerateReflection requests a character's internal monologue as plain text.
func (g *Generator) GenerateReflection(ctx context.Context, req *llm.ReflectionRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: llm.ReflectionSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(llm.BuildReflectionPrompt(req))),
		},
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", &llm.CallError{Op: "anthropic reflection", Err: err}
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", &llm.ContractError{Reason: "reflection response contains no text"}
	}
	return text, nil
}
