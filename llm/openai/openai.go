// Package openai adapts the OpenAI chat API to the llm.Generator contract
// using JSON-mode responses, the provider the original engine ran on.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/echoforge/echoforge-go/llm"
)

// Config configures the generator.
type Config struct {
	APIKey string

	// BaseURL overrides the API endpoint for compatible providers.
	BaseURL string

	// Model defaults to gpt-4-turbo-preview.
	Model string

	// Temperature defaults to 0.7.
	Temperature float32
}

// Generator implements llm.Generator over the OpenAI chat API.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// New creates an OpenAI-backed generator.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai generator: APIKey is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4-turbo-preview"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// GenerateBeat requests the next story beat in JSON mode and parses it into
// the structured response.
func (g *Generator) GenerateBeat(ctx context.Context, req *llm.BeatRequest) (*llm.BeatResponse, error) {
	prompt := llm.BuildBeatPrompt(req) + "\n\n" + jsonInstructions(req.BranchLabels)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llm.BeatSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, &llm.CallError{Op: "openai beat", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.ContractError{Reason: "beat response has no choices"}
	}

	var beat llm.BeatResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &beat); err != nil {
		return nil, &llm.ContractError{Reason: fmt.Sprintf("beat response is not valid JSON: %v", err)}
	}
	return &beat, nil
}

// GenerateReflection requests a character's internal monologue as plain text.
func (g *Generator) GenerateReflection(ctx context.Context, req *llm.ReflectionRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: llm.ReflectionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: llm.BuildReflectionPrompt(req)},
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return "", &llm.CallError{Op: "openai reflection", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &llm.ContractError{Reason: "reflection response has no choices"}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &llm.ContractError{Reason: "reflection response is empty"}
	}
	return text, nil
}

// jsonInstructions spells out the response shape for JSON mode, which has
// no schema enforcement of its own.
func jsonInstructions(branchLabels []string) string {
	var b strings.Builder
	b.WriteString(`Respond with a single JSON object:
{
  "text": "the story continuation (required)",
  "branch": "one declared branch label, or omit",
  "no_transition": true-when-staying-in-the-current-scene,
  "new_node": {"title": "...", "content": "...", "branch_label": "..."},
  "character_updates": {"<character name>": {"trait_deltas": {}, "goal_progress": {}, "relationships": {}, "new_goals": [], "learned": []}},
  "important_facts": ["..."]
}
Set at most one of "branch" and "new_node".`)
	if len(branchLabels) > 0 {
		b.WriteString("\nValid branch labels: ")
		b.WriteString(strings.Join(branchLabels, ", "))
	} else {
		b.WriteString("\nThe current scene declares no branches; use new_node or no_transition.")
	}
	return b.String()
}
