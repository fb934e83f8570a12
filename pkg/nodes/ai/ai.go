// Package ai provides the chat-completion action handlers. All providers
// share one handler shape: build a templated system+user prompt, call the
// provider under the node timeout, store the text response in a variable.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// DefaultOutputVariable receives the response text when the node does not
// name one.
const DefaultOutputVariable = "ai_response"

const defaultMaxTokens = 1024

// CompletionRequest is the provider-independent prompt.
type CompletionRequest struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int
}

// Provider is one chat-completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Handler executes one AI node kind against its provider.
type Handler struct {
	kinds    []string
	provider Provider
}

// NewOpenAIHandler serves the OpenAI node kinds.
func NewOpenAIHandler(provider Provider) *Handler {
	return &Handler{kinds: []string{"ai:openai", "openai"}, provider: provider}
}

// NewClaudeHandler serves the Anthropic node kinds.
func NewClaudeHandler(provider Provider) *Handler {
	return &Handler{kinds: []string{"ai:claude", "claude", "anthropic"}, provider: provider}
}

// NewLocalHandler serves local OpenAI-compatible model servers.
func NewLocalHandler(provider Provider) *Handler {
	return &Handler{kinds: []string{"ai:local", "ollama"}, provider: provider}
}

func (h *Handler) Kinds() []string {
	return h.kinds
}

func (h *Handler) Validate(config map[string]any) error {
	prompt, _ := config["prompt"].(string)
	if prompt == "" {
		return errors.New("missing required field 'prompt'")
	}

	return nil
}

func (h *Handler) Execute(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	prompt, _ := config["prompt"].(string)
	system, _ := config["system_prompt"].(string)
	model, _ := config["model"].(string)

	maxTokens := defaultMaxTokens
	if configured, ok := config["max_tokens"].(float64); ok && configured > 0 {
		maxTokens = int(configured)
	}

	req := CompletionRequest{
		Model:     model,
		System:    template.Resolve(system, ectx),
		Prompt:    template.Resolve(prompt, ectx),
		MaxTokens: maxTokens,
	}

	response, err := h.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s provider: %w", h.provider.Name(), err)
	}

	outputVariable := DefaultOutputVariable
	if configured, ok := config["output_variable"].(string); ok && configured != "" {
		outputVariable = configured
	}

	ectx.SetVariable(outputVariable, response)

	return &models.NodeResult{
		Output: map[string]any{
			"response": response,
			"provider": h.provider.Name(),
			"model":    model,
		},
	}, nil
}
