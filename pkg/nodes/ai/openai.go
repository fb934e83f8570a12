package ai

import (
	"context"
	"errors"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to the OpenAI chat-completions API, or to any
// OpenAI-compatible server when built with a base URL.
type OpenAIProvider struct {
	name         string
	client       *goopenai.Client
	defaultModel string
}

// NewOpenAIProvider builds a provider against api.openai.com.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		name:         "openai",
		client:       goopenai.NewClient(apiKey),
		defaultModel: goopenai.GPT4oMini,
	}
}

// NewLocalProvider builds a provider against a local OpenAI-compatible
// server such as Ollama or llama.cpp.
func NewLocalProvider(baseURL, defaultModel string) *OpenAIProvider {
	config := goopenai.DefaultConfig("")
	config.BaseURL = baseURL

	return &OpenAIProvider{
		name:         "local",
		client:       goopenai.NewClientWithConfig(config),
		defaultModel: defaultModel,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: req.MaxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
