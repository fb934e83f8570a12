package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/orchid-run/orchid/pkg/gateways"
	"github.com/orchid-run/orchid/pkg/nodes/ai"
	"github.com/orchid-run/orchid/pkg/protocol"
	"github.com/orchid-run/orchid/pkg/registry"
)

// NewRegistry builds the handler registry with every builtin whose
// credentials are present in the environment. Handlers with missing
// credentials stay unregistered instead of failing at execution time.
func NewRegistry(logger *slog.Logger, counters protocol.CounterStore, subWorkflows protocol.SubWorkflowExecutor) (*registry.Registry, error) {
	deps := registry.Deps{
		Logger:       logger,
		Counters:     counters,
		SubWorkflows: subWorkflows,
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		deps.OpenAIProvider = ai.NewOpenAIProvider(apiKey)
	}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		deps.ClaudeProvider = ai.NewClaudeProvider(apiKey)
	}

	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		deps.LocalProvider = ai.NewLocalProvider(baseURL, os.Getenv("OLLAMA_MODEL"))
	}

	if addr := os.Getenv("SMTP_ADDR"); addr != "" {
		deps.EmailGateway = gateways.NewSMTPGateway(
			addr,
			os.Getenv("SMTP_FROM"),
			os.Getenv("SMTP_USERNAME"),
			os.Getenv("SMTP_PASSWORD"),
		)
	}

	if webhookURL := os.Getenv("CHAT_WEBHOOK_URL"); webhookURL != "" {
		deps.ChatGateway = gateways.NewWebhookChatGateway(webhookURL)
	}

	if baseURL := os.Getenv("CRM_BASE_URL"); baseURL != "" {
		deps.CRMGateway = gateways.NewHTTPCRMGateway(baseURL, os.Getenv("CRM_API_KEY"))
	}

	reg := registry.NewRegistry(logger)
	if err := registry.RegisterBuiltins(reg, deps); err != nil {
		return nil, fmt.Errorf("failed to register builtin handlers: %w", err)
	}

	return reg, nil
}
