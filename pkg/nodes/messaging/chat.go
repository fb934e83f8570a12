package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/orchid-run/orchid/pkg/gateways"
	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// ChatHandler posts a message through the chat gateway.
type ChatHandler struct {
	gateway gateways.ChatGateway
}

func NewChatHandler(gateway gateways.ChatGateway) *ChatHandler {
	return &ChatHandler{gateway: gateway}
}

func (h *ChatHandler) Kinds() []string {
	return []string{"chat:send", "send_chat_message"}
}

func (h *ChatHandler) Validate(config map[string]any) error {
	if message, _ := config["message"].(string); message == "" {
		return errors.New("missing required field 'message'")
	}

	return nil
}

func (h *ChatHandler) Execute(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	message, _ := config["message"].(string)
	text := template.Resolve(message, ectx)

	channel, _ := config["channel"].(string)
	channel = template.Resolve(channel, ectx)

	if err := h.gateway.Post(ctx, gateways.ChatMessage{Channel: channel, Text: text}); err != nil {
		return nil, fmt.Errorf("chat gateway: %w", err)
	}

	output := map[string]any{"sent": true, "message": text}
	if channel != "" {
		output["channel"] = channel
	}

	return &models.NodeResult{Output: output}, nil
}
