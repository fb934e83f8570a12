// Package messaging provides the outbound action handlers that deliver
// through the gateway clients: email, chat and CRM lead creation. Handlers
// resolve their templated fields and make exactly one delivery attempt;
// retry belongs to the job queue, not here.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/orchid-run/orchid/pkg/gateways"
	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// EmailHandler sends mail through the configured email gateway.
type EmailHandler struct {
	gateway gateways.EmailGateway
}

func NewEmailHandler(gateway gateways.EmailGateway) *EmailHandler {
	return &EmailHandler{gateway: gateway}
}

func (h *EmailHandler) Kinds() []string {
	return []string{"email:send", "send_email", "email"}
}

func (h *EmailHandler) Validate(config map[string]any) error {
	if to, _ := config["to"].(string); to == "" {
		return errors.New("missing required field 'to'")
	}

	if subject, _ := config["subject"].(string); subject == "" {
		return errors.New("missing required field 'subject'")
	}

	return nil
}

func (h *EmailHandler) Execute(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	toRaw, _ := config["to"].(string)
	subjectRaw, _ := config["subject"].(string)

	to := template.Resolve(toRaw, ectx)
	subject := template.Resolve(subjectRaw, ectx)

	body, _ := config["body"].(string)
	body = template.Resolve(body, ectx)

	recipients := splitRecipients(to)
	if len(recipients) == 0 {
		return nil, errors.New("'to' resolved to no recipients")
	}

	msg := gateways.EmailMessage{To: recipients, Subject: subject, Body: body}
	if err := h.gateway.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("email gateway: %w", err)
	}

	return &models.NodeResult{
		Output: map[string]any{
			"sent":    true,
			"to":      to,
			"subject": subject,
		},
	}, nil
}

func splitRecipients(to string) []string {
	var out []string

	for _, part := range strings.Split(to, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}

	return out
}
