package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/orchid-run/orchid/pkg/gateways"
	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// CRMHandler creates a lead through the CRM gateway.
type CRMHandler struct {
	gateway gateways.CRMGateway
}

func NewCRMHandler(gateway gateways.CRMGateway) *CRMHandler {
	return &CRMHandler{gateway: gateway}
}

func (h *CRMHandler) Kinds() []string {
	return []string{"crm:create_lead", "create_lead"}
}

func (h *CRMHandler) Validate(config map[string]any) error {
	name, _ := config["name"].(string)
	email, _ := config["email"].(string)

	if name == "" && email == "" {
		return errors.New("at least one of 'name' or 'email' is required")
	}

	return nil
}

func (h *CRMHandler) Execute(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	field := func(key string) string {
		value, _ := config[key].(string)
		return template.Resolve(value, ectx)
	}

	lead := gateways.Lead{
		Name:    field("name"),
		Email:   field("email"),
		Phone:   field("phone"),
		Company: field("company"),
		Source:  field("source"),
	}

	leadID, err := h.gateway.CreateLead(ctx, lead)
	if err != nil {
		return nil, fmt.Errorf("crm gateway: %w", err)
	}

	return &models.NodeResult{
		Output: map[string]any{
			"created": true,
			"lead_id": leadID,
			"email":   lead.Email,
		},
	}, nil
}
