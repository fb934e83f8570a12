// Package trigger provides the pass-through handlers for workflow entry
// nodes.
package trigger

import (
	"context"

	"github.com/orchid-run/orchid/pkg/models"
)

// Handler serves every trigger kind. Trigger nodes do not run any logic at
// execution time: the external entry point (webhook receiver, scheduler,
// manual API call) already produced the trigger payload, so the node simply
// passes it downstream.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Kinds() []string {
	return []string{
		models.NodeKindTriggerWebhook,
		models.NodeKindTriggerSchedule,
		models.NodeKindTriggerManual,
		"webhook_trigger",
		"schedule_trigger",
		"manual_trigger",
	}
}

func (h *Handler) Validate(_ map[string]any) error {
	return nil
}

func (h *Handler) Execute(_ context.Context, ectx *models.ExecutionContext, _ *models.GraphNode) (*models.NodeResult, error) {
	output := make(map[string]any, len(ectx.TriggerData()))
	for k, v := range ectx.TriggerData() {
		output[k] = v
	}

	return &models.NodeResult{Output: output}, nil
}
