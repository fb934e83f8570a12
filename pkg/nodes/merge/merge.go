// Package merge provides the fan-in handler joining multiple branches.
package merge

import (
	"context"

	"github.com/orchid-run/orchid/pkg/models"
)

// Handler returns the union of every node output computed so far in the
// run. Because the executor walks the graph level by level, all upstream
// branches of a merge node have already produced their outputs by the time
// the merge executes; beyond that no ordering is guaranteed.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Kinds() []string {
	return []string{"merge"}
}

func (h *Handler) Validate(_ map[string]any) error {
	return nil
}

func (h *Handler) Execute(_ context.Context, ectx *models.ExecutionContext, _ *models.GraphNode) (*models.NodeResult, error) {
	outputs := ectx.NodeOutputs()

	merged := make(map[string]any, len(outputs))
	for nodeID, output := range outputs {
		merged[nodeID] = output
	}

	return &models.NodeResult{Output: merged}, nil
}
