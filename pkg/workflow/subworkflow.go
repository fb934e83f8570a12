package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/protocol"
)

// ExecuteChild implements protocol.SubWorkflowExecutor: it creates a child
// execution linked to its parent and runs the child graph inline with the
// same executor.
func (e *Executor) ExecuteChild(ctx context.Context, parentExecutionID, workflowID string, seedVars map[string]any, depth int) (*models.Execution, map[string]any, error) {
	if depth > protocol.MaxSubWorkflowDepth {
		return nil, nil, fmt.Errorf("sub-workflow depth %d exceeds limit %d", depth, protocol.MaxSubWorkflowDepth)
	}

	child := &models.Execution{
		ID:          "exec-" + uuid.New().String()[:8],
		WorkflowID:  workflowID,
		Status:      models.ExecutionStatusPending,
		TriggeredBy: models.TriggeredBySubWorkflow,
		TriggerData: map[string]any{
			models.TriggerDataParentKey: parentExecutionID,
			"input":                     seedVars,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := e.persistence.ExecutionRepository().Create(ctx, child); err != nil {
		return nil, nil, fmt.Errorf("failed to create child execution: %w", err)
	}

	finished, err := e.run(ctx, child, depth, seedVars)
	if err != nil {
		return child, nil, fmt.Errorf("child execution %s: %w", child.ID, err)
	}

	if finished.Status != models.ExecutionStatusCompleted {
		return finished, finished.ResultData, fmt.Errorf("child execution %s finished %s: %s",
			finished.ID, finished.Status, finished.ErrorMessage)
	}

	return finished, finished.ResultData, nil
}
