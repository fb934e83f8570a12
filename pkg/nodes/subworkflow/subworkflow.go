// Package subworkflow provides the handler that runs another workflow's
// graph inline as a child execution.
package subworkflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/protocol"
	"github.com/orchid-run/orchid/pkg/template"
)

// DefaultOutputVariable receives the child's final snapshot when the node
// does not name one.
const DefaultOutputVariable = "sub_workflow_output"

// Handler executes a child workflow through the graph executor. The child
// gets a fresh context seeded only from input_mapping, so parent state never
// leaks in implicitly.
type Handler struct {
	executor protocol.SubWorkflowExecutor
}

func NewHandler(executor protocol.SubWorkflowExecutor) *Handler {
	return &Handler{executor: executor}
}

func (h *Handler) Kinds() []string {
	return []string{"sub_workflow", "subworkflow"}
}

func (h *Handler) Validate(config map[string]any) error {
	workflowID, _ := config["workflow_id"].(string)
	if workflowID == "" {
		return errors.New("missing required field 'workflow_id'")
	}

	if raw, ok := config["input_mapping"]; ok {
		if _, isMap := raw.(map[string]any); !isMap {
			return errors.New("'input_mapping' must be an object")
		}
	}

	return nil
}

func (h *Handler) Execute(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	workflowID, _ := config["workflow_id"].(string)

	depth := ectx.Depth + 1
	if depth > protocol.MaxSubWorkflowDepth {
		return nil, fmt.Errorf("sub-workflow depth %d exceeds limit %d", depth, protocol.MaxSubWorkflowDepth)
	}

	seedVars := map[string]any{}

	if mapping, ok := config["input_mapping"].(map[string]any); ok {
		for childVar, tmpl := range mapping {
			if s, isString := tmpl.(string); isString {
				seedVars[childVar] = template.ResolveValue(s, ectx)
			} else {
				seedVars[childVar] = tmpl
			}
		}
	}

	child, snapshot, err := h.executor.ExecuteChild(ctx, ectx.ExecutionID, workflowID, seedVars, depth)
	if err != nil {
		return nil, fmt.Errorf("sub-workflow %s: %w", workflowID, err)
	}

	outputVariable := DefaultOutputVariable
	if configured, ok := config["output_variable"].(string); ok && configured != "" {
		outputVariable = configured
	}

	ectx.SetVariable(outputVariable, snapshot)

	return &models.NodeResult{
		Output: map[string]any{
			"workflow_id":  workflowID,
			"execution_id": child.ID,
			"status":       string(child.Status),
			"output":       snapshot,
		},
	}, nil
}
