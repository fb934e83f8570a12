package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/orchid-run/orchid/pkg/models"
)

// FilterHandler keeps the array items for which a boolean expression holds.
// Each item is bound as `item`; map items additionally expose their keys
// directly.
type FilterHandler struct{}

func NewFilterHandler() *FilterHandler {
	return &FilterHandler{}
}

func (h *FilterHandler) Kinds() []string {
	return []string{"filter"}
}

func (h *FilterHandler) Validate(config map[string]any) error {
	if _, ok := config["items"]; !ok {
		return errors.New("missing required field 'items'")
	}

	if expression, _ := config["expression"].(string); expression == "" {
		return errors.New("missing required field 'expression'")
	}

	return nil
}

func (h *FilterHandler) Execute(_ context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	items, err := resolveItems(config, "items", ectx)
	if err != nil {
		return nil, err
	}

	expression, _ := config["expression"].(string)

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling filter expression: %w", err)
	}

	kept := make([]any, 0, len(items))

	for i, item := range items {
		env := map[string]any{"item": item}
		if m, ok := item.(map[string]any); ok {
			for k, v := range m {
				env[k] = v
			}
		}

		matched, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("item %d: evaluating filter: %w", i, err)
		}

		if matched == true {
			kept = append(kept, item)
		}
	}

	ectx.SetVariable(outputVariable(config, "filtered"), kept)

	return &models.NodeResult{
		Output: map[string]any{
			"kept":    len(kept),
			"dropped": len(items) - len(kept),
			"results": kept,
		},
	}, nil
}
