package data

import (
	"context"
	"errors"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// IteratorHandler fans an array out: for every element it binds the item
// (and its index) as variables, resolves the body expression, and collects
// the per-item results into the output variable.
type IteratorHandler struct{}

func NewIteratorHandler() *IteratorHandler {
	return &IteratorHandler{}
}

func (h *IteratorHandler) Kinds() []string {
	return []string{"iterator", "for_each"}
}

func (h *IteratorHandler) Validate(config map[string]any) error {
	if _, ok := config["items"]; !ok {
		return errors.New("missing required field 'items'")
	}

	if expression, _ := config["expression"].(string); expression == "" {
		return errors.New("missing required field 'expression'")
	}

	return nil
}

func (h *IteratorHandler) Execute(_ context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	items, err := resolveItems(config, "items", ectx)
	if err != nil {
		return nil, err
	}

	itemVariable := "item"
	if configured, ok := config["item_variable"].(string); ok && configured != "" {
		itemVariable = configured
	}

	expression, _ := config["expression"].(string)

	// The loop variables shadow same-named workflow variables for the
	// duration of the fan-out, then the previous bindings come back.
	previousItem := ectx.GetVariable(itemVariable, nil)
	previousIndex := ectx.GetVariable("index", nil)
	hadItem := ectx.HasVariable(itemVariable)
	hadIndex := ectx.HasVariable("index")

	results := make([]any, 0, len(items))

	for i, item := range items {
		ectx.SetVariable(itemVariable, item)
		ectx.SetVariable("index", i)

		results = append(results, template.ResolveValue(expression, ectx))
	}

	if hadItem {
		ectx.SetVariable(itemVariable, previousItem)
	} else {
		ectx.UnsetVariable(itemVariable)
	}

	if hadIndex {
		ectx.SetVariable("index", previousIndex)
	} else {
		ectx.UnsetVariable("index")
	}

	ectx.SetVariable(outputVariable(config, "results"), results)

	return &models.NodeResult{
		Output: map[string]any{
			"count":   len(items),
			"results": results,
		},
	}, nil
}
