// Package variable provides the set-variable handler.
package variable

import (
	"context"
	"errors"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// Handler resolves a templated value and stores it under a variable name.
// This is the only built-in whose sole purpose is context mutation.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Kinds() []string {
	return []string{"set_variable", "setvariable"}
}

func (h *Handler) Validate(config map[string]any) error {
	name, _ := config["name"].(string)
	if name == "" {
		return errors.New("missing required field 'name'")
	}

	if _, ok := config["value"]; !ok {
		return errors.New("missing required field 'value'")
	}

	return nil
}

func (h *Handler) Execute(_ context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()
	name, _ := config["name"].(string)

	var value any

	switch typed := config["value"].(type) {
	case string:
		value = template.ResolveValue(typed, ectx)
	case map[string]any:
		value = template.ResolveMap(typed, ectx)
	default:
		value = typed
	}

	ectx.SetVariable(name, value)

	return &models.NodeResult{
		Output: map[string]any{"name": name, "value": value},
	}, nil
}
