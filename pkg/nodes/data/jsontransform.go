package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/orchid-run/orchid/pkg/models"
)

// JSONTransformHandler reshapes a context value with a jq query.
type JSONTransformHandler struct{}

func NewJSONTransformHandler() *JSONTransformHandler {
	return &JSONTransformHandler{}
}

func (h *JSONTransformHandler) Kinds() []string {
	return []string{"json_transform", "jq"}
}

func (h *JSONTransformHandler) Validate(config map[string]any) error {
	query, _ := config["query"].(string)
	if query == "" {
		return errors.New("missing required field 'query'")
	}

	if _, err := gojq.Parse(query); err != nil {
		return fmt.Errorf("invalid jq query: %w", err)
	}

	if _, ok := config["input"]; !ok {
		return errors.New("missing required field 'input'")
	}

	return nil
}

func (h *JSONTransformHandler) Execute(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	input, err := resolveInput(config, "input", ectx)
	if err != nil {
		return nil, err
	}

	queryText, _ := config["query"].(string)

	query, err := gojq.Parse(queryText)
	if err != nil {
		return nil, fmt.Errorf("invalid jq query: %w", err)
	}

	var results []any

	iter := query.RunWithContext(ctx, input)

	for {
		value, ok := iter.Next()
		if !ok {
			break
		}

		if err, isErr := value.(error); isErr {
			return nil, fmt.Errorf("jq evaluation: %w", err)
		}

		results = append(results, value)
	}

	// A single-result query stores the value itself, not a one-element
	// array; multi-result queries keep the array.
	var transformed any
	switch len(results) {
	case 0:
		transformed = nil
	case 1:
		transformed = results[0]
	default:
		transformed = results
	}

	ectx.SetVariable(outputVariable(config, "transformed"), transformed)

	return &models.NodeResult{
		Output: map[string]any{
			"result":       transformed,
			"result_count": len(results),
		},
	}, nil
}
