package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/orchid-run/orchid/pkg/models"
)

// Aggregation operations.
const (
	AggCount   = "count"
	AggSum     = "sum"
	AggAvg     = "avg"
	AggMin     = "min"
	AggMax     = "max"
	AggCollect = "collect"
)

var aggregations = map[string]bool{
	AggCount:   true,
	AggSum:     true,
	AggAvg:     true,
	AggMin:     true,
	AggMax:     true,
	AggCollect: true,
}

// AggregatorHandler fans an array in: it reduces the items (or one field of
// each item) to a single value.
type AggregatorHandler struct{}

func NewAggregatorHandler() *AggregatorHandler {
	return &AggregatorHandler{}
}

func (h *AggregatorHandler) Kinds() []string {
	return []string{"aggregator", "aggregate"}
}

func (h *AggregatorHandler) Validate(config map[string]any) error {
	if _, ok := config["items"]; !ok {
		return errors.New("missing required field 'items'")
	}

	operation, _ := config["operation"].(string)
	if !aggregations[operation] {
		return fmt.Errorf("unknown aggregation operation %q", operation)
	}

	return nil
}

func (h *AggregatorHandler) Execute(_ context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	items, err := resolveItems(config, "items", ectx)
	if err != nil {
		return nil, err
	}

	operation, _ := config["operation"].(string)
	field, _ := config["field"].(string)

	value, err := aggregate(operation, field, items)
	if err != nil {
		return nil, err
	}

	ectx.SetVariable(outputVariable(config, "aggregated"), value)

	return &models.NodeResult{
		Output: map[string]any{
			"operation": operation,
			"value":     value,
			"count":     len(items),
		},
	}, nil
}

func aggregate(operation, field string, items []any) (any, error) {
	if operation == AggCount {
		return len(items), nil
	}

	if operation == AggCollect {
		collected := make([]any, 0, len(items))

		for _, item := range items {
			if v, ok := fieldOf(item, field); ok {
				collected = append(collected, v)
			}
		}

		return collected, nil
	}

	numbers := make([]float64, 0, len(items))

	for i, item := range items {
		v, ok := fieldOf(item, field)
		if !ok {
			continue
		}

		n, ok := asNumber(v)
		if !ok {
			return nil, fmt.Errorf("item %d is not numeric", i)
		}

		numbers = append(numbers, n)
	}

	if len(numbers) == 0 {
		return nil, errors.New("no numeric items to aggregate")
	}

	switch operation {
	case AggSum, AggAvg:
		sum := 0.0
		for _, n := range numbers {
			sum += n
		}

		if operation == AggAvg {
			return sum / float64(len(numbers)), nil
		}

		return sum, nil
	case AggMin:
		min := numbers[0]
		for _, n := range numbers[1:] {
			if n < min {
				min = n
			}
		}

		return min, nil
	case AggMax:
		max := numbers[0]
		for _, n := range numbers[1:] {
			if n > max {
				max = n
			}
		}

		return max, nil
	default:
		return nil, fmt.Errorf("unknown aggregation operation %q", operation)
	}
}
