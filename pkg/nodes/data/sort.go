package data

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// SortHandler orders an array, numerically when both operands parse as
// numbers and lexically otherwise. The sort is stable so equal keys keep
// their input order.
type SortHandler struct{}

func NewSortHandler() *SortHandler {
	return &SortHandler{}
}

func (h *SortHandler) Kinds() []string {
	return []string{"sort"}
}

func (h *SortHandler) Validate(config map[string]any) error {
	if _, ok := config["items"]; !ok {
		return errors.New("missing required field 'items'")
	}

	switch order, _ := config["order"].(string); order {
	case "", OrderAsc, OrderDesc:
		return nil
	default:
		return fmt.Errorf("unknown sort order %q", order)
	}
}

func (h *SortHandler) Execute(_ context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	items, err := resolveItems(config, "items", ectx)
	if err != nil {
		return nil, err
	}

	key, _ := config["key"].(string)

	order, _ := config["order"].(string)
	if order == "" {
		order = OrderAsc
	}

	sorted := make([]any, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		less := lessThan(sortKey(sorted[i], key), sortKey(sorted[j], key))
		if order == OrderDesc {
			return !less && !equalKeys(sorted[i], sorted[j], key)
		}

		return less
	})

	ectx.SetVariable(outputVariable(config, "sorted"), sorted)

	return &models.NodeResult{
		Output: map[string]any{
			"count":   len(sorted),
			"results": sorted,
		},
	}, nil
}

func sortKey(item any, key string) any {
	v, ok := fieldOf(item, key)
	if !ok {
		return nil
	}

	return v
}

func equalKeys(a, b any, key string) bool {
	ka, kb := sortKey(a, key), sortKey(b, key)

	return !lessThan(ka, kb) && !lessThan(kb, ka)
}

func lessThan(a, b any) bool {
	na, aOK := asNumber(a)
	nb, bOK := asNumber(b)

	if aOK && bOK {
		return na < nb
	}

	return template.Stringify(a) < template.Stringify(b)
}
