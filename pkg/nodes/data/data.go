// Package data provides the pure data-shaping handlers: gojq transforms,
// array fan-out/fan-in, regex parsing, filtering and sorting. None of them
// perform I/O, so their results depend only on the execution context.
package data

import (
	"fmt"
	"strconv"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// resolveInput resolves the handler's templated input reference to its raw
// value: "{{orders}}" yields the orders variable untouched, not a string.
func resolveInput(config map[string]any, key string, ectx *models.ExecutionContext) (any, error) {
	raw, ok := config[key]
	if !ok {
		return nil, fmt.Errorf("missing required field '%s'", key)
	}

	if s, ok := raw.(string); ok {
		return template.ResolveValue(s, ectx), nil
	}

	return raw, nil
}

// resolveItems is resolveInput for handlers that require an array.
func resolveItems(config map[string]any, key string, ectx *models.ExecutionContext) ([]any, error) {
	value, err := resolveInput(config, key, ectx)
	if err != nil {
		return nil, err
	}

	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("'%s' must resolve to an array, got %T", key, value)
	}

	return items, nil
}

func outputVariable(config map[string]any, def string) string {
	if name, ok := config["output_variable"].(string); ok && name != "" {
		return name
	}

	return def
}

// asNumber coerces the numeric shapes JSON decoding produces.
func asNumber(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// fieldOf reads a field from a map item; non-map items return themselves
// when field is empty.
func fieldOf(item any, field string) (any, bool) {
	if field == "" {
		return item, true
	}

	m, ok := item.(map[string]any)
	if !ok {
		return nil, false
	}

	v, ok := m[field]

	return v, ok
}
