// Package template substitutes {{variable}} placeholders using the current
// execution's bindings.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/orchid-run/orchid/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Resolve replaces every {{name}} occurrence in s with the string form of
// the binding. Lookup order: variables, then trigger data; dotted names
// ({{user.email}}) walk nested maps. Missing names resolve to the empty
// string, never to an error.
func Resolve(s string, ectx *models.ExecutionContext) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := lookup(name, ectx)
		if !ok {
			return ""
		}

		return Stringify(value)
	})
}

// ResolveValue behaves like Resolve, except that a string consisting of
// exactly one placeholder yields the raw bound value (map, slice, number)
// instead of its string form. Everything else falls back to Resolve.
func ResolveValue(s string, ectx *models.ExecutionContext) any {
	trimmed := strings.TrimSpace(s)

	if match := placeholderPattern.FindString(trimmed); match == trimmed && match != "" {
		name := strings.TrimSpace(trimmed[2 : len(trimmed)-2])
		if value, ok := lookup(name, ectx); ok {
			return value
		}

		return ""
	}

	return Resolve(s, ectx)
}

// ResolveMap applies Resolve recursively to every string leaf of m. Nested
// maps and slices are walked; non-string leaves pass through untouched.
func ResolveMap(m map[string]any, ectx *models.ExecutionContext) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = resolveAny(v, ectx)
	}

	return out
}

func resolveAny(v any, ectx *models.ExecutionContext) any {
	switch typed := v.(type) {
	case string:
		return ResolveValue(typed, ectx)
	case map[string]any:
		return ResolveMap(typed, ectx)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = resolveAny(item, ectx)
		}

		return out
	default:
		return v
	}
}

// Stringify renders a bound value the way templates expect: strings pass
// through, numbers avoid the float64 "1e+06" form where possible, and
// structured values become compact JSON.
func Stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return strconv.FormatInt(int64(typed), 10)
		}

		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case map[string]any, []any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func lookup(name string, ectx *models.ExecutionContext) (any, bool) {
	if ectx == nil {
		return nil, false
	}

	if value, ok := lookupPath(name, func(key string) (any, bool) {
		if !ectx.HasVariable(key) {
			return nil, false
		}

		return ectx.GetVariable(key, nil), true
	}); ok {
		return value, true
	}

	return lookupPath(name, func(key string) (any, bool) {
		value, ok := ectx.TriggerData()[key]

		return value, ok
	})
}

func lookupPath(name string, root func(string) (any, bool)) (any, bool) {
	parts := strings.Split(name, ".")

	current, ok := root(parts[0])
	if !ok {
		return nil, false
	}

	for _, part := range parts[1:] {
		asMap, isMap := current.(map[string]any)
		if !isMap {
			return nil, false
		}

		current, ok = asMap[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
