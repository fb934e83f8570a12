package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchid-run/orchid/pkg/models"
)

func testContext(triggerData, vars map[string]any) *models.ExecutionContext {
	return models.NewExecutionContext("exec-1", "wf-1", triggerData, vars)
}

func TestResolve(t *testing.T) {
	ectx := testContext(
		map[string]any{"status": "paid", "customer": map[string]any{"email": "ada@example.com"}},
		map[string]any{"greeting": "hello", "count": float64(3)},
	)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain string untouched", "no placeholders", "no placeholders"},
		{"variable", "{{greeting}} world", "hello world"},
		{"trigger data", "status={{status}}", "status=paid"},
		{"dotted path", "mail to {{customer.email}}", "mail to ada@example.com"},
		{"missing resolves empty", "[{{nope}}]", "[]"},
		{"missing path resolves empty", "[{{customer.phone}}]", "[]"},
		{"whitespace inside braces", "{{ greeting }}", "hello"},
		{"number without float form", "n={{count}}", "n=3"},
		{"multiple placeholders", "{{greeting}}-{{status}}", "hello-paid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.input, ectx))
		})
	}
}

func TestResolveVariablesShadowTriggerData(t *testing.T) {
	ectx := testContext(
		map[string]any{"status": "from-trigger"},
		map[string]any{"status": "from-variable"},
	)

	assert.Equal(t, "from-variable", Resolve("{{status}}", ectx))
}

func TestResolveValueSinglePlaceholderKeepsType(t *testing.T) {
	orders := []any{map[string]any{"id": "a"}}
	ectx := testContext(nil, map[string]any{"orders": orders, "n": float64(42)})

	assert.Equal(t, orders, ResolveValue("{{orders}}", ectx))
	assert.Equal(t, orders, ResolveValue("  {{orders}}  ", ectx))
	assert.Equal(t, float64(42), ResolveValue("{{n}}", ectx))

	// mixed content falls back to string substitution
	assert.Equal(t, "n is 42", ResolveValue("n is {{n}}", ectx))

	// missing single placeholder resolves to empty string, not nil
	assert.Equal(t, "", ResolveValue("{{missing}}", ectx))
}

func TestResolveMap(t *testing.T) {
	ectx := testContext(map[string]any{"name": "Ada"}, nil)

	resolved := ResolveMap(map[string]any{
		"greeting": "hi {{name}}",
		"nested":   map[string]any{"to": "{{name}}"},
		"list":     []any{"{{name}}", float64(1)},
		"number":   float64(7),
	}, ectx)

	assert.Equal(t, "hi Ada", resolved["greeting"])
	assert.Equal(t, "Ada", resolved["nested"].(map[string]any)["to"])
	assert.Equal(t, []any{"Ada", float64(1)}, resolved["list"])
	assert.Equal(t, float64(7), resolved["number"])
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "text", Stringify("text"))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "1000000", Stringify(float64(1000000)))
	assert.Equal(t, "3.14", Stringify(3.14))
	assert.Equal(t, `{"a":1}`, Stringify(map[string]any{"a": float64(1)}))
	assert.Equal(t, `["x"]`, Stringify([]any{"x"}))
}
