package condition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchid-run/orchid/pkg/models"
)

func testNode(config map[string]any) *models.GraphNode {
	return &models.GraphNode{
		ID:   "node-cond",
		Type: "condition",
		Data: models.NodeData{Type: "condition", Config: config},
	}
}

func clauses(items ...map[string]any) map[string]any {
	raw := make([]any, 0, len(items))
	for _, c := range items {
		raw = append(raw, c)
	}

	return map[string]any{"conditions": raw}
}

func TestValidate(t *testing.T) {
	handler := NewHandler()

	assert.Error(t, handler.Validate(map[string]any{}))
	assert.Error(t, handler.Validate(clauses()))
	assert.Error(t, handler.Validate(clauses(
		map[string]any{"variable": "x", "operator": "almost_equals", "handle": "a"},
	)))
	assert.Error(t, handler.Validate(clauses(
		map[string]any{"variable": "x", "operator": OperatorEquals},
	)))
	assert.NoError(t, handler.Validate(clauses(
		map[string]any{"variable": "x", "operator": OperatorEquals, "value": "1", "handle": "a"},
	)))
}

func TestOperators(t *testing.T) {
	handler := NewHandler()

	triggerData := map[string]any{
		"status": "paid",
		"amount": float64(150),
		"tags":   []any{},
	}

	tests := []struct {
		name       string
		clause     map[string]any
		wantHandle string
	}{
		{
			"equals matches",
			map[string]any{"variable": "status", "operator": OperatorEquals, "value": "paid", "handle": "yes"},
			"yes",
		},
		{
			"equals misses",
			map[string]any{"variable": "status", "operator": OperatorEquals, "value": "refunded", "handle": "yes"},
			ElseHandle,
		},
		{
			"not_equals",
			map[string]any{"variable": "status", "operator": OperatorNotEquals, "value": "refunded", "handle": "yes"},
			"yes",
		},
		{
			"contains",
			map[string]any{"variable": "status", "operator": OperatorContains, "value": "ai", "handle": "yes"},
			"yes",
		},
		{
			"starts_with",
			map[string]any{"variable": "status", "operator": OperatorStartsWith, "value": "pa", "handle": "yes"},
			"yes",
		},
		{
			"ends_with",
			map[string]any{"variable": "status", "operator": OperatorEndsWith, "value": "id", "handle": "yes"},
			"yes",
		},
		{
			"greater_than numeric",
			map[string]any{"variable": "amount", "operator": OperatorGreaterThan, "value": "99", "handle": "yes"},
			"yes",
		},
		{
			"less_than numeric misses",
			map[string]any{"variable": "amount", "operator": OperatorLessThan, "value": "99", "handle": "yes"},
			ElseHandle,
		},
		{
			"is_empty on empty array",
			map[string]any{"variable": "tags", "operator": OperatorIsEmpty, "handle": "yes"},
			"yes",
		},
		{
			"not_empty on missing variable misses",
			map[string]any{"variable": "missing", "operator": OperatorNotEmpty, "handle": "yes"},
			ElseHandle,
		},
		{
			"expression with value bound",
			map[string]any{"variable": "amount", "operator": OperatorExpression, "value": "value >= 100", "handle": "yes"},
			"yes",
		},
		{
			"templated operand",
			map[string]any{"variable": "{{status}}", "operator": OperatorEquals, "value": "paid", "handle": "yes"},
			"yes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ectx := models.NewExecutionContext("exec-1", "wf-1", triggerData, nil)

			result, err := handler.Execute(context.Background(), ectx, testNode(clauses(tt.clause)))
			require.NoError(t, err)
			assert.Equal(t, tt.wantHandle, result.Handle())
		})
	}
}

func TestFirstMatchWins(t *testing.T) {
	handler := NewHandler()

	ectx := models.NewExecutionContext("exec-1", "wf-1", map[string]any{"amount": float64(500)}, nil)

	// both clauses match; order decides
	result, err := handler.Execute(context.Background(), ectx, testNode(clauses(
		map[string]any{"variable": "amount", "operator": OperatorGreaterThan, "value": "100", "handle": "first"},
		map[string]any{"variable": "amount", "operator": OperatorGreaterThan, "value": "10", "handle": "second"},
	)))
	require.NoError(t, err)
	assert.Equal(t, "first", result.Handle())

	// reversed order flips the outcome
	result, err = handler.Execute(context.Background(), ectx, testNode(clauses(
		map[string]any{"variable": "amount", "operator": OperatorGreaterThan, "value": "10", "handle": "second"},
		map[string]any{"variable": "amount", "operator": OperatorGreaterThan, "value": "100", "handle": "first"},
	)))
	require.NoError(t, err)
	assert.Equal(t, "second", result.Handle())
}

func TestConfiguredDefaultHandle(t *testing.T) {
	handler := NewHandler()

	config := clauses(
		map[string]any{"variable": "status", "operator": OperatorEquals, "value": "paid", "handle": "yes"},
	)
	config["default_handle"] = "unpaid"

	ectx := models.NewExecutionContext("exec-1", "wf-1", map[string]any{"status": "open"}, nil)

	result, err := handler.Execute(context.Background(), ectx, testNode(config))
	require.NoError(t, err)
	assert.Equal(t, "unpaid", result.Handle())
	assert.Equal(t, false, result.Output["matched"])
}

func TestInvalidExpressionErrors(t *testing.T) {
	handler := NewHandler()

	ectx := models.NewExecutionContext("exec-1", "wf-1", map[string]any{"x": float64(1)}, nil)

	_, err := handler.Execute(context.Background(), ectx, testNode(clauses(
		map[string]any{"variable": "x", "operator": OperatorExpression, "value": "value >>", "handle": "yes"},
	)))
	assert.Error(t, err)
}
