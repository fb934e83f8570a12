// Package condition provides the ordered-clause branching handler.
package condition

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// ElseHandle is followed when no clause matches.
const ElseHandle = "else"

// Supported clause operators.
const (
	OperatorEquals      = "equals"
	OperatorNotEquals   = "not_equals"
	OperatorContains    = "contains"
	OperatorNotContains = "not_contains"
	OperatorStartsWith  = "starts_with"
	OperatorEndsWith    = "ends_with"
	OperatorNotEmpty    = "not_empty"
	OperatorIsEmpty     = "is_empty"
	OperatorGreaterThan = "greater_than"
	OperatorLessThan    = "less_than"
	OperatorExpression  = "expression"
)

var operators = map[string]bool{
	OperatorEquals:      true,
	OperatorNotEquals:   true,
	OperatorContains:    true,
	OperatorNotContains: true,
	OperatorStartsWith:  true,
	OperatorEndsWith:    true,
	OperatorNotEmpty:    true,
	OperatorIsEmpty:     true,
	OperatorGreaterThan: true,
	OperatorLessThan:    true,
	OperatorExpression:  true,
}

// Handler evaluates an ordered clause list; the first matching clause picks
// the output handle. Ties break by list order, and no match falls through to
// the configured default handle ("else" unless overridden).
type Handler struct{}

type clause struct {
	Variable string
	Operator string
	Value    string
	Handle   string
}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Kinds() []string {
	return []string{"condition", "if"}
}

func (h *Handler) Validate(config map[string]any) error {
	clauses, err := parseClauses(config)
	if err != nil {
		return err
	}

	if len(clauses) == 0 {
		return errors.New("at least one condition clause is required")
	}

	for i, c := range clauses {
		if c.Variable == "" && c.Operator != OperatorExpression {
			return fmt.Errorf("clause %d: variable is required", i)
		}

		if !operators[c.Operator] {
			return fmt.Errorf("clause %d: unsupported operator %q", i, c.Operator)
		}

		if c.Handle == "" {
			return fmt.Errorf("clause %d: handle is required", i)
		}
	}

	return nil
}

func (h *Handler) Execute(_ context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	clauses, err := parseClauses(node.Config())
	if err != nil {
		return nil, err
	}

	for i, c := range clauses {
		matched, err := evaluate(c, ectx)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}

		if matched {
			return &models.NodeResult{
				Output: map[string]any{
					"matched":  true,
					"clause":   i,
					"variable": c.Variable,
					"operator": c.Operator,
				},
				SourceHandle: c.Handle,
			}, nil
		}
	}

	defaultHandle := ElseHandle
	if configured, ok := node.Config()["default_handle"].(string); ok && configured != "" {
		defaultHandle = configured
	}

	return &models.NodeResult{
		Output:       map[string]any{"matched": false},
		SourceHandle: defaultHandle,
	}, nil
}

func parseClauses(config map[string]any) ([]clause, error) {
	raw, ok := config["conditions"].([]any)
	if !ok {
		return nil, errors.New("missing required field 'conditions'")
	}

	clauses := make([]clause, 0, len(raw))

	for i, item := range raw {
		asMap, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("clause %d must be an object", i)
		}

		c := clause{}
		c.Variable, _ = asMap["variable"].(string)
		c.Operator, _ = asMap["operator"].(string)
		c.Value, _ = asMap["value"].(string)
		c.Handle, _ = asMap["handle"].(string)

		clauses = append(clauses, c)
	}

	return clauses, nil
}

func evaluate(c clause, ectx *models.ExecutionContext) (bool, error) {
	actual := resolveOperand(c.Variable, ectx)
	expected := template.Resolve(c.Value, ectx)

	switch c.Operator {
	case OperatorEquals:
		return template.Stringify(actual) == expected, nil
	case OperatorNotEquals:
		return template.Stringify(actual) != expected, nil
	case OperatorContains:
		return strings.Contains(template.Stringify(actual), expected), nil
	case OperatorNotContains:
		return !strings.Contains(template.Stringify(actual), expected), nil
	case OperatorStartsWith:
		return strings.HasPrefix(template.Stringify(actual), expected), nil
	case OperatorEndsWith:
		return strings.HasSuffix(template.Stringify(actual), expected), nil
	case OperatorNotEmpty:
		return !isEmpty(actual), nil
	case OperatorIsEmpty:
		return isEmpty(actual), nil
	case OperatorGreaterThan:
		return compare(actual, expected) > 0, nil
	case OperatorLessThan:
		return compare(actual, expected) < 0, nil
	case OperatorExpression:
		return evaluateExpression(c.Value, actual)
	default:
		return false, fmt.Errorf("unsupported operator %q", c.Operator)
	}
}

// resolveOperand accepts either a bare variable name or a template (so
// clauses can reach into trigger data with {{payload.status}}).
func resolveOperand(variable string, ectx *models.ExecutionContext) any {
	if strings.Contains(variable, "{{") {
		return template.ResolveValue(variable, ectx)
	}

	return template.ResolveValue("{{"+variable+"}}", ectx)
}

// evaluateExpression runs a sandboxed boolean expression with `value` bound
// to the clause variable.
func evaluateExpression(source string, value any) (bool, error) {
	if source == "" {
		return false, errors.New("expression operator requires a non-empty value")
	}

	program, err := expr.Compile(source, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("invalid expression: %w", err)
	}

	out, err := expr.Run(program, map[string]any{"value": value})
	if err != nil {
		return false, fmt.Errorf("expression evaluation failed: %w", err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, expected bool", out)
	}

	return result, nil
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case []any:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	default:
		return false
	}
}

// compare orders two operands numerically when both parse as numbers,
// lexically otherwise.
func compare(actual any, expected string) int {
	actualStr := template.Stringify(actual)

	actualNum, errA := strconv.ParseFloat(strings.TrimSpace(actualStr), 64)
	expectedNum, errB := strconv.ParseFloat(strings.TrimSpace(expected), 64)

	if errA == nil && errB == nil {
		switch {
		case actualNum > expectedNum:
			return 1
		case actualNum < expectedNum:
			return -1
		default:
			return 0
		}
	}

	return strings.Compare(actualStr, expected)
}
