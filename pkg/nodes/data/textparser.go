package data

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/template"
)

// Text parser operations.
const (
	ParseExtract    = "extract"
	ParseExtractAll = "extract_all"
	ParseReplace    = "replace"
)

// TextParserHandler applies a regular expression to a templated input
// string, either extracting matches or rewriting them.
type TextParserHandler struct{}

func NewTextParserHandler() *TextParserHandler {
	return &TextParserHandler{}
}

func (h *TextParserHandler) Kinds() []string {
	return []string{"text_parser", "regex"}
}

func (h *TextParserHandler) Validate(config map[string]any) error {
	pattern, _ := config["pattern"].(string)
	if pattern == "" {
		return errors.New("missing required field 'pattern'")
	}

	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}

	switch operation, _ := config["operation"].(string); operation {
	case ParseExtract, ParseExtractAll, ParseReplace:
		return nil
	default:
		return fmt.Errorf("unknown text parser operation %q", operation)
	}
}

func (h *TextParserHandler) Execute(_ context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	input, _ := config["input"].(string)
	input = template.Resolve(input, ectx)

	pattern, _ := config["pattern"].(string)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	operation, _ := config["operation"].(string)

	group := 0
	if re.NumSubexp() > 0 {
		group = 1
	}

	if configured, ok := config["group"].(float64); ok {
		group = int(configured)
	}

	var parsed any

	switch operation {
	case ParseExtract:
		match := re.FindStringSubmatch(input)
		if match == nil || group >= len(match) {
			parsed = ""
		} else {
			parsed = match[group]
		}
	case ParseExtractAll:
		matches := re.FindAllStringSubmatch(input, -1)
		all := make([]any, 0, len(matches))

		for _, match := range matches {
			if group < len(match) {
				all = append(all, match[group])
			}
		}

		parsed = all
	case ParseReplace:
		replacement, _ := config["replacement"].(string)
		parsed = re.ReplaceAllString(input, template.Resolve(replacement, ectx))
	default:
		return nil, fmt.Errorf("unknown text parser operation %q", operation)
	}

	ectx.SetVariable(outputVariable(config, "parsed"), parsed)

	return &models.NodeResult{
		Output: map[string]any{
			"operation": operation,
			"result":    parsed,
		},
	}, nil
}
