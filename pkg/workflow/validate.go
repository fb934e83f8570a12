package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/registry"
)

// graphSchema validates the shape of the persisted graph document produced
// by the visual editor.
const graphSchema = `{
	"type": "object",
	"required": ["nodes", "edges"],
	"properties": {
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "type"],
				"properties": {
					"id":   {"type": "string", "minLength": 1},
					"type": {"type": "string", "minLength": 1},
					"position": {
						"type": "object",
						"properties": {
							"x": {"type": "number"},
							"y": {"type": "number"}
						}
					},
					"data": {
						"type": "object",
						"properties": {
							"label":  {"type": "string"},
							"type":   {"type": "string"},
							"config": {"type": "object"}
						}
					}
				}
			}
		},
		"edges": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "source", "target"],
				"properties": {
					"id":            {"type": "string", "minLength": 1},
					"source":        {"type": "string", "minLength": 1},
					"target":        {"type": "string", "minLength": 1},
					"source_handle": {"type": "string"},
					"target_handle": {"type": "string"}
				}
			}
		},
		"viewport": {
			"type": "object",
			"properties": {
				"x":    {"type": "number"},
				"y":    {"type": "number"},
				"zoom": {"type": "number"}
			}
		}
	}
}`

var ErrInvalidGraph = errors.New("invalid workflow graph")

// ValidateGraph checks the graph document shape and its structural
// invariants: edge endpoints reference existing nodes, every node type has a
// registered handler, and at least one trigger entry point exists.
func ValidateGraph(graph *models.Graph, reg *registry.Registry) error {
	if graph == nil {
		return fmt.Errorf("%w: graph is empty", ErrInvalidGraph)
	}

	if err := validateGraphDocument(graph); err != nil {
		return err
	}

	nodeIDs := make(map[string]bool, len(graph.Nodes))

	for _, node := range graph.Nodes {
		if nodeIDs[node.ID] {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidGraph, node.ID)
		}

		nodeIDs[node.ID] = true

		if reg != nil && !reg.IsRegistered(node.Type) {
			return fmt.Errorf("%w: node %q has unregistered type %q", ErrInvalidGraph, node.ID, node.Type)
		}
	}

	for _, edge := range graph.Edges {
		if !nodeIDs[edge.Source] {
			return fmt.Errorf("%w: edge %q references missing source %q", ErrInvalidGraph, edge.ID, edge.Source)
		}

		if !nodeIDs[edge.Target] {
			return fmt.Errorf("%w: edge %q references missing target %q", ErrInvalidGraph, edge.ID, edge.Target)
		}
	}

	hasTrigger := false

	for _, node := range graph.Nodes {
		if models.IsTriggerKind(node.Type) && graph.InDegree(node.ID) == 0 {
			hasTrigger = true

			break
		}
	}

	if !hasTrigger {
		return fmt.Errorf("%w: no trigger entry point", ErrInvalidGraph)
	}

	return nil
}

func validateGraphDocument(graph *models.Graph) error {
	document, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(graphSchema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidGraph, strings.Join(details, "; "))
	}

	return nil
}
