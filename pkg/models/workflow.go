// Package models defines the core domain models for node-graph workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable, not executable
	WorkflowStatusPublished WorkflowStatus = "published" // Has at least one published version
	WorkflowStatusArchived  WorkflowStatus = "archived"  // Historical, not executable
)

// Workflow is a tenant-authored directed graph of typed nodes.
type Workflow struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	Name         string         `json:"name"         validate:"required,min=3"`
	Description  string         `json:"description"`
	Status       WorkflowStatus `json:"status"`
	Active       bool           `json:"active"`
	Graph        *Graph         `json:"graph"        validate:"required"`
	WebhookToken string         `json:"webhook_token,omitempty"`
	Variables    map[string]any `json:"variables,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	PublishedAt  *time.Time     `json:"published_at,omitempty"`
	DeletedAt    *time.Time     `json:"deleted_at,omitempty"`
}

// WorkflowVersion is an immutable snapshot of a workflow graph taken at
// publish time. Versions are numbered monotonically per workflow and are
// never mutated after creation.
type WorkflowVersion struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id" validate:"required"`
	Number     int       `json:"number"      validate:"required,min=1"`
	Graph      *Graph    `json:"graph"       validate:"required"`
	CreatedAt  time.Time `json:"created_at"`
}

// Graph is the persisted graph document produced by the visual editor.
type Graph struct {
	Nodes    []*GraphNode `json:"nodes"`
	Edges    []*GraphEdge `json:"edges"`
	Viewport Viewport     `json:"viewport"`
}

// GraphNode is one node instance in a workflow graph.
type GraphNode struct {
	ID       string   `json:"id"   validate:"required"`
	Type     string   `json:"type" validate:"required"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// NodeData carries the editor-facing label and the handler configuration.
type NodeData struct {
	Label  string         `json:"label"`
	Type   string         `json:"type,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// GraphEdge is a directed connection between two nodes. SourceHandle selects
// which named output of the source node this edge follows; empty means the
// default handle.
type GraphEdge struct {
	ID           string `json:"id"     validate:"required"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
	Type         string `json:"type,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *GraphNode {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// OutgoingEdges returns the edges whose source is the given node id.
func (g *Graph) OutgoingEdges(nodeID string) []*GraphEdge {
	edges := make([]*GraphEdge, 0)

	for _, edge := range g.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// InDegree returns the number of edges targeting the given node id.
func (g *Graph) InDegree(nodeID string) int {
	count := 0

	for _, edge := range g.Edges {
		if edge.Target == nodeID {
			count++
		}
	}

	return count
}

// Config returns the handler configuration of the node, never nil.
func (n *GraphNode) Config() map[string]any {
	if n.Data.Config == nil {
		return map[string]any{}
	}

	return n.Data.Config
}

// Label returns the editor label, falling back to the node id.
func (n *GraphNode) Label() string {
	if n.Data.Label != "" {
		return n.Data.Label
	}

	return n.ID
}
