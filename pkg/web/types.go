// Package web provides the HTTP API for workflow management and triggering.
package web

import "github.com/orchid-run/orchid/pkg/models"

// CreateWorkflowRequest is the body for creating a new draft workflow.
type CreateWorkflowRequest struct {
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	TenantID    string         `json:"tenant_id"`
	Graph       *models.Graph  `json:"graph"`
	Variables   map[string]any `json:"variables,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UpdateWorkflowRequest supports partial updates of a draft workflow. The
// graph, when present, replaces the draft graph wholesale.
type UpdateWorkflowRequest struct {
	Name        *string        `json:"name,omitempty" validate:"omitempty,min=3"`
	Description *string        `json:"description,omitempty"`
	Graph       *models.Graph  `json:"graph,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TriggerExecutionRequest is the body for manually starting a run.
type TriggerExecutionRequest struct {
	VersionNumber int            `json:"version_number,omitempty" validate:"omitempty,min=1"`
	TriggerData   map[string]any `json:"trigger_data,omitempty"`
}

// ExecutionCreatedResponse is returned when a run has been enqueued.
type ExecutionCreatedResponse struct {
	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	Status      string `json:"status"`
}
