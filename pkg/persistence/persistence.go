// Package persistence abstracts storage of workflows, versions, executions
// and node execution logs.
package persistence

import (
	"context"

	"github.com/orchid-run/orchid/pkg/models"
)

// Persistence aggregates the repositories the engine needs from the
// surrounding platform.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	VersionRepository() VersionRepository
	ExecutionRepository() ExecutionRepository
	NodeLogRepository() NodeLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	GetByWebhookToken(ctx context.Context, token string) (*models.Workflow, error)
	List(ctx context.Context) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// VersionRepository stores immutable published graph snapshots.
type VersionRepository interface {
	Create(ctx context.Context, version *models.WorkflowVersion) error
	GetByNumber(ctx context.Context, workflowID string, number int) (*models.WorkflowVersion, error)
	Latest(ctx context.Context, workflowID string) (*models.WorkflowVersion, error)
}

// ExecutionRepository stores workflow runs. Status updates go through
// MarkRunning and Finish so terminal rows stay immutable.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	MarkRunning(ctx context.Context, id string) error
	Finish(ctx context.Context, id string, status models.ExecutionStatus, resultData map[string]any, errorMessage string) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)
}

// NodeLogRepository appends per-node trace rows. Logs are append-only.
type NodeLogRepository interface {
	Append(ctx context.Context, log *models.NodeExecutionLog) error
	ListByExecution(ctx context.Context, executionID string) ([]*models.NodeExecutionLog, error)
}
