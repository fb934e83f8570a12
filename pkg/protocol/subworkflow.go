package protocol

import (
	"context"

	"github.com/orchid-run/orchid/pkg/models"
)

// MaxSubWorkflowDepth caps recursive sub-workflow nesting so a
// self-referential workflow cannot recurse unbounded.
const MaxSubWorkflowDepth = 32

// SubWorkflowExecutor lets the sub-workflow handler run another workflow's
// graph inline without importing the executor package. The graph executor
// implements it.
type SubWorkflowExecutor interface {
	// ExecuteChild creates a child execution for workflowID, seeded with
	// seedVars, and runs it to a terminal state. depth is the nesting depth
	// of the child run; depths beyond MaxSubWorkflowDepth fail. It returns
	// the terminal child execution and the child's final context snapshot.
	ExecuteChild(ctx context.Context, parentExecutionID, workflowID string, seedVars map[string]any, depth int) (*models.Execution, map[string]any, error)
}
