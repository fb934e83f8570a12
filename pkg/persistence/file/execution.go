package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
)

// ExecutionRepository stores each run as executions/<id>.json.
type ExecutionRepository struct {
	root string
	mu   sync.RWMutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (r *ExecutionRepository) path(id string) string {
	return filepath.Join(r.root, "executions", id+".json")
}

func (r *ExecutionRepository) Create(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if execution.Status == "" {
		execution.Status = models.ExecutionStatusPending
	}

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	return writeJSON(r.path(execution.ID), execution)
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.load(id)
}

func (r *ExecutionRepository) load(id string) (*models.Execution, error) {
	execution := &models.Execution{}
	if err := readJSON(r.path(id), execution, persistence.ErrExecutionNotFound); err != nil {
		return nil, err
	}

	return execution, nil
}

func (r *ExecutionRepository) MarkRunning(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.load(id)
	if err != nil {
		return err
	}

	if execution.Status.IsTerminal() {
		return fmt.Errorf("%w: execution %s is %s", persistence.ErrExecutionTerminal, id, execution.Status)
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &now

	return writeJSON(r.path(id), execution)
}

func (r *ExecutionRepository) Finish(_ context.Context, id string, status models.ExecutionStatus, resultData map[string]any, errorMessage string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finish requires a terminal status, got %q", status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.load(id)
	if err != nil {
		return err
	}

	if execution.Status.IsTerminal() {
		return fmt.Errorf("%w: execution %s is %s", persistence.ErrExecutionTerminal, id, execution.Status)
	}

	now := time.Now().UTC()
	execution.Status = status
	execution.ResultData = resultData
	execution.ErrorMessage = errorMessage
	execution.FinishedAt = &now

	return writeJSON(r.path(id), execution)
}

func (r *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files, err := fs.Glob(os.DirFS(filepath.Join(r.root, "executions")), "*.json")
	if err != nil {
		return nil, fmt.Errorf("listing execution files: %w", err)
	}

	executions := make([]*models.Execution, 0)

	for _, file := range files {
		execution, err := r.load(file[:len(file)-len(".json")])
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.After(executions[j].CreatedAt)
	})

	return executions, nil
}
