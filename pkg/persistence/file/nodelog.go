package file

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
)

// NodeLogRepository stores the per-run trace as node_logs/<execution-id>.json,
// one JSON array appended in visit order.
type NodeLogRepository struct {
	root string
	mu   sync.Mutex
}

func NewNodeLogRepository(root string) *NodeLogRepository {
	return &NodeLogRepository{root: root}
}

func (r *NodeLogRepository) path(executionID string) string {
	return filepath.Join(r.root, "node_logs", executionID+".json")
}

func (r *NodeLogRepository) Append(_ context.Context, log *models.NodeExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	logs := make([]*models.NodeExecutionLog, 0)
	if err := readJSON(r.path(log.ExecutionID), &logs, persistence.ErrExecutionNotFound); err != nil {
		if !errors.Is(err, persistence.ErrExecutionNotFound) {
			return err
		}
	}

	logs = append(logs, log)

	return writeJSON(r.path(log.ExecutionID), logs)
}

func (r *NodeLogRepository) ListByExecution(_ context.Context, executionID string) ([]*models.NodeExecutionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logs := make([]*models.NodeExecutionLog, 0)
	if err := readJSON(r.path(executionID), &logs, persistence.ErrExecutionNotFound); err != nil {
		if errors.Is(err, persistence.ErrExecutionNotFound) {
			return logs, nil
		}

		return nil, err
	}

	return logs, nil
}
