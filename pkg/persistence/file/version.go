package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
)

// VersionRepository stores each published snapshot as
// versions/<workflow-id>/<number>.json. Version files are never rewritten.
type VersionRepository struct {
	root string
	mu   sync.RWMutex
}

func NewVersionRepository(root string) *VersionRepository {
	return &VersionRepository{root: root}
}

func (r *VersionRepository) dir(workflowID string) string {
	return filepath.Join(r.root, "versions", workflowID)
}

func (r *VersionRepository) path(workflowID string, number int) string {
	return filepath.Join(r.dir(workflowID), strconv.Itoa(number)+".json")
}

func (r *VersionRepository) Create(_ context.Context, version *models.WorkflowVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.path(version.WorkflowID, version.Number)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("version %d of workflow %s already exists", version.Number, version.WorkflowID)
	}

	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}

	return writeJSON(path, version)
}

func (r *VersionRepository) GetByNumber(_ context.Context, workflowID string, number int) (*models.WorkflowVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version := &models.WorkflowVersion{}
	if err := readJSON(r.path(workflowID, number), version, persistence.ErrVersionNotFound); err != nil {
		return nil, err
	}

	return version, nil
}

func (r *VersionRepository) Latest(ctx context.Context, workflowID string) (*models.WorkflowVersion, error) {
	r.mu.RLock()
	files, err := fs.Glob(os.DirFS(r.dir(workflowID)), "*.json")
	r.mu.RUnlock()

	if err != nil || len(files) == 0 {
		return nil, persistence.ErrVersionNotFound
	}

	numbers := make([]int, 0, len(files))

	for _, file := range files {
		n, err := strconv.Atoi(file[:len(file)-len(".json")])
		if err != nil {
			continue
		}

		numbers = append(numbers, n)
	}

	if len(numbers) == 0 {
		return nil, persistence.ErrVersionNotFound
	}

	sort.Ints(numbers)

	return r.GetByNumber(ctx, workflowID, numbers[len(numbers)-1])
}
