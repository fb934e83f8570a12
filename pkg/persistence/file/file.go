// Package file provides JSON-file persistence for development and tests.
// Every entity is one file under the root directory; no external services
// are required.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/orchid-run/orchid/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local filesystem.
type Persistence struct {
	root       string
	workflows  *WorkflowRepository
	versions   *VersionRepository
	executions *ExecutionRepository
	nodeLogs   *NodeLogRepository
}

// NewPersistence roots all repositories at the given directory. A file://
// prefix is tolerated so the same URL works for both backends.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:       cleanRoot,
		workflows:  NewWorkflowRepository(cleanRoot),
		versions:   NewVersionRepository(cleanRoot),
		executions: NewExecutionRepository(cleanRoot),
		nodeLogs:   NewNodeLogRepository(cleanRoot),
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) VersionRepository() persistence.VersionRepository {
	return p.versions
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) NodeLogRepository() persistence.NodeLogRepository {
	return p.nodeLogs
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return fmt.Errorf("persistence root %s does not exist", p.root)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func writeJSON(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	return os.WriteFile(path, encoded, 0o644)
}

// readJSON fills out from path, reporting notExist when the file is missing.
func readJSON(path string, out any, notExist error) error {
	encoded, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notExist
		}

		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err := json.Unmarshal(encoded, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	return nil
}
