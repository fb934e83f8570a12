package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
	"github.com/orchid-run/orchid/pkg/registry"
)

// PublishingService snapshots workflow graphs into immutable, monotonically
// numbered versions.
type PublishingService struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

func NewPublishingService(p persistence.Persistence, reg *registry.Registry) *PublishingService {
	return &PublishingService{persistence: p, registry: reg}
}

// Publish validates the current graph and creates the next version snapshot.
// The snapshot is a deep copy: later edits to the draft graph never leak
// into a published version.
func (s *PublishingService) Publish(ctx context.Context, workflowID string) (*models.WorkflowVersion, error) {
	wf, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow for publishing: %w", err)
	}

	if err := ValidateGraph(wf.Graph, s.registry); err != nil {
		return nil, fmt.Errorf("workflow %s cannot be published: %w", workflowID, err)
	}

	number := 1

	latest, err := s.persistence.VersionRepository().Latest(ctx, workflowID)

	switch {
	case err == nil:
		number = latest.Number + 1
	case errors.Is(err, persistence.ErrVersionNotFound):
	default:
		return nil, fmt.Errorf("failed to resolve latest version: %w", err)
	}

	snapshot, err := copyGraph(wf.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot graph: %w", err)
	}

	version := &models.WorkflowVersion{
		ID:         "wfv-" + uuid.New().String()[:8],
		WorkflowID: workflowID,
		Number:     number,
		Graph:      snapshot,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.persistence.VersionRepository().Create(ctx, version); err != nil {
		return nil, fmt.Errorf("failed to create workflow version: %w", err)
	}

	now := time.Now().UTC()
	wf.Status = models.WorkflowStatusPublished
	wf.Active = true
	wf.PublishedAt = &now
	wf.UpdatedAt = now

	if err := s.persistence.WorkflowRepository().Save(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to update workflow after publishing: %w", err)
	}

	return version, nil
}

func copyGraph(graph *models.Graph) (*models.Graph, error) {
	raw, err := json.Marshal(graph)
	if err != nil {
		return nil, err
	}

	var out models.Graph
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
