package cmd

import (
	"fmt"
	"log/slog"

	"github.com/orchid-run/orchid/pkg/nodes/subworkflow"
	"github.com/orchid-run/orchid/pkg/persistence"
	"github.com/orchid-run/orchid/pkg/registry"
	"github.com/orchid-run/orchid/pkg/workflow"
)

// NewExecutor creates the graph executor and closes the loop with the
// registry: the sub_workflow handler needs the executor, which needs the
// registry, so the handler is registered after the executor exists.
func NewExecutor(p persistence.Persistence, reg *registry.Registry, logger *slog.Logger) (*workflow.Executor, error) {
	executor := workflow.NewExecutor(p, reg, logger)

	if err := reg.Register(subworkflow.NewHandler(executor)); err != nil {
		return nil, fmt.Errorf("failed to register sub_workflow handler: %w", err)
	}

	return executor, nil
}
