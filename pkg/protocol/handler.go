// Package protocol defines the contracts between the graph executor and the
// pluggable node handlers.
package protocol

import (
	"context"

	"github.com/orchid-run/orchid/pkg/models"
)

// Handler implements the runtime behavior of one node type (or a set of
// type aliases). Implementations are stateless with respect to any single
// run: they only read the node configuration and read/write the
// ExecutionContext, never the graph.
type Handler interface {
	// Kinds returns the node-type strings this handler serves. The first
	// entry is the canonical kind; the rest are aliases.
	Kinds() []string

	// Validate cheaply checks a node configuration before the first
	// execution attempt (e.g. "url is required"). It must not do I/O.
	Validate(config map[string]any) error

	// Execute runs the node. It may block on I/O and must honor ctx for
	// cancellation and timeouts; the executor bounds every call.
	Execute(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error)
}
