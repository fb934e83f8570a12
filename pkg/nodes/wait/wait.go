// Package wait provides the bounded-sleep handler.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orchid-run/orchid/pkg/models"
)

// MaxDuration caps a single wait node.
const MaxDuration = 300 * time.Second

// Handler sleeps for a bounded duration. The sleep only blocks this run's
// goroutine; concurrent executions keep making progress.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Kinds() []string {
	return []string{"wait", "delay"}
}

func (h *Handler) Validate(config map[string]any) error {
	seconds, ok := toSeconds(config)
	if !ok {
		return errors.New("missing required field 'seconds'")
	}

	if seconds < 0 {
		return errors.New("'seconds' must not be negative")
	}

	return nil
}

func (h *Handler) Execute(ctx context.Context, _ *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	seconds, _ := toSeconds(node.Config())

	duration := time.Duration(seconds * float64(time.Second))
	if duration > MaxDuration {
		duration = MaxDuration
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
		return nil, fmt.Errorf("wait interrupted: %w", ctx.Err())
	}

	return &models.NodeResult{
		Output: map[string]any{"waited_seconds": duration.Seconds()},
	}, nil
}

func toSeconds(config map[string]any) (float64, bool) {
	switch typed := config["seconds"].(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	default:
		return 0, false
	}
}
