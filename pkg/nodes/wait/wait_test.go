package wait

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchid-run/orchid/pkg/models"
)

func testNode(config map[string]any) *models.GraphNode {
	return &models.GraphNode{
		ID:   "node-wait",
		Type: "wait",
		Data: models.NodeData{Type: "wait", Config: config},
	}
}

func TestValidate(t *testing.T) {
	handler := NewHandler()

	assert.Error(t, handler.Validate(map[string]any{}))
	assert.Error(t, handler.Validate(map[string]any{"seconds": float64(-1)}))
	assert.NoError(t, handler.Validate(map[string]any{"seconds": float64(3)}))
}

func TestExecuteWaits(t *testing.T) {
	handler := NewHandler()
	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	start := time.Now()

	result, err := handler.Execute(context.Background(), ectx, testNode(map[string]any{
		"seconds": 0.05,
	}))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 0.05, result.Output["waited_seconds"])
}

func TestExecuteCancelled(t *testing.T) {
	handler := NewHandler()
	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := handler.Execute(ctx, ectx, testNode(map[string]any{"seconds": float64(60)}))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
