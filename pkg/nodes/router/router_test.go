package router

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	countermemory "github.com/orchid-run/orchid/pkg/counter/memory"
	counterredis "github.com/orchid-run/orchid/pkg/counter/redis"
	"github.com/orchid-run/orchid/pkg/models"
)

func testNode(config map[string]any) *models.GraphNode {
	return &models.GraphNode{
		ID:   "node-router",
		Type: "router",
		Data: models.NodeData{Type: "router", Config: config},
	}
}

func routesConfig(handles ...string) []any {
	routes := make([]any, 0, len(handles))
	for _, h := range handles {
		routes = append(routes, map[string]any{"handle": h})
	}

	return routes
}

func TestValidate(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())

	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{
			name:    "unknown mode",
			config:  map[string]any{"mode": "sticky", "routes": routesConfig("a")},
			wantErr: true,
		},
		{
			name:    "no routes",
			config:  map[string]any{"mode": ModeRandom, "routes": []any{}},
			wantErr: true,
		},
		{
			name: "weighted without weights",
			config: map[string]any{
				"mode":   ModeWeighted,
				"routes": routesConfig("a", "b"),
			},
			wantErr: true,
		},
		{
			name:    "hash without field",
			config:  map[string]any{"mode": ModeHash, "routes": routesConfig("a", "b")},
			wantErr: true,
		},
		{
			name:    "valid round robin",
			config:  map[string]any{"mode": ModeRoundRobin, "routes": routesConfig("a", "b")},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handler.Validate(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoundRobinFairness(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())
	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	node := testNode(map[string]any{
		"mode":   ModeRoundRobin,
		"routes": routesConfig("a", "b", "c"),
	})

	counts := map[string]int{}

	for i := 0; i < 9; i++ {
		result, err := handler.Execute(context.Background(), ectx, node)
		require.NoError(t, err)
		counts[result.Handle()]++
	}

	assert.Equal(t, map[string]int{"a": 3, "b": 3, "c": 3}, counts)
}

func TestRoundRobinStartsAtFirstRoute(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())
	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	node := testNode(map[string]any{
		"mode":   ModeRoundRobin,
		"routes": routesConfig("a", "b"),
	})

	result, err := handler.Execute(context.Background(), ectx, node)
	require.NoError(t, err)
	assert.Equal(t, "a", result.Handle())

	result, err = handler.Execute(context.Background(), ectx, node)
	require.NoError(t, err)
	assert.Equal(t, "b", result.Handle())
}

func TestWeightedDistribution(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())
	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	node := testNode(map[string]any{
		"mode": ModeWeighted,
		"routes": []any{
			map[string]any{"handle": "heavy", "weight": float64(3)},
			map[string]any{"handle": "light", "weight": float64(1)},
		},
	})

	counts := map[string]int{}

	for i := 0; i < 8; i++ {
		result, err := handler.Execute(context.Background(), ectx, node)
		require.NoError(t, err)
		counts[result.Handle()]++
	}

	assert.Equal(t, map[string]int{"heavy": 6, "light": 2}, counts)
}

func TestHashIsDeterministic(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())

	node := testNode(map[string]any{
		"mode":       ModeHash,
		"hash_field": "{{customer_id}}",
		"routes":     routesConfig("a", "b", "c"),
	})

	ectx := models.NewExecutionContext("exec-1", "wf-1", map[string]any{"customer_id": "cust-7"}, nil)

	first, err := handler.Execute(context.Background(), ectx, node)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := handler.Execute(context.Background(), ectx, node)
		require.NoError(t, err)
		assert.Equal(t, first.Handle(), again.Handle())
	}
}

func TestHashHighBitDigestStaysInRange(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())

	node := testNode(map[string]any{
		"mode":       ModeHash,
		"hash_field": "{{customer_id}}",
		"routes":     routesConfig("a", "b", "c"),
	})

	// FNV-1a of this value is 0xddaa05fb, whose high bit is set; modulo
	// must happen in unsigned space so the index stays valid on 32-bit
	// platforms.
	ectx := models.NewExecutionContext("exec-1", "wf-1", map[string]any{"customer_id": "user@example.com"}, nil)

	result, err := handler.Execute(context.Background(), ectx, node)
	require.NoError(t, err)
	assert.Equal(t, "c", result.Handle())
}

func TestHashEmptyFieldErrors(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())

	node := testNode(map[string]any{
		"mode":       ModeHash,
		"hash_field": "{{missing}}",
		"routes":     routesConfig("a", "b"),
	})

	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	_, err := handler.Execute(context.Background(), ectx, node)
	assert.Error(t, err)
}

func TestExpressionFirstMatchWins(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())

	node := testNode(map[string]any{
		"mode": ModeExpression,
		"routes": []any{
			map[string]any{"handle": "vip", "when": `tier == "gold"`},
			map[string]any{"handle": "standard", "when": `amount > 0`},
		},
	})

	ectx := models.NewExecutionContext("exec-1", "wf-1",
		map[string]any{"tier": "gold", "amount": float64(10)}, nil)

	result, err := handler.Execute(context.Background(), ectx, node)
	require.NoError(t, err)
	assert.Equal(t, "vip", result.Handle())
}

func TestExpressionFallback(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())

	node := testNode(map[string]any{
		"mode": ModeExpression,
		"routes": []any{
			map[string]any{"handle": "vip", "when": `tier == "gold"`},
		},
	})

	ectx := models.NewExecutionContext("exec-1", "wf-1", map[string]any{"tier": "bronze"}, nil)

	result, err := handler.Execute(context.Background(), ectx, node)
	require.NoError(t, err)
	assert.Equal(t, FallbackHandle, result.Handle())
}

func TestRandomPicksConfiguredRoute(t *testing.T) {
	handler := NewHandler(countermemory.NewCounterStore(), slog.Default())
	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	node := testNode(map[string]any{
		"mode":   ModeRandom,
		"routes": routesConfig("a", "b"),
	})

	for i := 0; i < 20; i++ {
		result, err := handler.Execute(context.Background(), ectx, node)
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "b"}, result.Handle())
	}
}

func TestRoundRobinDegradesToRandomWhenCounterDown(t *testing.T) {
	server := miniredis.RunT(t)

	counters, err := counterredis.NewCounterStoreFromURL("redis://" + server.Addr())
	require.NoError(t, err)

	server.Close()

	handler := NewHandler(counters, slog.Default())
	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	node := testNode(map[string]any{
		"mode":   ModeRoundRobin,
		"routes": routesConfig("a", "b"),
	})

	result, err := handler.Execute(context.Background(), ectx, node)
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, result.Handle())
}
