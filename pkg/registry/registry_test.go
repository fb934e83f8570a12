package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchid-run/orchid/pkg/models"
)

type stubHandler struct {
	kinds []string
}

func (h *stubHandler) Kinds() []string { return h.kinds }

func (h *stubHandler) Validate(map[string]any) error { return nil }

func (h *stubHandler) Execute(context.Context, *models.ExecutionContext, *models.GraphNode) (*models.NodeResult, error) {
	return &models.NodeResult{}, nil
}

func TestRegisterAndResolve(t *testing.T) {
	reg := NewRegistry(slog.Default())
	handler := &stubHandler{kinds: []string{"noop", "no_op"}}

	require.NoError(t, reg.Register(handler))

	for _, kind := range handler.kinds {
		resolved, err := reg.Resolve(kind)
		require.NoError(t, err)
		assert.Same(t, handler, resolved)
	}

	assert.True(t, reg.IsRegistered("noop"))
	assert.False(t, reg.IsRegistered("unknown"))
}

func TestRegisterDuplicateKindFails(t *testing.T) {
	reg := NewRegistry(slog.Default())

	require.NoError(t, reg.Register(&stubHandler{kinds: []string{"noop"}}))

	err := reg.Register(&stubHandler{kinds: []string{"noop"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestRegisterNoKindsFails(t *testing.T) {
	reg := NewRegistry(slog.Default())

	assert.Error(t, reg.Register(&stubHandler{}))
}

func TestResolveUnknownKind(t *testing.T) {
	reg := NewRegistry(slog.Default())

	_, err := reg.Resolve("unknown")
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestKindsSorted(t *testing.T) {
	reg := NewRegistry(slog.Default())

	require.NoError(t, reg.Register(&stubHandler{kinds: []string{"zeta"}}))
	require.NoError(t, reg.Register(&stubHandler{kinds: []string{"alpha"}}))

	assert.Equal(t, []string{"alpha", "zeta"}, reg.Kinds())
}

func TestRegisterBuiltins(t *testing.T) {
	reg := NewRegistry(slog.Default())

	require.NoError(t, RegisterBuiltins(reg, Deps{Logger: slog.Default()}))

	// always-on families
	for _, kind := range []string{
		"trigger:webhook", "webhook_trigger",
		"condition", "if",
		"set_variable",
		"wait", "delay",
		"merge",
		"http_request", "http",
		"router",
		"json_transform", "iterator", "aggregator", "text_parser", "filter", "sort",
	} {
		assert.True(t, reg.IsRegistered(kind), "kind %q should be registered", kind)
	}

	// optional collaborators were nil
	assert.False(t, reg.IsRegistered("ai:openai"))
	assert.False(t, reg.IsRegistered("email:send"))
	assert.False(t, reg.IsRegistered("sub_workflow"))
}
