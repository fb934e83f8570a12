package workflow

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchid-run/orchid/pkg/gateways"
	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
	"github.com/orchid-run/orchid/pkg/persistence/file"
	"github.com/orchid-run/orchid/pkg/registry"
)

type recordingEmailGateway struct {
	sent []gateways.EmailMessage
}

func (g *recordingEmailGateway) Send(_ context.Context, msg gateways.EmailMessage) error {
	g.sent = append(g.sent, msg)
	return nil
}

type testHarness struct {
	persistence persistence.Persistence
	executor    *Executor
	emails      *recordingEmailGateway
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	emails := &recordingEmailGateway{}

	reg := registry.NewRegistry(slog.Default())
	require.NoError(t, registry.RegisterBuiltins(reg, registry.Deps{
		Logger:       slog.Default(),
		EmailGateway: emails,
	}))

	executor := NewExecutor(p, reg, slog.Default())

	// the sub-workflow handler needs the executor itself
	subReg := registry.NewRegistry(slog.Default())
	require.NoError(t, registry.RegisterBuiltins(subReg, registry.Deps{
		Logger:       slog.Default(),
		EmailGateway: emails,
		SubWorkflows: executor,
	}))
	executor.registry = subReg

	return &testHarness{persistence: p, executor: executor, emails: emails}
}

func (h *testHarness) saveWorkflow(t *testing.T, id string, graph *models.Graph, variables map[string]any) {
	t.Helper()

	require.NoError(t, h.persistence.WorkflowRepository().Save(context.Background(), &models.Workflow{
		ID:        id,
		Name:      "Test workflow",
		Status:    models.WorkflowStatusPublished,
		Active:    true,
		Graph:     graph,
		Variables: variables,
	}))
}

func (h *testHarness) createExecution(t *testing.T, id, workflowID string, triggerData map[string]any) *models.Execution {
	t.Helper()

	execution := &models.Execution{
		ID:          id,
		WorkflowID:  workflowID,
		Status:      models.ExecutionStatusPending,
		TriggeredBy: models.TriggeredByWebhook,
		TriggerData: triggerData,
	}
	require.NoError(t, h.persistence.ExecutionRepository().Create(context.Background(), execution))

	return execution
}

func (h *testHarness) nodeLogs(t *testing.T, executionID string) []*models.NodeExecutionLog {
	t.Helper()

	logs, err := h.persistence.NodeLogRepository().ListByExecution(context.Background(), executionID)
	require.NoError(t, err)

	return logs
}

func triggerNode() *models.GraphNode {
	return &models.GraphNode{ID: "trigger", Type: "trigger:webhook"}
}

func conditionPaidGraph() *models.Graph {
	return &models.Graph{
		Nodes: []*models.GraphNode{
			triggerNode(),
			{
				ID:   "check",
				Type: "condition",
				Data: models.NodeData{Config: map[string]any{
					"conditions": []any{
						map[string]any{
							"variable": "status",
							"operator": "equals",
							"value":    "paid",
							"handle":   "true",
						},
					},
				}},
			},
			{
				ID:   "notify",
				Type: "email:send",
				Data: models.NodeData{Config: map[string]any{
					"to":      "{{customer_email}}",
					"subject": "Order {{order_id}} paid",
					"body":    "Thanks!",
				}},
			},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "trigger", Target: "check"},
			{ID: "e2", Source: "check", Target: "notify", SourceHandle: "true"},
		},
	}
}

func TestRunTriggerOnlyGraph(t *testing.T) {
	h := newHarness(t)

	h.saveWorkflow(t, "wf-1", &models.Graph{
		Nodes: []*models.GraphNode{triggerNode()},
		Edges: []*models.GraphEdge{},
	}, nil)
	h.createExecution(t, "exec-1", "wf-1", map[string]any{"hello": "world"})

	finished, err := h.executor.Run(context.Background(), h.createExecutionRef(t, "exec-1"))
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, finished.Status)
	assert.Equal(t, float64(1), asFloat(finished.ResultData["nodes_visited"]))
	assert.Equal(t, false, finished.ResultData["had_errors"])

	// trigger visits produce no log rows
	assert.Empty(t, h.nodeLogs(t, "exec-1"))
}

// createExecutionRef reloads an execution row so Run sees persisted state.
func (h *testHarness) createExecutionRef(t *testing.T, id string) *models.Execution {
	t.Helper()

	execution, err := h.persistence.ExecutionRepository().GetByID(context.Background(), id)
	require.NoError(t, err)

	return execution
}

// asFloat tolerates the int-vs-float64 difference JSON round-tripping
// introduces in result_data.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return -1
	}
}

func TestRunPaidOrderSendsEmail(t *testing.T) {
	h := newHarness(t)

	h.saveWorkflow(t, "wf-1", conditionPaidGraph(), nil)
	execution := h.createExecution(t, "exec-1", "wf-1", map[string]any{
		"status":         "paid",
		"customer_email": "ada@example.com",
		"order_id":       "A-100",
	})

	finished, err := h.executor.Run(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, finished.Status)

	logs := h.nodeLogs(t, "exec-1")
	require.Len(t, logs, 2)
	assert.Equal(t, "check", logs[0].NodeID)
	assert.Equal(t, models.NodeLogStatusSuccess, logs[0].Status)
	assert.Equal(t, "notify", logs[1].NodeID)
	assert.Equal(t, models.NodeLogStatusSuccess, logs[1].Status)

	require.Len(t, h.emails.sent, 1)
	assert.Equal(t, []string{"ada@example.com"}, h.emails.sent[0].To)
	assert.Equal(t, "Order A-100 paid", h.emails.sent[0].Subject)
}

func TestRunUnpaidOrderStopsAtCondition(t *testing.T) {
	h := newHarness(t)

	h.saveWorkflow(t, "wf-1", conditionPaidGraph(), nil)
	execution := h.createExecution(t, "exec-1", "wf-1", map[string]any{"status": "pending"})

	finished, err := h.executor.Run(context.Background(), execution)
	require.NoError(t, err)

	// "else" has no outgoing edge, so the branch just ends
	assert.Equal(t, models.ExecutionStatusCompleted, finished.Status)

	logs := h.nodeLogs(t, "exec-1")
	require.Len(t, logs, 1)
	assert.Equal(t, "check", logs[0].NodeID)

	assert.Empty(t, h.emails.sent)
}

func TestRunNodeErrorFailsRunButContinuesOtherBranches(t *testing.T) {
	h := newHarness(t)

	// two independent branches off the trigger; one fails validation
	graph := &models.Graph{
		Nodes: []*models.GraphNode{
			triggerNode(),
			{
				ID:   "bad",
				Type: "set_variable",
				Data: models.NodeData{Config: map[string]any{"value": "x"}}, // name missing
			},
			{
				ID:   "good",
				Type: "set_variable",
				Data: models.NodeData{Config: map[string]any{"name": "ok", "value": "yes"}},
			},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "trigger", Target: "bad"},
			{ID: "e2", Source: "trigger", Target: "good"},
		},
	}

	h.saveWorkflow(t, "wf-1", graph, nil)
	execution := h.createExecution(t, "exec-1", "wf-1", nil)

	finished, err := h.executor.Run(context.Background(), execution)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, finished.Status)
	assert.Contains(t, finished.ErrorMessage, "bad")
	assert.Equal(t, true, finished.ResultData["had_errors"])

	// the independent branch still ran
	variables, ok := finished.ResultData["variables"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "yes", variables["ok"])

	logs := h.nodeLogs(t, "exec-1")
	require.Len(t, logs, 2)
}

func TestRunUnregisteredNodeTypeFailsRun(t *testing.T) {
	h := newHarness(t)

	h.saveWorkflow(t, "wf-1", &models.Graph{
		Nodes: []*models.GraphNode{
			triggerNode(),
			{ID: "mystery", Type: "quantum_flux"},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "trigger", Target: "mystery"},
		},
	}, nil)
	execution := h.createExecution(t, "exec-1", "wf-1", nil)

	finished, err := h.executor.Run(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, finished.Status)
	assert.Contains(t, finished.ErrorMessage, "quantum_flux")
}

func TestRunWorkflowVariablesSeedContext(t *testing.T) {
	h := newHarness(t)

	graph := &models.Graph{
		Nodes: []*models.GraphNode{
			triggerNode(),
			{
				ID:   "greet",
				Type: "set_variable",
				Data: models.NodeData{Config: map[string]any{
					"name":  "greeting",
					"value": "hello {{audience}}",
				}},
			},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "trigger", Target: "greet"},
		},
	}

	h.saveWorkflow(t, "wf-1", graph, map[string]any{"audience": "world"})
	execution := h.createExecution(t, "exec-1", "wf-1", nil)

	finished, err := h.executor.Run(context.Background(), execution)
	require.NoError(t, err)

	variables := finished.ResultData["variables"].(map[string]any)
	assert.Equal(t, "hello world", variables["greeting"])
}

func TestRunCancelledBetweenNodes(t *testing.T) {
	h := newHarness(t)

	h.saveWorkflow(t, "wf-1", conditionPaidGraph(), nil)
	execution := h.createExecution(t, "exec-1", "wf-1", map[string]any{"status": "paid"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finished, err := h.executor.Run(ctx, execution)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, finished.Status)

	logs := h.nodeLogs(t, "exec-1")
	require.NotEmpty(t, logs)
	assert.Equal(t, models.NodeLogStatusSkipped, logs[0].Status)
}

func TestRunVersionPinnedExecution(t *testing.T) {
	h := newHarness(t)

	h.saveWorkflow(t, "wf-1", conditionPaidGraph(), nil)

	publisher := NewPublishingService(h.persistence, h.executor.registry)

	version, err := publisher.Publish(context.Background(), "wf-1")
	require.NoError(t, err)
	require.Equal(t, 1, version.Number)

	// mutate the draft graph so it now lacks the email node
	wf, err := h.persistence.WorkflowRepository().GetByID(context.Background(), "wf-1")
	require.NoError(t, err)
	wf.Graph = &models.Graph{
		Nodes: []*models.GraphNode{triggerNode()},
		Edges: []*models.GraphEdge{},
	}
	require.NoError(t, h.persistence.WorkflowRepository().Save(context.Background(), wf))

	execution := &models.Execution{
		ID:            "exec-pinned",
		WorkflowID:    "wf-1",
		VersionNumber: 1,
		Status:        models.ExecutionStatusPending,
		TriggeredBy:   models.TriggeredByAPI,
		TriggerData: map[string]any{
			"status":         "paid",
			"customer_email": "ada@example.com",
			"order_id":       "A-1",
		},
	}
	require.NoError(t, h.persistence.ExecutionRepository().Create(context.Background(), execution))

	finished, err := h.executor.Run(context.Background(), execution)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, finished.Status)

	// pinned run used the published snapshot, not the mutated draft
	require.Len(t, h.emails.sent, 1)
}

func TestRunSubWorkflowLinksParentAndCopiesOutput(t *testing.T) {
	h := newHarness(t)

	childGraph := &models.Graph{
		Nodes: []*models.GraphNode{
			{ID: "trigger", Type: "trigger:manual"},
			{
				ID:   "double",
				Type: "set_variable",
				Data: models.NodeData{Config: map[string]any{
					"name":  "echo",
					"value": "got {{input_value}}",
				}},
			},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "trigger", Target: "double"},
		},
	}
	h.saveWorkflow(t, "wf-child", childGraph, nil)

	parentGraph := &models.Graph{
		Nodes: []*models.GraphNode{
			triggerNode(),
			{
				ID:   "call",
				Type: "sub_workflow",
				Data: models.NodeData{Config: map[string]any{
					"workflow_id": "wf-child",
					"input_mapping": map[string]any{
						"input_value": "{{order_id}}",
					},
					"output_variable": "child_result",
				}},
			},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "trigger", Target: "call"},
		},
	}
	h.saveWorkflow(t, "wf-parent", parentGraph, nil)

	execution := h.createExecution(t, "exec-parent", "wf-parent", map[string]any{"order_id": "A-7"})

	finished, err := h.executor.Run(context.Background(), execution)
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusCompleted, finished.Status)

	// the child execution row links back to the parent
	children, err := h.persistence.ExecutionRepository().ListByWorkflow(context.Background(), "wf-child")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, models.TriggeredBySubWorkflow, children[0].TriggeredBy)
	assert.Equal(t, "exec-parent", children[0].ParentExecutionID())
	assert.Equal(t, models.ExecutionStatusCompleted, children[0].Status)

	// the parent variable holds the child's final snapshot
	parentVars := finished.ResultData["variables"].(map[string]any)
	childResult, ok := parentVars["child_result"].(map[string]any)
	require.True(t, ok)

	childVars := childResult["variables"].(map[string]any)
	assert.Equal(t, "got A-7", childVars["echo"])
}

func TestRunMergeJoinsBranches(t *testing.T) {
	h := newHarness(t)

	graph := &models.Graph{
		Nodes: []*models.GraphNode{
			triggerNode(),
			{
				ID:   "left",
				Type: "set_variable",
				Data: models.NodeData{Config: map[string]any{"name": "l", "value": "1"}},
			},
			{
				ID:   "right",
				Type: "set_variable",
				Data: models.NodeData{Config: map[string]any{"name": "r", "value": "2"}},
			},
			{ID: "join", Type: "merge"},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "trigger", Target: "left"},
			{ID: "e2", Source: "trigger", Target: "right"},
			{ID: "e3", Source: "left", Target: "join"},
			{ID: "e4", Source: "right", Target: "join"},
		},
	}

	h.saveWorkflow(t, "wf-1", graph, nil)
	execution := h.createExecution(t, "exec-1", "wf-1", nil)

	finished, err := h.executor.Run(context.Background(), execution)
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusCompleted, finished.Status)

	outputs := finished.ResultData["node_outputs"].(map[string]any)
	joined, ok := outputs["join"].(map[string]any)
	require.True(t, ok)

	// the merge node saw both upstream outputs
	assert.Contains(t, joined, "left")
	assert.Contains(t, joined, "right")
}

func actionNode(config map[string]any) *models.GraphNode {
	return &models.GraphNode{ID: "n", Type: "variable", Data: models.NodeData{Config: config}}
}

func waitNode(config map[string]any) *models.GraphNode {
	return &models.GraphNode{ID: "w", Type: "wait", Data: models.NodeData{Config: config}}
}

func TestNodeTimeoutBounds(t *testing.T) {
	assert.Equal(t, defaultNodeTimeout, nodeTimeout(actionNode(map[string]any{})))
	assert.Equal(t, 5*time.Second, nodeTimeout(actionNode(map[string]any{"timeout_seconds": float64(5)})))
	assert.Equal(t, maxNodeTimeout, nodeTimeout(actionNode(map[string]any{"timeout_seconds": float64(9000)})))
}

func TestNodeTimeoutOutlastsWaitSleep(t *testing.T) {
	// A wait longer than the 30s default must not be cut short by it.
	assert.Equal(t, 36*time.Second, nodeTimeout(waitNode(map[string]any{"seconds": float64(35)})))
	assert.Equal(t, 36*time.Second, nodeTimeout(waitNode(map[string]any{"seconds": 35})))

	// An explicit timeout above the sleep wins.
	assert.Equal(t, 60*time.Second, nodeTimeout(waitNode(map[string]any{
		"seconds": float64(35), "timeout_seconds": float64(60),
	})))

	// The sleep itself is capped, so the floor never grows past cap+grace.
	assert.Equal(t, maxNodeTimeout+time.Second, nodeTimeout(waitNode(map[string]any{"seconds": float64(9000)})))

	// Short waits keep the default.
	assert.Equal(t, defaultNodeTimeout, nodeTimeout(waitNode(map[string]any{"seconds": float64(1)})))
}

func TestRunCompletesWaitLongerThanDefaultTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps just past the default node timeout")
	}

	h := newHarness(t)

	wf := &models.Workflow{
		ID:     "wf-slow-wait",
		Name:   "Slow wait",
		Status: models.WorkflowStatusPublished,
		Active: true,
		Graph: &models.Graph{
			Nodes: []*models.GraphNode{
				triggerNode(),
				{ID: "w", Type: "wait", Data: models.NodeData{
					Config: map[string]any{"seconds": float64(31)},
				}},
			},
			Edges: []*models.GraphEdge{
				{ID: "e1", Source: "trigger", Target: "w"},
			},
		},
	}
	require.NoError(t, h.persistence.WorkflowRepository().Save(t.Context(), wf))

	execution := &models.Execution{
		ID:          "exec-slow-wait",
		WorkflowID:  wf.ID,
		Status:      models.ExecutionStatusPending,
		TriggeredBy: models.TriggeredByManual,
	}
	require.NoError(t, h.persistence.ExecutionRepository().Create(t.Context(), execution))

	finished, err := h.executor.Run(t.Context(), execution)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, finished.Status)
	assert.Empty(t, finished.ErrorMessage)
}
