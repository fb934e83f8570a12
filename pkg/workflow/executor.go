// Package workflow walks workflow graphs and drives executions to a
// terminal state.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/nodes/wait"
	"github.com/orchid-run/orchid/pkg/otelhelper"
	"github.com/orchid-run/orchid/pkg/persistence"
	"github.com/orchid-run/orchid/pkg/registry"
)

const (
	defaultNodeTimeout = 30 * time.Second
	maxNodeTimeout     = 300 * time.Second
)

// ErrUnknownNodeType aborts a run: the walker cannot traverse past a node
// it has no handler for.
var ErrUnknownNodeType = errors.New("unknown node type")

// Executor walks a workflow graph level by level, dispatching each node to
// its registered handler and appending a NodeExecutionLog row per visit.
//
// Error policy: a node-level error is recorded, the failing branch is not
// followed, and independent branches keep executing; the run finishes failed
// with the first node error as its error message. Only an unknown node type
// aborts traversal outright.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewExecutor(p persistence.Persistence, reg *registry.Registry, logger *slog.Logger) *Executor {
	return &Executor{
		persistence: p,
		registry:    reg,
		logger:      logger.With("module", "workflow_executor"),
		tracer:      noop.NewTracerProvider().Tracer("workflow"),
	}
}

// WithTracer replaces the no-op tracer, typically with the OTLP-backed one
// from otelhelper.
func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer

	return e
}

// Run drives one pending execution to a terminal state and returns the
// updated row. The returned error is reserved for infrastructure failures
// (persistence, missing workflow); node-level errors end up in the
// execution's status and error message instead.
func (e *Executor) Run(ctx context.Context, execution *models.Execution) (*models.Execution, error) {
	return e.run(ctx, execution, 0, nil)
}

func (e *Executor) run(ctx context.Context, execution *models.Execution, depth int, extraVars map[string]any) (*models.Execution, error) {
	logger := e.logger.With("execution_id", execution.ID, "workflow_id", execution.WorkflowID)

	ctx, span := e.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	))
	defer span.End()

	graph, seedVars, err := e.loadGraph(ctx, execution)
	if err != nil {
		otelhelper.SetError(span, err)
		_ = e.persistence.ExecutionRepository().Finish(ctx, execution.ID, models.ExecutionStatusFailed, nil, err.Error())

		return nil, err
	}

	if err := ValidateGraph(graph, e.registry); err != nil {
		otelhelper.SetError(span, err)
		_ = e.persistence.ExecutionRepository().Finish(ctx, execution.ID, models.ExecutionStatusFailed, nil, err.Error())

		return e.persistence.ExecutionRepository().GetByID(ctx, execution.ID)
	}

	if err := e.persistence.ExecutionRepository().MarkRunning(ctx, execution.ID); err != nil {
		return nil, fmt.Errorf("failed to mark execution running: %w", err)
	}

	logger.Info("Starting workflow run", "depth", depth)

	merged := make(map[string]any, len(seedVars)+len(extraVars))
	for k, v := range seedVars {
		merged[k] = v
	}

	for k, v := range extraVars {
		merged[k] = v
	}

	ectx := models.NewExecutionContext(execution.ID, execution.WorkflowID, execution.TriggerData, merged)
	ectx.Depth = depth

	walk := e.walk(ctx, graph, ectx)

	status := models.ExecutionStatusCompleted
	errorMessage := ""

	switch {
	case walk.cancelled:
		status = models.ExecutionStatusCancelled
		errorMessage = "execution cancelled"
	case walk.fatal != nil:
		status = models.ExecutionStatusFailed
		errorMessage = walk.fatal.Error()
	case walk.firstError != "":
		status = models.ExecutionStatusFailed
		errorMessage = walk.firstError
	}

	resultData := ectx.Snapshot()
	resultData["status"] = string(status)
	resultData["nodes_visited"] = walk.visited
	resultData["had_errors"] = walk.firstError != "" || walk.fatal != nil

	if err := e.persistence.ExecutionRepository().Finish(ctx, execution.ID, status, resultData, errorMessage); err != nil {
		return nil, fmt.Errorf("failed to finish execution: %w", err)
	}

	logger.Info("Workflow run finished", "status", status, "nodes_visited", walk.visited)

	return e.persistence.ExecutionRepository().GetByID(ctx, execution.ID)
}

// loadGraph resolves the graph for the execution: a published version when
// the run is pinned to one, the current graph otherwise.
func (e *Executor) loadGraph(ctx context.Context, execution *models.Execution) (*models.Graph, map[string]any, error) {
	wf, err := e.persistence.WorkflowRepository().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch workflow %s: %w", execution.WorkflowID, err)
	}

	if execution.VersionNumber > 0 {
		version, err := e.persistence.VersionRepository().GetByNumber(ctx, execution.WorkflowID, execution.VersionNumber)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch workflow version %d: %w", execution.VersionNumber, err)
		}

		return version.Graph, wf.Variables, nil
	}

	return wf.Graph, wf.Variables, nil
}

type walkResult struct {
	visited    int
	firstError string
	fatal      error
	cancelled  bool
}

// walk performs the level-by-level traversal. Each node is visited at most
// once; merge nodes therefore observe every upstream output produced in
// earlier levels. Cancellation is honored between node boundaries only.
func (e *Executor) walk(ctx context.Context, graph *models.Graph, ectx *models.ExecutionContext) walkResult {
	result := walkResult{}
	visited := make(map[string]bool)

	level := e.triggerNodes(graph)

	for len(level) > 0 {
		next := make([]*models.GraphNode, 0)

		for _, node := range level {
			if ctx.Err() != nil {
				result.cancelled = true

				e.logSkipped(ctx, ectx, node, "execution cancelled")

				continue
			}

			if visited[node.ID] {
				continue
			}

			visited[node.ID] = true
			result.visited++

			nodeResult, err := e.executeNode(ctx, ectx, node)
			if err != nil {
				if errors.Is(err, ErrUnknownNodeType) {
					result.fatal = err

					return result
				}

				if result.firstError == "" {
					result.firstError = fmt.Sprintf("node %s: %v", node.ID, err)
				}

				// The failing branch ends here; independent branches continue.
				continue
			}

			handle := nodeResult.Handle()

			for _, edge := range graph.OutgoingEdges(node.ID) {
				edgeHandle := edge.SourceHandle
				if edgeHandle == "" {
					edgeHandle = models.DefaultHandle
				}

				if edgeHandle != handle {
					continue
				}

				target := graph.NodeByID(edge.Target)
				if target != nil && !visited[target.ID] {
					next = append(next, target)
				}
			}
		}

		if result.cancelled {
			return result
		}

		level = next
	}

	return result
}

// executeNode resolves, validates and runs a single node, recording its
// NodeExecutionLog row.
func (e *Executor) executeNode(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	started := time.Now()

	ctx, span := e.tracer.Start(ctx, "workflow.node", trace.WithAttributes(
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	))
	defer span.End()

	handler, err := e.registry.Resolve(node.Type)
	if err != nil {
		err = fmt.Errorf("%w: %s (node %s)", ErrUnknownNodeType, node.Type, node.ID)
		otelhelper.SetError(span, err)

		return nil, err
	}

	// Trigger nodes carry no runtime logic; the entry point already ran
	// outside the engine, so they produce no log row.
	logged := !models.IsTriggerKind(node.Type)

	if err := handler.Validate(node.Config()); err != nil {
		err = fmt.Errorf("invalid configuration: %w", err)
		otelhelper.SetError(span, err)

		if logged {
			e.logVisit(ctx, ectx, node, nil, err, time.Since(started))
		}

		return nil, err
	}

	nodeCtx, cancel := context.WithTimeout(ctx, nodeTimeout(node))
	defer cancel()

	nodeResult, err := handler.Execute(nodeCtx, ectx, node)
	duration := time.Since(started)

	if err != nil {
		otelhelper.SetError(span, err)

		if logged {
			e.logVisit(ctx, ectx, node, nil, err, duration)
		}

		return nil, err
	}

	if nodeResult == nil {
		nodeResult = &models.NodeResult{}
	}

	ectx.SetNodeOutput(node.ID, nodeResult.Output)

	if logged {
		e.logVisit(ctx, ectx, node, nodeResult, nil, duration)
	}

	return nodeResult, nil
}

func (e *Executor) logVisit(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode, nodeResult *models.NodeResult, nodeErr error, duration time.Duration) {
	entry := &models.NodeExecutionLog{
		ID:          "nlog-" + uuid.New().String()[:8],
		ExecutionID: ectx.ExecutionID,
		NodeID:      node.ID,
		NodeType:    node.Type,
		NodeLabel:   node.Label(),
		Status:      models.NodeLogStatusSuccess,
		Input:       node.Config(),
		Duration:    duration,
		CreatedAt:   time.Now().UTC(),
	}

	if nodeErr != nil {
		entry.Status = models.NodeLogStatusError
		entry.Error = nodeErr.Error()
	} else if nodeResult != nil {
		entry.Output = nodeResult.Output
	}

	if err := e.persistence.NodeLogRepository().Append(ctx, entry); err != nil {
		e.logger.Error("Failed to append node execution log", "node_id", node.ID, "error", err)
	}
}

func (e *Executor) logSkipped(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode, reason string) {
	entry := &models.NodeExecutionLog{
		ID:          "nlog-" + uuid.New().String()[:8],
		ExecutionID: ectx.ExecutionID,
		NodeID:      node.ID,
		NodeType:    node.Type,
		NodeLabel:   node.Label(),
		Status:      models.NodeLogStatusSkipped,
		Error:       reason,
		CreatedAt:   time.Now().UTC(),
	}

	if err := e.persistence.NodeLogRepository().Append(ctx, entry); err != nil {
		e.logger.Error("Failed to append node execution log", "node_id", node.ID, "error", err)
	}
}

// triggerNodes returns the run entry points: in-degree-zero nodes whose type
// is a trigger kind.
func (e *Executor) triggerNodes(graph *models.Graph) []*models.GraphNode {
	nodes := make([]*models.GraphNode, 0, 1)

	for _, node := range graph.Nodes {
		if models.IsTriggerKind(node.Type) && graph.InDegree(node.ID) == 0 {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// nodeTimeout reads timeout_seconds from the node configuration, bounded to
// maxNodeTimeout. Wait nodes sleep up to their own cap, so their timeout is
// floored at the configured sleep regardless of timeout_seconds.
func nodeTimeout(node *models.GraphNode) time.Duration {
	config := node.Config()

	timeout := defaultNodeTimeout

	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
		if timeout > maxNodeTimeout {
			timeout = maxNodeTimeout
		}
	}

	if node.Type == "wait" || node.Type == "delay" {
		if floor := waitFloor(config) + time.Second; floor > timeout {
			timeout = floor
		}
	}

	return timeout
}

// waitFloor is the sleep a wait node will actually perform.
func waitFloor(config map[string]any) time.Duration {
	var seconds float64

	switch typed := config["seconds"].(type) {
	case float64:
		seconds = typed
	case int:
		seconds = float64(typed)
	}

	if seconds <= 0 {
		return 0
	}

	sleep := time.Duration(seconds * float64(time.Second))
	if sleep > wait.MaxDuration {
		return wait.MaxDuration
	}

	return sleep
}
