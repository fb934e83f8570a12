package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orchid-run/orchid/pkg/eventbus"
	"github.com/orchid-run/orchid/pkg/events"
	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
	"github.com/orchid-run/orchid/pkg/workflow"
)

// Worker consumes execution requests and drives each run to a terminal
// state, reporting the outcome back on the bus.
type Worker struct {
	id          string
	persistence persistence.Persistence
	executor    *workflow.Executor
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

func NewWorker(
	id string,
	p persistence.Persistence,
	executor *workflow.Executor,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:          id,
		persistence: p,
		executor:    executor,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Start subscribes to execution requests and blocks until the context is
// cancelled or a termination signal arrives.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.eventBus.Handle(events.ExecutionRequestedEvent, w.handleExecutionRequested); err != nil {
		return fmt.Errorf("failed to register event handler: %w", err)
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-sigChan:
	}

	w.logger.InfoContext(ctx, "Shutting down worker")

	return nil
}

func (w *Worker) handleExecutionRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.ExecutionRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Unexpected event payload for execution request")

		return nil
	}

	logger := w.logger.With(
		"execution_id", requested.ExecutionID,
		"workflow_id", requested.WorkflowID,
	)
	logger.InfoContext(ctx, "Processing execution request")

	execution, err := w.persistence.ExecutionRepository().GetByID(ctx, requested.ExecutionID)
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			logger.WarnContext(ctx, "Execution request for unknown execution, dropping")

			return nil
		}

		return fmt.Errorf("failed to load execution: %w", err)
	}

	if execution.Status.IsTerminal() {
		logger.InfoContext(ctx, "Execution already terminal, dropping", "status", execution.Status)

		return nil
	}

	started := time.Now()
	w.publishStarted(ctx, execution)

	finished, err := w.executor.Run(ctx, execution)
	if err != nil {
		logger.ErrorContext(ctx, "Execution aborted", "error", err)
		w.publishFailed(ctx, execution, err.Error(), time.Since(started))

		return nil
	}

	switch finished.Status {
	case models.ExecutionStatusCompleted:
		w.publishCompleted(ctx, finished, time.Since(started))
	case models.ExecutionStatusFailed, models.ExecutionStatusCancelled:
		w.publishFailed(ctx, finished, finished.ErrorMessage, time.Since(started))
	}

	w.publishNodeCompletions(ctx, finished)

	logger.InfoContext(ctx, "Execution finished",
		"status", finished.Status, "duration", time.Since(started))

	return nil
}

func (w *Worker) publishStarted(ctx context.Context, execution *models.Execution) {
	event := events.ExecutionStarted{
		BaseEvent: w.baseEvent(events.ExecutionStartedEvent, execution),
	}

	if err := w.eventBus.Publish(ctx, execution.WorkflowID, event); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish start event",
			"execution_id", execution.ID, "error", err)
	}
}

// publishNodeCompletions mirrors the persisted trace rows onto the bus for
// live observers.
func (w *Worker) publishNodeCompletions(ctx context.Context, execution *models.Execution) {
	logs, err := w.persistence.NodeLogRepository().ListByExecution(ctx, execution.ID)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to load node logs",
			"execution_id", execution.ID, "error", err)

		return
	}

	for _, row := range logs {
		event := events.NodeCompleted{
			BaseEvent: w.baseEvent(events.NodeCompletedEvent, execution),
			NodeID:    row.NodeID,
			NodeType:  row.NodeType,
			Status:    row.Status,
			Duration:  row.Duration,
		}

		if err := w.eventBus.Publish(ctx, execution.WorkflowID, event); err != nil {
			w.logger.ErrorContext(ctx, "Failed to publish node completion",
				"execution_id", execution.ID, "node_id", row.NodeID, "error", err)
		}
	}
}

func (w *Worker) publishCompleted(ctx context.Context, execution *models.Execution, duration time.Duration) {
	event := events.ExecutionCompleted{
		BaseEvent: w.baseEvent(events.ExecutionCompletedEvent, execution),
		Result:    execution.ResultData,
		Duration:  duration,
	}

	if err := w.eventBus.Publish(ctx, execution.WorkflowID, event); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish completion event",
			"execution_id", execution.ID, "error", err)
	}
}

func (w *Worker) publishFailed(ctx context.Context, execution *models.Execution, errorMessage string, duration time.Duration) {
	event := events.ExecutionFailed{
		BaseEvent: w.baseEvent(events.ExecutionFailedEvent, execution),
		Error:     errorMessage,
		Duration:  duration,
	}

	if err := w.eventBus.Publish(ctx, execution.WorkflowID, event); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish failure event",
			"execution_id", execution.ID, "error", err)
	}
}

func (w *Worker) baseEvent(eventType events.EventType, execution *models.Execution) events.BaseEvent {
	return events.BaseEvent{
		ID:          w.eventBus.GenerateID(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
		WorkerID:    w.id,
	}
}
