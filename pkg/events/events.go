// Package events defines the execution lifecycle events exchanged between
// the API, scheduler and worker processes.
package events

import (
	"time"

	"github.com/orchid-run/orchid/pkg/models"
)

type EventType string

// Topic carries every execution lifecycle event.
const Topic = "orchid.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionRequestedEvent EventType = "execution.requested"
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	NodeCompletedEvent      EventType = "execution.node.completed"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
	WorkerID    string    `json:"worker_id,omitempty"`
}

// ExecutionRequested asks a worker to run a pending execution. Published by
// the API (manual trigger, webhook receiver, retry) and the scheduler.
type ExecutionRequested struct {
	BaseEvent

	TriggeredBy models.TriggeredBy `json:"triggered_by"`
}

func (e ExecutionRequested) GetType() EventType {
	return ExecutionRequestedEvent
}

type ExecutionStarted struct {
	BaseEvent
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Result   map[string]any `json:"result,omitempty"`
	Duration time.Duration  `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// NodeCompleted reports one node visit, mirroring the persisted
// NodeExecutionLog row for live observers.
type NodeCompleted struct {
	BaseEvent

	NodeID   string               `json:"node_id"`
	NodeType string               `json:"node_type"`
	Status   models.NodeLogStatus `json:"status"`
	Duration time.Duration        `json:"duration"`
}

func (e NodeCompleted) GetType() EventType {
	return NodeCompletedEvent
}
