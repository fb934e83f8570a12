package models

import "time"

// ExecutionStatus is the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status allows no further transitions.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// TriggeredBy records the provenance of an execution.
type TriggeredBy string

const (
	TriggeredByManual      TriggeredBy = "manual"
	TriggeredByWebhook     TriggeredBy = "webhook"
	TriggeredBySchedule    TriggeredBy = "schedule"
	TriggeredByAPI         TriggeredBy = "api"
	TriggeredByRetry       TriggeredBy = "retry"
	TriggeredByReplay      TriggeredBy = "replay"
	TriggeredBySubWorkflow TriggeredBy = "sub_workflow"
)

// TriggerDataParentKey is the trigger_data key carrying the parent execution
// id on child executions created by the sub-workflow handler.
const TriggerDataParentKey = "parent_execution_id"

// Execution is one run of a workflow. Terminal executions are immutable;
// retries create a new row instead of mutating the original.
type Execution struct {
	ID            string          `json:"id"`
	WorkflowID    string          `json:"workflow_id" validate:"required"`
	VersionNumber int             `json:"version_number,omitempty"` // 0 means "current graph"
	Status        ExecutionStatus `json:"status"`
	TriggeredBy   TriggeredBy     `json:"triggered_by"`
	TriggerData   map[string]any  `json:"trigger_data,omitempty"`
	ResultData    map[string]any  `json:"result_data,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}

// ParentExecutionID returns the parent execution id for child executions
// created by the sub-workflow handler, or "".
func (e *Execution) ParentExecutionID() string {
	if e.TriggerData == nil {
		return ""
	}

	parent, _ := e.TriggerData[TriggerDataParentKey].(string)

	return parent
}

// NodeLogStatus is the recorded outcome of one node visit.
type NodeLogStatus string

const (
	NodeLogStatusSuccess NodeLogStatus = "success"
	NodeLogStatusError   NodeLogStatus = "error"
	NodeLogStatusSkipped NodeLogStatus = "skipped"
	NodeLogStatusWaiting NodeLogStatus = "waiting"
)

// NodeExecutionLog is one append-only row per node visited in a run.
type NodeExecutionLog struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id" validate:"required"`
	NodeID      string         `json:"node_id"      validate:"required"`
	NodeType    string         `json:"node_type"`
	NodeLabel   string         `json:"node_label"`
	Status      NodeLogStatus  `json:"status"`
	Input       map[string]any `json:"input,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Duration    time.Duration  `json:"duration"`
	CreatedAt   time.Time      `json:"created_at"`
}
