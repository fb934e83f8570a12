package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
)

// ExecutionRepository handles workflow run rows. Terminal rows are immutable;
// status transitions happen through guarded UPDATEs so two workers racing on
// the same execution cannot both win.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	if execution.Status == "" {
		execution.Status = models.ExecutionStatusPending
	}

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	triggerDataJSON, err := marshalJSON(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	resultDataJSON, err := marshalJSON(execution.ResultData)
	if err != nil {
		return fmt.Errorf("failed to marshal result data: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, version_number, status, triggered_by,
trigger_data, result_data, error_message, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.VersionNumber,
		execution.Status,
		execution.TriggeredBy,
		triggerDataJSON,
		resultDataJSON,
		execution.ErrorMessage,
		execution.CreatedAt,
		execution.StartedAt,
		execution.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , version_number
		  , status
		  , triggered_by
		  , trigger_data
		  , result_data
		  , error_message
		  , created_at
		  , started_at
		  , finished_at
		FROM executions
		WHERE id = $1
	`

	execution, err := r.scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, err
	}

	return execution, nil
}

// MarkRunning transitions a pending execution to running and stamps
// started_at.
func (r *ExecutionRepository) MarkRunning(ctx context.Context, id string) error {
	query := `
		UPDATE executions
		SET status = $2, started_at = $3
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
	`

	result, err := r.db.ExecContext(ctx, query, id, models.ExecutionStatusRunning, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}

	return r.checkGuardedUpdate(ctx, id, result)
}

// Finish transitions an execution to a terminal status with its result.
func (r *ExecutionRepository) Finish(ctx context.Context, id string, status models.ExecutionStatus, resultData map[string]any, errorMessage string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	resultDataJSON, err := marshalJSON(resultData)
	if err != nil {
		return fmt.Errorf("failed to marshal result data: %w", err)
	}

	query := `
		UPDATE executions
		SET status = $2, result_data = $3, error_message = $4, finished_at = $5
		WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
	`

	result, err := r.db.ExecContext(ctx, query, id, status, resultDataJSON, errorMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to finish execution: %w", err)
	}

	return r.checkGuardedUpdate(ctx, id, result)
}

// ListByWorkflow returns every run of the workflow, newest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , version_number
		  , status
		  , triggered_by
		  , trigger_data
		  , result_data
		  , error_message
		  , created_at
		  , started_at
		  , finished_at
		FROM executions
		WHERE workflow_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

// checkGuardedUpdate resolves a zero-row guarded UPDATE into either
// not-found or already-terminal.
func (r *ExecutionRepository) checkGuardedUpdate(ctx context.Context, id string, result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		return nil
	}

	var status models.ExecutionStatus

	err = r.db.QueryRowContext(ctx, "SELECT status FROM executions WHERE id = $1", id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrExecutionNotFound
		}

		return fmt.Errorf("failed to query execution status: %w", err)
	}

	return fmt.Errorf("execution %s is %s: %w", id, status, persistence.ErrExecutionTerminal)
}

func (r *ExecutionRepository) scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution       models.Execution
		triggerDataJSON []byte
		resultDataJSON  []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.VersionNumber,
		&execution.Status,
		&execution.TriggeredBy,
		&triggerDataJSON,
		&resultDataJSON,
		&execution.ErrorMessage,
		&execution.CreatedAt,
		&execution.StartedAt,
		&execution.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	if err := unmarshalJSON(triggerDataJSON, &execution.TriggerData); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(resultDataJSON, &execution.ResultData); err != nil {
		return nil, err
	}

	return &execution, nil
}
