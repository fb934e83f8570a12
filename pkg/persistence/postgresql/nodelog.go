package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/orchid-run/orchid/pkg/models"
)

// NodeLogRepository handles per-node trace rows. Rows are append-only.
type NodeLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewNodeLogRepository(db *sql.DB, logger *slog.Logger) *NodeLogRepository {
	return &NodeLogRepository{db: db, logger: logger}
}

func (r *NodeLogRepository) Append(ctx context.Context, log *models.NodeExecutionLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	inputJSON, err := marshalJSON(log.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	outputJSON, err := marshalJSON(log.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	query := `
		INSERT INTO node_execution_logs (id, execution_id, node_id, node_type, node_label,
status, input, output, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.ExecutionID,
		log.NodeID,
		log.NodeType,
		log.NodeLabel,
		log.Status,
		inputJSON,
		outputJSON,
		log.Error,
		log.Duration.Milliseconds(),
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append node execution log: %w", err)
	}

	return nil
}

// ListByExecution returns the trace rows of a run in append order. A run
// with no rows yields an empty slice.
func (r *NodeLogRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.NodeExecutionLog, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , node_id
		  , node_type
		  , node_label
		  , status
		  , input
		  , output
		  , error
		  , duration_ms
		  , created_at
		FROM node_execution_logs
		WHERE execution_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query node execution logs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	logs := make([]*models.NodeExecutionLog, 0)

	for rows.Next() {
		var (
			log        models.NodeExecutionLog
			inputJSON  []byte
			outputJSON []byte
			durationMs int64
		)

		err := rows.Scan(
			&log.ID,
			&log.ExecutionID,
			&log.NodeID,
			&log.NodeType,
			&log.NodeLabel,
			&log.Status,
			&inputJSON,
			&outputJSON,
			&log.Error,
			&durationMs,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node execution log: %w", err)
		}

		log.Duration = time.Duration(durationMs) * time.Millisecond

		if err := unmarshalJSON(inputJSON, &log.Input); err != nil {
			return nil, err
		}

		if err := unmarshalJSON(outputJSON, &log.Output); err != nil {
			return nil, err
		}

		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node execution logs: %w", err)
	}

	return logs, nil
}
