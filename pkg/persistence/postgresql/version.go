package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
)

// VersionRepository handles published workflow version snapshots.
type VersionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewVersionRepository(db *sql.DB, logger *slog.Logger) *VersionRepository {
	return &VersionRepository{db: db, logger: logger}
}

const uniqueViolation = pq.ErrorCode("23505")

// Create inserts a version snapshot. Versions are write-once: inserting an
// existing (workflow_id, number) pair fails.
func (r *VersionRepository) Create(ctx context.Context, version *models.WorkflowVersion) error {
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}

	graphJSON, err := marshalJSON(version.Graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	query := `
		INSERT INTO workflow_versions (id, workflow_id, number, graph, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(ctx, query,
		version.ID,
		version.WorkflowID,
		version.Number,
		graphJSON,
		version.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("version %d of workflow %s already exists", version.Number, version.WorkflowID)
		}

		return fmt.Errorf("failed to create workflow version: %w", err)
	}

	return nil
}

func (r *VersionRepository) GetByNumber(ctx context.Context, workflowID string, number int) (*models.WorkflowVersion, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , number
		  , graph
		  , created_at
		FROM workflow_versions
		WHERE workflow_id = $1 AND number = $2
	`

	return r.scanVersion(r.db.QueryRowContext(ctx, query, workflowID, number))
}

// Latest returns the highest-numbered version of the workflow.
func (r *VersionRepository) Latest(ctx context.Context, workflowID string) (*models.WorkflowVersion, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , number
		  , graph
		  , created_at
		FROM workflow_versions
		WHERE workflow_id = $1
		ORDER BY number DESC
		LIMIT 1
	`

	return r.scanVersion(r.db.QueryRowContext(ctx, query, workflowID))
}

func (r *VersionRepository) scanVersion(row *sql.Row) (*models.WorkflowVersion, error) {
	var (
		version   models.WorkflowVersion
		graphJSON []byte
	)

	err := row.Scan(
		&version.ID,
		&version.WorkflowID,
		&version.Number,
		&graphJSON,
		&version.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrVersionNotFound
		}

		return nil, fmt.Errorf("failed to scan workflow version: %w", err)
	}

	version.Graph = &models.Graph{}
	if err := unmarshalJSON(graphJSON, version.Graph); err != nil {
		return nil, err
	}

	return &version, nil
}
