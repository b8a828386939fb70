package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/models"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/persistence"
)

// ExecutionRepository handles execution-related database operations. The
// Claim and Reset transitions are single conditional UPDATE statements so
// they stay atomic across worker processes.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `id, flow_id, user_id, status, context, artifact_id, parent_execution_id,
	resume_context, started_at, completed_at, heartbeat_at, error_message, execution_log, created_at`

// Create inserts a new execution record.
func (er *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	contextJSON, resumeJSON, logJSON, err := marshalExecutionFields(execution)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO executions (
			id, flow_id, user_id, status, context, artifact_id, parent_execution_id,
			resume_context, started_at, completed_at, heartbeat_at, error_message,
			execution_log, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = er.db.ExecContext(ctx, query,
		execution.ID,
		execution.FlowID,
		nullString(execution.UserID),
		execution.Status,
		contextJSON,
		execution.ArtifactID,
		execution.ParentExecutionID,
		resumeJSON,
		execution.StartedAt,
		execution.CompletedAt,
		execution.HeartbeatAt,
		nullString(execution.ErrorMessage),
		logJSON,
		execution.CreatedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	return nil
}

// ByID retrieves an execution by its ID.
func (er *ExecutionRepository) ByID(ctx context.Context, id string) (*models.Execution, error) {
	row := er.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = $1`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, persistence.NewExecutionError("ByID", id, err)
	}

	return execution, nil
}

// Save persists the full execution record.
func (er *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	contextJSON, resumeJSON, logJSON, err := marshalExecutionFields(execution)
	if err != nil {
		return err
	}

	query := `
		UPDATE executions SET
			status = $2,
			context = $3,
			artifact_id = $4,
			resume_context = $5,
			started_at = $6,
			completed_at = $7,
			heartbeat_at = $8,
			error_message = $9,
			execution_log = $10
		WHERE id = $1
	`

	result, err := er.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		contextJSON,
		execution.ArtifactID,
		resumeJSON,
		execution.StartedAt,
		execution.CompletedAt,
		execution.HeartbeatAt,
		nullString(execution.ErrorMessage),
		logJSON,
	)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}

// SaveRunning persists the record only while the stored status is still
// running. Zero matched rows means a cancel or reset beat the worker to the
// record; the caller's copy is stale.
func (er *ExecutionRepository) SaveRunning(ctx context.Context, execution *models.Execution) error {
	contextJSON, resumeJSON, logJSON, err := marshalExecutionFields(execution)
	if err != nil {
		return err
	}

	query := `
		UPDATE executions SET
			status = $2,
			context = $3,
			artifact_id = $4,
			resume_context = $5,
			started_at = $6,
			completed_at = $7,
			heartbeat_at = $8,
			error_message = $9,
			execution_log = $10
		WHERE id = $1 AND status = 'running'
	`

	result, err := er.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		contextJSON,
		execution.ArtifactID,
		resumeJSON,
		execution.StartedAt,
		execution.CompletedAt,
		execution.HeartbeatAt,
		nullString(execution.ErrorMessage),
		logJSON,
	)
	if err != nil {
		return persistence.NewExecutionError("SaveRunning", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("SaveRunning", execution.ID, err)
	}

	if affected == 0 {
		if _, lookupErr := er.ByID(ctx, execution.ID); lookupErr != nil {
			return lookupErr
		}

		return persistence.ErrExecutionNotRunning
	}

	return nil
}

// Pending lists pending executions in creation order.
func (er *ExecutionRepository) Pending(ctx context.Context, limit int) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`

	return er.query(ctx, query, limit)
}

// Claim atomically transitions a pending execution to running. First writer
// wins: the conditional UPDATE matches zero rows for every other claimant.
func (er *ExecutionRepository) Claim(ctx context.Context, id, _ string, now time.Time) (*models.Execution, error) {
	query := `
		UPDATE executions
		SET status = 'running', started_at = $2, heartbeat_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := er.db.ExecContext(ctx, query, id, now.UTC())
	if err != nil {
		return nil, persistence.NewExecutionError("Claim", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, persistence.NewExecutionError("Claim", id, err)
	}

	if affected == 0 {
		if _, lookupErr := er.ByID(ctx, id); errors.Is(lookupErr, persistence.ErrExecutionNotFound) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, persistence.ErrClaimConflict
	}

	return er.ByID(ctx, id)
}

// Heartbeat extends the liveness deadline of a running execution.
func (er *ExecutionRepository) Heartbeat(ctx context.Context, id string, at time.Time) error {
	_, err := er.db.ExecContext(ctx,
		`UPDATE executions SET heartbeat_at = $2 WHERE id = $1 AND status = 'running'`,
		id, at.UTC())
	if err != nil {
		return persistence.NewExecutionError("Heartbeat", id, err)
	}

	return nil
}

// Reset returns an execution to pending, erasing the previous attempt's
// footprint while keeping the seed context.
func (er *ExecutionRepository) Reset(ctx context.Context, id string) error {
	query := `
		UPDATE executions
		SET status = 'pending', started_at = NULL, completed_at = NULL,
			heartbeat_at = NULL, error_message = NULL, execution_log = NULL
		WHERE id = $1
	`

	result, err := er.db.ExecContext(ctx, query, id)
	if err != nil {
		return persistence.NewExecutionError("Reset", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Reset", id, err)
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}

// StaleRunning lists running executions whose last proof of life is older
// than the cutoff.
func (er *ExecutionRepository) StaleRunning(ctx context.Context, cutoff time.Time) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + `
		FROM executions
		WHERE status = 'running'
		  AND GREATEST(COALESCE(started_at, 'epoch'::timestamptz), COALESCE(heartbeat_at, 'epoch'::timestamptz)) < $1
		ORDER BY started_at`

	return er.query(ctx, query, cutoff.UTC())
}

// ByArtifact lists executions referencing the given artifact.
func (er *ExecutionRepository) ByArtifact(ctx context.Context, artifactID string) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE artifact_id = $1 ORDER BY created_at`

	return er.query(ctx, query, artifactID)
}

func (er *ExecutionRepository) query(ctx context.Context, query string, args ...any) ([]*models.Execution, error) {
	rows, err := er.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			er.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var executions []*models.Execution

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func marshalExecutionFields(execution *models.Execution) (contextJSON, resumeJSON, logJSON []byte, err error) {
	contextJSON, err = json.Marshal(execution.Context)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal context: %w", err)
	}

	if execution.ResumeContext != nil {
		resumeJSON, err = json.Marshal(execution.ResumeContext)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal resume context: %w", err)
		}
	}

	if execution.ExecutionLog != nil {
		logJSON, err = json.Marshal(execution.ExecutionLog)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal execution log: %w", err)
		}
	}

	return contextJSON, resumeJSON, logJSON, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution    models.Execution
		userID       sql.NullString
		contextJSON  []byte
		resumeJSON   []byte
		logJSON      []byte
		errorMessage sql.NullString
	)

	err := row.Scan(
		&execution.ID,
		&execution.FlowID,
		&userID,
		&execution.Status,
		&contextJSON,
		&execution.ArtifactID,
		&execution.ParentExecutionID,
		&resumeJSON,
		&execution.StartedAt,
		&execution.CompletedAt,
		&execution.HeartbeatAt,
		&errorMessage,
		&logJSON,
		&execution.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.UserID = userID.String
	execution.ErrorMessage = errorMessage.String

	if err := json.Unmarshal(contextJSON, &execution.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}

	if len(resumeJSON) > 0 {
		if err := json.Unmarshal(resumeJSON, &execution.ResumeContext); err != nil {
			return nil, fmt.Errorf("failed to unmarshal resume context: %w", err)
		}
	}

	if len(logJSON) > 0 {
		if err := json.Unmarshal(logJSON, &execution.ExecutionLog); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution log: %w", err)
		}
	}

	return &execution, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
