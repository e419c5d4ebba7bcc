package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence"
)

// ExecutionRepository handles execution and step-result database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// CreateExecution inserts a new execution row.
func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.Execution) error {
	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	query := `
		INSERT INTO executions (
			id, workflow_id, user_id, status, current_node_id, context,
			credits_used, credits_estimated, error_message,
			created_at, started_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID, execution.WorkflowID, execution.UserID, execution.Status,
		execution.CurrentNodeID, contextJSON,
		execution.CreditsUsed, execution.CreditsEstimated, execution.ErrorMessage,
		execution.CreatedAt, execution.StartedAt, execution.CompletedAt)
	if err != nil {
		return persistence.NewExecutionError("Create", execution.ID, err)
	}

	return nil
}

// UpdateExecution writes the mutable fields of an execution keyed by id.
func (r *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	query := `
		UPDATE executions SET
			status = $2
		  , current_node_id = $3
		  , context = $4
		  , credits_used = $5
		  , error_message = $6
		  , started_at = $7
		  , completed_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID, execution.Status, execution.CurrentNodeID, contextJSON,
		execution.CreditsUsed, execution.ErrorMessage,
		execution.StartedAt, execution.CompletedAt)
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("Update", execution.ID, err)
	}

	if affected == 0 {
		return persistence.NewExecutionError("Update", execution.ID, persistence.ErrExecutionNotFound)
	}

	return nil
}

// ExecutionByID returns one execution.
func (r *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , user_id
		  , status
		  , current_node_id
		  , context
		  , credits_used
		  , credits_estimated
		  , error_message
		  , created_at
		  , started_at
		  , completed_at
		FROM executions
		WHERE id = $1
	`

	execution, err := r.scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// ExecutionsByWorkflow returns the executions of one workflow, newest first.
func (r *ExecutionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , user_id
		  , status
		  , current_node_id
		  , context
		  , credits_used
		  , credits_estimated
		  , error_message
		  , created_at
		  , started_at
		  , completed_at
		FROM executions
		WHERE workflow_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
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

// CreateStepResult inserts a new step-result row.
func (r *ExecutionRepository) CreateStepResult(ctx context.Context, step *models.StepResult) error {
	inputJSON, outputJSON, err := marshalStepData(step)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO step_results (
			id, execution_id, node_id, node_type, status,
			input_data, output_data, credits_used, error_message,
			started_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(ctx, query,
		step.ID, step.ExecutionID, step.NodeID, step.NodeType, step.Status,
		inputJSON, outputJSON, step.CreditsUsed, step.ErrorMessage,
		step.StartedAt, step.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create step result: %w", err)
	}

	return nil
}

// UpdateStepResult writes the mutable fields of a step result keyed by id.
func (r *ExecutionRepository) UpdateStepResult(ctx context.Context, step *models.StepResult) error {
	inputJSON, outputJSON, err := marshalStepData(step)
	if err != nil {
		return err
	}

	query := `
		UPDATE step_results SET
			status = $2
		  , input_data = $3
		  , output_data = $4
		  , credits_used = $5
		  , error_message = $6
		  , completed_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		step.ID, step.Status, inputJSON, outputJSON,
		step.CreditsUsed, step.ErrorMessage, step.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update step result: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrStepResultNotFound
	}

	return nil
}

// StepResultsByExecution returns the audit trail of one execution in start order.
func (r *ExecutionRepository) StepResultsByExecution(ctx context.Context, executionID string) ([]*models.StepResult, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , node_id
		  , node_type
		  , status
		  , input_data
		  , output_data
		  , credits_used
		  , error_message
		  , started_at
		  , completed_at
		FROM step_results
		WHERE execution_id = $1
		ORDER BY started_at
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step results: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	steps := make([]*models.StepResult, 0)

	for rows.Next() {
		step, err := r.scanStepResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step result: %w", err)
		}

		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step results: %w", err)
	}

	return steps, nil
}

func (r *ExecutionRepository) scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		contextJSON []byte
	)

	err := row.Scan(
		&execution.ID, &execution.WorkflowID, &execution.UserID, &execution.Status,
		&execution.CurrentNodeID, &contextJSON,
		&execution.CreditsUsed, &execution.CreditsEstimated, &execution.ErrorMessage,
		&execution.CreatedAt, &execution.StartedAt, &execution.CompletedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(contextJSON, &execution.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution context: %w", err)
	}

	return &execution, nil
}

func (r *ExecutionRepository) scanStepResult(row rowScanner) (*models.StepResult, error) {
	var (
		step       models.StepResult
		inputJSON  []byte
		outputJSON []byte
	)

	err := row.Scan(
		&step.ID, &step.ExecutionID, &step.NodeID, &step.NodeType, &step.Status,
		&inputJSON, &outputJSON, &step.CreditsUsed, &step.ErrorMessage,
		&step.StartedAt, &step.CompletedAt)
	if err != nil {
		return nil, err
	}

	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &step.InputData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step input: %w", err)
		}
	}

	if len(outputJSON) > 0 {
		if err := json.Unmarshal(outputJSON, &step.OutputData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step output: %w", err)
		}
	}

	return &step, nil
}

func marshalStepData(step *models.StepResult) ([]byte, []byte, error) {
	inputJSON, err := json.Marshal(step.InputData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal step input: %w", err)
	}

	outputJSON, err := json.Marshal(step.OutputData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal step output: %w", err)
	}

	return inputJSON, outputJSON, nil
}
