// Package persistence provides the data storage abstraction for workflows,
// executions, step results and schedules.
package persistence

import (
	"context"
	"time"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ScheduleRepository() ScheduleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository persists executions and their step-level audit trail.
// Updates are partial-field writes keyed by primary id.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.Execution) error
	UpdateExecution(ctx context.Context, execution *models.Execution) error
	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)

	CreateStepResult(ctx context.Context, step *models.StepResult) error
	UpdateStepResult(ctx context.Context, step *models.StepResult) error
	StepResultsByExecution(ctx context.Context, executionID string) ([]*models.StepResult, error)
}

type ScheduleRepository interface {
	Save(ctx context.Context, schedule *models.Schedule) error
	GetByID(ctx context.Context, id string) (*models.Schedule, error)
	GetAll(ctx context.Context) ([]*models.Schedule, error)
	DueSchedules(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	Delete(ctx context.Context, id string) error
}
