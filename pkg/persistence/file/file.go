// Package file provides file-based persistence for development and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local filesystem.
// Each entity is one JSON document under its collection directory.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix is stripped so database-URL style configuration works.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return &workflowRepository{p: p}
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return &executionRepository{p: p}
}

func (p *Persistence) ScheduleRepository() persistence.ScheduleRepository {
	return &scheduleRepository{p: p}
}

// HealthCheck verifies the root directory is usable.
func (p *Persistence) HealthCheck(_ context.Context) error {
	err := os.MkdirAll(p.root, 0o755)
	if err != nil {
		return fmt.Errorf("file persistence root unavailable: %w", err)
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) write(collection, id string, entity any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dir := filepath.Join(p.root, collection)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", collection, id, err)
	}

	return nil
}

func (p *Persistence) read(collection, id string, entity any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(p.root, collection, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}

		return fmt.Errorf("failed to read %s %s: %w", collection, id, err)
	}

	err = json.Unmarshal(data, entity)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", collection, id, err)
	}

	return nil
}

func (p *Persistence) remove(collection, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(filepath.Join(p.root, collection, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return os.ErrNotExist
		}

		return fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}

	return nil
}

func (p *Persistence) ids(collection string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(p.root, collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}

type workflowRepository struct {
	p *Persistence
}

func (r *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return r.p.write("workflows", workflow.ID, workflow)
}

func (r *workflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := r.p.read("workflows", id, &workflow)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, err
	}

	return &workflow, nil
}

func (r *workflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := r.p.ids("workflows")
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *workflowRepository) Delete(_ context.Context, id string) error {
	err := r.p.remove("workflows", id)
	if os.IsNotExist(err) {
		return persistence.ErrWorkflowNotFound
	}

	return err
}

type executionRepository struct {
	p *Persistence
}

func (r *executionRepository) CreateExecution(_ context.Context, execution *models.Execution) error {
	return r.p.write("executions", execution.ID, execution)
}

func (r *executionRepository) UpdateExecution(_ context.Context, execution *models.Execution) error {
	return r.p.write("executions", execution.ID, execution)
}

func (r *executionRepository) ExecutionByID(_ context.Context, id string) (*models.Execution, error) {
	var execution models.Execution

	err := r.p.read("executions", id, &execution)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, err
	}

	return &execution, nil
}

func (r *executionRepository) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	ids, err := r.p.ids("executions")
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0)

	for _, id := range ids {
		execution, err := r.ExecutionByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.After(executions[j].CreatedAt)
	})

	return executions, nil
}

func (r *executionRepository) CreateStepResult(_ context.Context, step *models.StepResult) error {
	return r.p.write("step_results", step.ID, step)
}

func (r *executionRepository) UpdateStepResult(_ context.Context, step *models.StepResult) error {
	return r.p.write("step_results", step.ID, step)
}

func (r *executionRepository) StepResultsByExecution(_ context.Context, executionID string) ([]*models.StepResult, error) {
	ids, err := r.p.ids("step_results")
	if err != nil {
		return nil, err
	}

	steps := make([]*models.StepResult, 0)

	for _, id := range ids {
		var step models.StepResult

		err := r.p.read("step_results", id, &step)
		if err != nil {
			return nil, err
		}

		if step.ExecutionID == executionID {
			steps = append(steps, &step)
		}
	}

	sort.Slice(steps, func(i, j int) bool {
		return steps[i].StartedAt.Before(steps[j].StartedAt)
	})

	return steps, nil
}

type scheduleRepository struct {
	p *Persistence
}

func (r *scheduleRepository) Save(_ context.Context, schedule *models.Schedule) error {
	now := time.Now().UTC()

	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}

	schedule.UpdatedAt = now

	return r.p.write("schedules", schedule.ID, schedule)
}

func (r *scheduleRepository) GetByID(_ context.Context, id string) (*models.Schedule, error) {
	var schedule models.Schedule

	err := r.p.read("schedules", id, &schedule)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrScheduleNotFound
		}

		return nil, err
	}

	return &schedule, nil
}

func (r *scheduleRepository) GetAll(ctx context.Context) ([]*models.Schedule, error) {
	ids, err := r.p.ids("schedules")
	if err != nil {
		return nil, err
	}

	schedules := make([]*models.Schedule, 0, len(ids))

	for _, id := range ids {
		schedule, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		schedules = append(schedules, schedule)
	}

	return schedules, nil
}

func (r *scheduleRepository) DueSchedules(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Schedule, 0)

	for _, schedule := range all {
		if schedule.IsDue(now) {
			due = append(due, schedule)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRunAt.Before(*due[j].NextRunAt)
	})

	return due, nil
}

func (r *scheduleRepository) Delete(_ context.Context, id string) error {
	err := r.p.remove("schedules", id)
	if os.IsNotExist(err) {
		return persistence.ErrScheduleNotFound
	}

	return err
}
