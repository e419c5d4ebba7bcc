package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{"step_results", "executions", "schedules", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("vixxxen_test"),
			postgres.WithUsername("vixxxen"),
			postgres.WithPassword("vixxxen"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func testWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:          uuid.NewString(),
		Name:        "Daily Zoe Gallery",
		Description: "Generates prompts, renders images, saves them to the gallery",
		UserID:      "user-1",
		Nodes: []*models.Node{
			{
				ID:   "trigger",
				Type: models.NodeTypeTriggerSchedule,
			},
			{
				ID:   "prompts",
				Type: models.NodeTypeGeneratePrompts,
				Config: map[string]any{
					"theme": "golden hour portraits",
					"count": 4,
				},
			},
			{
				ID:   "image",
				Type: models.NodeTypeGenerateImage,
				Config: map[string]any{
					"prompt": "{{prompts.prompts}}",
					"model":  "comfy-lora",
				},
			},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "prompts"},
			{ID: "e2", Source: "prompts", Target: "image"},
		},
		IsActive: true,
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	for _, table := range []string{"workflows", "executions", "step_results", "schedules", "schema_migrations"} {
		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table+" table should exist")
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestWorkflowRepository_SaveAndRetrieve(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testWorkflow()

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)
	assert.False(t, workflow.CreatedAt.IsZero())
	assert.False(t, workflow.UpdatedAt.IsZero())

	retrieved, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, workflow.ID, retrieved.ID)
	assert.Equal(t, workflow.Name, retrieved.Name)
	assert.Equal(t, workflow.UserID, retrieved.UserID)
	assert.True(t, retrieved.IsActive)
	assert.Len(t, retrieved.Nodes, len(workflow.Nodes))
	assert.Len(t, retrieved.Edges, len(workflow.Edges))

	prompts := retrieved.NodeByID("prompts")
	require.NotNil(t, prompts)
	assert.Equal(t, "golden hour portraits", prompts.Config["theme"])

	_, err = p.WorkflowRepository().GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_Update(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testWorkflow()

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	initialUpdatedAt := workflow.UpdatedAt

	// Wait a moment to ensure different timestamp
	time.Sleep(10 * time.Millisecond)

	workflow.Name = "Daily Zoe Gallery v2"
	workflow.IsActive = false

	err = p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	retrieved, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)

	assert.Equal(t, "Daily Zoe Gallery v2", retrieved.Name)
	assert.False(t, retrieved.IsActive)
	assert.True(t, retrieved.UpdatedAt.After(initialUpdatedAt))
}

func TestWorkflowRepository_GetAll(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	first := testWorkflow()
	second := testWorkflow()
	second.Name = "Weekly Mia Gallery"

	for _, workflow := range []*models.Workflow{first, second} {
		err := p.WorkflowRepository().Save(ctx, workflow)
		require.NoError(t, err)
	}

	retrieved, err := p.WorkflowRepository().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, retrieved, 2)
}

func TestWorkflowRepository_Delete(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testWorkflow()

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	err = p.WorkflowRepository().Delete(ctx, workflow.ID)
	require.NoError(t, err)

	_, err = p.WorkflowRepository().GetByID(ctx, workflow.ID)
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	err = p.WorkflowRepository().Delete(ctx, uuid.NewString())
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestExecutionRepository_Lifecycle(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testWorkflow()

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	execution := &models.Execution{
		ID:               uuid.NewString(),
		WorkflowID:       workflow.ID,
		UserID:           workflow.UserID,
		Status:           models.ExecutionStatusPending,
		Context:          models.ExecutionContext{},
		CreditsEstimated: 10,
		CreatedAt:        time.Now().UTC(),
	}

	err = p.ExecutionRepository().CreateExecution(ctx, execution)
	require.NoError(t, err)

	startedAt := time.Now().UTC()
	nodeID := "image"
	execution.Status = models.ExecutionStatusRunning
	execution.CurrentNodeID = &nodeID
	execution.StartedAt = &startedAt
	execution.Context["prompts"] = map[string]any{"prompts": []any{"a portrait"}}

	err = p.ExecutionRepository().UpdateExecution(ctx, execution)
	require.NoError(t, err)

	completedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CurrentNodeID = nil
	execution.CreditsUsed = 5
	execution.CompletedAt = &completedAt

	err = p.ExecutionRepository().UpdateExecution(ctx, execution)
	require.NoError(t, err)

	retrieved, err := p.ExecutionRepository().ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, retrieved.Status)
	assert.Equal(t, 5, retrieved.CreditsUsed)
	assert.Equal(t, 10, retrieved.CreditsEstimated)
	assert.Nil(t, retrieved.CurrentNodeID)
	require.NotNil(t, retrieved.CompletedAt)
	require.Contains(t, retrieved.Context, "prompts")

	byWorkflow, err := p.ExecutionRepository().ExecutionsByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, byWorkflow, 1)
	assert.Equal(t, execution.ID, byWorkflow[0].ID)

	_, err = p.ExecutionRepository().ExecutionByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}

func TestExecutionRepository_UpdateMissingExecution(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	execution := &models.Execution{
		ID:      uuid.NewString(),
		Status:  models.ExecutionStatusRunning,
		Context: models.ExecutionContext{},
	}

	err := p.ExecutionRepository().UpdateExecution(ctx, execution)
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
}

func TestExecutionRepository_StepResults(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testWorkflow()

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	execution := &models.Execution{
		ID:         uuid.NewString(),
		WorkflowID: workflow.ID,
		UserID:     workflow.UserID,
		Status:     models.ExecutionStatusRunning,
		Context:    models.ExecutionContext{},
		CreatedAt:  time.Now().UTC(),
	}

	err = p.ExecutionRepository().CreateExecution(ctx, execution)
	require.NoError(t, err)

	step := &models.StepResult{
		ID:          uuid.NewString(),
		ExecutionID: execution.ID,
		NodeID:      "image",
		NodeType:    models.NodeTypeGenerateImage,
		Status:      models.StepStatusRunning,
		InputData:   map[string]any{"prompt": "a portrait"},
		StartedAt:   time.Now().UTC(),
	}

	err = p.ExecutionRepository().CreateStepResult(ctx, step)
	require.NoError(t, err)

	completedAt := time.Now().UTC()
	step.Status = models.StepStatusCompleted
	step.OutputData = map[string]any{"images": []any{"key/one.png"}}
	step.CreditsUsed = 5
	step.CompletedAt = &completedAt

	err = p.ExecutionRepository().UpdateStepResult(ctx, step)
	require.NoError(t, err)

	steps, err := p.ExecutionRepository().StepResultsByExecution(ctx, execution.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	assert.Equal(t, models.StepStatusCompleted, steps[0].Status)
	assert.Equal(t, 5, steps[0].CreditsUsed)
	assert.Equal(t, "a portrait", steps[0].InputData["prompt"])
	require.NotNil(t, steps[0].CompletedAt)

	missing := &models.StepResult{ID: uuid.NewString(), Status: models.StepStatusFailed}
	err = p.ExecutionRepository().UpdateStepResult(ctx, missing)
	assert.ErrorIs(t, err, persistence.ErrStepResultNotFound)
}

func TestScheduleRepository_SaveAndDue(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testWorkflow()

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	due, err := models.NewSchedule(uuid.NewString(), workflow.ID, workflow.UserID, "* * * * *", "")
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Minute)
	due.NextRunAt = &past

	future, err := models.NewSchedule(uuid.NewString(), workflow.ID, workflow.UserID, "0 0 1 1 *", "America/Sao_Paulo")
	require.NoError(t, err)

	for _, schedule := range []*models.Schedule{due, future} {
		err := p.ScheduleRepository().Save(ctx, schedule)
		require.NoError(t, err)
	}

	all, err := p.ScheduleRepository().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	dueNow, err := p.ScheduleRepository().DueSchedules(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, dueNow, 1)
	assert.Equal(t, due.ID, dueNow[0].ID)

	retrieved, err := p.ScheduleRepository().GetByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", retrieved.Timezone)
	assert.True(t, retrieved.IsEnabled)
	require.NotNil(t, retrieved.NextRunAt)
}

func TestScheduleRepository_AdvanceRoundTrip(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testWorkflow()

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	schedule, err := models.NewSchedule(uuid.NewString(), workflow.ID, workflow.UserID, "* * * * *", "")
	require.NoError(t, err)

	err = p.ScheduleRepository().Save(ctx, schedule)
	require.NoError(t, err)

	firedAt := time.Now().UTC()
	schedule.Advance(firedAt)
	schedule.LastError = ""

	err = p.ScheduleRepository().Save(ctx, schedule)
	require.NoError(t, err)

	retrieved, err := p.ScheduleRepository().GetByID(ctx, schedule.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, retrieved.RunCount)
	require.NotNil(t, retrieved.LastRunAt)
	require.NotNil(t, retrieved.NextRunAt)
	assert.True(t, retrieved.NextRunAt.After(firedAt))
}

func TestScheduleRepository_Delete(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testWorkflow()

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	schedule, err := models.NewSchedule(uuid.NewString(), workflow.ID, workflow.UserID, "*/5 * * * *", "")
	require.NoError(t, err)

	err = p.ScheduleRepository().Save(ctx, schedule)
	require.NoError(t, err)

	err = p.ScheduleRepository().Delete(ctx, schedule.ID)
	require.NoError(t, err)

	_, err = p.ScheduleRepository().GetByID(ctx, schedule.ID)
	assert.ErrorIs(t, err, persistence.ErrScheduleNotFound)

	err = p.ScheduleRepository().Delete(ctx, uuid.NewString())
	assert.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}

func TestWorkflowRepository_DeleteCascades(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := testWorkflow()

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	execution := &models.Execution{
		ID:         uuid.NewString(),
		WorkflowID: workflow.ID,
		UserID:     workflow.UserID,
		Status:     models.ExecutionStatusPending,
		Context:    models.ExecutionContext{},
		CreatedAt:  time.Now().UTC(),
	}

	err = p.ExecutionRepository().CreateExecution(ctx, execution)
	require.NoError(t, err)

	schedule, err := models.NewSchedule(uuid.NewString(), workflow.ID, workflow.UserID, "* * * * *", "")
	require.NoError(t, err)

	err = p.ScheduleRepository().Save(ctx, schedule)
	require.NoError(t, err)

	err = p.WorkflowRepository().Delete(ctx, workflow.ID)
	require.NoError(t, err)

	_, err = p.ExecutionRepository().ExecutionByID(ctx, execution.ID)
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)

	_, err = p.ScheduleRepository().GetByID(ctx, schedule.ID)
	assert.ErrorIs(t, err, persistence.ErrScheduleNotFound)
}
