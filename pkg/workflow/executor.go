package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/eventbus"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/events"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/metrics"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/otelhelper"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/registry"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/template"
)

// Executor runs one workflow execution node-by-node in topological order.
// The first node error aborts the run; completed upstream StepResults stay
// completed so the audit trail survives for diagnosis.
type Executor struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
}

func NewExecutor(logger *slog.Logger, persist persistence.Persistence, reg *registry.Registry, publisher eventbus.EventPublisher) *Executor {
	return &Executor{
		logger:      logger.With("module", "workflow_executor"),
		persistence: persist,
		registry:    reg,
		publisher:   publisher,
		tracer:      otel.Tracer("vixxxen-engine"),
	}
}

// Run drives an already-created pending execution to a terminal state. The
// returned error reflects the failure that aborted the run; it has always been
// recorded on the execution before being returned.
func (e *Executor) Run(ctx context.Context, wf *models.Workflow, execution *models.Execution) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	)
	defer span.End()

	startedAt := time.Now().UTC()

	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &startedAt

	if execution.Context == nil {
		execution.Context = make(models.ExecutionContext)
	}

	if err := e.executions().UpdateExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}

	metrics.ExecutionsActive.Inc()
	defer metrics.ExecutionsActive.Dec()

	e.publish(ctx, execution.WorkflowID, events.ExecutionStarted{
		BaseEvent:        events.NewBaseEvent(events.ExecutionStartedEvent, execution.WorkflowID),
		ExecutionID:      execution.ID,
		UserID:           execution.UserID,
		CreditsEstimated: execution.CreditsEstimated,
	})

	e.logger.InfoContext(ctx, "Execution started",
		"execution_id", execution.ID, "workflow_id", execution.WorkflowID)

	order := TopologicalOrder(wf.Nodes, wf.Edges)
	if order == nil {
		return e.fail(ctx, execution, "", "workflow contains a cycle", startedAt, 0)
	}

	nodesExecuted := 0

	for _, nodeID := range order {
		node := wf.NodeByID(nodeID)
		if node == nil {
			return e.fail(ctx, execution, nodeID, fmt.Sprintf("node %q not found in workflow", nodeID), startedAt, nodesExecuted)
		}

		if node.IsTrigger() {
			continue
		}

		if err := e.runNode(ctx, wf, execution, node); err != nil {
			return e.fail(ctx, execution, node.ID, err.Error(), startedAt, nodesExecuted)
		}

		nodesExecuted++
	}

	completedAt := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CurrentNodeID = nil
	execution.CompletedAt = &completedAt

	if err := e.executions().UpdateExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to mark execution completed: %w", err)
	}

	duration := completedAt.Sub(startedAt)
	metrics.ExecutionsTotal.WithLabelValues(string(models.ExecutionStatusCompleted)).Inc()
	metrics.ExecutionDuration.WithLabelValues(string(models.ExecutionStatusCompleted)).Observe(duration.Seconds())

	e.publish(ctx, execution.WorkflowID, events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
		ExecutionID:   execution.ID,
		DurationMs:    duration.Milliseconds(),
		NodesExecuted: nodesExecuted,
		CreditsUsed:   execution.CreditsUsed,
	})

	e.logger.InfoContext(ctx, "Execution completed",
		"execution_id", execution.ID, "nodes", nodesExecuted, "credits_used", execution.CreditsUsed)

	return nil
}

// runNode executes one non-trigger node: StepResult lifecycle, input
// resolution, dispatch, then context and credit bookkeeping.
func (e *Executor) runNode(ctx context.Context, wf *models.Workflow, execution *models.Execution, node *models.Node) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, node.Type),
	)
	defer span.End()

	nodeID := node.ID
	execution.CurrentNodeID = &nodeID

	if err := e.executions().UpdateExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to mark current node: %w", err)
	}

	nodeStart := time.Now().UTC()

	step := &models.StepResult{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		NodeType:    node.Type,
		Status:      models.StepStatusRunning,
		StartedAt:   nodeStart,
	}

	if err := e.executions().CreateStepResult(ctx, step); err != nil {
		return fmt.Errorf("failed to create step result: %w", err)
	}

	resolved := e.resolveInputs(wf, node, execution.Context)
	step.InputData = resolved

	result, err := e.dispatch(ctx, execution, node, resolved)

	completedAt := time.Now().UTC()
	step.CompletedAt = &completedAt
	duration := completedAt.Sub(nodeStart)

	if err != nil {
		step.Status = models.StepStatusFailed
		step.ErrorMessage = err.Error()

		if updateErr := e.executions().UpdateStepResult(ctx, step); updateErr != nil {
			e.logger.ErrorContext(ctx, "Failed to record step failure",
				"step_id", step.ID, "error", updateErr)
		}

		metrics.NodesTotal.WithLabelValues(node.Type, string(models.StepStatusFailed)).Inc()
		metrics.NodeDuration.WithLabelValues(node.Type).Observe(duration.Seconds())

		e.publish(ctx, execution.WorkflowID, events.NodeFailed{
			BaseEvent:   events.NewBaseEvent(events.NodeFailedEvent, execution.WorkflowID),
			ExecutionID: execution.ID,
			NodeID:      node.ID,
			NodeType:    node.Type,
			Error:       err.Error(),
			DurationMs:  duration.Milliseconds(),
		})

		otelhelper.SetError(span, err)

		return err
	}

	step.Status = models.StepStatusCompleted
	step.OutputData = result.Output
	step.CreditsUsed = result.CreditsUsed

	if err := e.executions().UpdateStepResult(ctx, step); err != nil {
		return fmt.Errorf("failed to record step result: %w", err)
	}

	execution.Context[node.ID] = result.Output
	execution.CreditsUsed += result.CreditsUsed

	if err := e.executions().UpdateExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist execution context: %w", err)
	}

	metrics.NodesTotal.WithLabelValues(node.Type, string(models.StepStatusCompleted)).Inc()
	metrics.NodeDuration.WithLabelValues(node.Type).Observe(duration.Seconds())

	e.publish(ctx, execution.WorkflowID, events.NodeCompleted{
		BaseEvent:   events.NewBaseEvent(events.NodeCompletedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		NodeType:    node.Type,
		OutputData:  result.Output,
		CreditsUsed: result.CreditsUsed,
		DurationMs:  duration.Milliseconds(),
	})

	return nil
}

func (e *Executor) dispatch(ctx context.Context, execution *models.Execution, node *models.Node, resolved map[string]any) (result *nodeRunResult, err error) {
	executor, err := e.registry.CreateNode(ctx, node.Type, resolved)
	if err != nil {
		return nil, err
	}

	out, err := executor.Execute(ctx, execution.UserID, execution.Context)
	if err != nil {
		return nil, err
	}

	return &nodeRunResult{Output: out.Output, CreditsUsed: out.CreditsUsed}, nil
}

type nodeRunResult struct {
	Output      map[string]any
	CreditsUsed int
}

// resolveInputs produces the node's effective config: a copy of the stored
// config with edge-wired fields written in, then interpolation tokens
// resolved. Companion array fields ride along with their wired scalar so
// downstream nodes can fan out over a whole batch.
func (e *Executor) resolveInputs(wf *models.Workflow, node *models.Node, executionCtx models.ExecutionContext) map[string]any {
	config := make(map[string]any, len(node.Config))
	maps.Copy(config, node.Config)

	for _, edge := range wf.Edges {
		if edge.Target != node.ID || edge.SourceHandle == "" || edge.TargetHandle == "" {
			continue
		}

		output, ok := executionCtx[edge.Source]
		if !ok {
			continue
		}

		value, ok := output[edge.SourceHandle]
		if !ok {
			continue
		}

		config[edge.TargetHandle] = value

		source := wf.NodeByID(edge.Source)
		if source == nil {
			continue
		}

		factory := e.registry.Factory(source.Type)
		if factory == nil {
			continue
		}

		companion := factory.CompanionFields()[edge.SourceHandle]
		if companion == "" {
			continue
		}

		if array, ok := output[companion]; ok {
			config[companion] = array
		}
	}

	return template.ResolveConfig(config, executionCtx)
}

// fail records the abort on the execution and returns the error the caller
// propagates. Completed StepResults are left untouched.
func (e *Executor) fail(ctx context.Context, execution *models.Execution, nodeID, message string, startedAt time.Time, nodesExecuted int) error {
	completedAt := time.Now().UTC()

	execution.Status = models.ExecutionStatusFailed
	execution.ErrorMessage = message
	execution.CompletedAt = &completedAt

	if err := e.executions().UpdateExecution(ctx, execution); err != nil {
		e.logger.ErrorContext(ctx, "Failed to record execution failure",
			"execution_id", execution.ID, "error", err)
	}

	duration := completedAt.Sub(startedAt)
	metrics.ExecutionsTotal.WithLabelValues(string(models.ExecutionStatusFailed)).Inc()
	metrics.ExecutionDuration.WithLabelValues(string(models.ExecutionStatusFailed)).Observe(duration.Seconds())

	e.publish(ctx, execution.WorkflowID, events.ExecutionFailed{
		BaseEvent:     events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID:   execution.ID,
		NodeID:        nodeID,
		Error:         message,
		DurationMs:    duration.Milliseconds(),
		NodesExecuted: nodesExecuted,
		CreditsUsed:   execution.CreditsUsed,
	})

	e.logger.ErrorContext(ctx, "Execution failed",
		"execution_id", execution.ID, "node_id", nodeID, "error", message)

	return fmt.Errorf("execution %s failed: %s", execution.ID, message)
}

func (e *Executor) executions() persistence.ExecutionRepository {
	return e.persistence.ExecutionRepository()
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
