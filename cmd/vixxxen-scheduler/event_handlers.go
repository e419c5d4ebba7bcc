package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/eventbus"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/events"
)

// subscribeExecutionEvents consumes execution lifecycle events so schedule
// outcomes show up in the scheduler's own log stream, not just the API's.
func subscribeExecutionEvents(ctx context.Context, logger *slog.Logger, eventBus eventbus.EventBus) error {
	if err := eventBus.Handle(events.ExecutionCompletedEvent, handleExecutionCompleted(logger)); err != nil {
		return fmt.Errorf("failed to subscribe to execution.completed events: %w", err)
	}

	if err := eventBus.Handle(events.ExecutionFailedEvent, handleExecutionFailed(logger)); err != nil {
		return fmt.Errorf("failed to subscribe to execution.failed events: %w", err)
	}

	return eventBus.Subscribe(ctx)
}

func handleExecutionCompleted(logger *slog.Logger) eventbus.EventHandler {
	return func(ctx context.Context, eventData any) error {
		event, ok := eventData.(*events.ExecutionCompleted)
		if !ok {
			return fmt.Errorf("invalid event type for execution.completed: %T", eventData)
		}

		logger.InfoContext(ctx, "Execution completed",
			"execution_id", event.ExecutionID,
			"workflow_id", event.WorkflowID,
			"nodes_executed", event.NodesExecuted,
			"credits_used", event.CreditsUsed,
			"duration_ms", event.DurationMs)

		return nil
	}
}

func handleExecutionFailed(logger *slog.Logger) eventbus.EventHandler {
	return func(ctx context.Context, eventData any) error {
		event, ok := eventData.(*events.ExecutionFailed)
		if !ok {
			return fmt.Errorf("invalid event type for execution.failed: %T", eventData)
		}

		logger.WarnContext(ctx, "Execution failed",
			"execution_id", event.ExecutionID,
			"workflow_id", event.WorkflowID,
			"node_id", event.NodeID,
			"error", event.Error,
			"duration_ms", event.DurationMs)

		return nil
	}
}
