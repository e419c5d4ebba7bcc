package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/eventbus"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/events"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/metrics"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/workflow"
)

const (
	pollInterval = time.Minute

	// minCreditBalance is a flat admission threshold, deliberately not a
	// graph-specific estimate. Cheap workflows under the threshold still
	// run on the owner's next manual trigger.
	minCreditBalance = 5
)

// TriggerLoop polls for due schedules once per minute and fires their
// workflows asynchronously. Per-schedule failures land in that schedule's
// lastError and never stop the rest of the tick.
type TriggerLoop struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	executor    *workflow.Executor
	estimator   *workflow.Estimator
	ledger      protocol.CreditLedger
	publisher   eventbus.EventPublisher
	pool        *WorkerPool

	ticker  *time.Ticker
	done    chan bool
	started bool
	mu      sync.Mutex
}

func NewTriggerLoop(
	logger *slog.Logger,
	persist persistence.Persistence,
	executor *workflow.Executor,
	estimator *workflow.Estimator,
	ledger protocol.CreditLedger,
	publisher eventbus.EventPublisher,
	pool *WorkerPool,
) *TriggerLoop {
	return &TriggerLoop{
		logger:      logger.With("module", "trigger_loop"),
		persistence: persist,
		executor:    executor,
		estimator:   estimator,
		ledger:      ledger,
		publisher:   publisher,
		pool:        pool,
	}
}

// Start begins the polling loop.
func (t *TriggerLoop) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}

	t.logger.InfoContext(ctx, "Starting schedule trigger loop", "interval", pollInterval)

	t.ticker = time.NewTicker(pollInterval)
	t.done = make(chan bool)
	t.started = true

	go t.poll(ctx)

	return nil
}

// Stop shuts the polling loop down.
func (t *TriggerLoop) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return nil
	}

	t.ticker.Stop()

	select {
	case t.done <- true:
	default:
	}

	t.started = false
	t.logger.InfoContext(ctx, "Schedule trigger loop stopped")

	return nil
}

func (t *TriggerLoop) poll(ctx context.Context) {
	for {
		select {
		case <-t.done:
			return
		case <-ctx.Done():
			return
		case <-t.ticker.C:
			t.Tick(ctx, time.Now().UTC())
		}
	}
}

// Tick evaluates every due schedule once. Exported so a tick can be driven
// directly in tests and operational tooling.
func (t *TriggerLoop) Tick(ctx context.Context, now time.Time) {
	due, err := t.persistence.ScheduleRepository().DueSchedules(ctx, now)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to query due schedules", "error", err)

		return
	}

	if len(due) > 0 {
		t.logger.InfoContext(ctx, "Processing due schedules", "count", len(due))
	}

	for _, schedule := range due {
		if err := t.processSchedule(ctx, schedule, now); err != nil {
			t.logger.ErrorContext(ctx, "Schedule evaluation failed",
				"schedule_id", schedule.ID, "error", err)
			metrics.ScheduledTriggersTotal.WithLabelValues("error").Inc()

			schedule.LastError = err.Error()
			schedule.NextRunAt = schedule.NextRun(now)

			if saveErr := t.persistence.ScheduleRepository().Save(ctx, schedule); saveErr != nil {
				t.logger.ErrorContext(ctx, "Failed to record schedule error",
					"schedule_id", schedule.ID, "error", saveErr)
			}
		}
	}
}

// processSchedule fires one due schedule: admission check, execution row,
// asynchronous dispatch, then advancing the schedule.
func (t *TriggerLoop) processSchedule(ctx context.Context, schedule *models.Schedule, now time.Time) error {
	wf, err := t.persistence.WorkflowRepository().GetByID(ctx, schedule.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to load workflow %s: %w", schedule.WorkflowID, err)
	}

	if !wf.IsActive {
		schedule.LastError = "workflow is inactive"
		schedule.NextRunAt = schedule.NextRun(now)

		return t.persistence.ScheduleRepository().Save(ctx, schedule)
	}

	balance, err := t.ledger.Balance(ctx, schedule.UserID)
	if err != nil {
		return fmt.Errorf("failed to check credit balance: %w", err)
	}

	if balance < minCreditBalance {
		t.logger.InfoContext(ctx, "Skipping schedule, insufficient credits",
			"schedule_id", schedule.ID, "balance", balance)
		metrics.ScheduledTriggersTotal.WithLabelValues("skipped_credits").Inc()

		schedule.LastError = fmt.Sprintf("skipped: balance %d below minimum %d", balance, minCreditBalance)
		schedule.NextRunAt = schedule.NextRun(now)

		t.publishFired(ctx, schedule, "", true, schedule.LastError, now)

		return t.persistence.ScheduleRepository().Save(ctx, schedule)
	}

	execution := &models.Execution{
		ID:               uuid.New().String(),
		WorkflowID:       wf.ID,
		UserID:           schedule.UserID,
		Status:           models.ExecutionStatusPending,
		Context:          make(models.ExecutionContext),
		CreditsEstimated: t.estimator.Estimate(wf),
		CreatedAt:        now,
	}

	if err := t.persistence.ExecutionRepository().CreateExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	submitted := t.pool.Submit(func(ctx context.Context) {
		if err := t.executor.Run(ctx, wf, execution); err != nil {
			// Already recorded on the execution; fire-and-forget from here.
			t.logger.ErrorContext(ctx, "Scheduled execution failed",
				"execution_id", execution.ID, "error", err)
		}
	})
	if !submitted {
		// Terminal states are permanent, so a row no worker will ever pick
		// up must not stay pending.
		failedAt := time.Now().UTC()
		execution.Status = models.ExecutionStatusFailed
		execution.ErrorMessage = "worker pool full, execution never started"
		execution.CompletedAt = &failedAt

		if updateErr := t.persistence.ExecutionRepository().UpdateExecution(ctx, execution); updateErr != nil {
			t.logger.ErrorContext(ctx, "Failed to mark unstarted execution failed",
				"execution_id", execution.ID, "error", updateErr)
		}

		return fmt.Errorf("worker pool full, execution %s not started", execution.ID)
	}

	metrics.ScheduledTriggersTotal.WithLabelValues("started").Inc()

	schedule.LastError = ""
	schedule.Advance(now)

	t.publishFired(ctx, schedule, execution.ID, false, "", now)

	t.logger.InfoContext(ctx, "Schedule fired",
		"schedule_id", schedule.ID, "execution_id", execution.ID, "next_run_at", schedule.NextRunAt)

	return t.persistence.ScheduleRepository().Save(ctx, schedule)
}

func (t *TriggerLoop) publishFired(ctx context.Context, schedule *models.Schedule, executionID string, skipped bool, reason string, firedAt time.Time) {
	if t.publisher == nil {
		return
	}

	event := events.ScheduleFired{
		BaseEvent:   events.NewBaseEvent(events.ScheduleFiredEvent, schedule.WorkflowID),
		ScheduleID:  schedule.ID,
		ExecutionID: executionID,
		Skipped:     skipped,
		SkipReason:  reason,
		FiredAt:     firedAt,
	}

	if err := t.publisher.Publish(ctx, schedule.WorkflowID, event); err != nil {
		t.logger.WarnContext(ctx, "Failed to publish schedule event",
			"schedule_id", schedule.ID, "error", err)
	}
}
