package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/persistence"
)

// ScheduleRepository handles schedule-related database operations.
type ScheduleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sql.DB, logger *slog.Logger) *ScheduleRepository {
	return &ScheduleRepository{db: db, logger: logger}
}

// Save inserts or updates a schedule.
func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	now := time.Now().UTC()

	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}

	schedule.UpdatedAt = now

	query := `
		INSERT INTO schedules (
			id, workflow_id, user_id, cron_expression, timezone, is_enabled,
			next_run_at, last_run_at, last_error, run_count, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression
		  , timezone = EXCLUDED.timezone
		  , is_enabled = EXCLUDED.is_enabled
		  , next_run_at = EXCLUDED.next_run_at
		  , last_run_at = EXCLUDED.last_run_at
		  , last_error = EXCLUDED.last_error
		  , run_count = EXCLUDED.run_count
		  , updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID, schedule.WorkflowID, schedule.UserID,
		schedule.CronExpression, schedule.Timezone, schedule.IsEnabled,
		schedule.NextRunAt, schedule.LastRunAt, schedule.LastError,
		schedule.RunCount, schedule.CreatedAt, schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}

	return nil
}

// GetByID returns one schedule.
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := r.scanSchedule(r.db.QueryRowContext(ctx, selectSchedules+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrScheduleNotFound
		}

		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	return schedule, nil
}

// GetAll returns every schedule.
func (r *ScheduleRepository) GetAll(ctx context.Context) ([]*models.Schedule, error) {
	return r.querySchedules(ctx, selectSchedules+" ORDER BY created_at")
}

// DueSchedules returns enabled schedules whose next run is at or before now.
func (r *ScheduleRepository) DueSchedules(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	query := selectSchedules + `
		WHERE is_enabled AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at
	`

	return r.querySchedules(ctx, query, now)
}

// Delete removes a schedule.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrScheduleNotFound
	}

	return nil
}

const selectSchedules = `
	SELECT
		id
	  , workflow_id
	  , user_id
	  , cron_expression
	  , timezone
	  , is_enabled
	  , next_run_at
	  , last_run_at
	  , last_error
	  , run_count
	  , created_at
	  , updated_at
	FROM schedules
`

func (r *ScheduleRepository) querySchedules(ctx context.Context, query string, args ...any) ([]*models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	schedules := make([]*models.Schedule, 0)

	for rows.Next() {
		schedule, err := r.scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

func (r *ScheduleRepository) scanSchedule(row rowScanner) (*models.Schedule, error) {
	var schedule models.Schedule

	err := row.Scan(
		&schedule.ID, &schedule.WorkflowID, &schedule.UserID,
		&schedule.CronExpression, &schedule.Timezone, &schedule.IsEnabled,
		&schedule.NextRunAt, &schedule.LastRunAt, &schedule.LastError,
		&schedule.RunCount, &schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &schedule, nil
}
