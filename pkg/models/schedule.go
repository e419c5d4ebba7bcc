package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrScheduleCronRequired     = errors.New("schedule cron expression is required")
	ErrScheduleWorkflowRequired = errors.New("schedule workflow id is required")
)

// Schedule fires a workflow on a cron expression. It is mutated by the trigger
// loop after every evaluation, whether the workflow was started, skipped, or
// errored.
type Schedule struct {
	ID             string     `json:"id"`
	WorkflowID     string     `json:"workflow_id"     validate:"required"`
	UserID         string     `json:"user_id"         validate:"required"`
	CronExpression string     `json:"cron_expression" validate:"required"`
	Timezone       string     `json:"timezone"`
	IsEnabled      bool       `json:"is_enabled"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	RunCount       int        `json:"run_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewSchedule creates an enabled schedule with its first run time computed.
func NewSchedule(id, workflowID, userID, cronExpression, timezone string) (*Schedule, error) {
	if workflowID == "" {
		return nil, ErrScheduleWorkflowRequired
	}

	if cronExpression == "" {
		return nil, ErrScheduleCronRequired
	}

	now := time.Now().UTC()
	schedule := &Schedule{
		ID:             id,
		WorkflowID:     workflowID,
		UserID:         userID,
		CronExpression: cronExpression,
		Timezone:       timezone,
		IsEnabled:      true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	next := schedule.NextRun(now)
	if next == nil {
		return nil, ErrScheduleCronRequired
	}

	schedule.NextRunAt = next

	return schedule, nil
}

// NextRun evaluates the cron expression in the schedule's timezone and returns
// the first fire time after the given instant. A malformed expression or
// unknown timezone yields nil, which stalls the schedule until corrected.
func (s *Schedule) NextRun(after time.Time) *time.Time {
	parsed, err := cron.ParseStandard(s.CronExpression)
	if err != nil {
		return nil
	}

	location := time.UTC

	if s.Timezone != "" {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return nil
		}

		location = loc
	}

	next := parsed.Next(after.In(location)).UTC()

	return &next
}

// Advance records a completed evaluation and moves the schedule forward.
func (s *Schedule) Advance(firedAt time.Time) {
	s.LastRunAt = &firedAt
	s.NextRunAt = s.NextRun(firedAt)
	s.RunCount++
	s.UpdatedAt = time.Now().UTC()
}

// IsDue reports whether the schedule should fire at the given instant.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.IsEnabled && s.NextRunAt != nil && !s.NextRunAt.After(now)
}
