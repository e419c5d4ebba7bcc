package models

import "time"

// ExecutionStatus represents the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ExecutionContext maps node id to that node's recorded output. It grows
// monotonically during one run and is never shared across runs.
type ExecutionContext map[string]map[string]any

// Execution is one run of a workflow. Terminal states are permanent; a failed
// execution is never retried, only its enclosing schedule fires again.
type Execution struct {
	ID               string           `json:"id"`
	WorkflowID       string           `json:"workflow_id"`
	UserID           string           `json:"user_id"`
	Status           ExecutionStatus  `json:"status"`
	CurrentNodeID    *string          `json:"current_node_id,omitempty"`
	Context          ExecutionContext `json:"context"`
	CreditsUsed      int              `json:"credits_used"`
	CreditsEstimated int              `json:"credits_estimated"`
	ErrorMessage     string           `json:"error_message,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

// StepStatus represents the state of a single executed node within a run.
type StepStatus string

const (
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// StepResult is the append-only audit record of one executed (non-trigger)
// node. It is never mutated after reaching a terminal status except by the
// owning execution run.
type StepResult struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"execution_id"`
	NodeID       string         `json:"node_id"`
	NodeType     string         `json:"node_type"`
	Status       StepStatus     `json:"status"`
	InputData    map[string]any `json:"input_data,omitempty"`
	OutputData   map[string]any `json:"output_data,omitempty"`
	CreditsUsed  int            `json:"credits_used"`
	ErrorMessage string         `json:"error_message,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}
