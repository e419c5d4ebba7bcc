// Package web provides the HTTP API for workflow management, manual
// execution, and GPU routing status.
package web

// CreateWorkflowRequest is the request body for creating a workflow. Nodes and
// edges are validated against the registered node schemas before saving.
type CreateWorkflowRequest struct {
	Name        string      `json:"name"        validate:"required,min=3"`
	Description string      `json:"description"`
	UserID      string      `json:"user_id"     validate:"required"`
	Nodes       []NodeInput `json:"nodes"`
	Edges       []EdgeInput `json:"edges"`
	IsActive    bool        `json:"is_active"`
}

// UpdateWorkflowRequest supports partial updates. Nil fields are left as-is.
type UpdateWorkflowRequest struct {
	Name        *string     `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string     `json:"description,omitempty"`
	Nodes       []NodeInput `json:"nodes,omitempty"`
	Edges       []EdgeInput `json:"edges,omitempty"`
	IsActive    *bool       `json:"is_active,omitempty"`
}

type NodeInput struct {
	ID     string         `json:"id"   validate:"required"`
	Type   string         `json:"type" validate:"required"`
	Config map[string]any `json:"config"`
}

type EdgeInput struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle"`
	TargetHandle string `json:"target_handle"`
}

// CreateScheduleRequest is the request body for attaching a cron schedule to a
// workflow.
type CreateScheduleRequest struct {
	WorkflowID     string `json:"workflow_id"     validate:"required"`
	UserID         string `json:"user_id"         validate:"required"`
	CronExpression string `json:"cron_expression" validate:"required"`
	Timezone       string `json:"timezone"`
}

// ExecuteResponse is returned for an accepted manual execution.
type ExecuteResponse struct {
	ExecutionID      string `json:"execution_id"`
	Status           string `json:"status"`
	CreditsEstimated int    `json:"credits_estimated"`
}
