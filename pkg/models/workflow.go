// Package models defines the core domain models for node-based workflow execution.
package models

import "time"

// Built-in node types.
const (
	NodeTypeTriggerManual   = "trigger:manual"
	NodeTypeTriggerSchedule = "trigger:schedule"
	NodeTypeGenerateImage   = "generate-image"
	NodeTypeGeneratePrompts = "generate-prompts"
	NodeTypeSaveGallery     = "save-gallery"
)

// Workflow represents a node-based generation workflow owned by a user.
type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"        validate:"required,min=3"`
	Description string    `json:"description"`
	UserID      string    `json:"user_id"     validate:"required"`
	Nodes       []*Node   `json:"nodes"`
	Edges       []*Edge   `json:"edges"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Node represents a single step in a workflow graph. Config is free-form and
// may contain {{nodeId.field}} interpolation tokens resolved at execution time.
type Node struct {
	ID     string         `json:"id"   validate:"required"`
	Type   string         `json:"type" validate:"required"`
	Config map[string]any `json:"config"`
}

// IsTrigger reports whether the node is a trigger variant. Trigger nodes take
// part in topological ordering but carry no executable behavior.
func (n *Node) IsTrigger() bool {
	return n.Type == NodeTypeTriggerManual || n.Type == NodeTypeTriggerSchedule
}

// Edge wires an output field of the source node into an input field of the
// target node.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"        validate:"required"`
	Target       string `json:"target"        validate:"required"`
	SourceHandle string `json:"source_handle"`
	TargetHandle string `json:"target_handle"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *Node {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}
