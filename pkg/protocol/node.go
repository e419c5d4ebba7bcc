// Package protocol defines the interfaces and contracts for pluggable node
// executors and the external collaborators the engine calls through.
package protocol

import (
	"context"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
)

// NodeResult is the structured output of one node execution.
type NodeResult struct {
	Output      map[string]any
	CreditsUsed int
}

// NodeExecutor executes one node with its already-resolved configuration.
// A returned error aborts the whole execution; the caller records it first.
type NodeExecutor interface {
	Execute(ctx context.Context, userID string, executionCtx models.ExecutionContext) (*NodeResult, error)
}

// NodeFactory creates node executor instances and provides metadata about the
// node type.
type NodeFactory interface {
	// Create builds an executor for one run of the node. The config has
	// already been through edge wiring and token interpolation.
	Create(ctx context.Context, config map[string]any) (NodeExecutor, error)

	// ID returns the node type tag this factory handles.
	ID() string

	// Name returns the human-readable name for this node type.
	Name() string

	// Description returns a description of what this node does.
	Description() string

	// Schema returns the JSON schema for configuring this node.
	Schema() map[string]any

	// CompanionFields maps a wired output field to an array field that is
	// propagated alongside it during edge resolution, e.g. image_url carries
	// image_urls so downstream nodes can fan out over the whole batch.
	CompanionFields() map[string]string

	// EstimateCredits returns the expected credit cost of one execution of
	// this node given its raw (unresolved) configuration.
	EstimateCredits(config map[string]any) int
}
