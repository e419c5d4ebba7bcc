// Package registry maintains the set of available node types and validates
// workflow graphs against their configuration schemas at save time.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.NodeFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[string]protocol.NodeFactory),
	}
}

// RegisterNode registers a node factory under its type tag.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.factories[factory.ID()] = factory
}

// Factory returns the factory for a node type, or nil.
func (r *Registry) Factory(nodeType string) protocol.NodeFactory {
	return r.factories[nodeType]
}

// CreateNode builds an executor instance for one run of a node.
func (r *Registry) CreateNode(ctx context.Context, nodeType string, config map[string]any) (protocol.NodeExecutor, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	executor, err := factory.Create(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %q node: %w", nodeType, err)
	}

	return executor, nil
}

// ValidateWorkflow checks a graph before it is saved: every non-trigger node
// type must be registered, node configs must satisfy their schemas, and every
// edge must reference existing node ids. Execution-time resolution stays
// lenient about dangling edges for rows saved before this check existed.
func (r *Registry) ValidateWorkflow(workflow *models.Workflow) error {
	nodeIDs := make(map[string]bool, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if nodeIDs[node.ID] {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}

		nodeIDs[node.ID] = true

		if node.IsTrigger() {
			continue
		}

		factory, ok := r.factories[node.Type]
		if !ok {
			return fmt.Errorf("node %q has unknown type %q", node.ID, node.Type)
		}

		err := r.validateConfig(node, factory.Schema())
		if err != nil {
			return err
		}
	}

	for _, edge := range workflow.Edges {
		if !nodeIDs[edge.Source] {
			return fmt.Errorf("edge %q references unknown source node %q", edge.ID, edge.Source)
		}

		if !nodeIDs[edge.Target] {
			return fmt.Errorf("edge %q references unknown target node %q", edge.ID, edge.Target)
		}
	}

	return nil
}

func (r *Registry) validateConfig(node *models.Node, schema map[string]any) error {
	if schema == nil {
		return nil
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate config of node %q: %w", node.ID, err)
	}

	if !result.Valid() {
		first := result.Errors()[0]

		return fmt.Errorf("invalid config for node %q: %s", node.ID, first.String())
	}

	return nil
}

// NodeTypes returns the registered node type tags.
func (r *Registry) NodeTypes() []string {
	types := make([]string, 0, len(r.factories))
	for nodeType := range r.factories {
		types = append(types, nodeType)
	}

	return types
}
