package workflow

import (
	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/registry"
)

// Estimator computes the expected credit cost of a workflow before it runs.
// The estimate is a soft admission check, not a reservation: each node deducts
// independently at execution time and actual spend can diverge.
type Estimator struct {
	registry *registry.Registry
}

func NewEstimator(registry *registry.Registry) *Estimator {
	return &Estimator{registry: registry}
}

// Estimate sums the static per-node cost across the graph. Trigger nodes and
// unregistered types contribute nothing; the latter fail at execution instead.
func (e *Estimator) Estimate(workflow *models.Workflow) int {
	total := 0

	for _, node := range workflow.Nodes {
		if node.IsTrigger() {
			continue
		}

		factory := e.registry.Factory(node.Type)
		if factory == nil {
			continue
		}

		total += factory.EstimateCredits(node.Config)
	}

	return total
}
