// Package workflow executes node graphs: topological scheduling, inter-node
// data resolution, credit accounting and the step-level audit trail.
package workflow

import "github.com/digital-divas-admin/vixxxen-engine/pkg/models"

// TopologicalOrder returns the node ids in dependency order using Kahn's
// algorithm. Nodes appear after all their edge-predecessors; independent nodes
// keep their declaration order. Returns nil when the graph contains a cycle.
func TopologicalOrder(nodes []*models.Node, edges []*models.Edge) []string {
	inDegree := make(map[string]int, len(nodes))
	for _, node := range nodes {
		inDegree[node.ID] = 0
	}

	successors := make(map[string][]string, len(nodes))

	for _, edge := range edges {
		if _, ok := inDegree[edge.Source]; !ok {
			continue
		}

		if _, ok := inDegree[edge.Target]; !ok {
			continue
		}

		successors[edge.Source] = append(successors[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	var queue []string

	for _, node := range nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	order := make([]string, 0, len(nodes))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, successor := range successors[current] {
			inDegree[successor]--

			if inDegree[successor] == 0 {
				queue = append(queue, successor)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil
	}

	return order
}
