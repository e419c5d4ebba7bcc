package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
)

func node(id, nodeType string) *models.Node {
	return &models.Node{ID: id, Type: nodeType}
}

func edge(source, target string) *models.Edge {
	return &models.Edge{ID: source + "-" + target, Source: source, Target: target}
}

func TestTopologicalOrderStraightLine(t *testing.T) {
	nodes := []*models.Node{
		node("t", models.NodeTypeTriggerManual),
		node("p", models.NodeTypeGeneratePrompts),
		node("g", models.NodeTypeGenerateImage),
		node("s", models.NodeTypeSaveGallery),
	}
	edges := []*models.Edge{edge("t", "p"), edge("p", "g"), edge("g", "s")}

	order := TopologicalOrder(nodes, edges)

	assert.Equal(t, []string{"t", "p", "g", "s"}, order)
}

func TestTopologicalOrderDiamond(t *testing.T) {
	nodes := []*models.Node{
		node("a", models.NodeTypeTriggerManual),
		node("b", models.NodeTypeGeneratePrompts),
		node("c", models.NodeTypeGenerateImage),
		node("d", models.NodeTypeSaveGallery),
	}
	edges := []*models.Edge{edge("a", "b"), edge("a", "c"), edge("b", "d"), edge("c", "d")}

	order := TopologicalOrder(nodes, edges)

	require.Len(t, order, 4)

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	assert.Less(t, position["a"], position["b"])
	assert.Less(t, position["a"], position["c"])
	assert.Less(t, position["b"], position["d"])
	assert.Less(t, position["c"], position["d"])
}

func TestTopologicalOrderCycle(t *testing.T) {
	nodes := []*models.Node{
		node("a", models.NodeTypeGeneratePrompts),
		node("b", models.NodeTypeGenerateImage),
		node("c", models.NodeTypeSaveGallery),
	}
	edges := []*models.Edge{edge("a", "b"), edge("b", "c"), edge("c", "a")}

	assert.Nil(t, TopologicalOrder(nodes, edges))
}

func TestTopologicalOrderSelfLoop(t *testing.T) {
	nodes := []*models.Node{node("a", models.NodeTypeGenerateImage)}
	edges := []*models.Edge{edge("a", "a")}

	assert.Nil(t, TopologicalOrder(nodes, edges))
}

func TestTopologicalOrderIgnoresDanglingEdges(t *testing.T) {
	nodes := []*models.Node{
		node("a", models.NodeTypeTriggerManual),
		node("b", models.NodeTypeGenerateImage),
	}
	edges := []*models.Edge{edge("a", "b"), edge("ghost", "b"), edge("b", "ghost")}

	order := TopologicalOrder(nodes, edges)

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestTopologicalOrderEmpty(t *testing.T) {
	order := TopologicalOrder(nil, nil)

	assert.Empty(t, order)
	assert.NotNil(t, order)
}
