package inference

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

func node(file string, line int, t workflow.NodeType) workflow.WorkflowNode {
	return workflow.WorkflowNode{
		ID:       fmt.Sprintf("%s:%s:%d", file, t, line),
		Type:     t,
		Name:     string(t),
		Location: workflow.CodeLocation{FilePath: file, LineNumber: line},
	}
}

func TestProximityEdges(t *testing.T) {
	g := workflow.NewGraph()
	g.AddNode(node("a.cs", 10, workflow.NodeDatabaseRead))
	g.AddNode(node("a.cs", 25, workflow.NodeDatabaseWrite))
	g.AddNode(node("a.cs", 90, workflow.NodeAPICall))

	e := &Engine{DisableDataFlow: true}
	e.Infer(g)

	require.Len(t, g.Edges, 1, "only the pair within the threshold connects")
	assert.Equal(t, "a.cs:database_read:10", g.Edges[0].Source)
	assert.Equal(t, "a.cs:database_write:25", g.Edges[0].Target)
	assert.Equal(t, "Sequential (15 lines)", g.Edges[0].Label)
}

func TestProximityNeverCrossesFiles(t *testing.T) {
	g := workflow.NewGraph()
	g.AddNode(node("a.cs", 10, workflow.NodeDatabaseRead))
	g.AddNode(node("b.cs", 12, workflow.NodeDatabaseWrite))

	e := &Engine{DisableDataFlow: true}
	e.Infer(g)
	assert.Empty(t, g.Edges)
}

func TestProximityUnsortedInput(t *testing.T) {
	// Nodes arrive in merge order, not line order.
	g := workflow.NewGraph()
	g.AddNode(node("a.cs", 40, workflow.NodeAPICall))
	g.AddNode(node("a.cs", 5, workflow.NodeDatabaseRead))
	g.AddNode(node("a.cs", 22, workflow.NodeDataTransform))

	e := &Engine{DisableDataFlow: true}
	e.Infer(g)

	require.Len(t, g.Edges, 2)
	assert.Equal(t, "a.cs:database_read:5", g.Edges[0].Source)
	assert.Equal(t, "a.cs:data_transform:22", g.Edges[0].Target)
	assert.Equal(t, "a.cs:data_transform:22", g.Edges[1].Source)
	assert.Equal(t, "a.cs:api_call:40", g.Edges[1].Target)
}

func TestDataIngestionEdges(t *testing.T) {
	g := workflow.NewGraph()
	g.AddNode(node("svc.cs", 10, workflow.NodeAPICall))
	g.AddNode(node("svc.cs", 30, workflow.NodeDatabaseWrite))  // in window
	g.AddNode(node("svc.cs", 100, workflow.NodeDatabaseWrite)) // out of window
	g.AddNode(node("svc.cs", 5, workflow.NodeDatabaseWrite))   // before the call

	e := &Engine{DisableProximity: true}
	e.Infer(g)

	require.Len(t, g.Edges, 1)
	assert.Equal(t, "svc.cs:api_call:10", g.Edges[0].Source)
	assert.Equal(t, "svc.cs:database_write:30", g.Edges[0].Target)
	assert.Equal(t, "Data Ingestion", g.Edges[0].Label)
}

func TestDataIngestionWindowIsStrict(t *testing.T) {
	g := workflow.NewGraph()
	g.AddNode(node("svc.cs", 10, workflow.NodeAPICall))
	g.AddNode(node("svc.cs", 60, workflow.NodeDatabaseWrite)) // exactly window lines away

	e := &Engine{DisableProximity: true}
	e.Infer(g)
	assert.Empty(t, g.Edges)
}

func TestDataProcessingEdges(t *testing.T) {
	g := workflow.NewGraph()
	g.AddNode(node("job.cs", 10, workflow.NodeDatabaseRead))
	g.AddNode(node("job.cs", 35, workflow.NodeDataTransform))
	g.AddNode(node("job.cs", 45, workflow.NodeDataTransform))

	e := &Engine{DisableProximity: true}
	e.Infer(g)

	require.Len(t, g.Edges, 1, "only the transform inside the processing window connects")
	assert.Equal(t, "Data Processing", g.Edges[0].Label)
	assert.Equal(t, "job.cs:data_transform:35", g.Edges[0].Target)
}

func TestInferIsIdempotent(t *testing.T) {
	g := workflow.NewGraph()
	g.AddNode(node("a.cs", 10, workflow.NodeAPICall))
	g.AddNode(node("a.cs", 20, workflow.NodeDatabaseWrite))
	g.AddNode(node("a.cs", 28, workflow.NodeDatabaseRead))
	g.AddNode(node("a.cs", 40, workflow.NodeDataTransform))

	e := &Engine{}
	e.Infer(g)
	first := len(g.Edges)

	e.Infer(g)
	assert.Equal(t, first, len(g.Edges), "second run must not duplicate edges")
}

func TestExistingEdgeKeepsLabel(t *testing.T) {
	g := workflow.NewGraph()
	g.AddNode(node("a.cs", 10, workflow.NodeAPICall))
	g.AddNode(node("a.cs", 20, workflow.NodeDatabaseWrite))
	g.AddEdge(workflow.WorkflowEdge{
		Source: "a.cs:api_call:10",
		Target: "a.cs:database_write:20",
		Label:  "hand written",
	})

	e := &Engine{DisableProximity: true}
	e.Infer(g)

	require.Len(t, g.Edges, 1)
	assert.Equal(t, "hand written", g.Edges[0].Label)
}

func TestCustomWindows(t *testing.T) {
	g := workflow.NewGraph()
	g.AddNode(node("a.cs", 10, workflow.NodeAPICall))
	g.AddNode(node("a.cs", 14, workflow.NodeDatabaseWrite))

	e := &Engine{IngestionWindow: 3, DisableProximity: true}
	e.Infer(g)
	assert.Empty(t, g.Edges, "write at distance 4 is outside a window of 3")
}
