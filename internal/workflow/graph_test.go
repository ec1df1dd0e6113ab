package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, t NodeType, file string, line int) WorkflowNode {
	return WorkflowNode{
		ID:       id,
		Type:     t,
		Name:     id,
		Location: CodeLocation{FilePath: file, LineNumber: line},
	}
}

func TestGraph_AddNode_Idempotent(t *testing.T) {
	g := NewGraph()
	n := node("a.cs:db_read:10", NodeDatabaseRead, "a.cs", 10)

	g.AddNode(n)
	g.AddNode(n)

	assert.Len(t, g.Nodes, 1)
}

func TestGraph_AddNode_DuplicateID_FirstWriterWins(t *testing.T) {
	g := NewGraph()
	first := node("a.cs:db_read:10", NodeDatabaseRead, "a.cs", 10)
	second := first
	second.Name = "different name"

	g.AddNode(first)
	g.AddNode(second)

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, first.Name, g.Nodes[0].Name)
}

func TestGraph_AddEdge_Idempotent(t *testing.T) {
	g := NewGraph()
	e := WorkflowEdge{Source: "a", Target: "b", Label: "Sequential (5 lines)"}

	g.AddEdge(e)
	g.AddEdge(e)

	assert.Len(t, g.Edges, 1)
}

func TestGraph_AddEdge_SamePairDifferentLabel_KeepsFirstLabel(t *testing.T) {
	g := NewGraph()
	g.AddEdge(WorkflowEdge{Source: "a", Target: "b", Label: "Sequential (5 lines)"})
	g.AddEdge(WorkflowEdge{Source: "a", Target: "b", Label: "Data Ingestion"})

	require.Len(t, g.Edges, 1)
	assert.Equal(t, "Sequential (5 lines)", g.Edges[0].Label)
}

func TestGraph_AddEdge_ReversedPairIsDistinct(t *testing.T) {
	g := NewGraph()
	g.AddEdge(WorkflowEdge{Source: "a", Target: "b"})
	g.AddEdge(WorkflowEdge{Source: "b", Target: "a"})

	assert.Len(t, g.Edges, 2)
}

func TestGraph_Node(t *testing.T) {
	g := NewGraph()
	g.AddNode(node("x", NodeAPICall, "a.ts", 1))

	require.NotNil(t, g.Node("x"))
	assert.Equal(t, NodeAPICall, g.Node("x").Type)
	assert.Nil(t, g.Node("missing"))
}

func TestGraph_NodesByType(t *testing.T) {
	g := NewGraph()
	g.AddNode(node("r1", NodeDatabaseRead, "a.cs", 1))
	g.AddNode(node("w1", NodeDatabaseWrite, "a.cs", 2))
	g.AddNode(node("r2", NodeDatabaseRead, "a.cs", 3))

	reads := g.NodesByType(NodeDatabaseRead)
	require.Len(t, reads, 2)
	assert.Equal(t, "r1", reads[0].ID)
	assert.Equal(t, "r2", reads[1].ID)
	assert.Empty(t, g.NodesByType(NodeCacheRead))
}

func TestGraph_OutgoingIncomingEdges(t *testing.T) {
	g := NewGraph()
	g.AddEdge(WorkflowEdge{Source: "a", Target: "b"})
	g.AddEdge(WorkflowEdge{Source: "a", Target: "c"})
	g.AddEdge(WorkflowEdge{Source: "c", Target: "b"})

	assert.Len(t, g.OutgoingEdges("a"), 2)
	assert.Len(t, g.IncomingEdges("b"), 2)
	assert.Empty(t, g.OutgoingEdges("b"))
}

func TestGraph_Merge(t *testing.T) {
	g := NewGraph()
	g.AddNode(node("a", NodeAPICall, "f.ts", 1))

	frag := NewGraph()
	frag.AddNode(node("a", NodeAPICall, "f.ts", 1)) // already present
	frag.AddNode(node("b", NodeDatabaseWrite, "f.ts", 5))
	frag.AddEdge(WorkflowEdge{Source: "a", Target: "b", Label: "Data Ingestion"})

	g.Merge(frag)

	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
}

func TestSchemaRegistry_ResolvesBothNames(t *testing.T) {
	r := NewSchemaRegistry()
	r.Register(TableSchema{EntityName: "Order", TableName: "orders"})

	assert.Equal(t, "orders", r.TableNameFor("Order"))
	assert.Equal(t, "orders", r.TableNameFor("orders"))
	assert.Equal(t, "Foo", r.TableNameFor("Foo"), "unregistered names pass through unchanged")
}

func TestSchemaRegistry_FirstRegistrationWins(t *testing.T) {
	r := NewSchemaRegistry()
	r.Register(TableSchema{EntityName: "Order", TableName: "orders"})
	r.Register(TableSchema{EntityName: "Order", TableName: "order_archive"})

	assert.Equal(t, "orders", r.TableNameFor("Order"))
	assert.Equal(t, 2, r.Len())
}

func TestCodeLocation_String(t *testing.T) {
	loc := CodeLocation{FilePath: "src/app.cs", LineNumber: 42}
	assert.Equal(t, "src/app.cs:42", loc.String())
}
