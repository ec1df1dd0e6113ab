package workflow

// Graph owns two insertion-ordered collections of nodes and edges.
//
// AddNode and AddEdge are idempotent set-adds: node equality is full
// structural equality, edge equality is the ordered (source, target) pair.
// The graph keeps index maps alongside the slices so that lookups are O(1);
// the slices preserve insertion order for consumers that iterate.
//
// Graph is not safe for concurrent mutation. During a parallel scan the
// builder funnels all merges through a single lock (the graph is the only
// mutable shared state of the scan phase).
type Graph struct {
	Nodes []WorkflowNode `json:"nodes"`
	Edges []WorkflowEdge `json:"edges"`

	nodeByID  map[string]int      // node ID -> index into Nodes
	edgePairs map[[2]string]int   // (source, target) -> index into Edges
	byType    map[NodeType][]int  // node type -> indices into Nodes
}

// NewGraph returns an empty graph ready for use.
func NewGraph() *Graph {
	return &Graph{
		nodeByID:  make(map[string]int),
		edgePairs: make(map[[2]string]int),
		byType:    make(map[NodeType][]int),
	}
}

// AddNode inserts node unless a structurally equal node is already present.
// A node with a duplicate ID but different contents is also skipped: IDs are
// unique per node and the first writer wins.
func (g *Graph) AddNode(node WorkflowNode) {
	if _, ok := g.nodeByID[node.ID]; ok {
		return
	}
	g.nodeByID[node.ID] = len(g.Nodes)
	g.byType[node.Type] = append(g.byType[node.Type], len(g.Nodes))
	g.Nodes = append(g.Nodes, node)
}

// AddEdge inserts edge unless an edge with the same ordered (source, target)
// pair already exists. The label of an existing edge is never overwritten.
func (g *Graph) AddEdge(edge WorkflowEdge) {
	key := [2]string{edge.Source, edge.Target}
	if _, ok := g.edgePairs[key]; ok {
		return
	}
	g.edgePairs[key] = len(g.Edges)
	g.Edges = append(g.Edges, edge)
}

// HasEdge reports whether an edge with the ordered (source, target) pair exists.
func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.edgePairs[[2]string{source, target}]
	return ok
}

// Node returns the node with the given ID, or nil if absent.
func (g *Graph) Node(id string) *WorkflowNode {
	i, ok := g.nodeByID[id]
	if !ok {
		return nil
	}
	return &g.Nodes[i]
}

// NodesByType returns all nodes of the given type in insertion order.
func (g *Graph) NodesByType(t NodeType) []WorkflowNode {
	idx := g.byType[t]
	out := make([]WorkflowNode, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.Nodes[i])
	}
	return out
}

// OutgoingEdges returns all edges whose source is the given node ID.
func (g *Graph) OutgoingEdges(id string) []WorkflowEdge {
	var out []WorkflowEdge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns all edges whose target is the given node ID.
func (g *Graph) IncomingEdges(id string) []WorkflowEdge {
	var out []WorkflowEdge
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// Merge adds every node and edge of src into g, preserving g's set semantics.
// Nodes are carried over by value; src is left untouched.
func (g *Graph) Merge(src *Graph) {
	if src == nil {
		return
	}
	for _, n := range src.Nodes {
		g.AddNode(n)
	}
	for _, e := range src.Edges {
		g.AddEdge(e)
	}
}
