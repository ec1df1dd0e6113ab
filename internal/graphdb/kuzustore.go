//go:build cgo

// Package graphdb persists scanned workflow graphs in KuzuDB so they can be
// queried with Cypher after the scan that produced them has finished.
package graphdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

// KuzuStore stores workflow graphs in KuzuDB. It requires CGO because the
// go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// NewKuzuStore creates a store backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("graphdb: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("graphdb: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// NewKuzuFileStore creates a store backed by a file-based KuzuDB at dbPath.
// KuzuDB creates the leaf directory itself for new databases, so graphs
// survive across sessions.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("graphdb: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("graphdb: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("graphdb: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ddlStatements is the Cypher DDL executed by InitSchema. The node table
// must precede the relationship table.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Operation(
		id STRING,
		node_type STRING,
		name STRING,
		file_path STRING,
		line_number INT64,
		table_name STRING,
		endpoint STRING,
		http_method STRING,
		queue_name STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS FLOWS_TO(FROM Operation TO Operation, label STRING)`,
}

// InitSchema creates the node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("graphdb: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// SaveGraph writes every node and edge of g. Nodes must be written before
// the edges that reference them.
func (s *KuzuStore) SaveGraph(ctx context.Context, g *workflow.Graph) error {
	for i := range g.Nodes {
		if err := s.AddNode(ctx, g.Nodes[i]); err != nil {
			return err
		}
	}
	for i := range g.Edges {
		if err := s.AddEdge(ctx, g.Edges[i]); err != nil {
			return err
		}
	}
	return nil
}

// AddNode inserts one Operation node.
func (s *KuzuStore) AddNode(_ context.Context, node workflow.WorkflowNode) error {
	return s.exec(
		`CREATE (o:Operation {
			id: $id,
			node_type: $type,
			name: $name,
			file_path: $fp,
			line_number: $line,
			table_name: $table,
			endpoint: $endpoint,
			http_method: $method,
			queue_name: $queue
		})`,
		map[string]any{
			"id":       node.ID,
			"type":     string(node.Type),
			"name":     node.Name,
			"fp":       node.Location.FilePath,
			"line":     int64(node.Location.LineNumber),
			"table":    node.TableName,
			"endpoint": node.Endpoint,
			"method":   node.Method,
			"queue":    node.QueueName,
		},
	)
}

// AddEdge inserts one FLOWS_TO relationship.
func (s *KuzuStore) AddEdge(_ context.Context, edge workflow.WorkflowEdge) error {
	return s.exec(
		`MATCH (a:Operation {id: $src}), (b:Operation {id: $dst})
		 CREATE (a)-[:FLOWS_TO {label: $label}]->(b)`,
		map[string]any{
			"src":   edge.Source,
			"dst":   edge.Target,
			"label": edge.Label,
		},
	)
}

// GetNode retrieves one Operation by id, or nil when absent.
func (s *KuzuStore) GetNode(_ context.Context, id string) (*workflow.WorkflowNode, error) {
	rows, err := s.query(
		`MATCH (o:Operation {id: $id})
		 RETURN o.id, o.node_type, o.name, o.file_path, o.line_number,
		        o.table_name, o.endpoint, o.http_method, o.queue_name`,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToNode(rows[0]), nil
}

// NodesByType returns every Operation of the given type.
func (s *KuzuStore) NodesByType(_ context.Context, t workflow.NodeType) ([]workflow.WorkflowNode, error) {
	rows, err := s.query(
		`MATCH (o:Operation {node_type: $type})
		 RETURN o.id, o.node_type, o.name, o.file_path, o.line_number,
		        o.table_name, o.endpoint, o.http_method, o.queue_name`,
		map[string]any{"type": string(t)},
	)
	if err != nil {
		return nil, err
	}
	out := make([]workflow.WorkflowNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToNode(r))
	}
	return out, nil
}

// FlowChain is one traversal path through FLOWS_TO edges.
type FlowChain struct {
	Nodes []string
	Depth int
}

// DownstreamFlows performs a BFS over FLOWS_TO edges starting from nodeID.
// It returns one chain per reachable node, capped at maxDepth hops.
func (s *KuzuStore) DownstreamFlows(_ context.Context, nodeID string, maxDepth int) ([]FlowChain, error) {
	if maxDepth <= 0 {
		maxDepth = 10
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{nodeID: true}
	queue := []bfsEntry{{path: []string{nodeID}, depth: 0}}
	var chains []FlowChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.successors(tip)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, FlowChain{
				Nodes: newPath,
				Depth: cur.depth + 1,
			})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

func (s *KuzuStore) successors(id string) ([]string, error) {
	rows, err := s.query(
		"MATCH (a:Operation {id: $id})-[:FLOWS_TO]->(b:Operation) RETURN b.id",
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// GraphStats summarizes the stored graph.
type GraphStats struct {
	NodeCount int
	EdgeCount int
}

// Stats counts stored nodes and edges.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	nodes, err := s.count("MATCH (o:Operation) RETURN count(o)")
	if err != nil {
		return nil, err
	}
	edges, err := s.count("MATCH ()-[r:FLOWS_TO]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	return &GraphStats{NodeCount: nodes, EdgeCount: edges}, nil
}

// PersistGraph writes g to a file-based KuzuDB at dbPath, creating the
// database and its schema on first use. It is the one-shot form used after a
// scan; callers that query afterwards open the store themselves.
func PersistGraph(ctx context.Context, dbPath string, g *workflow.Graph) error {
	store, err := NewKuzuFileStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	return store.SaveGraph(ctx, g)
}

// ---------- Internal helpers ----------

func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("graphdb: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("graphdb: execute: %w", err)
	}
	res.Close()
	return nil
}

// query collects all result rows; each row is a []any in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("graphdb: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("graphdb: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("graphdb: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("graphdb: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToNode converts a 9-column result row into a WorkflowNode.
// Column order: id, node_type, name, file_path, line_number, table_name,
// endpoint, http_method, queue_name.
func rowToNode(r []any) *workflow.WorkflowNode {
	return &workflow.WorkflowNode{
		ID:   toString(r[0]),
		Type: workflow.NodeType(toString(r[1])),
		Name: toString(r[2]),
		Location: workflow.CodeLocation{
			FilePath:   toString(r[3]),
			LineNumber: toInt(r[4]),
		},
		TableName: toString(r[5]),
		Endpoint:  toString(r[6]),
		Method:    toString(r[7]),
		QueueName: toString(r[8]),
	}
}

// KuzuDB returns typed Go values (int64, float64, bool, string); these
// helpers coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
