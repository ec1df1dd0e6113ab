package workflow

import "strconv"

// --- Enums ---

// NodeType classifies detected runtime operations.
type NodeType string

const (
	NodeDatabaseRead   NodeType = "database_read"
	NodeDatabaseWrite  NodeType = "database_write"
	NodeAPICall        NodeType = "api_call"
	NodeFileRead       NodeType = "file_read"
	NodeFileWrite      NodeType = "file_write"
	NodeMessageSend    NodeType = "message_send"
	NodeMessageReceive NodeType = "message_receive"
	NodeDataTransform  NodeType = "data_transform"
	NodeCacheRead      NodeType = "cache_read"
	NodeCacheWrite     NodeType = "cache_write"
)

// --- Models ---

// CodeLocation identifies a position in source code. Immutable after creation.
type CodeLocation struct {
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"`
	Column     int    `json:"column,omitempty"`
	EndLine    int    `json:"end_line,omitempty"`
}

// String renders the location as "{file}:{line}" for display.
func (l CodeLocation) String() string {
	return l.FilePath + ":" + strconv.Itoa(l.LineNumber)
}

// WorkflowNode is one detected operation. Nodes are created by a scanner while
// reading a single file and are never mutated after they enter a graph.
//
// Type-specific fields (TableName, Endpoint, ...) are populated only when the
// node type makes them meaningful and are empty otherwise.
type WorkflowNode struct {
	// ID is unique per node; the convention is "{file_path}:{category}:{line}".
	ID          string            `json:"id"`
	Type        NodeType          `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Location    CodeLocation      `json:"location"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CodeSnippet string            `json:"code_snippet,omitempty"`

	// Database operations.
	TableName string `json:"table_name,omitempty"`
	Query     string `json:"query,omitempty"`

	// API calls. Method is serialized as http_method for renderer compatibility.
	Endpoint string `json:"endpoint,omitempty"`
	Method   string `json:"http_method,omitempty"`

	// File operations.
	FilePath string `json:"file_path,omitempty"`

	// Message queues.
	QueueName string `json:"queue_name,omitempty"`
	Topic     string `json:"topic,omitempty"`
}

// WorkflowEdge is a directed, labeled relationship between two nodes.
// Identity is the ordered (Source, Target) pair; the label does not
// participate in identity.
type WorkflowEdge struct {
	Source   string            `json:"source"` // node ID
	Target   string            `json:"target"` // node ID
	Label    string            `json:"label,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
