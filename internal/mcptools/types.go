package mcptools

// --- MCP tool types ---
// These tools are exposed when the binary runs as an MCP server, so agent
// clients can scan repositories and read workflow stories via structured
// calls instead of shelling out.

// ScanRepositoryInput is the input for the scan_repository MCP tool.
type ScanRepositoryInput struct {
	RepositoryPath string `json:"repositoryPath" jsonschema:"absolute path to the repository to scan"`
	PerformedBy    string `json:"performedBy,omitempty" jsonschema:"who requested the scan (default: mcp)"`
}

// ScanRepositoryOutput is the result of the scan_repository MCP tool.
type ScanRepositoryOutput struct {
	ScanID        string   `json:"scanId"`
	Status        string   `json:"status"`
	FilesScanned  int      `json:"filesScanned"`
	NodeCount     int      `json:"nodeCount"`
	EdgeCount     int      `json:"edgeCount"`
	WorkflowCount int      `json:"workflowCount"`
	Errors        []string `json:"errors,omitempty"`
}

// ListWorkflowsInput is the input for the list_workflows MCP tool.
type ListWorkflowsInput struct {
	ScanID string `json:"scanId" jsonschema:"id of a completed scan"`
}

// WorkflowSummary is a brief overview of one detected workflow.
type WorkflowSummary struct {
	WorkflowID string `json:"workflowId"`
	Name       string `json:"name"`
	Trigger    string `json:"trigger"`
	Component  string `json:"component,omitempty"`
	StepCount  int    `json:"stepCount"`
	Summary    string `json:"summary"`
}

// ListWorkflowsOutput is the result of the list_workflows MCP tool.
type ListWorkflowsOutput struct {
	Workflows []WorkflowSummary `json:"workflows"`
}

// WorkflowStoryInput is the input for the workflow_story MCP tool.
type WorkflowStoryInput struct {
	ScanID     string `json:"scanId" jsonschema:"id of a completed scan"`
	WorkflowID string `json:"workflowId" jsonschema:"id of a workflow from list_workflows"`
}

// WorkflowStoryOutput is the result of the workflow_story MCP tool.
type WorkflowStoryOutput struct {
	WorkflowID string `json:"workflowId"`
	Story      string `json:"story"`
	Mermaid    string `json:"mermaid"`
}

// GraphMermaidInput is the input for the graph_mermaid MCP tool.
type GraphMermaidInput struct {
	ScanID string `json:"scanId" jsonschema:"id of a completed scan"`
}

// GraphMermaidOutput is the result of the graph_mermaid MCP tool.
type GraphMermaidOutput struct {
	Mermaid   string `json:"mermaid"`
	NodeCount int    `json:"nodeCount"`
	EdgeCount int    `json:"edgeCount"`
}
