package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/flowscan/internal/analyzer"
	"github.com/dusk-indust/flowscan/internal/builder"
	"github.com/dusk-indust/flowscan/internal/export"
	"github.com/dusk-indust/flowscan/internal/history"
	"github.com/dusk-indust/flowscan/internal/workflow"
)

// FlowService handles MCP tool calls. Scans run synchronously inside the
// tool call; results are recorded in the history store so follow-up tools
// can read them by scan id.
type FlowService struct {
	store history.Store
	cfg   *builder.Config
}

// NewFlowService creates a service over the given store. cfg may be nil.
func NewFlowService(store history.Store, cfg *builder.Config) *FlowService {
	if cfg == nil {
		cfg = builder.DefaultConfig()
	}
	return &FlowService{store: store, cfg: cfg}
}

// ScanRepository scans a repository and stores the result document.
func (s *FlowService) ScanRepository(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ScanRepositoryInput,
) (*mcp.CallToolResult, ScanRepositoryOutput, error) {
	if strings.TrimSpace(input.RepositoryPath) == "" {
		return nil, ScanRepositoryOutput{}, fmt.Errorf("repositoryPath is required")
	}

	performedBy := input.PerformedBy
	if performedBy == "" {
		performedBy = "mcp"
	}
	meta := history.NewScanMetadata(input.RepositoryPath, "full", performedBy)

	start := time.Now()
	result, err := builder.New(s.cfg).Build(ctx, input.RepositoryPath, nil)
	if err != nil {
		return nil, ScanRepositoryOutput{
			ScanID: meta.ScanID,
			Status: history.StateError,
			Errors: []string{err.Error()},
		}, nil
	}

	workflows := analyzer.New(result.Graph).Analyze()

	now := time.Now().UTC()
	meta.CompletedAt = &now
	meta.ScanDuration = time.Since(start).Seconds()
	meta.FilesScanned = result.FilesScanned
	meta.NodesFound = len(result.Graph.Nodes)
	meta.Errors = result.Errors
	meta.Status = history.StateCompleted
	if result.Status == workflow.StatusCancelled {
		meta.Status = history.StateCancelled
	}

	if err := s.store.SaveScan(ctx, meta); err != nil {
		return nil, ScanRepositoryOutput{}, fmt.Errorf("save scan: %w", err)
	}
	if err := s.store.SaveResult(ctx, meta.ScanID, export.BuildExport(result, workflows)); err != nil {
		return nil, ScanRepositoryOutput{}, fmt.Errorf("save result: %w", err)
	}

	return nil, ScanRepositoryOutput{
		ScanID:        meta.ScanID,
		Status:        meta.Status,
		FilesScanned:  result.FilesScanned,
		NodeCount:     len(result.Graph.Nodes),
		EdgeCount:     len(result.Graph.Edges),
		WorkflowCount: len(workflows),
		Errors:        result.Errors,
	}, nil
}

// ListWorkflows returns summaries of every workflow in a scan result.
func (s *FlowService) ListWorkflows(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListWorkflowsInput,
) (*mcp.CallToolResult, ListWorkflowsOutput, error) {
	result, err := s.store.GetResult(ctx, input.ScanID)
	if err != nil {
		return nil, ListWorkflowsOutput{}, fmt.Errorf("scan %s: %w", input.ScanID, err)
	}

	out := ListWorkflowsOutput{Workflows: make([]WorkflowSummary, 0, len(result.Workflows))}
	for _, w := range result.Workflows {
		out.Workflows = append(out.Workflows, WorkflowSummary{
			WorkflowID: w.ID,
			Name:       w.Name,
			Trigger:    w.Trigger.InteractionType,
			Component:  w.Trigger.Component,
			StepCount:  len(w.Steps),
			Summary:    w.Summary,
		})
	}
	return nil, out, nil
}

// WorkflowStory returns the narrative and diagram for one workflow.
func (s *FlowService) WorkflowStory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input WorkflowStoryInput,
) (*mcp.CallToolResult, WorkflowStoryOutput, error) {
	result, err := s.store.GetResult(ctx, input.ScanID)
	if err != nil {
		return nil, WorkflowStoryOutput{}, fmt.Errorf("scan %s: %w", input.ScanID, err)
	}

	for _, w := range result.Workflows {
		if w.ID == input.WorkflowID {
			return nil, WorkflowStoryOutput{
				WorkflowID: w.ID,
				Story:      w.Story,
				Mermaid:    export.GenerateWorkflowMermaid(w.UIWorkflow),
			}, nil
		}
	}
	return nil, WorkflowStoryOutput{}, fmt.Errorf("workflow %s not found in scan %s", input.WorkflowID, input.ScanID)
}

// GraphMermaid renders the full scanned graph as a Mermaid flowchart.
func (s *FlowService) GraphMermaid(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GraphMermaidInput,
) (*mcp.CallToolResult, GraphMermaidOutput, error) {
	result, err := s.store.GetResult(ctx, input.ScanID)
	if err != nil {
		return nil, GraphMermaidOutput{}, fmt.Errorf("scan %s: %w", input.ScanID, err)
	}

	g := workflow.NewGraph()
	for _, node := range result.Nodes {
		g.AddNode(node)
	}
	for _, edge := range result.Edges {
		g.AddEdge(workflow.WorkflowEdge{
			Source:   edge.Source,
			Target:   edge.Target,
			Label:    edge.Label,
			Metadata: edge.Metadata,
		})
	}

	return nil, GraphMermaidOutput{
		Mermaid:   export.GenerateGraphMermaid(g),
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
	}, nil
}
