// Package export renders scan results for external consumers: a JSON
// document for renderers and the API, and Mermaid diagrams for humans.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/flowscan/internal/analyzer"
	"github.com/dusk-indust/flowscan/internal/workflow"
)

// ResultExport is the top-level JSON document written for one scan.
type ResultExport struct {
	RepositoryPath  string                  `json:"repository_path"`
	ExportedAt      string                  `json:"exported_at"`
	Status          string                  `json:"status"`
	FilesScanned    int                     `json:"files_scanned"`
	ScanTimeSeconds float64                 `json:"scan_time_seconds"`
	Errors          []string                `json:"errors,omitempty"`
	Warnings        []string                `json:"warnings,omitempty"`
	Stats           StatsExport             `json:"stats"`
	Nodes           []workflow.WorkflowNode `json:"nodes"`
	Edges           []EdgeExport            `json:"edges"`
	Workflows       []WorkflowExport        `json:"workflows"`
}

// StatsExport summarizes the graph for dashboards.
type StatsExport struct {
	NodeCount   int            `json:"node_count"`
	EdgeCount   int            `json:"edge_count"`
	NodesByType map[string]int `json:"nodes_by_type"`
}

// EdgeExport mirrors WorkflowEdge but carries the edge_type alias renderers
// read alongside label.
type EdgeExport struct {
	Source   string            `json:"source"`
	Target   string            `json:"target"`
	Label    string            `json:"label,omitempty"`
	EdgeType string            `json:"edge_type,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// WorkflowExport is a UI workflow plus its rendered story.
type WorkflowExport struct {
	analyzer.UIWorkflow
	Story string `json:"story"`
}

// BuildExport assembles the export document from a result and its workflows.
func BuildExport(result *workflow.ScanResult, workflows []analyzer.UIWorkflow) *ResultExport {
	out := &ResultExport{
		RepositoryPath:  result.RepositoryPath,
		ExportedAt:      time.Now().UTC().Format(time.RFC3339),
		Status:          string(result.Status),
		FilesScanned:    result.FilesScanned,
		ScanTimeSeconds: result.ScanTimeSeconds,
		Errors:          result.Errors,
		Warnings:        result.Warnings,
		Nodes:           result.Graph.Nodes,
		Stats: StatsExport{
			NodeCount:   len(result.Graph.Nodes),
			EdgeCount:   len(result.Graph.Edges),
			NodesByType: map[string]int{},
		},
	}
	if out.Nodes == nil {
		out.Nodes = []workflow.WorkflowNode{}
	}

	for _, n := range result.Graph.Nodes {
		out.Stats.NodesByType[string(n.Type)]++
	}

	out.Edges = make([]EdgeExport, 0, len(result.Graph.Edges))
	for _, e := range result.Graph.Edges {
		out.Edges = append(out.Edges, EdgeExport{
			Source:   e.Source,
			Target:   e.Target,
			Label:    e.Label,
			EdgeType: e.Label,
			Metadata: e.Metadata,
		})
	}

	out.Workflows = make([]WorkflowExport, 0, len(workflows))
	for _, w := range workflows {
		out.Workflows = append(out.Workflows, WorkflowExport{
			UIWorkflow: w,
			Story:      w.ToStory(),
		})
	}
	return out
}

// WriteJSON writes the export document to path, creating parent directories.
func WriteJSON(path string, export *ResultExport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
