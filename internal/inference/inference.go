// Package inference adds derived edges to a scanned workflow graph. It runs
// after all files are merged and never connects nodes across files.
package inference

import (
	"fmt"
	"sort"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

// Defaults for the inference windows, in lines.
const (
	DefaultProximityThreshold = 20
	DefaultIngestionWindow    = 50
	DefaultProcessingWindow   = 30
)

// Engine infers proximity and data-flow edges. Zero-valued fields fall back
// to the package defaults, so Engine{} is usable as-is.
type Engine struct {
	// ProximityThreshold is the maximum line distance between two adjacent
	// operations for a sequential edge.
	ProximityThreshold int

	// IngestionWindow bounds how far after an API call a database write may
	// be to count as data ingestion.
	IngestionWindow int

	// ProcessingWindow bounds how far after a database read a transform may
	// be to count as data processing.
	ProcessingWindow int

	// Proximity and DataFlow toggle the two passes. Both default to on via
	// NewEngine; zero-value Engine also runs both.
	DisableProximity bool
	DisableDataFlow  bool
}

// Infer runs the enabled passes over the graph. Calling it twice adds no
// duplicate edges: edge identity is the ordered (source, target) pair.
func (e *Engine) Infer(g *workflow.Graph) {
	byFile := groupByFile(g)

	if !e.DisableProximity {
		e.inferProximity(g, byFile)
	}
	if !e.DisableDataFlow {
		e.inferDataFlow(g, byFile)
	}
}

// groupByFile buckets node indices per file, sorted by line number.
func groupByFile(g *workflow.Graph) map[string][]int {
	byFile := make(map[string][]int)
	for i := range g.Nodes {
		fp := g.Nodes[i].Location.FilePath
		byFile[fp] = append(byFile[fp], i)
	}
	for _, idxs := range byFile {
		sort.Slice(idxs, func(a, b int) bool {
			return g.Nodes[idxs[a]].Location.LineNumber < g.Nodes[idxs[b]].Location.LineNumber
		})
	}
	return byFile
}

// inferProximity connects each node to its immediate successor in line
// order when they are close enough. One linear scan per file.
func (e *Engine) inferProximity(g *workflow.Graph, byFile map[string][]int) {
	threshold := e.ProximityThreshold
	if threshold <= 0 {
		threshold = DefaultProximityThreshold
	}

	for _, idxs := range byFile {
		for i := 0; i+1 < len(idxs); i++ {
			current := &g.Nodes[idxs[i]]
			next := &g.Nodes[idxs[i+1]]
			distance := next.Location.LineNumber - current.Location.LineNumber
			if distance > threshold {
				continue
			}
			g.AddEdge(workflow.WorkflowEdge{
				Source:   current.ID,
				Target:   next.ID,
				Label:    fmt.Sprintf("Sequential (%d lines)", distance),
				Metadata: map[string]string{"distance": fmt.Sprintf("%d", distance)},
			})
		}
	}
}

// inferDataFlow links API calls to later database writes (ingestion) and
// database reads to later transforms (processing), within per-pattern line
// windows.
func (e *Engine) inferDataFlow(g *workflow.Graph, byFile map[string][]int) {
	ingestion := e.IngestionWindow
	if ingestion <= 0 {
		ingestion = DefaultIngestionWindow
	}
	processing := e.ProcessingWindow
	if processing <= 0 {
		processing = DefaultProcessingWindow
	}

	for _, idxs := range byFile {
		buckets := make(map[workflow.NodeType][]int)
		for _, i := range idxs {
			t := g.Nodes[i].Type
			buckets[t] = append(buckets[t], i)
		}
		// Buckets inherit the per-file line ordering from groupByFile.

		e.connectPattern(g, buckets[workflow.NodeAPICall], buckets[workflow.NodeDatabaseWrite],
			ingestion, "Data Ingestion", "api_to_db")
		e.connectPattern(g, buckets[workflow.NodeDatabaseRead], buckets[workflow.NodeDataTransform],
			processing, "Data Processing", "db_to_transform")
	}
}

// connectPattern adds an edge from each source node to every target node
// strictly after it and within window lines. Targets are sorted by line, so
// a lower-bound search finds the first candidate and the scan stops at the
// first one out of range. Some generated files carry thousands of matches
// per category and the naive quadratic pairing does not finish on them.
func (e *Engine) connectPattern(g *workflow.Graph, sources, targets []int, window int, label, pattern string) {
	if len(sources) == 0 || len(targets) == 0 {
		return
	}
	for _, si := range sources {
		srcLine := g.Nodes[si].Location.LineNumber

		// First target strictly after the source line.
		start := sort.Search(len(targets), func(j int) bool {
			return g.Nodes[targets[j]].Location.LineNumber > srcLine
		})
		for j := start; j < len(targets); j++ {
			ti := targets[j]
			distance := g.Nodes[ti].Location.LineNumber - srcLine
			if distance >= window {
				break
			}
			if g.HasEdge(g.Nodes[si].ID, g.Nodes[ti].ID) {
				continue
			}
			g.AddEdge(workflow.WorkflowEdge{
				Source:   g.Nodes[si].ID,
				Target:   g.Nodes[ti].ID,
				Label:    label,
				Metadata: map[string]string{"pattern": pattern},
			})
		}
	}
}
