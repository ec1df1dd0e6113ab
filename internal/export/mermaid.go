package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/flowscan/internal/analyzer"
	"github.com/dusk-indust/flowscan/internal/workflow"
)

// GenerateGraphMermaid renders the full workflow graph as a Mermaid
// graph TD diagram, grouping nodes into per-file subgraphs.
func GenerateGraphMermaid(g *workflow.Graph) string {
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	byFile := make(map[string][]workflow.WorkflowNode)
	for _, n := range g.Nodes {
		byFile[n.Location.FilePath] = append(byFile[n.Location.FilePath], n)
	}
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, file := range files {
		nodes := byFile[file]
		sort.Slice(nodes, func(i, j int) bool {
			return nodes[i].Location.LineNumber < nodes[j].Location.LineNumber
		})
		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(file+"_file"), filepath.Base(file)))
		for _, n := range nodes {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(n.ID), escapeLabel(n.Name)))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range g.Edges {
		src, okS := nodeIDs[e.Source]
		dst, okT := nodeIDs[e.Target]
		if !okS || !okT {
			continue
		}
		if e.Label != "" {
			sb.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", src, escapeLabel(e.Label), dst))
		} else {
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", src, dst))
		}
	}
	return sb.String()
}

// GenerateWorkflowMermaid renders one UI workflow as a diagram for
// non-technical readers: trigger, steps, outcome, color-coded by step kind.
func GenerateWorkflowMermaid(w analyzer.UIWorkflow) string {
	lines := []string{
		"graph TD",
		"    classDef userAction fill:#4CAF50,stroke:#45a049,stroke-width:3px,color:#fff",
		"    classDef database fill:#2196F3,stroke:#1976D2,stroke-width:2px,color:#fff",
		"    classDef api fill:#FF9800,stroke:#F57C00,stroke-width:2px,color:#fff",
		"    classDef process fill:#9C27B0,stroke:#7B1FA2,stroke-width:2px,color:#fff",
		"    classDef result fill:#4CAF50,stroke:#45a049,stroke-width:2px,color:#fff",
		"",
		fmt.Sprintf(`    start["%s"]:::userAction`, escapeLabel(w.Trigger.Description)),
	}

	prev := "start"
	for _, step := range w.Steps {
		stepID := fmt.Sprintf("step%d", step.StepNumber)
		class := "process"
		switch step.Node.Type {
		case workflow.NodeDatabaseRead, workflow.NodeDatabaseWrite:
			class = "database"
		case workflow.NodeAPICall:
			class = "api"
		}
		lines = append(lines,
			fmt.Sprintf(`    %s["%s %s"]:::%s`, stepID, step.Icon, escapeLabel(step.Title), class),
			fmt.Sprintf("    %s --> %s", prev, stepID),
		)
		prev = stepID
	}

	lines = append(lines,
		fmt.Sprintf(`    result["%s"]:::result`, escapeLabel(w.Outcome)),
		fmt.Sprintf("    %s --> result", prev),
	)
	return strings.Join(lines, "\n")
}

// escapeLabel strips characters Mermaid treats as syntax.
func escapeLabel(s string) string {
	r := strings.NewReplacer(`"`, "'", "[", "(", "]", ")", "|", "/", "\n", " ")
	return r.Replace(s)
}
