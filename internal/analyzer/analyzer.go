// Package analyzer turns a scanned workflow graph into user-facing workflow
// stories: it finds UI entry points, walks what they reach, and narrates the
// steps in plain language.
package analyzer

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

// UIInteraction is a UI entry point found in the graph: a button click, a
// form submit, a page load.
type UIInteraction struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Component       string                `json:"component"`
	InteractionType string                `json:"interaction_type"`
	Location        string                `json:"location"`
	Description     string                `json:"description"`
	Node            workflow.WorkflowNode `json:"-"`
}

// WorkflowStep is one narrated step of a workflow.
type WorkflowStep struct {
	StepNumber       int                   `json:"step_number"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	TechnicalDetails string                `json:"technical_details"`
	Icon             string                `json:"icon"`
	Node             workflow.WorkflowNode `json:"-"`
}

// UIWorkflow is a complete story from user action to outcome.
type UIWorkflow struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Trigger UIInteraction  `json:"trigger"`
	Steps   []WorkflowStep `json:"steps"`
	Summary string         `json:"summary"`
	Outcome string         `json:"outcome"`
}

// ToStory renders the workflow as a markdown narrative.
func (w *UIWorkflow) ToStory() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", w.Name)
	fmt.Fprintf(&b, "\n**What happens:** %s\n", w.Summary)
	fmt.Fprintf(&b, "\n**User action:** %s\n", w.Trigger.Description)
	b.WriteString("\n## Workflow Steps:\n")
	for _, step := range w.Steps {
		fmt.Fprintf(&b, "\n%s **Step %d: %s**\n", step.Icon, step.StepNumber, step.Title)
		fmt.Fprintf(&b, "%s\n", step.Description)
		fmt.Fprintf(&b, "_Technical: %s_\n", step.TechnicalDetails)
	}
	fmt.Fprintf(&b, "\n**Result:** %s\n", w.Outcome)
	return b.String()
}

// uiKeywords mark a node name as a UI interaction.
var uiKeywords = []string{
	"onclick", "onsubmit", "button", "click", "submit",
	"handlesubmit", "handleclick", "onsave", "onload",
	"eventhandler", "command", "action",
}

var stepIcons = map[workflow.NodeType]string{
	workflow.NodeDatabaseRead:   "📖",
	workflow.NodeDatabaseWrite:  "💾",
	workflow.NodeAPICall:        "🌐",
	workflow.NodeFileRead:       "📄",
	workflow.NodeFileWrite:      "📝",
	workflow.NodeMessageSend:    "📤",
	workflow.NodeMessageReceive: "📥",
	workflow.NodeDataTransform:  "⚙️",
	workflow.NodeCacheRead:      "🔍",
	workflow.NodeCacheWrite:     "💿",
}

// Analyzer extracts UI workflows from one graph.
type Analyzer struct {
	graph *workflow.Graph
}

// New returns an Analyzer over the given graph.
func New(g *workflow.Graph) *Analyzer {
	return &Analyzer{graph: g}
}

// Analyze finds every UI entry point and builds its workflow. Workflows with
// no reachable steps are dropped.
func (a *Analyzer) Analyze() []UIWorkflow {
	var workflows []UIWorkflow
	for _, interaction := range a.Interactions() {
		w := a.buildWorkflow(interaction)
		if len(w.Steps) > 0 {
			workflows = append(workflows, w)
		}
	}
	return workflows
}

// Interactions returns the UI entry points in node order.
func (a *Analyzer) Interactions() []UIInteraction {
	var interactions []UIInteraction
	for i := range a.graph.Nodes {
		node := &a.graph.Nodes[i]
		if !isUIInteraction(node) {
			continue
		}
		interactions = append(interactions, newInteraction(node))
	}
	return interactions
}

func isUIInteraction(node *workflow.WorkflowNode) bool {
	name := strings.ToLower(node.Name)
	for _, kw := range uiKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func newInteraction(node *workflow.WorkflowNode) UIInteraction {
	name := HumanizeName(node.Name)
	lower := strings.ToLower(node.Name)

	interactionType := "button_click"
	description := "User interacts with " + name
	switch {
	case strings.Contains(lower, "submit"):
		interactionType = "form_submit"
		description = "User submits " + name
	case strings.Contains(lower, "save"):
		description = "User clicks " + name
	case strings.Contains(lower, "load"):
		interactionType = "page_load"
		description = "User navigates to " + name
	case strings.Contains(lower, "delete"):
		description = "User clicks " + name
	}

	base := filepath.Base(node.Location.FilePath)
	component := strings.TrimSuffix(base, filepath.Ext(base))

	return UIInteraction{
		ID:              node.ID,
		Name:            name,
		Component:       component,
		InteractionType: interactionType,
		Location:        node.Location.FilePath,
		Description:     description,
		Node:            *node,
	}
}

// buildWorkflow walks everything reachable from the trigger and narrates it.
// Traversal establishes reachability; the steps are then re-sorted by file
// and line to approximate execution order, which reads better than BFS order.
func (a *Analyzer) buildWorkflow(interaction UIInteraction) UIWorkflow {
	w := UIWorkflow{
		ID:      "workflow_" + interaction.ID,
		Name:    interaction.Name,
		Trigger: interaction,
	}

	reachable := a.reachableFrom(interaction.ID)
	sort.Slice(reachable, func(i, j int) bool {
		li, lj := reachable[i].Location, reachable[j].Location
		if li.FilePath != lj.FilePath {
			return li.FilePath < lj.FilePath
		}
		return li.LineNumber < lj.LineNumber
	})

	for i, node := range reachable {
		w.Steps = append(w.Steps, newStep(node, i+1))
	}
	w.Summary = summarize(w.Steps)
	w.Outcome = outcome(w.Steps)
	return w
}

// reachableFrom is a breadth-first walk over outgoing edges. The visited set
// is load-bearing: proximity edges routinely form cycles.
func (a *Analyzer) reachableFrom(startID string) []workflow.WorkflowNode {
	start := a.graph.Node(startID)
	if start == nil {
		return nil
	}

	visited := map[string]bool{}
	queue := []string{startID}
	var reachable []workflow.WorkflowNode

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		node := a.graph.Node(id)
		if node == nil {
			continue
		}
		reachable = append(reachable, *node)

		for _, edge := range a.graph.OutgoingEdges(id) {
			if !visited[edge.Target] {
				queue = append(queue, edge.Target)
			}
		}
	}
	return reachable
}

func newStep(node workflow.WorkflowNode, number int) WorkflowStep {
	icon, ok := stepIcons[node.Type]
	if !ok {
		icon = "•"
	}

	var title, description, technical string
	switch node.Type {
	case workflow.NodeDatabaseWrite:
		table := orDefault(node.TableName, "database")
		title = "Save data to " + table
		description = fmt.Sprintf("The system saves the information to the %s table.", table)
		technical = "Database INSERT/UPDATE: " + node.TableName
	case workflow.NodeDatabaseRead:
		table := orDefault(node.TableName, "database")
		title = "Retrieve data from " + table
		description = fmt.Sprintf("The system looks up existing information from the %s table.", table)
		technical = "Database SELECT: " + node.TableName
	case workflow.NodeAPICall:
		title = fmt.Sprintf("Call %s %s", orDefault(node.Method, "API"), HumanizeEndpoint(node.Endpoint))
		description = fmt.Sprintf("The system communicates with an external service at %s.",
			orDefault(node.Endpoint, "an external endpoint"))
		technical = fmt.Sprintf("API %s: %s", node.Method, node.Endpoint)
	case workflow.NodeDataTransform:
		title = "Process and transform data"
		description = "The system transforms the data into the required format."
		technical = "Data transformation: " + node.Name
	case workflow.NodeFileWrite:
		title = "Write to file"
		description = "The system saves information to a file."
		technical = "File write: " + orDefault(node.FilePath, "unknown")
	case workflow.NodeFileRead:
		title = "Read from file"
		description = "The system reads information from a file."
		technical = "File read: " + orDefault(node.FilePath, "unknown")
	default:
		title = HumanizeName(node.Name)
		description = orDefault(node.Description, "The system performs an operation.")
		technical = fmt.Sprintf("%s: %s", node.Type, node.Name)
	}

	return WorkflowStep{
		StepNumber:       number,
		Title:            title,
		Description:      description,
		TechnicalDetails: technical,
		Icon:             icon,
		Node:             node,
	}
}

// summarize composes one sentence from the step type counts.
func summarize(steps []WorkflowStep) string {
	if len(steps) == 0 {
		return "This workflow performs a simple operation."
	}

	var reads, writes, calls int
	for _, s := range steps {
		switch s.Node.Type {
		case workflow.NodeDatabaseRead:
			reads++
		case workflow.NodeDatabaseWrite:
			writes++
		case workflow.NodeAPICall:
			calls++
		}
	}

	var parts []string
	if reads > 0 {
		parts = append(parts, fmt.Sprintf("retrieves data from %d database table(s)", reads))
	}
	if calls > 0 {
		parts = append(parts, fmt.Sprintf("calls %d external service(s)", calls))
	}
	if writes > 0 {
		parts = append(parts, fmt.Sprintf("saves data to %d database table(s)", writes))
	}
	if len(parts) > 0 {
		return "This workflow " + strings.Join(parts, ", then ") + "."
	}
	return fmt.Sprintf("This workflow performs %d operation(s).", len(steps))
}

// outcome keys the closing sentence off the last step's type.
func outcome(steps []WorkflowStep) string {
	if len(steps) == 0 {
		return "The action completes."
	}
	switch steps[len(steps)-1].Node.Type {
	case workflow.NodeDatabaseWrite:
		return "The data is saved and the user sees a success confirmation."
	case workflow.NodeDatabaseRead:
		return "The data is retrieved and displayed to the user."
	case workflow.NodeAPICall:
		return "The external service responds and the result is shown to the user."
	default:
		return "The action completes and the user sees the result."
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
