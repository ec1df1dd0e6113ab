package scanner

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

var xamlEventPatterns = []eventPattern{
	{pat(`Click\s*=\s*"([^"]+)"`), "ui_click"},
	{pat(`MouseDown\s*=\s*"([^"]+)"`), "ui_click"},
	{pat(`MouseUp\s*=\s*"([^"]+)"`), "ui_click"},
	{pat(`SelectionChanged\s*=\s*"([^"]+)"`), "ui_change"},
	{pat(`TextChanged\s*=\s*"([^"]+)"`), "ui_change"},
	{pat(`KeyDown\s*=\s*"([^"]+)"`), "ui_keypress"},
	{pat(`KeyUp\s*=\s*"([^"]+)"`), "ui_keypress"},
	{pat(`Loaded\s*=\s*"([^"]+)"`), "page_load"},
	{pat(`PreviewMouseDown\s*=\s*"([^"]+)"`), "ui_click"},
}

// Event handler signatures in code-behind: private void Foo(object sender, ...EventArgs e).
var wpfHandlerMethodPatterns = []*regexp.Regexp{
	pat(`private\s+(?:async\s+)?void\s+(\w+)\s*\(\s*object\s+sender\s*,\s*(?:Routed)?EventArgs\s+\w+\s*\)`),
	pat(`private\s+(?:async\s+)?void\s+(\w+)\s*\(\s*object\s+sender\s*,\s*\w+EventArgs\s+\w+\s*\)`),
}

var wpfHTTPPatterns = []httpPattern{
	{pat(`\.GetAsync\s*\(\s*['"]([^'"]+)['"]`), "GET"},
	{pat(`\.PostAsync\s*\(\s*['"]([^'"]+)['"]`), "POST"},
	{pat(`\.PutAsync\s*\(\s*['"]([^'"]+)['"]`), "PUT"},
	{pat(`\.DeleteAsync\s*\(\s*['"]([^'"]+)['"]`), "DELETE"},
	{pat(`\.DownloadString\s*\(\s*['"]([^'"]+)['"]`), "GET"},
	{pat(`\.UploadString\s*\(\s*['"]([^'"]+)['"]`), "POST"},
}

var wpfWindowPatterns = []*regexp.Regexp{
	pat(`<Window\s+x:Class\s*=\s*"([^"]+)"`),
	pat(`<Page\s+x:Class\s*=\s*"([^"]+)"`),
	pat(`<UserControl\s+x:Class\s*=\s*"([^"]+)"`),
	pat(`public\s+partial\s+class\s+(\w+)\s*:\s*Window`),
	pat(`public\s+partial\s+class\s+(\w+)\s*:\s*Page`),
	pat(`public\s+partial\s+class\s+(\w+)\s*:\s*UserControl`),
}

// wpfPairWindow is the distance from a handler method to the HTTP calls it
// is assumed to make.
const wpfPairWindow = 50

// WPFScanner detects desktop UI workflows in WPF applications: XAML event
// attributes as triggers, HttpClient/WebClient calls in the code-behind as
// the API steps. A .xaml file pairs with its .xaml.cs sibling and vice versa,
// so either half of the pair yields the full trigger-to-call chain.
type WPFScanner struct {
	detect Detect
}

// NewWPFScanner returns a scanner for WPF XAML and code-behind files.
func NewWPFScanner(detect Detect) *WPFScanner {
	return &WPFScanner{detect: detect}
}

// CanScan accepts XAML markup and .xaml.cs code-behind files.
func (s *WPFScanner) CanScan(path string) bool {
	return strings.HasSuffix(path, ".xaml") || strings.HasSuffix(path, ".xaml.cs")
}

// ScanFile scans one WPF file, loading its markup or code-behind counterpart
// when present. A missing counterpart only costs the cross-file edges.
func (s *WPFScanner) ScanFile(path string, _ *workflow.SchemaRegistry) (*workflow.Graph, error) {
	content, err := readFileText(path)
	if err != nil {
		return nil, err
	}
	g := workflow.NewGraph()

	if strings.HasSuffix(path, ".xaml") {
		window := detectWindowName(content, path)
		triggers := s.scanXAMLTriggers(g, path, splitLines(content), window)

		if cb, err := readFileText(path + ".cs"); err == nil {
			cbLines := splitLines(cb)
			handlers := detectHandlerMethods(cbLines)
			var calls []httpCall
			if s.detect.APICalls {
				calls = s.scanHTTPCalls(g, path+".cs", cbLines)
			}
			s.pairTriggers(g, path, path+".cs", triggers, calls, handlers)
		}
		return g, nil
	}

	// Code-behind file.
	window := detectWindowName(content, path)
	lines := splitLines(content)
	handlers := detectHandlerMethods(lines)
	var calls []httpCall
	if s.detect.APICalls {
		calls = s.scanHTTPCalls(g, path, lines)
	}

	xamlPath := strings.TrimSuffix(path, ".cs")
	if xaml, err := readFileText(xamlPath); err == nil {
		triggers := s.scanXAMLTriggers(g, xamlPath, splitLines(xaml), window)
		s.pairTriggers(g, xamlPath, path, triggers, calls, handlers)
	}
	return g, nil
}

func (s *WPFScanner) scanXAMLTriggers(g *workflow.Graph, path string, lines []string, window string) []uiTrigger {
	var triggers []uiTrigger
	for i, line := range lines {
		n := i + 1
		for _, p := range xamlEventPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			handler := strings.TrimSpace(m[1])
			triggers = append(triggers, uiTrigger{
				triggerType: p.triggerType,
				component:   window,
				handler:     handler,
				line:        n,
			})
			g.AddNode(workflow.WorkflowNode{
				ID:          fmt.Sprintf("%s:ui_trigger:%d", path, n),
				Type:        workflow.NodeDataTransform,
				Name:        "WPF: " + triggerDisplayName(p.triggerType),
				Description: "WPF event binding in " + window,
				Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
				CodeSnippet: snippet(lines, n, 2),
				Metadata: map[string]string{
					"trigger_type":  p.triggerType,
					"window":        window,
					"handler":       handler,
					"is_ui_trigger": "true",
					"framework":     "WPF",
				},
			})
		}
	}
	return triggers
}

func (s *WPFScanner) scanHTTPCalls(g *workflow.Graph, path string, lines []string) []httpCall {
	var calls []httpCall
	for i, line := range lines {
		n := i + 1
		for _, p := range wpfHTTPPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			endpoint := m[1]
			calls = append(calls, httpCall{method: p.method, endpoint: endpoint, line: n})
			g.AddNode(workflow.WorkflowNode{
				ID:          fmt.Sprintf("%s:http:%d", path, n),
				Type:        workflow.NodeAPICall,
				Name:        "WPF HTTP " + p.method,
				Description: "WPF HTTP call to " + endpoint,
				Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
				Endpoint:    endpoint,
				Method:      p.method,
				CodeSnippet: snippet(lines, n, 2),
				Metadata: map[string]string{
					"library":          "HttpClient/WebClient",
					"is_frontend_call": "true",
					"framework":        "WPF",
				},
			})
			break
		}
	}
	return calls
}

// pairTriggers connects each XAML trigger to HTTP calls near its handler
// method when the handler is found in the code-behind, and falls back to a
// weaker whole-file proximity edge when it is not.
func (s *WPFScanner) pairTriggers(g *workflow.Graph, xamlPath, csPath string, triggers []uiTrigger, calls []httpCall, handlers map[string]int) {
	for _, t := range triggers {
		handlerLine, found := handlers[t.handler]
		for _, c := range calls {
			if found {
				dist := c.line - handlerLine
				if dist < 0 {
					dist = -dist
				}
				if dist > wpfPairWindow {
					continue
				}
				g.AddEdge(workflow.WorkflowEdge{
					Source: fmt.Sprintf("%s:ui_trigger:%d", xamlPath, t.line),
					Target: fmt.Sprintf("%s:http:%d", csPath, c.line),
					Label:  "WPF Event → HTTP Call",
					Metadata: map[string]string{
						"workflow_type": "wpf_ui_to_api",
						"trigger_type":  t.triggerType,
						"handler":       t.handler,
						"framework":     "WPF",
					},
				})
			} else {
				g.AddEdge(workflow.WorkflowEdge{
					Source: fmt.Sprintf("%s:ui_trigger:%d", xamlPath, t.line),
					Target: fmt.Sprintf("%s:http:%d", csPath, c.line),
					Label:  "WPF Event → HTTP Call (proximity)",
					Metadata: map[string]string{
						"workflow_type": "wpf_ui_to_api_proximity",
						"trigger_type":  t.triggerType,
						"handler":       t.handler,
						"framework":     "WPF",
					},
				})
			}
		}
	}
}

func detectHandlerMethods(lines []string) map[string]int {
	handlers := make(map[string]int)
	for i, line := range lines {
		for _, re := range wpfHandlerMethodPatterns {
			if m := re.FindStringSubmatch(line); m != nil {
				handlers[m[1]] = i + 1
				break
			}
		}
	}
	return handlers
}

func detectWindowName(content, path string) string {
	for _, re := range wpfWindowPatterns {
		if m := re.FindStringSubmatch(content); m != nil {
			name := m[1]
			if i := strings.LastIndex(name, "."); i >= 0 {
				name = name[i+1:]
			}
			return name
		}
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".cs")
	return strings.TrimSuffix(base, ".xaml")
}
