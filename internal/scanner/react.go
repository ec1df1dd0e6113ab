package scanner

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

var reactEventPatterns = []eventPattern{
	{pat(`onClick\s*=\s*\{([^\}]+)\}`), "ui_click"},
	{pat(`onSubmit\s*=\s*\{([^\}]+)\}`), "ui_submit"},
	{pat(`onChange\s*=\s*\{([^\}]+)\}`), "ui_change"},
	{pat(`onLoad\s*=\s*\{([^\}]+)\}`), "page_load"},
}

var reactComponentPatterns = []*regexp.Regexp{
	pat(`export\s+(?:default\s+)?(?:function|const)\s+(\w+)`),
	pat(`const\s+(\w+)\s*[=:]\s*\([^)]*\)\s*(?:=>|:)`),
	pat(`function\s+(\w+)\s*\([^)]*\)`),
}

var reactRoutePatterns = []*regexp.Regexp{
	pat(`<Route\s+path\s*=\s*['"]([^'"]+)['"]`),
	pat(`path\s*:\s*['"]([^'"]+)['"]`),
	pat(`href\s*=\s*['"]([^'"]+)['"]`),
}

var (
	reactFetchRe      = pat(`(?i)fetch\s*\(\s*['"]([^'"]+)['"](?:.*?method\s*:\s*['"](\w+)['"])?`)
	reactAxiosRe      = pat(`(?i)axios\.(get|post|put|delete|patch)\s*\(\s*['"]([^'"]+)['"]`)
	reactHTTPClientRe = pat(`(?i)http\.(get|post|put|delete|patch)\s*\(\s*['"]([^'"]+)['"]`)
	fetchMethodRe     = pat(`(?i)method\s*:\s*['"](\w+)['"]`)
)

// reactPairWindow is the line distance within which a UI trigger is linked
// to an HTTP call in the same component.
const reactPairWindow = 50

type uiTrigger struct {
	triggerType string
	component   string
	handler     string
	line        int
	url         string
}

type httpCall struct {
	method   string
	endpoint string
	line     int
}

// ReactScanner detects UI workflows in React/Next.js components: event
// handlers as triggers, fetch/axios calls as the API steps they lead to.
type ReactScanner struct {
	detect Detect
}

// NewReactScanner returns a scanner for React component files.
func NewReactScanner(detect Detect) *ReactScanner {
	return &ReactScanner{detect: detect}
}

// CanScan accepts JSX-flavored files only; plain .ts/.js stays with the
// generic TypeScript scanner.
func (s *ReactScanner) CanScan(path string) bool {
	return strings.HasSuffix(path, ".tsx") || strings.HasSuffix(path, ".jsx")
}

// ScanFile scans one React component file.
func (s *ReactScanner) ScanFile(path string, _ *workflow.SchemaRegistry) (*workflow.Graph, error) {
	content, err := readFileText(path)
	if err != nil {
		return nil, err
	}
	lines := splitLines(content)
	g := workflow.NewGraph()

	component := detectComponentName(path, content, reactComponentPatterns)
	url := detectRoute(content)

	triggers := s.scanUITriggers(g, path, lines, component, url)

	var calls []httpCall
	if s.detect.APICalls {
		calls = s.scanHTTPCalls(g, path, lines)
	}

	pairTriggersToCalls(g, path, triggers, calls, reactPairWindow)
	return g, nil
}

func (s *ReactScanner) scanUITriggers(g *workflow.Graph, path string, lines []string, component, url string) []uiTrigger {
	var triggers []uiTrigger
	for i, line := range lines {
		n := i + 1
		for _, p := range reactEventPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			handler := cleanHandlerName(m[1])
			triggers = append(triggers, uiTrigger{
				triggerType: p.triggerType,
				component:   component,
				handler:     handler,
				line:        n,
				url:         url,
			})
			g.AddNode(workflow.WorkflowNode{
				ID:          fmt.Sprintf("%s:ui_trigger:%d", path, n),
				Type:        workflow.NodeDataTransform,
				Name:        "UI: " + triggerDisplayName(p.triggerType),
				Description: "User interaction in " + component,
				Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
				CodeSnippet: snippet(lines, n, 2),
				Metadata: map[string]string{
					"trigger_type":  p.triggerType,
					"component":     component,
					"handler":       handler,
					"url":           url,
					"is_ui_trigger": "true",
				},
			})
		}
	}
	return triggers
}

func (s *ReactScanner) scanHTTPCalls(g *workflow.Graph, path string, lines []string) []httpCall {
	var calls []httpCall
	for i, line := range lines {
		n := i + 1
		var method, endpoint, library string
		if m := reactFetchRe.FindStringSubmatch(line); m != nil {
			endpoint = m[1]
			method = strings.ToUpper(m[2])
			if method == "" {
				method = fetchMethodFromContext(lines, n)
			}
			if method == "" {
				method = "GET"
			}
			library = "fetch"
		} else if m := reactAxiosRe.FindStringSubmatch(line); m != nil {
			method = strings.ToUpper(m[1])
			endpoint = m[2]
			library = "axios"
		} else if m := reactHTTPClientRe.FindStringSubmatch(line); m != nil {
			method = strings.ToUpper(m[1])
			endpoint = m[2]
			library = "http"
		} else {
			continue
		}

		calls = append(calls, httpCall{method: method, endpoint: endpoint, line: n})
		g.AddNode(workflow.WorkflowNode{
			ID:          fmt.Sprintf("%s:http:%d", path, n),
			Type:        workflow.NodeAPICall,
			Name:        "HTTP " + method,
			Description: "Frontend API call to " + endpoint,
			Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
			Endpoint:    endpoint,
			Method:      method,
			CodeSnippet: snippet(lines, n, 2),
			Metadata: map[string]string{
				"library":          library,
				"is_frontend_call": "true",
			},
		})
	}
	return calls
}

// pairTriggersToCalls links each UI trigger to every HTTP call within the
// pairing window, in either direction. Shared by the frontend scanners.
func pairTriggersToCalls(g *workflow.Graph, path string, triggers []uiTrigger, calls []httpCall, window int) {
	for _, t := range triggers {
		for _, c := range calls {
			dist := c.line - t.line
			if dist < 0 {
				dist = -dist
			}
			if dist > window {
				continue
			}
			g.AddEdge(workflow.WorkflowEdge{
				Source: fmt.Sprintf("%s:ui_trigger:%d", path, t.line),
				Target: fmt.Sprintf("%s:http:%d", path, c.line),
				Label:  "User Action → API Call",
				Metadata: map[string]string{
					"workflow_type": "ui_to_api",
					"trigger_type":  t.triggerType,
					"url":           t.url,
				},
			})
		}
	}
}

func detectComponentName(path, content string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func detectRoute(content string) string {
	for _, re := range reactRoutePatterns {
		if m := re.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}
	return ""
}

func fetchMethodFromContext(lines []string, lineNum int) string {
	start := lineNum - 3
	if start < 0 {
		start = 0
	}
	end := lineNum + 2
	if end > len(lines) {
		end = len(lines)
	}
	context := strings.Join(lines[start:end], " ")
	if m := fetchMethodRe.FindStringSubmatch(context); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

func cleanHandlerName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "()", "")
	s = strings.ReplaceAll(s, "(", "")
	return strings.ReplaceAll(s, ")", "")
}

// triggerDisplayName turns "ui_click" into "Click" and "page_load" into
// "Page Load".
func triggerDisplayName(triggerType string) string {
	t := strings.TrimPrefix(triggerType, "ui_")
	parts := strings.Split(t, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
