package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

// Angular binds events with parenthesized attributes in templates.
var angularEventPatterns = []eventPattern{
	{pat(`\(click\)\s*=\s*"([^"]+)"`), "ui_click"},
	{pat(`\(submit\)\s*=\s*"([^"]+)"`), "ui_submit"},
	{pat(`\(ngSubmit\)\s*=\s*"([^"]+)"`), "ui_submit"},
	{pat(`\(change\)\s*=\s*"([^"]+)"`), "ui_change"},
	{pat(`\(input\)\s*=\s*"([^"]+)"`), "ui_change"},
	{pat(`\(mousedown\)\s*=\s*"([^"]+)"`), "ui_click"},
	{pat(`\(keyup\)\s*=\s*"([^"]+)"`), "ui_keypress"},
}

// HttpClient calls, with and without a type parameter.
var angularHTTPPatterns = []httpPattern{
	{pat("this\\.http\\.get\\s*<[^>]+>\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "GET"},
	{pat("this\\.http\\.post\\s*<[^>]+>\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "POST"},
	{pat("this\\.http\\.put\\s*<[^>]+>\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "PUT"},
	{pat("this\\.http\\.delete\\s*<[^>]+>\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "DELETE"},
	{pat("this\\.http\\.patch\\s*<[^>]+>\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "PATCH"},
	{pat("this\\.http\\.get\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "GET"},
	{pat("this\\.http\\.post\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "POST"},
	{pat("this\\.http\\.put\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "PUT"},
	{pat("this\\.http\\.delete\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "DELETE"},
	{pat("this\\.http\\.patch\\s*\\(\\s*['\"`]([^'\"` ]+)['\"`]"), "PATCH"},
}

var angularComponentPatterns = []*regexp.Regexp{
	pat(`@Component\s*\(\s*\{[^}]*selector\s*:\s*['"]([^'"]+)['"]`),
	pat(`export\s+class\s+(\w+)Component`),
}

var angularRoutePatterns = []*regexp.Regexp{
	pat(`path\s*:\s*['"]([^'"]+)['"]`),
	pat(`this\.router\.navigate\s*\(\s*\[['"]([^'"]+)['"]`),
}

var templateURLRe = pat(`templateUrl\s*:\s*['"]([^'"]+)['"]`)

// angularPairWindow is larger than the React window: component classes and
// their templates tend to run longer than single-file components.
const angularPairWindow = 100

// AngularScanner detects UI workflows in Angular components: template event
// bindings as triggers, HttpClient calls as the API steps. For a .component.ts
// file it also loads the paired template (templateUrl, or the .component.html
// sibling) so a trigger in markup can connect to a call in the class.
type AngularScanner struct {
	detect Detect
}

// NewAngularScanner returns a scanner for Angular component files.
func NewAngularScanner(detect Detect) *AngularScanner {
	return &AngularScanner{detect: detect}
}

// CanScan accepts Angular component files and HTML templates. Plain .ts
// files fall through to the generic TypeScript scanner.
func (s *AngularScanner) CanScan(path string) bool {
	return strings.HasSuffix(path, ".component.ts") || strings.HasSuffix(path, ".html")
}

// ScanFile scans one Angular component or template file.
func (s *AngularScanner) ScanFile(path string, _ *workflow.SchemaRegistry) (*workflow.Graph, error) {
	content, err := readFileText(path)
	if err != nil {
		return nil, err
	}
	g := workflow.NewGraph()

	if strings.HasSuffix(path, ".html") {
		component := componentNameFromPath(path)
		url := detectAngularRoute(content)
		s.scanTemplateTriggers(g, path, splitLines(content), component, url)
		return g, nil
	}

	component := detectAngularComponentName(content, path)
	url := detectAngularRoute(content)

	var triggers []uiTrigger
	if strings.Contains(content, "@Component") {
		if template := loadTemplate(path, content); template != "" {
			triggers = s.scanTemplateTriggers(g, path, splitLines(template), component, url)
		}
	}

	var calls []httpCall
	if s.detect.APICalls {
		calls = s.scanHTTPCalls(g, path, splitLines(content))
	}

	s.pairTriggers(g, path, triggers, calls)
	return g, nil
}

func (s *AngularScanner) scanTemplateTriggers(g *workflow.Graph, path string, lines []string, component, url string) []uiTrigger {
	var triggers []uiTrigger
	for i, line := range lines {
		n := i + 1
		for _, p := range angularEventPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			handler := strings.TrimSpace(m[1])
			handler = strings.ReplaceAll(handler, "()", "")
			handler = strings.ReplaceAll(handler, "($event)", "")

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
				Name:        "Angular: " + triggerDisplayName(p.triggerType),
				Description: "Angular event binding in " + component,
				Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
				CodeSnippet: snippet(lines, n, 2),
				Metadata: map[string]string{
					"trigger_type":  p.triggerType,
					"component":     component,
					"handler":       handler,
					"url":           url,
					"is_ui_trigger": "true",
					"framework":     "Angular",
				},
			})
		}
	}
	return triggers
}

func (s *AngularScanner) scanHTTPCalls(g *workflow.Graph, path string, lines []string) []httpCall {
	var calls []httpCall
	for i, line := range lines {
		n := i + 1
		for _, p := range angularHTTPPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			endpoint := m[1]
			calls = append(calls, httpCall{method: p.method, endpoint: endpoint, line: n})
			g.AddNode(workflow.WorkflowNode{
				ID:          fmt.Sprintf("%s:http:%d", path, n),
				Type:        workflow.NodeAPICall,
				Name:        "Angular HTTP " + p.method,
				Description: "Angular HttpClient call to " + endpoint,
				Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
				Endpoint:    endpoint,
				Method:      p.method,
				CodeSnippet: snippet(lines, n, 2),
				Metadata: map[string]string{
					"library":          "HttpClient",
					"is_frontend_call": "true",
					"framework":        "Angular",
				},
			})
			break
		}
	}
	return calls
}

func (s *AngularScanner) pairTriggers(g *workflow.Graph, path string, triggers []uiTrigger, calls []httpCall) {
	for _, t := range triggers {
		for _, c := range calls {
			dist := c.line - t.line
			if dist < 0 {
				dist = -dist
			}
			if dist > angularPairWindow {
				continue
			}
			g.AddEdge(workflow.WorkflowEdge{
				Source: fmt.Sprintf("%s:ui_trigger:%d", path, t.line),
				Target: fmt.Sprintf("%s:http:%d", path, c.line),
				Label:  "Angular Event → HTTP Call",
				Metadata: map[string]string{
					"workflow_type": "angular_ui_to_api",
					"trigger_type":  t.triggerType,
					"url":           t.url,
					"framework":     "Angular",
				},
			})
		}
	}
}

func detectAngularComponentName(content, path string) string {
	for _, re := range angularComponentPatterns {
		if m := re.FindStringSubmatch(content); m != nil {
			name := strings.TrimPrefix(m[1], "app-")
			return titleWords(strings.ReplaceAll(name, "-", " "))
		}
	}
	return componentNameFromPath(path)
}

func componentNameFromPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.TrimSuffix(stem, ".component")
	return titleWords(strings.ReplaceAll(stem, "-", " "))
}

func detectAngularRoute(content string) string {
	for _, re := range angularRoutePatterns {
		if m := re.FindStringSubmatch(content); m != nil {
			return m[1]
		}
	}
	return ""
}

// loadTemplate resolves the component's template: the templateUrl reference
// first, then the sibling .component.html by naming convention. Missing
// templates are not an error.
func loadTemplate(tsPath, tsContent string) string {
	if m := templateURLRe.FindStringSubmatch(tsContent); m != nil {
		templatePath := filepath.Join(filepath.Dir(tsPath), m[1])
		if content, err := readFileText(templatePath); err == nil {
			return content
		}
	}
	htmlPath := strings.TrimSuffix(tsPath, ".ts") + ".html"
	if _, err := os.Stat(htmlPath); err == nil {
		if content, err := readFileText(htmlPath); err == nil {
			return content
		}
	}
	return ""
}

func titleWords(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
