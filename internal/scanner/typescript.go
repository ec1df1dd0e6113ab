package scanner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

var tsHTTPPatterns = []*regexp.Regexp{
	pat(`(?i)http\.get`),
	pat(`(?i)http\.post`),
	pat(`(?i)http\.put`),
	pat(`(?i)http\.delete`),
	pat(`(?i)http\.patch`),
	pat(`fetch\s*\(`),
	pat(`axios\.`),
}

// Browser storage maps onto the cache node types.
var tsStoragePatterns = []*regexp.Regexp{
	pat(`localStorage\.setItem`),
	pat(`localStorage\.getItem`),
	pat(`sessionStorage\.setItem`),
	pat(`sessionStorage\.getItem`),
	pat(`indexedDB`),
}

var tsFilePatterns = []*regexp.Regexp{
	pat(`FileReader`),
	pat(`\.readAsText`),
	pat(`\.readAsDataURL`),
	pat(`Blob`),
}

// RxJS / array pipeline operators count as data transforms.
var tsTransformRe = pat(`\.(pipe|map|filter|reduce|switchMap|mergeMap|concatMap)\s*\(`)

var (
	tsURLLiteralRe    = pat("['\"`](https?://[^'\"`]+|/[^'\"`]*)['\"`]")
	tsAPIURLLiteralRe = pat("['\"`](https?://[^'\"`]+|/api/[^'\"`]*)['\"`]")
	tsTemplateRe      = pat("`([^`]*)`")
	storageKeyRe      = pat(`(?:getItem|setItem)\s*\(\s*['"]([^'"]+)['"]`)
	storageReadRe     = pat(`getItem|get`)
	tsReadRe          = pat(`(?i)read|Reader`)
)

var tsMethodPatterns = []httpPattern{
	{pat(`(?i)\.get\s*\(`), "GET"},
	{pat(`(?i)\.post\s*\(`), "POST"},
	{pat(`(?i)\.put\s*\(`), "PUT"},
	{pat(`(?i)\.delete\s*\(`), "DELETE"},
	{pat(`(?i)\.patch\s*\(`), "PATCH"},
}

// TypeScriptScanner is the generic TypeScript/JavaScript scanner: HTTP
// clients, browser storage, file APIs, and data-transform pipelines. The
// framework-specific React and Angular scanners take precedence for files
// they recognize.
type TypeScriptScanner struct {
	detect Detect
}

// NewTypeScriptScanner returns a generic TS/JS scanner.
func NewTypeScriptScanner(detect Detect) *TypeScriptScanner {
	return &TypeScriptScanner{detect: detect}
}

// CanScan accepts TypeScript and JavaScript files.
func (s *TypeScriptScanner) CanScan(path string) bool {
	return strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".js") ||
		strings.HasSuffix(path, ".tsx") || strings.HasSuffix(path, ".jsx")
}

// ScanFile scans one TypeScript/JavaScript file into a graph fragment.
func (s *TypeScriptScanner) ScanFile(path string, _ *workflow.SchemaRegistry) (*workflow.Graph, error) {
	content, err := readFileText(path)
	if err != nil {
		return nil, err
	}
	lines := splitLines(content)
	g := workflow.NewGraph()

	if s.detect.APICalls {
		s.scanHTTPCalls(g, path, lines)
	}
	if s.detect.FileIO {
		s.scanFileOperations(g, path, lines)
	}
	s.scanStorageOperations(g, path, lines)
	if s.detect.DataTransforms {
		s.scanDataTransforms(g, path, lines)
	}
	return g, nil
}

func (s *TypeScriptScanner) scanHTTPCalls(g *workflow.Graph, path string, lines []string) {
	for i, line := range lines {
		n := i + 1
		for _, re := range tsHTTPPatterns {
			if re.MatchString(line) {
				endpoint := extractTSEndpoint(line, lines, n)
				method := extractTSHTTPMethod(line)
				g.AddNode(workflow.WorkflowNode{
					ID:          fmt.Sprintf("%s:api:%d", path, n),
					Type:        workflow.NodeAPICall,
					Name:        fmt.Sprintf("API %s: %s", method, orUnknown(endpoint)),
					Description: "HTTP API call from TypeScript",
					Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
					Endpoint:    endpoint,
					Method:      method,
					CodeSnippet: snippet(lines, n, 2),
				})
				break
			}
		}
	}
}

func (s *TypeScriptScanner) scanFileOperations(g *workflow.Graph, path string, lines []string) {
	for i, line := range lines {
		n := i + 1
		for _, re := range tsFilePatterns {
			if re.MatchString(line) {
				typ := workflow.NodeFileWrite
				verb := "Write"
				if tsReadRe.MatchString(line) {
					typ = workflow.NodeFileRead
					verb = "Read"
				}
				g.AddNode(workflow.WorkflowNode{
					ID:          fmt.Sprintf("%s:file:%d", path, n),
					Type:        typ,
					Name:        "File " + verb,
					Description: "Browser file API operation",
					Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
					CodeSnippet: snippet(lines, n, 2),
				})
				break
			}
		}
	}
}

func (s *TypeScriptScanner) scanStorageOperations(g *workflow.Graph, path string, lines []string) {
	for i, line := range lines {
		n := i + 1
		for _, re := range tsStoragePatterns {
			if re.MatchString(line) {
				typ := workflow.NodeCacheWrite
				verb := "Write"
				if storageReadRe.MatchString(line) {
					typ = workflow.NodeCacheRead
					verb = "Read"
				}
				key := ""
				if m := storageKeyRe.FindStringSubmatch(line); m != nil {
					key = m[1]
				}
				g.AddNode(workflow.WorkflowNode{
					ID:          fmt.Sprintf("%s:cache:%d", path, n),
					Type:        typ,
					Name:        fmt.Sprintf("Cache %s: %s", verb, orUnknown(key)),
					Description: "Browser storage operation",
					Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
					CodeSnippet: snippet(lines, n, 2),
					Metadata:    map[string]string{"key": key},
				})
				break
			}
		}
	}
}

func (s *TypeScriptScanner) scanDataTransforms(g *workflow.Graph, path string, lines []string) {
	for i, line := range lines {
		n := i + 1
		if m := tsTransformRe.FindStringSubmatch(line); m != nil {
			operator := m[1]
			g.AddNode(workflow.WorkflowNode{
				ID:          fmt.Sprintf("%s:transform:%d", path, n),
				Type:        workflow.NodeDataTransform,
				Name:        "Data Transform: " + operator,
				Description: "Data transformation using " + operator,
				Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
				CodeSnippet: snippet(lines, n, 2),
				Metadata:    map[string]string{"operator": operator},
			})
		}
	}
}

// extractTSEndpoint finds a URL in string or template literals on the call
// line, then in nearby lines.
func extractTSEndpoint(line string, lines []string, lineNum int) string {
	if m := tsURLLiteralRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := tsTemplateRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	start := lineNum - 3
	if start < 0 {
		start = 0
	}
	for i := start; i < lineNum && i < len(lines); i++ {
		if m := tsAPIURLLiteralRe.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
	}
	return ""
}

func extractTSHTTPMethod(line string) string {
	for _, p := range tsMethodPatterns {
		if p.re.MatchString(line) {
			return p.method
		}
	}
	return "HTTP"
}
