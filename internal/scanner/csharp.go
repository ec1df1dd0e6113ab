package scanner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

// Entity Framework query calls.
var efQueryPatterns = []*regexp.Regexp{
	pat(`\.Where\s*\(`),
	pat(`\.Select\s*\(`),
	pat(`\.FirstOrDefault\s*\(`),
	pat(`\.ToList\s*\(`),
	pat(`\.Include\s*\(`),
	pat(`\.FromSql`),
}

// Entity Framework write/save calls.
var efWritePatterns = []*regexp.Regexp{
	pat(`\.Add\s*\(`),
	pat(`\.Update\s*\(`),
	pat(`\.Remove\s*\(`),
	pat(`\.SaveChanges`),
	pat(`\.SaveChangesAsync`),
}

// ADO.NET raw SQL execution.
var rawSQLPattern = pat(`SqlCommand|SqlDataAdapter|ExecuteReader|ExecuteScalar`)

var csHTTPPatterns = []*regexp.Regexp{
	pat(`HttpClient`),
	pat(`\.GetAsync\s*\(`),
	pat(`\.PostAsync\s*\(`),
	pat(`\.PutAsync\s*\(`),
	pat(`\.DeleteAsync\s*\(`),
	pat(`\.SendAsync\s*\(`),
}

var csFileIOPatterns = []*regexp.Regexp{
	pat(`File\.ReadAllText`),
	pat(`File\.WriteAllText`),
	pat(`File\.ReadAllLines`),
	pat(`File\.WriteAllLines`),
	pat(`StreamReader`),
	pat(`StreamWriter`),
	pat(`FileStream`),
}

var serviceBusPatterns = []*regexp.Regexp{
	pat(`ServiceBusSender`),
	pat(`ServiceBusReceiver`),
	pat(`SendMessageAsync`),
	pat(`ReceiveMessageAsync`),
}

var rabbitMQPatterns = []*regexp.Regexp{
	pat(`IModel\.BasicPublish`),
	pat(`IModel\.BasicConsume`),
	pat(`QueueDeclare`),
}

var (
	dbSetRefPattern     = pat(`DbSet<(\w+)>|_context\.(\w+)|_db\.(\w+)`)
	contextAssignRe     = pat(`var\s+\w+\s*=\s*\w+\.(\w+)`)
	sqlLiteralRe        = regexp.MustCompile(`(?is)"(SELECT|INSERT|UPDATE|DELETE).*?"`)
	urlLiteralRe        = pat(`"(https?://[^"]+|/[^"]*)"`)
	apiURLLiteralRe     = pat(`"(https?://[^"]+|/api/[^"]*)"`)
	fileLiteralRe       = pat(`"([^"]*\.[a-zA-Z]{2,4})"`)
	quotedLiteralRe     = pat(`"([^"]+)"`)
	queueDeclRe         = pat(`queueName\s*=\s*"([^"]+)"|CreateQueue\("([^"]+)"`)
	readIndicatorRe     = pat(`Read|Reader`)
	sendIndicatorRe     = pat(`Send|Sender`)
	publishIndicatorRe  = pat(`Publish`)
)

// tableNameWindow is how far back a scanner looks for a contextual entity
// declaration when the current line does not name one.
const tableNameWindow = 5

// CSharpScanner detects backend data workflows in C# source: Entity
// Framework reads and writes, raw ADO.NET SQL, HttpClient calls, file
// streams, and Azure Service Bus / RabbitMQ messaging.
type CSharpScanner struct {
	detect Detect
}

// NewCSharpScanner returns a C# scanner with the given detection toggles.
func NewCSharpScanner(detect Detect) *CSharpScanner {
	return &CSharpScanner{detect: detect}
}

// CanScan accepts .cs files. WPF code-behind (.xaml.cs) is claimed by the
// WPF scanner first via registry precedence.
func (s *CSharpScanner) CanScan(path string) bool {
	return strings.HasSuffix(path, ".cs")
}

// ScanFile scans one C# file into a graph fragment.
func (s *CSharpScanner) ScanFile(path string, schemas *workflow.SchemaRegistry) (*workflow.Graph, error) {
	content, err := readFileText(path)
	if err != nil {
		return nil, err
	}
	lines := splitLines(content)
	g := workflow.NewGraph()

	if s.detect.Database {
		s.scanDatabase(g, path, lines, schemas)
	}
	if s.detect.APICalls {
		s.scanHTTPCalls(g, path, lines)
	}
	if s.detect.FileIO {
		s.scanFileOperations(g, path, lines)
	}
	if s.detect.MessageQueues {
		s.scanMessageQueues(g, path, lines)
	}
	return g, nil
}

func (s *CSharpScanner) scanDatabase(g *workflow.Graph, path string, lines []string, schemas *workflow.SchemaRegistry) {
	for i, line := range lines {
		n := i + 1

		for _, re := range efQueryPatterns {
			if re.MatchString(line) {
				table := extractTableName(line, lines, n, schemas)
				g.AddNode(workflow.WorkflowNode{
					ID:          fmt.Sprintf("%s:db_read:%d", path, n),
					Type:        workflow.NodeDatabaseRead,
					Name:        "DB Query: " + orUnknown(table),
					Description: "Database query operation",
					Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
					TableName:   table,
					CodeSnippet: snippet(lines, n, 2),
					Metadata:    map[string]string{"pattern": re.String()},
				})
				break
			}
		}

		for _, re := range efWritePatterns {
			if re.MatchString(line) {
				table := extractTableName(line, lines, n, schemas)
				g.AddNode(workflow.WorkflowNode{
					ID:          fmt.Sprintf("%s:db_write:%d", path, n),
					Type:        workflow.NodeDatabaseWrite,
					Name:        "DB Write: " + orUnknown(table),
					Description: "Database write operation",
					Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
					TableName:   table,
					CodeSnippet: snippet(lines, n, 2),
					Metadata:    map[string]string{"pattern": re.String()},
				})
				break
			}
		}

		if rawSQLPattern.MatchString(line) {
			g.AddNode(workflow.WorkflowNode{
				ID:          fmt.Sprintf("%s:sql:%d", path, n),
				Type:        workflow.NodeDatabaseRead,
				Name:        "SQL Query",
				Description: "Raw SQL query execution",
				Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
				Query:       extractSQLQuery(lines, n),
				CodeSnippet: snippet(lines, n, 2),
			})
		}
	}
}

func (s *CSharpScanner) scanHTTPCalls(g *workflow.Graph, path string, lines []string) {
	for i, line := range lines {
		n := i + 1
		for _, re := range csHTTPPatterns {
			if re.MatchString(line) {
				method := extractCSHTTPMethod(line)
				g.AddNode(workflow.WorkflowNode{
					ID:          fmt.Sprintf("%s:api:%d", path, n),
					Type:        workflow.NodeAPICall,
					Name:        "API Call: " + method,
					Description: "HTTP API call",
					Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
					Endpoint:    extractEndpoint(line, lines, n),
					Method:      method,
					CodeSnippet: snippet(lines, n, 2),
				})
				break
			}
		}
	}
}

func (s *CSharpScanner) scanFileOperations(g *workflow.Graph, path string, lines []string) {
	for i, line := range lines {
		n := i + 1
		for _, re := range csFileIOPatterns {
			if re.MatchString(line) {
				typ := workflow.NodeFileWrite
				verb := "Write"
				if readIndicatorRe.MatchString(line) {
					typ = workflow.NodeFileRead
					verb = "Read"
				}
				g.AddNode(workflow.WorkflowNode{
					ID:          fmt.Sprintf("%s:file:%d", path, n),
					Type:        typ,
					Name:        "File " + verb,
					Description: fmt.Sprintf("File %s operation", strings.ToLower(verb)),
					Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
					FilePath:    extractFileTarget(line),
					CodeSnippet: snippet(lines, n, 2),
				})
				break
			}
		}
	}
}

func (s *CSharpScanner) scanMessageQueues(g *workflow.Graph, path string, lines []string) {
	for i, line := range lines {
		n := i + 1

		for _, re := range serviceBusPatterns {
			if re.MatchString(line) {
				typ := workflow.NodeMessageReceive
				verb := "Receive"
				if sendIndicatorRe.MatchString(line) {
					typ = workflow.NodeMessageSend
					verb = "Send"
				}
				g.AddNode(workflow.WorkflowNode{
					ID:          fmt.Sprintf("%s:msg:%d", path, n),
					Type:        typ,
					Name:        "Message " + verb,
					Description: "Azure Service Bus message operation",
					Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
					QueueName:   extractQueueName(line, lines, n),
					CodeSnippet: snippet(lines, n, 2),
					Metadata:    map[string]string{"platform": "Azure Service Bus"},
				})
				break
			}
		}

		for _, re := range rabbitMQPatterns {
			if re.MatchString(line) {
				typ := workflow.NodeMessageReceive
				verb := "Consume"
				if publishIndicatorRe.MatchString(line) {
					typ = workflow.NodeMessageSend
					verb = "Publish"
				}
				g.AddNode(workflow.WorkflowNode{
					ID:          fmt.Sprintf("%s:msg:%d", path, n),
					Type:        typ,
					Name:        "Message " + verb,
					Description: "RabbitMQ message operation",
					Location:    workflow.CodeLocation{FilePath: path, LineNumber: n},
					QueueName:   extractQueueName(line, lines, n),
					CodeSnippet: snippet(lines, n, 2),
					Metadata:    map[string]string{"platform": "RabbitMQ"},
				})
				break
			}
		}
	}
}

// extractTableName pulls an entity name from an EF call site: first the
// current line, then a small backward window for a contextual assignment.
// When the registry resolves the extracted name, the canonical table name is
// returned instead; an unresolved name passes through unchanged.
func extractTableName(line string, lines []string, lineNum int, schemas *workflow.SchemaRegistry) string {
	var entity string
	if m := dbSetRefPattern.FindStringSubmatch(line); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				entity = g
				break
			}
		}
	}
	if entity == "" {
		start := lineNum - tableNameWindow - 1
		if start < 0 {
			start = 0
		}
		for i := start; i < lineNum-1 && i < len(lines); i++ {
			if m := contextAssignRe.FindStringSubmatch(lines[i]); m != nil {
				entity = m[1]
				break
			}
		}
	}
	if entity == "" {
		return ""
	}
	return schemas.TableNameFor(entity)
}

// extractSQLQuery looks for a SQL string literal in the lines around lineNum.
func extractSQLQuery(lines []string, lineNum int) string {
	start := lineNum - 3
	if start < 0 {
		start = 0
	}
	end := lineNum + 2
	if end > len(lines) {
		end = len(lines)
	}
	context := strings.Join(lines[start:end], "\n")
	return sqlLiteralRe.FindString(context)
}

// extractEndpoint finds a URL literal on the call line or shortly before it.
func extractEndpoint(line string, lines []string, lineNum int) string {
	if m := urlLiteralRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	start := lineNum - 3
	if start < 0 {
		start = 0
	}
	for i := start; i < lineNum && i < len(lines); i++ {
		if m := apiURLLiteralRe.FindStringSubmatch(lines[i]); m != nil {
			return m[1]
		}
	}
	return ""
}

var csMethodPatterns = []httpPattern{
	{pat(`(?i)getAsync|\.get\(`), "GET"},
	{pat(`(?i)postAsync|\.post\(`), "POST"},
	{pat(`(?i)putAsync|\.put\(`), "PUT"},
	{pat(`(?i)deleteAsync|\.delete\(`), "DELETE"},
	{pat(`(?i)patchAsync|\.patch\(`), "PATCH"},
}

func extractCSHTTPMethod(line string) string {
	for _, p := range csMethodPatterns {
		if p.re.MatchString(line) {
			return p.method
		}
	}
	return "HTTP"
}

func extractFileTarget(line string) string {
	if m := fileLiteralRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

func extractQueueName(line string, lines []string, lineNum int) string {
	if m := quotedLiteralRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	start := lineNum - tableNameWindow - 1
	if start < 0 {
		start = 0
	}
	for i := start; i < lineNum && i < len(lines); i++ {
		if m := queueDeclRe.FindStringSubmatch(lines[i]); m != nil {
			if m[1] != "" {
				return m[1]
			}
			return m[2]
		}
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
