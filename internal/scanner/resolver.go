package scanner

import (
	"strings"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

var (
	dbContextClassRe = pat(`class\s+\w+\s*:\s*DbContext`)
	dbSetPropertyRe  = pat(`DbSet<(\w+)>\s+(\w+)`)
	tableAttributeRe = pat(`\[Table\("([^"]+)"\)\]`)
	classDeclRe      = pat(`class\s+(\w+)`)
	autoPropertyRe   = pat(`public\s+\w+\??(\[\])?\s+(\w+)\s*\{\s*get;`)
)

// commonEntityProps are identity and audit field names that mark a POCO as
// a likely database entity.
var commonEntityProps = map[string]bool{
	"Id":        true,
	"ID":        true,
	"Name":      true,
	"CreatedAt": true,
	"UpdatedAt": true,
	"Created":   true,
	"Modified":  true,
}

// DefaultMaxSchemaFiles caps the resolver pre-pass. Monorepos can carry
// thousands of generated entity files and an uncapped pass times out on them.
const DefaultMaxSchemaFiles = 500

// SchemaResolver runs before the main scan: it walks backend source and
// records entity-to-table mappings from DbContext DbSet properties and from
// entity class declarations. The registry it produces is read-only for the
// rest of the scan.
type SchemaResolver struct {
	// MaxFiles bounds how many backend files the pre-pass examines.
	// Zero means DefaultMaxSchemaFiles.
	MaxFiles int
}

// Resolve scans the given backend files and returns the populated registry.
// Unreadable files are skipped; the pre-pass never fails the scan.
func (r *SchemaResolver) Resolve(paths []string) *workflow.SchemaRegistry {
	registry := workflow.NewSchemaRegistry()
	limit := r.MaxFiles
	if limit <= 0 {
		limit = DefaultMaxSchemaFiles
	}

	examined := 0
	for _, path := range paths {
		if !strings.HasSuffix(path, ".cs") {
			continue
		}
		if examined >= limit {
			break
		}
		examined++

		content, err := readFileText(path)
		if err != nil {
			continue
		}
		lines := splitLines(content)
		for _, schema := range detectDbSets(path, lines) {
			registry.Register(schema)
		}
		for _, schema := range detectEntityClasses(path, lines) {
			registry.Register(schema)
		}
	}
	return registry
}

// detectDbSets finds DbSet<Entity> properties inside DbContext classes. The
// DbSet property name is taken as the table name, which matches EF's default
// pluralized naming.
func detectDbSets(path string, lines []string) []workflow.TableSchema {
	var schemas []workflow.TableSchema
	inContext := false

	for i, line := range lines {
		n := i + 1
		if dbContextClassRe.MatchString(line) {
			inContext = true
			continue
		}
		if inContext {
			if m := dbSetPropertyRe.FindStringSubmatch(line); m != nil {
				schemas = append(schemas, workflow.TableSchema{
					EntityName: m[1],
					TableName:  m[2],
					FilePath:   path,
					LineNumber: n,
					DbSetName:  m[2],
					Metadata: map[string]string{
						"source":        "DbContext",
						"detected_from": "DbSet",
					},
				})
			}
			// Closing brace ends the context class. Good enough for the
			// common one-class-per-file layout.
			if strings.TrimSpace(line) == "}" {
				inContext = false
			}
		}
	}
	return schemas
}

// detectEntityClasses finds POCO entity declarations. A [Table("...")]
// attribute overrides the default table name, which is the class name.
func detectEntityClasses(path string, lines []string) []workflow.TableSchema {
	var schemas []workflow.TableSchema

	currentClass := ""
	currentLine := 0
	classAttribute := ""
	pendingAttribute := ""
	var properties []string

	flush := func() {
		if currentClass == "" || !looksLikeEntity(properties) {
			return
		}
		tableName := classAttribute
		if tableName == "" {
			tableName = currentClass
		}
		hasAttr := "false"
		if classAttribute != "" {
			hasAttr = "true"
		}
		schemas = append(schemas, workflow.TableSchema{
			EntityName: currentClass,
			TableName:  tableName,
			FilePath:   path,
			LineNumber: currentLine,
			Properties: append([]string(nil), properties...),
			Metadata: map[string]string{
				"source":              "Entity",
				"has_table_attribute": hasAttr,
			},
		})
	}

	for i, line := range lines {
		n := i + 1
		if m := tableAttributeRe.FindStringSubmatch(line); m != nil {
			pendingAttribute = m[1]
			continue
		}
		if m := classDeclRe.FindStringSubmatch(line); m != nil {
			flush()
			currentClass = m[1]
			currentLine = n
			classAttribute = pendingAttribute
			pendingAttribute = ""
			properties = properties[:0]
			continue
		}
		if currentClass != "" {
			if m := autoPropertyRe.FindStringSubmatch(line); m != nil {
				properties = append(properties, m[2])
			}
		}
	}
	flush()
	return schemas
}

// looksLikeEntity reports whether a class shape suggests a database entity:
// at least two properties plus a common identity/audit name, or three or
// more properties outright.
func looksLikeEntity(properties []string) bool {
	if len(properties) < 2 {
		return false
	}
	for _, p := range properties {
		if commonEntityProps[p] {
			return true
		}
	}
	return len(properties) >= 3
}
