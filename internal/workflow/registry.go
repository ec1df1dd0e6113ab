package workflow

// TableSchema maps an entity declaration to its database table. Produced by
// the schema resolver pre-pass and consumed read-only by the main scan pass.
type TableSchema struct {
	EntityName string            `json:"entity_name"`
	TableName  string            `json:"table_name"`
	FilePath   string            `json:"file_path"`
	LineNumber int               `json:"line_number"`
	DbSetName  string            `json:"dbset_name,omitempty"`
	Properties []string          `json:"properties,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SchemaRegistry resolves entity or table names to their canonical schema.
// Each schema is registered under both its entity name and its table name so
// either resolves to the same entry. The registry is built once before the
// main scan and treated as read-only afterwards, which makes it safe to share
// across scan workers without locking.
type SchemaRegistry struct {
	byName  map[string]*TableSchema
	schemas []*TableSchema
}

// NewSchemaRegistry returns an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{byName: make(map[string]*TableSchema)}
}

// Register stores schema under both its entity and table names.
// The first registration for a name wins.
func (r *SchemaRegistry) Register(schema TableSchema) {
	s := &schema
	r.schemas = append(r.schemas, s)
	if _, ok := r.byName[s.EntityName]; !ok && s.EntityName != "" {
		r.byName[s.EntityName] = s
	}
	if _, ok := r.byName[s.TableName]; !ok && s.TableName != "" {
		r.byName[s.TableName] = s
	}
}

// Resolve returns the schema registered under name, or nil.
func (r *SchemaRegistry) Resolve(name string) *TableSchema {
	if r == nil {
		return nil
	}
	return r.byName[name]
}

// TableNameFor maps an extracted entity name to its canonical table name.
// Unregistered names are returned unchanged: the registry enriches node
// creation but never blocks it.
func (r *SchemaRegistry) TableNameFor(name string) string {
	if s := r.Resolve(name); s != nil {
		return s.TableName
	}
	return name
}

// Schemas returns every registered schema in registration order.
func (r *SchemaRegistry) Schemas() []TableSchema {
	out := make([]TableSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, *s)
	}
	return out
}

// Len returns the number of registered schemas.
func (r *SchemaRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.schemas)
}
