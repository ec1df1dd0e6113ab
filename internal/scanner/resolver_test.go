package scanner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dbContextSrc = `using Microsoft.EntityFrameworkCore;

public class AppDbContext : DbContext
{
    public DbSet<User> Users { get; set; }
    public DbSet<Order> CustomerOrders { get; set; }
}
`

const entitySrc = `using System.ComponentModel.DataAnnotations.Schema;

[Table("tbl_invoices")]
public class Invoice
{
    public int Id { get; set; }
    public decimal Total { get; set; }
}

public class NotAnEntity
{
    public int X { get; set; }
}
`

func TestSchemaResolver_DbSets(t *testing.T) {
	path := writeFixture(t, "AppDbContext.cs", dbContextSrc)

	r := &SchemaResolver{}
	registry := r.Resolve([]string{path})

	assert.Equal(t, "Users", registry.TableNameFor("User"))
	assert.Equal(t, "CustomerOrders", registry.TableNameFor("Order"))

	// Registered under the table name too.
	assert.Equal(t, "CustomerOrders", registry.TableNameFor("CustomerOrders"))
}

func TestSchemaResolver_EntityClasses(t *testing.T) {
	path := writeFixture(t, "Invoice.cs", entitySrc)

	r := &SchemaResolver{}
	registry := r.Resolve([]string{path})

	schema := registry.Resolve("Invoice")
	require.NotNil(t, schema)
	assert.Equal(t, "tbl_invoices", schema.TableName)
	assert.Equal(t, []string{"Id", "Total"}, schema.Properties)
	assert.Equal(t, "true", schema.Metadata["has_table_attribute"])

	// Single-property classes don't pass the entity heuristic.
	assert.Nil(t, registry.Resolve("NotAnEntity"))
}

func TestSchemaResolver_EntityHeuristics(t *testing.T) {
	tests := []struct {
		name  string
		props []string
		want  bool
	}{
		{"too few", []string{"Total"}, false},
		{"two with identity", []string{"Id", "Total"}, true},
		{"two without identity", []string{"Total", "Discount"}, false},
		{"three plain", []string{"Total", "Discount", "Tax"}, true},
		{"audit field", []string{"CreatedAt", "Payload"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeEntity(tt.props))
		})
	}
}

func TestSchemaResolver_FileCap(t *testing.T) {
	var paths []string
	for i := 0; i < 3; i++ {
		src := fmt.Sprintf(`public class Entity%d
{
    public int Id { get; set; }
    public string Name { get; set; }
}
`, i)
		paths = append(paths, writeFixture(t, fmt.Sprintf("Entity%d.cs", i), src))
	}

	r := &SchemaResolver{MaxFiles: 2}
	registry := r.Resolve(paths)

	assert.NotNil(t, registry.Resolve("Entity0"))
	assert.NotNil(t, registry.Resolve("Entity1"))
	assert.Nil(t, registry.Resolve("Entity2"), "files past the cap are not examined")
}

func TestSchemaResolver_SkipsNonBackendFiles(t *testing.T) {
	tsPath := writeFixture(t, "model.ts", "export class User {}")

	r := &SchemaResolver{}
	registry := r.Resolve([]string{tsPath})
	assert.Equal(t, 0, registry.Len())
}

func TestSchemaResolver_Unreadable(t *testing.T) {
	r := &SchemaResolver{}
	registry := r.Resolve([]string{"/nonexistent/Missing.cs"})
	assert.Equal(t, 0, registry.Len())
}
