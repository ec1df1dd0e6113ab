package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const orderServiceSrc = `using System;

public class OrderService
{
    private readonly AppDbContext _context;

    public List<Order> GetOrders()
    {
        return _context.Orders.Where(o => o.Active).ToList();
    }

    public void Save(Order order)
    {
        _context.Orders.Add(order);
        _context.SaveChanges();
    }

    public async Task Notify()
    {
        var client = new HttpClient();
        await client.PostAsync("https://api.example.com/notify", content);
    }

    public string LoadConfig()
    {
        return File.ReadAllText("config.json");
    }
}
`

func TestCSharpScanner_DatabaseNodes(t *testing.T) {
	path := writeFixture(t, "OrderService.cs", orderServiceSrc)

	s := NewCSharpScanner(DetectAll())
	g, err := s.ScanFile(path, nil)
	require.NoError(t, err)

	reads := g.NodesByType(workflow.NodeDatabaseRead)
	require.Len(t, reads, 1)
	assert.Equal(t, "Orders", reads[0].TableName)
	assert.Equal(t, 9, reads[0].Location.LineNumber)

	writes := g.NodesByType(workflow.NodeDatabaseWrite)
	require.Len(t, writes, 2)
	for _, w := range writes {
		assert.Contains(t, w.ID, ":db_write:")
	}
}

func TestCSharpScanner_HTTPAndFileNodes(t *testing.T) {
	path := writeFixture(t, "OrderService.cs", orderServiceSrc)

	s := NewCSharpScanner(DetectAll())
	g, err := s.ScanFile(path, nil)
	require.NoError(t, err)

	// Both the HttpClient construction and the PostAsync call emit nodes.
	apis := g.NodesByType(workflow.NodeAPICall)
	require.Len(t, apis, 2)
	var post *workflow.WorkflowNode
	for i := range apis {
		if apis[i].Method == "POST" {
			post = &apis[i]
		}
	}
	require.NotNil(t, post)
	assert.Equal(t, "https://api.example.com/notify", post.Endpoint)

	files := g.NodesByType(workflow.NodeFileRead)
	require.Len(t, files, 1)
	assert.Equal(t, "config.json", files[0].FilePath)
}

func TestCSharpScanner_RegistryCanonicalizesTableName(t *testing.T) {
	src := `public class UserService
{
    public User Find(int id)
    {
        return _context.User.FirstOrDefault(u => u.Id == id);
    }
}
`
	path := writeFixture(t, "UserService.cs", src)

	registry := workflow.NewSchemaRegistry()
	registry.Register(workflow.TableSchema{
		EntityName: "User",
		TableName:  "Users",
		DbSetName:  "Users",
	})

	s := NewCSharpScanner(DetectAll())
	g, err := s.ScanFile(path, registry)
	require.NoError(t, err)

	reads := g.NodesByType(workflow.NodeDatabaseRead)
	require.Len(t, reads, 1)
	assert.Equal(t, "Users", reads[0].TableName, "entity name should resolve to canonical table")
}

func TestCSharpScanner_BackwardWindowTableName(t *testing.T) {
	src := `public class ReportJob
{
    public void Run()
    {
        var query = _context.Invoices;



        var rows = query.Where(i => i.Total > 0).ToList();
    }
}
`
	path := writeFixture(t, "ReportJob.cs", src)

	s := NewCSharpScanner(DetectAll())
	g, err := s.ScanFile(path, nil)
	require.NoError(t, err)

	reads := g.NodesByType(workflow.NodeDatabaseRead)
	require.Len(t, reads, 1)
	assert.Equal(t, "Invoices", reads[0].TableName, "table name should come from the backward window")
}

func TestCSharpScanner_MessageQueues(t *testing.T) {
	src := `public class QueueWorker
{
    public async Task Publish()
    {
        var queueName = "orders-incoming";
        await ServiceBusSender.SendMessageAsync(message);
    }
}
`
	path := writeFixture(t, "QueueWorker.cs", src)

	s := NewCSharpScanner(DetectAll())
	g, err := s.ScanFile(path, nil)
	require.NoError(t, err)

	sends := g.NodesByType(workflow.NodeMessageSend)
	require.Len(t, sends, 1)
	assert.Equal(t, "orders-incoming", sends[0].QueueName)
	assert.Equal(t, "Azure Service Bus", sends[0].Metadata["platform"])
}

func TestCSharpScanner_OneNodePerCategoryPerLine(t *testing.T) {
	src := `var rows = _context.Orders.Where(o => o.Active).Select(o => o.Id).ToList();
`
	path := writeFixture(t, "Dense.cs", src)

	s := NewCSharpScanner(DetectAll())
	g, err := s.ScanFile(path, nil)
	require.NoError(t, err)

	// Where, Select and ToList all match on line 1 but only one read node
	// may be emitted for it.
	assert.Len(t, g.NodesByType(workflow.NodeDatabaseRead), 1)
}

func TestCSharpScanner_DetectToggles(t *testing.T) {
	path := writeFixture(t, "OrderService.cs", orderServiceSrc)

	s := NewCSharpScanner(Detect{Database: true})
	g, err := s.ScanFile(path, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, g.NodesByType(workflow.NodeDatabaseRead))
	assert.Empty(t, g.NodesByType(workflow.NodeAPICall))
	assert.Empty(t, g.NodesByType(workflow.NodeFileRead))
}
