//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowscan/internal/analyzer"
	"github.com/dusk-indust/flowscan/internal/builder"
	"github.com/dusk-indust/flowscan/internal/export"
	"github.com/dusk-indust/flowscan/internal/workflow"
)

// fixtureRepo is a small mixed-stack shop: an EF Core backend, a React
// checkout form, an Angular cart component, and a WPF order desk.
var fixtureRepo = filepath.Join("..", "..", "testdata", "fixtures", "webshop")

// TestScan_E2E_Webshop runs the full pipeline over the fixture repository
// and verifies the graph, the schema resolution, the inferred workflows, and
// the export round trip.
func TestScan_E2E_Webshop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := builder.New(nil).Build(ctx, fixtureRepo, nil)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusCompleted, result.Status)
	assert.Empty(t, result.Errors)

	// node_modules is pruned, everything else with a known extension scans.
	assert.Equal(t, 7, result.FilesScanned)

	g := result.Graph

	// The vendored file must never contribute nodes.
	for _, n := range g.Nodes {
		assert.NotContains(t, n.Location.FilePath, "node_modules")
	}

	// --- Schema resolution ---

	assert.Equal(t, "Orders", result.Schemas.TableNameFor("Order"),
		"Order entity should resolve through the DbContext")
	assert.Equal(t, "tbl_invoices", result.Schemas.TableNameFor("Invoice"),
		"[Table] attribute should win over the DbSet name")

	// --- Backend nodes ---

	reads := g.NodesByType(workflow.NodeDatabaseRead)
	require.NotEmpty(t, reads)
	assert.Equal(t, "Orders", reads[0].TableName)

	writes := g.NodesByType(workflow.NodeDatabaseWrite)
	assert.NotEmpty(t, writes)

	sends := g.NodesByType(workflow.NodeMessageSend)
	require.NotEmpty(t, sends)
	assert.Equal(t, "orders-placed", sends[0].QueueName)

	fileReads := g.NodesByType(workflow.NodeFileRead)
	assert.NotEmpty(t, fileReads)

	// --- Frontend trigger-to-call edges ---

	wantEdgeLabels := map[string]bool{
		"User Action → API Call":    false,
		"Angular Event → HTTP Call": false,
		"WPF Event → HTTP Call":     false,
	}
	for _, e := range g.Edges {
		if _, ok := wantEdgeLabels[e.Label]; ok {
			wantEdgeLabels[e.Label] = true
		}
	}
	for label, seen := range wantEdgeLabels {
		assert.True(t, seen, "expected an edge labeled %q", label)
	}

	// --- Workflows ---

	workflows := analyzer.New(g).Analyze()
	require.GreaterOrEqual(t, len(workflows), 3,
		"React, Angular and WPF triggers should each yield a workflow")

	var stories strings.Builder
	for _, w := range workflows {
		assert.NotEmpty(t, w.Steps)
		assert.NotEmpty(t, w.Summary)
		stories.WriteString(w.ToStory())
	}
	assert.Contains(t, stories.String(), "Workflow Steps")

	// --- Export round trip ---

	doc := export.BuildExport(result, workflows)
	assert.Equal(t, len(g.Nodes), doc.Stats.NodeCount)
	assert.Equal(t, len(g.Edges), doc.Stats.EdgeCount)

	outPath := filepath.Join(t.TempDir(), "webshop.json")
	require.NoError(t, export.WriteJSON(outPath, doc))

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var reread export.ResultExport
	require.NoError(t, json.Unmarshal(raw, &reread))
	assert.Equal(t, doc.Stats.NodeCount, len(reread.Nodes))
	assert.Len(t, reread.Workflows, len(workflows))

	// Renderers read edge_type alongside label.
	assert.Contains(t, string(raw), `"edge_type"`)
}

// TestScan_E2E_Cancellation verifies that cancelling mid-scan yields a
// partial result with cancelled status rather than an error.
func TestScan_E2E_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := builder.New(nil).Build(ctx, fixtureRepo, nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCancelled, result.Status)
}
