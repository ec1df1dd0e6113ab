package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewFlowscanMCPServer creates an MCP server with all 4 scanning tools
// registered.
func NewFlowscanMCPServer(svc *FlowService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "flowscan",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "scan_repository",
		Description: "Scan a repository for runtime operations (database access, API calls, file IO, message queues) and build the workflow graph. Returns a scan id for the follow-up tools.",
	}, svc.ScanRepository)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_workflows",
		Description: "List the user-facing workflows detected in a completed scan: each starts at a UI trigger and follows the operations it reaches.",
	}, svc.ListWorkflows)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "workflow_story",
		Description: "Return the plain-language narrative and Mermaid diagram for one workflow from a completed scan.",
	}, svc.WorkflowStory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_mermaid",
		Description: "Render the full workflow graph of a completed scan as a Mermaid flowchart grouped by file.",
	}, svc.GraphMermaid)

	return server
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunMCPServer starts an HTTP server exposing the scanning MCP tools.
func RunMCPServer(ctx context.Context, svc *FlowService, addr string) error {
	server := NewFlowscanMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
