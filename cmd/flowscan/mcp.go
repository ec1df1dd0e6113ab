package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/flowscan/internal/builder"
	"github.com/dusk-indust/flowscan/internal/history"
	"github.com/dusk-indust/flowscan/internal/mcptools"
)

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	httpAddr := fs.String("http", "", "serve MCP over HTTP on this address instead of stdio")
	configDir := fs.String("config", ".", "directory containing flowscan.yml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := builder.LoadConfig(*configDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := history.NewMemStore()
	defer store.Close()

	svc := mcptools.NewFlowService(store, cfg)
	if *httpAddr != "" {
		return mcptools.RunMCPServer(ctx, svc, *httpAddr)
	}
	return mcptools.RunMCPServerStdio(ctx, mcptools.NewFlowscanMCPServer(svc))
}
