package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/flowscan/internal/analyzer"
	"github.com/dusk-indust/flowscan/internal/builder"
	"github.com/dusk-indust/flowscan/internal/export"
)

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	output := fs.String("output", "", "write the JSON export to this path (default: stdout summary only)")
	mermaid := fs.String("mermaid", "", "write a Mermaid diagram of the graph to this path")
	kuzuPath := fs.String("kuzu", "", "persist the graph to a KuzuDB database at this path (requires a CGO build)")
	configDir := fs.String("config", "", "directory containing flowscan.yml (default: the repo itself)")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: flowscan scan <repo> [flags]")
	}
	repoPath := fs.Arg(0)

	cfg, err := loadConfig(*configDir, repoPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress builder.ProgressFunc
	if !*quiet {
		progress = func(event builder.ProgressEvent) {
			fmt.Fprintln(os.Stderr, builder.FormatProgress(event))
		}
	}

	result, err := builder.New(cfg).Build(ctx, repoPath, progress)
	if err != nil {
		return err
	}

	workflows := analyzer.New(result.Graph).Analyze()
	doc := export.BuildExport(result, workflows)

	fmt.Printf("Scanned %d files: %d nodes, %d edges, %d workflows (%.2fs)\n",
		result.FilesScanned, doc.Stats.NodeCount, doc.Stats.EdgeCount,
		len(workflows), result.ScanTimeSeconds)
	for _, msg := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
	}

	if *output != "" {
		if err := export.WriteJSON(*output, doc); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("Export written to %s\n", *output)
	}
	if *mermaid != "" {
		if err := os.WriteFile(*mermaid, []byte(export.GenerateGraphMermaid(result.Graph)), 0o644); err != nil {
			return fmt.Errorf("write mermaid: %w", err)
		}
		fmt.Printf("Diagram written to %s\n", *mermaid)
	}
	if *kuzuPath != "" {
		if err := persistGraph(ctx, *kuzuPath, result.Graph); err != nil {
			return fmt.Errorf("persist graph: %w", err)
		}
		fmt.Printf("Graph persisted to %s\n", *kuzuPath)
	}
	return nil
}

// loadConfig reads flowscan.yml from the config dir if given, otherwise from
// the repository root. A missing file yields the defaults.
func loadConfig(configDir, repoPath string) (*builder.Config, error) {
	dir := configDir
	if dir == "" {
		dir = repoPath
	}
	cfg, err := builder.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
