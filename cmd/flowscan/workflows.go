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

func runWorkflows(args []string) error {
	fs := flag.NewFlagSet("workflows", flag.ContinueOnError)
	configDir := fs.String("config", "", "directory containing flowscan.yml (default: the repo itself)")
	diagrams := fs.Bool("diagrams", false, "include a Mermaid diagram after each story")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: flowscan workflows <repo> [flags]")
	}
	repoPath := fs.Arg(0)

	cfg, err := loadConfig(*configDir, repoPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := builder.New(cfg).Build(ctx, repoPath, nil)
	if err != nil {
		return err
	}

	workflows := analyzer.New(result.Graph).Analyze()
	if len(workflows) == 0 {
		fmt.Println("No user-facing workflows found.")
		return nil
	}

	for i, w := range workflows {
		if i > 0 {
			fmt.Print("\n---\n\n")
		}
		fmt.Print(w.ToStory())
		if *diagrams {
			fmt.Printf("\n```mermaid\n%s\n```\n", export.GenerateWorkflowMermaid(w))
		}
	}
	return nil
}
