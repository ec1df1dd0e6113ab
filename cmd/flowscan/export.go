package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/flowscan/internal/analyzer"
	"github.com/dusk-indust/flowscan/internal/builder"
	"github.com/dusk-indust/flowscan/internal/export"
)

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	configDir := fs.String("config", "", "directory containing flowscan.yml (default: the repo itself)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: flowscan export <repo> [flags]")
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
	doc := export.BuildExport(result, workflows)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}
