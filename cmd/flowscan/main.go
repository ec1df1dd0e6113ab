package main

import (
	"fmt"
	"os"
)

// version is set by goreleaser at build time.
var version = "dev"

const usage = `flowscan scans a repository for runtime operations and narrates
the user-facing workflows it finds.

Usage:
  flowscan scan <repo> [flags]       scan a repository and export the graph
  flowscan workflows <repo> [flags]  print workflow stories for a repository
  flowscan export <repo> [flags]     scan and print the JSON export to stdout
  flowscan serve [flags]             run the scan API server
  flowscan mcp [flags]               run as an MCP server
  flowscan version                   print version and exit
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "scan":
		return runScan(rest)
	case "workflows":
		return runWorkflows(rest)
	case "export":
		return runExport(rest)
	case "serve":
		return runServe(rest)
	case "mcp":
		return runMCP(rest)
	case "version", "-version", "--version":
		fmt.Println(version)
		return nil
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q (run 'flowscan help')", cmd)
	}
}
