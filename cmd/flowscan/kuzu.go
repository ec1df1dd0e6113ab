//go:build cgo

package main

import (
	"context"

	"github.com/dusk-indust/flowscan/internal/graphdb"
	"github.com/dusk-indust/flowscan/internal/workflow"
)

func persistGraph(ctx context.Context, dbPath string, g *workflow.Graph) error {
	return graphdb.PersistGraph(ctx, dbPath, g)
}
