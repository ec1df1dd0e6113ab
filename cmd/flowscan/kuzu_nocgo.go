//go:build !cgo

package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/flowscan/internal/workflow"
)

func persistGraph(_ context.Context, _ string, _ *workflow.Graph) error {
	return fmt.Errorf("KuzuDB persistence requires a build with CGO enabled")
}
