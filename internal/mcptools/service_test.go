package mcptools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowscan/internal/history"
)

const reactCheckout = `import React from 'react';

export function CheckoutForm() {
  const handleSubmit = async () => {
    await fetch('/api/checkout', { method: 'POST' });
  };
  return <button onClick={handleSubmit}>Checkout</button>;
}
`

func newTestService(t *testing.T) *FlowService {
	t.Helper()
	store := history.NewMemStore()
	t.Cleanup(func() { store.Close() })
	return NewFlowService(store, nil)
}

func scanFixtureRepo(t *testing.T, svc *FlowService) ScanRepositoryOutput {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "CheckoutForm.tsx")
	require.NoError(t, os.WriteFile(path, []byte(reactCheckout), 0o644))

	_, out, err := svc.ScanRepository(context.Background(), nil, ScanRepositoryInput{
		RepositoryPath: dir,
	})
	require.NoError(t, err)
	return out
}

func TestFlowService_ScanRepository(t *testing.T) {
	svc := newTestService(t)
	out := scanFixtureRepo(t, svc)

	assert.Equal(t, history.StateCompleted, out.Status)
	assert.NotEmpty(t, out.ScanID)
	assert.Equal(t, 1, out.FilesScanned)
	assert.Greater(t, out.NodeCount, 0)
	assert.Greater(t, out.WorkflowCount, 0)
}

func TestFlowService_ScanRepository_MissingPath(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.ScanRepository(context.Background(), nil, ScanRepositoryInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repositoryPath")
}

func TestFlowService_ScanRepository_BadRepository(t *testing.T) {
	svc := newTestService(t)

	_, out, err := svc.ScanRepository(context.Background(), nil, ScanRepositoryInput{
		RepositoryPath: "/does/not/exist",
	})
	require.NoError(t, err)
	assert.Equal(t, history.StateError, out.Status)
	assert.NotEmpty(t, out.Errors)
}

func TestFlowService_ListWorkflows(t *testing.T) {
	svc := newTestService(t)
	scan := scanFixtureRepo(t, svc)

	_, out, err := svc.ListWorkflows(context.Background(), nil, ListWorkflowsInput{
		ScanID: scan.ScanID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Workflows)

	w := out.Workflows[0]
	assert.NotEmpty(t, w.WorkflowID)
	assert.NotEmpty(t, w.Summary)
	assert.Greater(t, w.StepCount, 0)
}

func TestFlowService_ListWorkflows_UnknownScan(t *testing.T) {
	svc := newTestService(t)

	_, _, err := svc.ListWorkflows(context.Background(), nil, ListWorkflowsInput{ScanID: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestFlowService_WorkflowStory(t *testing.T) {
	svc := newTestService(t)
	scan := scanFixtureRepo(t, svc)

	_, listing, err := svc.ListWorkflows(context.Background(), nil, ListWorkflowsInput{
		ScanID: scan.ScanID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, listing.Workflows)

	_, story, err := svc.WorkflowStory(context.Background(), nil, WorkflowStoryInput{
		ScanID:     scan.ScanID,
		WorkflowID: listing.Workflows[0].WorkflowID,
	})
	require.NoError(t, err)
	assert.Contains(t, story.Story, "Workflow Steps")
	assert.Contains(t, story.Mermaid, "classDef userAction")
}

func TestFlowService_WorkflowStory_UnknownWorkflow(t *testing.T) {
	svc := newTestService(t)
	scan := scanFixtureRepo(t, svc)

	_, _, err := svc.WorkflowStory(context.Background(), nil, WorkflowStoryInput{
		ScanID:     scan.ScanID,
		WorkflowID: "workflow_missing",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFlowService_GraphMermaid(t *testing.T) {
	svc := newTestService(t)
	scan := scanFixtureRepo(t, svc)

	_, out, err := svc.GraphMermaid(context.Background(), nil, GraphMermaidInput{
		ScanID: scan.ScanID,
	})
	require.NoError(t, err)
	assert.Equal(t, scan.NodeCount, out.NodeCount)
	assert.Contains(t, out.Mermaid, "graph TD")
}
