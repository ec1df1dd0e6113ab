package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowscan/internal/export"
)

func TestNewScanMetadataDefaults(t *testing.T) {
	meta := NewScanMetadata("/repos/shop", "", "")

	assert.NotEmpty(t, meta.ScanID)
	assert.Equal(t, "full", meta.ScanType)
	assert.Equal(t, "system", meta.PerformedBy)
	assert.Equal(t, StateQueued, meta.Status)
	assert.Equal(t, "shop", meta.RepositoryName())
	assert.False(t, meta.CreatedAt.IsZero())
}

func TestMemStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	defer store.Close()

	meta := NewScanMetadata("/repos/shop", "full", "alice")
	require.NoError(t, store.SaveScan(ctx, meta))

	got, err := store.GetScan(ctx, meta.ScanID)
	require.NoError(t, err)
	assert.Equal(t, meta.ScanID, got.ScanID)
	assert.Equal(t, "alice", got.PerformedBy)

	// Stored copy is detached from the caller's struct.
	meta.Status = StateError
	got, err = store.GetScan(ctx, meta.ScanID)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, got.Status)
}

func TestMemStoreGetMissing(t *testing.T) {
	store := NewMemStore()
	defer store.Close()

	_, err := store.GetScan(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreUpdateScan(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	defer store.Close()

	meta := NewScanMetadata("/repos/shop", "full", "system")
	require.NoError(t, store.SaveScan(ctx, meta))

	now := time.Now().UTC()
	meta.Status = StateCompleted
	meta.CompletedAt = &now
	meta.FilesScanned = 42
	meta.NodesFound = 17
	require.NoError(t, store.SaveScan(ctx, meta))

	got, err := store.GetScan(ctx, meta.ScanID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, got.Status)
	assert.Equal(t, 42, got.FilesScanned)
	require.NotNil(t, got.CompletedAt)
}

func TestMemStoreListScansNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	defer store.Close()

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		meta := NewScanMetadata("/repos/shop", "full", "system")
		meta.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveScan(ctx, meta))
	}

	list, err := store.ListScans(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
	assert.True(t, list[1].CreatedAt.After(list[2].CreatedAt))

	limited, err := store.ListScans(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, list[0].ScanID, limited[0].ScanID)
}

func TestMemStoreListScansPagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	defer store.Close()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		meta := NewScanMetadata("/repos/shop", "full", "system")
		meta.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveScan(ctx, meta))
	}

	all, err := store.ListScans(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	page, err := store.ListScans(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[2].ScanID, page[0].ScanID, "offset skips the newest records")
	assert.Equal(t, all[3].ScanID, page[1].ScanID)

	tail, err := store.ListScans(ctx, 0, 4)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, all[4].ScanID, tail[0].ScanID)

	past, err := store.ListScans(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, past, "an offset past the end yields an empty page")
}

func TestMemStoreViewedLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	defer store.Close()

	done := NewScanMetadata("/repos/a", "full", "system")
	done.Status = StateCompleted
	require.NoError(t, store.SaveScan(ctx, done))

	running := NewScanMetadata("/repos/b", "full", "system")
	running.Status = StateScanning
	require.NoError(t, store.SaveScan(ctx, running))

	count, err := store.UnviewedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.MarkViewed(ctx, done.ScanID))

	count, err = store.UnviewedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.ErrorIs(t, store.MarkViewed(ctx, "missing"), ErrNotFound)
}

func TestMemStoreResults(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	defer store.Close()

	meta := NewScanMetadata("/repos/shop", "full", "system")
	require.NoError(t, store.SaveScan(ctx, meta))

	result := &export.ResultExport{
		RepositoryPath: "/repos/shop",
		Status:         "completed",
		FilesScanned:   3,
	}
	require.NoError(t, store.SaveResult(ctx, meta.ScanID, result))

	got, err := store.GetResult(ctx, meta.ScanID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.FilesScanned)

	_, err = store.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreDeleteScan(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	defer store.Close()

	meta := NewScanMetadata("/repos/shop", "full", "system")
	require.NoError(t, store.SaveScan(ctx, meta))
	require.NoError(t, store.SaveResult(ctx, meta.ScanID, &export.ResultExport{}))

	require.NoError(t, store.DeleteScan(ctx, meta.ScanID))

	_, err := store.GetScan(ctx, meta.ScanID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetResult(ctx, meta.ScanID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteScan(ctx, "missing"), ErrNotFound)
}
