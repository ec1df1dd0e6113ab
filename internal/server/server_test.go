package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/flowscan/internal/export"
	"github.com/dusk-indust/flowscan/internal/history"
)

const sampleCSharp = `using System;

public class OrderService
{
    private readonly AppDbContext _context;

    public void Save(Order order)
    {
        _context.Orders.Add(order);
        _context.SaveChanges();
    }
}
`

func newTestAPI(t *testing.T) (*httptest.Server, history.Store, *ScanService) {
	t.Helper()
	store := history.NewMemStore()
	t.Cleanup(func() { store.Close() })

	hub := NewHub()
	svc := NewScanService(store, nil, hub)
	ts := httptest.NewServer(NewMux(NewHandler(store, svc, hub)))
	t.Cleanup(ts.Close)
	return ts, store, svc
}

func writeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "OrderService.cs")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSharp), 0o644))
	return dir
}

func startScan(t *testing.T, ts *httptest.Server, repoPath string) *history.ScanMetadata {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"repository_path": repoPath,
		"performed_by":    "tester",
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/scans", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var meta history.ScanMetadata
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	require.NotEmpty(t, meta.ScanID)
	return &meta
}

func waitForState(t *testing.T, store history.Store, id, state string) *history.ScanMetadata {
	t.Helper()
	var meta *history.ScanMetadata
	require.Eventually(t, func() bool {
		got, err := store.GetScan(context.Background(), id)
		if err != nil {
			return false
		}
		meta = got
		return got.Status == state
	}, 5*time.Second, 10*time.Millisecond)
	return meta
}

func TestScanLifecycle(t *testing.T) {
	ts, store, _ := newTestAPI(t)
	repo := writeRepo(t)

	meta := startScan(t, ts, repo)
	assert.Equal(t, "tester", meta.PerformedBy)

	done := waitForState(t, store, meta.ScanID, history.StateCompleted)
	assert.Equal(t, 1, done.FilesScanned)
	assert.Greater(t, done.NodesFound, 0)
	require.NotNil(t, done.CompletedAt)

	resp, err := http.Get(ts.URL + "/api/scans/" + meta.ScanID + "/result")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result export.ResultExport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, repo, result.RepositoryPath)
	assert.NotEmpty(t, result.Nodes)
}

func TestStartScanValidation(t *testing.T) {
	ts, _, _ := newTestAPI(t)

	resp, err := http.Post(ts.URL+"/api/scans", "application/json",
		strings.NewReader(`{"repository_path": ""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScanMissingRepositoryEndsInError(t *testing.T) {
	ts, store, _ := newTestAPI(t)

	meta := startScan(t, ts, "/does/not/exist")
	errored := waitForState(t, store, meta.ScanID, history.StateError)
	assert.NotEmpty(t, errored.Errors)

	// No result document is stored for failed scans.
	resp, err := http.Get(ts.URL + "/api/scans/" + meta.ScanID + "/result")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetScanNotFound(t *testing.T) {
	ts, _, _ := newTestAPI(t)

	resp, err := http.Get(ts.URL + "/api/scans/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListAndViewedFlow(t *testing.T) {
	ts, store, _ := newTestAPI(t)
	repo := writeRepo(t)

	meta := startScan(t, ts, repo)
	waitForState(t, store, meta.ScanID, history.StateCompleted)

	resp, err := http.Get(ts.URL + "/api/scans?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Scans []*history.ScanMetadata `json:"scans"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Len(t, listing.Scans, 1)

	pageResp, err := http.Get(ts.URL + "/api/scans?limit=10&offset=1")
	require.NoError(t, err)
	defer pageResp.Body.Close()
	require.Equal(t, http.StatusOK, pageResp.StatusCode)
	var page struct {
		Scans []*history.ScanMetadata `json:"scans"`
	}
	require.NoError(t, json.NewDecoder(pageResp.Body).Decode(&page))
	assert.Empty(t, page.Scans, "the offset skips the only scan")

	badResp, err := http.Get(ts.URL + "/api/scans?offset=-1")
	require.NoError(t, err)
	badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)

	countResp, err := http.Get(ts.URL + "/api/scans/unviewed-count")
	require.NoError(t, err)
	defer countResp.Body.Close()
	var count struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(countResp.Body).Decode(&count))
	assert.Equal(t, 1, count.Count)

	viewedResp, err := http.Post(ts.URL+"/api/scans/"+meta.ScanID+"/viewed", "application/json", nil)
	require.NoError(t, err)
	viewedResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, viewedResp.StatusCode)

	countResp2, err := http.Get(ts.URL + "/api/scans/unviewed-count")
	require.NoError(t, err)
	defer countResp2.Body.Close()
	require.NoError(t, json.NewDecoder(countResp2.Body).Decode(&count))
	assert.Equal(t, 0, count.Count)
}

func TestDeleteScan(t *testing.T) {
	ts, store, _ := newTestAPI(t)
	repo := writeRepo(t)

	meta := startScan(t, ts, repo)
	waitForState(t, store, meta.ScanID, history.StateCompleted)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/scans/"+meta.ScanID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, err = store.GetScan(context.Background(), meta.ScanID)
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestProgressWebSocketReplaysTerminalState(t *testing.T) {
	ts, store, _ := newTestAPI(t)
	repo := writeRepo(t)

	meta := startScan(t, ts, repo)
	waitForState(t, store, meta.ScanID, history.StateCompleted)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/scans/" + meta.ScanID + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var update ProgressUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, meta.ScanID, update.ScanID)
	assert.Equal(t, history.StateCompleted, update.Status)
	assert.Equal(t, 1, update.FilesScanned)
	assert.Greater(t, update.NodesFound, 0, "the terminal frame reports graph size")
	assert.InDelta(t, 100.0, update.ProgressPercent, 0.01)
}

func TestHubPublishAndSubscribe(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("scan-1")
	defer cancel()

	hub.Publish(ProgressUpdate{
		ScanID:          "scan-1",
		Status:          history.StateScanning,
		Current:         3,
		Total:           10,
		FilesScanned:    3,
		NodesFound:      7,
		ProgressPercent: 30,
	})

	select {
	case update := <-ch:
		assert.Equal(t, 3, update.Current)
		assert.Equal(t, 7, update.NodesFound)
		assert.InDelta(t, 30.0, update.ProgressPercent, 0.01)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	// A late subscriber sees the cached last state first.
	late, cancelLate := hub.Subscribe("scan-1")
	defer cancelLate()
	select {
	case update := <-late:
		assert.Equal(t, 3, update.Current)
	case <-time.After(time.Second):
		t.Fatal("last state not replayed")
	}

	last, ok := hub.LastState("scan-1")
	require.True(t, ok)
	assert.Equal(t, 10, last.Total)
}

func TestCancelUnknownScan(t *testing.T) {
	ts, _, svc := newTestAPI(t)

	assert.ErrorIs(t, svc.CancelScan("missing"), history.ErrNotFound)

	resp, err := http.Post(ts.URL+"/api/scans/missing/cancel", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
