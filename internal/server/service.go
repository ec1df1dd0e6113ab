package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dusk-indust/flowscan/internal/analyzer"
	"github.com/dusk-indust/flowscan/internal/builder"
	"github.com/dusk-indust/flowscan/internal/export"
	"github.com/dusk-indust/flowscan/internal/history"
	"github.com/dusk-indust/flowscan/internal/workflow"
)

// ScanService runs scans in the background and records their lifecycle in
// the history store. A scan moves through queued, discovering, scanning and
// ends in completed, error or cancelled. Progress frames go to the hub for
// websocket delivery.
type ScanService struct {
	store history.Store
	cfg   *builder.Config
	hub   *Hub

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewScanService wires a service over the given store and hub. cfg may be
// nil, in which case scans run with defaults.
func NewScanService(store history.Store, cfg *builder.Config, hub *Hub) *ScanService {
	if cfg == nil {
		cfg = builder.DefaultConfig()
	}
	return &ScanService{
		store:   store,
		cfg:     cfg,
		hub:     hub,
		cancels: make(map[string]context.CancelFunc),
	}
}

// StartScan records a queued scan and launches it in the background. It
// returns immediately with the metadata the caller can poll.
func (s *ScanService) StartScan(ctx context.Context, repoPath, scanType, performedBy string) (*history.ScanMetadata, error) {
	meta := history.NewScanMetadata(repoPath, scanType, performedBy)
	if err := s.store.SaveScan(ctx, meta); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[meta.ScanID] = cancel
	s.mu.Unlock()

	go s.run(runCtx, meta)
	return meta, nil
}

// CancelScan requests cooperative cancellation of a running scan. It returns
// ErrNotFound if no scan with that id is currently running.
func (s *ScanService) CancelScan(id string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if !ok {
		return history.ErrNotFound
	}
	cancel()
	return nil
}

func (s *ScanService) run(ctx context.Context, meta *history.ScanMetadata) {
	defer func() {
		s.mu.Lock()
		delete(s.cancels, meta.ScanID)
		s.mu.Unlock()
	}()

	// Store writes after this point use a background context so that a
	// cancelled scan can still persist its terminal state.
	bg := context.Background()
	start := time.Now()

	s.transition(bg, meta, history.StateDiscovering, "Discovering files")

	reporter := builder.NewProgressReporter()
	var totalFiles int
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanning := false
		for event := range reporter.Subscribe() {
			if event.Total > totalFiles {
				totalFiles = event.Total
			}
			status := history.StateDiscovering
			if event.Total > 0 {
				if !scanning {
					scanning = true
					s.markScanning(bg, meta.ScanID)
				}
				status = history.StateScanning
			}
			s.hub.Publish(ProgressUpdate{
				ScanID:          meta.ScanID,
				Status:          status,
				Current:         event.Current,
				Total:           event.Total,
				FilesScanned:    event.Current,
				NodesFound:      event.NodesFound,
				ProgressPercent: progressPercent(event.Current, event.Total),
				Message:         event.Message,
			})
		}
	}()

	result, err := builder.New(s.cfg).Build(ctx, meta.RepositoryPath, reporter.Callback())
	reporter.Close()
	wg.Wait()

	now := time.Now().UTC()
	meta.CompletedAt = &now
	meta.ScanDuration = time.Since(start).Seconds()

	if err != nil {
		meta.Status = history.StateError
		meta.Errors = append(meta.Errors, err.Error())
		if saveErr := s.store.SaveScan(bg, meta); saveErr != nil {
			log.Printf("scan %s: save error state: %v", meta.ScanID, saveErr)
		}
		s.hub.Publish(ProgressUpdate{
			ScanID:  meta.ScanID,
			Status:  history.StateError,
			Message: err.Error(),
		})
		return
	}

	meta.FilesScanned = result.FilesScanned
	meta.NodesFound = len(result.Graph.Nodes)
	meta.TotalFiles = totalFiles
	meta.Errors = result.Errors
	meta.Status = history.StateCompleted
	if result.Status == workflow.StatusCancelled {
		meta.Status = history.StateCancelled
	}

	workflows := analyzer.New(result.Graph).Analyze()
	if saveErr := s.store.SaveResult(bg, meta.ScanID, export.BuildExport(result, workflows)); saveErr != nil {
		log.Printf("scan %s: save result: %v", meta.ScanID, saveErr)
	}
	if saveErr := s.store.SaveScan(bg, meta); saveErr != nil {
		log.Printf("scan %s: save metadata: %v", meta.ScanID, saveErr)
	}

	s.hub.Publish(ProgressUpdate{
		ScanID:          meta.ScanID,
		Status:          meta.Status,
		Current:         meta.FilesScanned,
		Total:           totalFiles,
		FilesScanned:    meta.FilesScanned,
		NodesFound:      meta.NodesFound,
		ProgressPercent: progressPercent(meta.FilesScanned, totalFiles),
		Message:         "Scan finished",
	})
}

// progressPercent is the scan's completion ratio as a percentage. An unknown
// total reads as zero progress rather than a division by zero.
func progressPercent(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(current) / float64(total)
}

// transition updates meta in place and persists it.
func (s *ScanService) transition(ctx context.Context, meta *history.ScanMetadata, state, message string) {
	meta.Status = state
	if err := s.store.SaveScan(ctx, meta); err != nil {
		log.Printf("scan %s: save state %s: %v", meta.ScanID, state, err)
	}
	s.hub.Publish(ProgressUpdate{
		ScanID:  meta.ScanID,
		Status:  state,
		Message: message,
	})
}

// markScanning flips the stored record to scanning without touching the
// run goroutine's copy of the metadata.
func (s *ScanService) markScanning(ctx context.Context, id string) {
	stored, err := s.store.GetScan(ctx, id)
	if err != nil {
		return
	}
	stored.Status = history.StateScanning
	if err := s.store.SaveScan(ctx, stored); err != nil {
		log.Printf("scan %s: save scanning state: %v", id, err)
	}
}
