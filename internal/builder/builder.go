// Package builder orchestrates a repository scan: file discovery, the schema
// pre-pass, scanner dispatch across a worker pool, fragment merging, and
// edge inference.
package builder

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/flowscan/internal/scanner"
	"github.com/dusk-indust/flowscan/internal/workflow"
)

// Progress cadence: at least every progressEveryFiles files or every
// progressEveryDur, whichever comes first.
const (
	progressEveryFiles = 10
	progressEveryDur   = 5 * time.Second
)

// Builder runs scans against a fixed configuration. One Builder is safe for
// concurrent scans; all mutable state lives in the per-scan result.
type Builder struct {
	cfg      *Config
	scanners *scanner.Registry
}

// New returns a Builder for the given configuration. A nil config uses the
// defaults.
func New(cfg *Config) *Builder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Builder{
		cfg:      cfg,
		scanners: scanner.NewRegistry(cfg.DetectFlags()),
	}
}

// Build scans the repository rooted at repoPath and returns the populated
// result. progress may be nil. Cancelling ctx stops the scan between files
// and returns the partial result with StatusCancelled, not an error; the only
// error conditions are an unusable repository path.
func (b *Builder) Build(ctx context.Context, repoPath string, progress ProgressFunc) (*workflow.ScanResult, error) {
	start := time.Now()

	info, err := os.Stat(repoPath)
	if err != nil {
		return nil, fmt.Errorf("repository path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository path %s is not a directory", repoPath)
	}

	result := workflow.NewScanResult(repoPath)

	files, err := DiscoverFiles(repoPath, b.cfg)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	emit(progress, ProgressEvent{
		Total:   len(files),
		Message: fmt.Sprintf("Found %d files to scan", len(files)),
	})

	// Schema pre-pass. The registry must be complete before any worker
	// resolves a table name through it.
	resolver := &scanner.SchemaResolver{MaxFiles: b.cfg.MaxSchemaFiles}
	result.Schemas = resolver.Resolve(files)

	b.scanFiles(ctx, result, files, progress)

	if ctx.Err() != nil {
		result.Status = workflow.StatusCancelled
		result.ScanTimeSeconds = time.Since(start).Seconds()
		emit(progress, ProgressEvent{
			Current:    result.FilesScanned,
			Total:      len(files),
			NodesFound: len(result.Graph.Nodes),
			Message:    "Scan cancelled",
		})
		return result, nil
	}

	emit(progress, ProgressEvent{
		Current:    len(files),
		Total:      len(files),
		NodesFound: len(result.Graph.Nodes),
		Message:    fmt.Sprintf("File scanning complete: %d files processed", result.FilesScanned),
	})

	if b.cfg.InferenceEnabled() {
		emit(progress, ProgressEvent{
			Current:    len(files),
			Total:      len(files),
			NodesFound: len(result.Graph.Nodes),
			Message:    "Inferring workflow edges...",
		})
		b.cfg.Engine().Infer(result.Graph)
	}

	result.ScanTimeSeconds = time.Since(start).Seconds()
	emit(progress, ProgressEvent{
		Current:    len(files),
		Total:      len(files),
		NodesFound: len(result.Graph.Nodes),
		Message:    fmt.Sprintf("Scan complete: %d nodes, %d edges", len(result.Graph.Nodes), len(result.Graph.Edges)),
	})
	return result, nil
}

// scanFiles runs the scan loop across a bounded pool. The aggregate result
// is the single synchronization point: every merge, error append, and
// progress checkpoint happens under one mutex.
func (b *Builder) scanFiles(ctx context.Context, result *workflow.ScanResult, files []string, progress ProgressFunc) {
	var mu sync.Mutex
	lastEmit := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.WorkerCount())

	for _, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			sc := b.scanners.ScannerFor(path)
			if sc == nil {
				return nil
			}
			fragment, err := sc.ScanFile(path, result.Schemas)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.AddError(fmt.Sprintf("error scanning %s: %v", path, err))
				return nil
			}
			result.Graph.Merge(fragment)
			result.FilesScanned++

			now := time.Now()
			if result.FilesScanned%progressEveryFiles == 0 || now.Sub(lastEmit) >= progressEveryDur {
				lastEmit = now
				emit(progress, ProgressEvent{
					Current:    result.FilesScanned,
					Total:      len(files),
					NodesFound: len(result.Graph.Nodes),
					Message: fmt.Sprintf("Scanned %d/%d files, %d nodes",
						result.FilesScanned, len(files), len(result.Graph.Nodes)),
				})
			}
			return nil
		})
	}
	// Workers only return nil; Wait is for draining the pool.
	_ = g.Wait()
}

func emit(progress ProgressFunc, event ProgressEvent) {
	if progress != nil {
		progress(event)
	}
}
