// Package history persists scan metadata and results so past scans can be
// listed and reopened.
package history

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/flowscan/internal/export"
)

// ErrNotFound is returned when a scan id is unknown.
var ErrNotFound = errors.New("scan not found")

// Scan lifecycle states. A scan moves queued → discovering → scanning →
// completed; error and cancelled are terminal failures.
const (
	StateQueued      = "queued"
	StateDiscovering = "discovering"
	StateScanning    = "scanning"
	StateCompleted   = "completed"
	StateError       = "error"
	StateCancelled   = "cancelled"
)

// ScanMetadata is one scan's history record.
type ScanMetadata struct {
	ScanID         string     `json:"scan_id"`
	RepositoryPath string     `json:"repository_path"`
	ScanType       string     `json:"scan_type"`
	PerformedBy    string     `json:"performed_by"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Status         string     `json:"status"`
	Viewed         bool       `json:"viewed"`
	FilesScanned   int        `json:"files_scanned"`
	NodesFound     int        `json:"nodes_found"`
	TotalFiles     int        `json:"total_files,omitempty"`
	ScanDuration   float64    `json:"scan_duration"`
	Errors         []string   `json:"errors,omitempty"`
}

// RepositoryName is the last path element, for list views.
func (m *ScanMetadata) RepositoryName() string {
	return filepath.Base(m.RepositoryPath)
}

// NewScanMetadata creates a queued record with a fresh id.
func NewScanMetadata(repoPath, scanType, performedBy string) *ScanMetadata {
	if scanType == "" {
		scanType = "full"
	}
	if performedBy == "" {
		performedBy = "system"
	}
	return &ScanMetadata{
		ScanID:         uuid.NewString(),
		RepositoryPath: repoPath,
		ScanType:       scanType,
		PerformedBy:    performedBy,
		CreatedAt:      time.Now().UTC(),
		Status:         StateQueued,
	}
}

// Store persists scan history. Implementations: MemStore (tests, single
// process), PGStore (production).
type Store interface {
	io.Closer

	// SaveScan inserts or fully replaces a metadata record.
	SaveScan(ctx context.Context, meta *ScanMetadata) error

	// GetScan returns the record for id, or ErrNotFound.
	GetScan(ctx context.Context, id string) (*ScanMetadata, error)

	// ListScans returns records newest-first, skipping the first offset
	// records and returning at most limit (0 means all).
	ListScans(ctx context.Context, limit, offset int) ([]*ScanMetadata, error)

	// MarkViewed flags a scan as seen in the UI.
	MarkViewed(ctx context.Context, id string) error

	// UnviewedCount counts completed scans not yet viewed.
	UnviewedCount(ctx context.Context) (int, error)

	// SaveResult stores the full export document for a completed scan.
	SaveResult(ctx context.Context, id string, result *export.ResultExport) error

	// GetResult returns the stored export document, or ErrNotFound.
	GetResult(ctx context.Context, id string) (*export.ResultExport, error)

	// DeleteScan removes a scan and its result.
	DeleteScan(ctx context.Context, id string) error
}
