package workflow

// ScanStatus is the terminal state of a scan.
type ScanStatus string

const (
	// StatusCompleted means the scan walked every candidate file.
	StatusCompleted ScanStatus = "completed"

	// StatusCancelled means the scan was aborted cooperatively. The result
	// still carries everything accumulated up to the cancellation point;
	// cancellation is a status, not an error.
	StatusCancelled ScanStatus = "cancelled"
)

// ScanResult is the top-level output of one scan invocation. It is populated
// incrementally by the builder and handed to the caller, which owns it from
// then on (rendering, enrichment, persistence).
type ScanResult struct {
	RepositoryPath  string          `json:"repository_path"`
	Graph           *Graph          `json:"graph"`
	FilesScanned    int             `json:"files_scanned"`
	Schemas         *SchemaRegistry `json:"-"`
	Errors          []string        `json:"errors"`
	Warnings        []string        `json:"warnings,omitempty"`
	ScanTimeSeconds float64         `json:"scan_time_seconds"`
	Status          ScanStatus      `json:"status"`
}

// NewScanResult returns a result with an empty graph and registry for the
// given repository.
func NewScanResult(repoPath string) *ScanResult {
	return &ScanResult{
		RepositoryPath: repoPath,
		Graph:          NewGraph(),
		Schemas:        NewSchemaRegistry(),
		Status:         StatusCompleted,
	}
}

// AddError records a file-level failure. Per-file failures never abort a scan.
func (r *ScanResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddWarning records a non-fatal resolver issue.
func (r *ScanResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
