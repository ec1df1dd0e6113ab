// Package scanner implements the per-dialect heuristic scanners that turn
// source files into workflow graph fragments. Scanners are line-oriented
// pattern matchers, not parsers: they can produce false positives and
// negatives, and that is an accepted property of the design.
package scanner

import "github.com/dusk-indust/flowscan/internal/workflow"

// Scanner is the capability contract the builder dispatches on.
// Implementations: CSharpScanner, TypeScriptScanner, ReactScanner,
// AngularScanner, WPFScanner.
type Scanner interface {
	// CanScan reports whether this scanner handles the given file path.
	// It is a pure function of the path.
	CanScan(path string) bool

	// ScanFile reads one file and returns the graph fragment found in it.
	// The schema registry may be nil; when present it enriches table names
	// but never blocks node creation.
	ScanFile(path string, schemas *workflow.SchemaRegistry) (*workflow.Graph, error)
}

// Detect toggles per-category detection. The zero value disables everything;
// use DetectAll for the common case.
type Detect struct {
	Database       bool
	APICalls       bool
	FileIO         bool
	MessageQueues  bool
	DataTransforms bool
}

// DetectAll enables every detection category.
func DetectAll() Detect {
	return Detect{
		Database:       true,
		APICalls:       true,
		FileIO:         true,
		MessageQueues:  true,
		DataTransforms: true,
	}
}

// Registry holds scanners in precedence order. Dispatch is first-match-wins,
// so dialect-specific scanners must precede generic ones where extensions
// overlap: WPF claims .xaml/.xaml.cs before the C# scanner sees .cs, Angular
// claims .component.ts/.component.html and plain .html, React claims
// .tsx/.jsx, the generic TypeScript scanner takes remaining .ts/.js, and the
// C# scanner takes remaining .cs.
type Registry struct {
	scanners []Scanner
}

// NewRegistry builds the default scanner set in precedence order.
func NewRegistry(detect Detect) *Registry {
	return &Registry{
		scanners: []Scanner{
			NewWPFScanner(detect),
			NewAngularScanner(detect),
			NewReactScanner(detect),
			NewTypeScriptScanner(detect),
			NewCSharpScanner(detect),
		},
	}
}

// ScannerFor returns the first scanner that can handle path, or nil.
func (r *Registry) ScannerFor(path string) Scanner {
	for _, s := range r.scanners {
		if s.CanScan(path) {
			return s
		}
	}
	return nil
}
