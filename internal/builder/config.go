package builder

import (
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/flowscan/internal/inference"
	"github.com/dusk-indust/flowscan/internal/scanner"
)

// Config holds scan settings loaded from flowscan.yml.
type Config struct {
	IncludeExtensions []string `yaml:"includeExtensions,omitempty"`
	ExcludeDirs       []string `yaml:"excludeDirs,omitempty"`
	ExcludePatterns   []string `yaml:"excludePatterns,omitempty"`

	// Workers bounds the scan pool. Zero means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`

	// MaxSchemaFiles caps the resolver pre-pass.
	MaxSchemaFiles int `yaml:"maxSchemaFiles,omitempty"`

	Detect        DetectConfig    `yaml:"detect,omitempty"`
	EdgeInference InferenceConfig `yaml:"edgeInference,omitempty"`
}

// DetectConfig toggles node categories per scan.
type DetectConfig struct {
	Database       *bool `yaml:"database,omitempty"`
	APICalls       *bool `yaml:"apiCalls,omitempty"`
	FileIO         *bool `yaml:"fileIO,omitempty"`
	MessageQueues  *bool `yaml:"messageQueues,omitempty"`
	DataTransforms *bool `yaml:"dataTransforms,omitempty"`
}

// InferenceConfig configures the edge inference passes.
type InferenceConfig struct {
	Enabled            *bool `yaml:"enabled,omitempty"`
	ProximityEdges     *bool `yaml:"proximityEdges,omitempty"`
	DataFlowEdges      *bool `yaml:"dataFlowEdges,omitempty"`
	MaxLineDistance    int   `yaml:"maxLineDistance,omitempty"`
	IngestionDistance  int   `yaml:"ingestionDistance,omitempty"`
	ProcessingDistance int   `yaml:"processingDistance,omitempty"`
}

// DefaultConfig returns the settings used when no flowscan.yml is present.
func DefaultConfig() *Config {
	return &Config{
		IncludeExtensions: []string{
			".cs", ".ts", ".js", ".tsx", ".jsx", ".html", ".xaml",
		},
		ExcludeDirs: []string{
			"node_modules", "bin", "obj", "dist", "build", "out",
			"packages", "vendor", "__pycache__", "coverage",
		},
		ExcludePatterns: []string{
			"*.min.js", "*.bundle.js", "*.spec.ts", "*.test.ts",
			"*.d.ts", "*.designer.cs", "*.generated.cs",
		},
	}
}

// LoadConfig reads flowscan.yml or flowscan.yaml from dir, falling back to
// DefaultConfig when neither exists. Defaults fill any list the file leaves
// empty.
func LoadConfig(dir string) (*Config, error) {
	for _, name := range []string{"flowscan.yml", "flowscan.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cfg := &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		cfg.applyDefaults()
		return cfg, nil
	}
	return DefaultConfig(), nil
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if len(c.IncludeExtensions) == 0 {
		c.IncludeExtensions = d.IncludeExtensions
	}
	if len(c.ExcludeDirs) == 0 {
		c.ExcludeDirs = d.ExcludeDirs
	}
	if len(c.ExcludePatterns) == 0 {
		c.ExcludePatterns = d.ExcludePatterns
	}
}

// WorkerCount resolves the effective pool size.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// DetectFlags converts the config toggles into scanner detection flags.
// Unset toggles default to on.
func (c *Config) DetectFlags() scanner.Detect {
	on := func(b *bool) bool { return b == nil || *b }
	return scanner.Detect{
		Database:       on(c.Detect.Database),
		APICalls:       on(c.Detect.APICalls),
		FileIO:         on(c.Detect.FileIO),
		MessageQueues:  on(c.Detect.MessageQueues),
		DataTransforms: on(c.Detect.DataTransforms),
	}
}

// InferenceEnabled reports whether the edge inference phase runs at all.
func (c *Config) InferenceEnabled() bool {
	return c.EdgeInference.Enabled == nil || *c.EdgeInference.Enabled
}

// Engine builds the inference engine from the config.
func (c *Config) Engine() *inference.Engine {
	off := func(b *bool) bool { return b != nil && !*b }
	return &inference.Engine{
		ProximityThreshold: c.EdgeInference.MaxLineDistance,
		IngestionWindow:    c.EdgeInference.IngestionDistance,
		ProcessingWindow:   c.EdgeInference.ProcessingDistance,
		DisableProximity:   off(c.EdgeInference.ProximityEdges),
		DisableDataFlow:    off(c.EdgeInference.DataFlowEdges),
	}
}
