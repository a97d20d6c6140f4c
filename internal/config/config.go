package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/sigtrace/internal/validator"
)

// Config is the top-level configuration for sigtrace
type Config struct {
	// Backend controls how Yosys is found and run
	Backend BackendConfig `json:"backend"`

	// Proof selects the default proof strategy
	Proof ProofConfig `json:"proof"`

	// Discovery controls the cross-signal search
	Discovery DiscoveryConfig `json:"discovery"`

	// Filter adds policy exclusions on top of the built-in candidate filter
	Filter FilterConfig `json:"filter"`

	// Report controls source lookups in the output table
	Report ReportConfig `json:"report"`

	// Cache controls the elaboration dump cache
	Cache CacheConfig `json:"cache"`
}

// BackendConfig locates and bounds the Yosys process
type BackendConfig struct {
	// Binary is the yosys executable (PATH lookup when empty)
	Binary string `json:"binary,omitempty"`

	// ScriptMode is "file" (temporary -s script) or "stdin"
	ScriptMode string `json:"scriptMode,omitempty"`

	// DumpTimeout bounds the elaboration and dump run
	DumpTimeout Duration `json:"dumpTimeout,omitempty"`

	// BatchTimeout bounds one proof batch
	BatchTimeout Duration `json:"batchTimeout,omitempty"`

	// PairTimeout bounds each discovery pair
	PairTimeout Duration `json:"pairTimeout,omitempty"`
}

// ProofConfig selects the strategy used when no flag overrides it
type ProofConfig struct {
	// Mode is "induction" or "bounded"
	Mode string `json:"mode,omitempty"`

	// Depth is the unroll depth
	Depth int `json:"depth,omitempty"`
}

// DiscoveryConfig controls the pairwise search
type DiscoveryConfig struct {
	// Workers limits concurrent backend runs (0 = number of CPUs)
	Workers int `json:"workers,omitempty"`
}

// FilterConfig points at optional rego candidate policies
type FilterConfig struct {
	// PolicyDir holds *.rego files defining data.sigtrace.candidates.excluded
	PolicyDir string `json:"policyDir,omitempty"`
}

// ReportConfig controls Scala source lookups
type ReportConfig struct {
	// SourceRoots are searched for the Scala files named by annotations
	SourceRoots []string `json:"sourceRoots,omitempty"`

	// Excerpts adds the annotated Scala expression under each row
	Excerpts *bool `json:"excerpts,omitempty"`
}

// CacheConfig controls dump cache behavior
type CacheConfig struct {
	// Enabled turns on the dump cache
	Enabled *bool `json:"enabled,omitempty"`

	// Dir is the cache directory (relative to the working directory if not absolute)
	Dir string `json:"dir,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("2m0s").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"90s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults for an empty configuration.
const (
	DefaultDumpTimeout  = 120 * time.Second
	DefaultBatchTimeout = 600 * time.Second
	DefaultPairTimeout  = 120 * time.Second
	DefaultCacheDir     = ".sigtrace_cache"
)

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			ScriptMode:   "file",
			DumpTimeout:  Duration{DefaultDumpTimeout},
			BatchTimeout: Duration{DefaultBatchTimeout},
			PairTimeout:  Duration{DefaultPairTimeout},
		},
		Proof: ProofConfig{
			Mode:  "induction",
			Depth: 2,
		},
		Discovery: DiscoveryConfig{
			Workers: 0, // auto
		},
		Report: ReportConfig{
			SourceRoots: []string{"."},
			Excerpts:    boolPtr(true),
		},
		Cache: CacheConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file
// Search order:
//  1. ./sigtrace.json (current working directory)
//  2. ./.sigtrace.json (current working directory)
//  3. ./sigtrace.yaml (current working directory)
//  4. ~/.config/sigtrace/config.json
//
// Returns DefaultConfig if no config file is found
func Load() (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "sigtrace.json"),
		filepath.Join(cwd, ".sigtrace.json"),
		filepath.Join(cwd, "sigtrace.yaml"),
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "sigtrace", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	// No config found, return defaults
	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file. Files ending in .yaml
// or .yml are read as YAML; everything else as JSON. The document is checked
// against the #Config schema before it is decoded.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	v, err := validator.New()
	if err != nil {
		return nil, err
	}
	if err := v.ValidateJSON(validator.Config, data); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for missing fields
	cfg.applyDefaults()

	return &cfg, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return json.Marshal(raw)
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Backend.ScriptMode == "" {
		c.Backend.ScriptMode = def.Backend.ScriptMode
	}
	if c.Backend.DumpTimeout.Duration == 0 {
		c.Backend.DumpTimeout = def.Backend.DumpTimeout
	}
	if c.Backend.BatchTimeout.Duration == 0 {
		c.Backend.BatchTimeout = def.Backend.BatchTimeout
	}
	if c.Backend.PairTimeout.Duration == 0 {
		c.Backend.PairTimeout = def.Backend.PairTimeout
	}

	if c.Proof.Mode == "" {
		c.Proof.Mode = def.Proof.Mode
	}
	if c.Proof.Depth == 0 {
		c.Proof.Depth = def.Proof.Depth
	}

	if c.Report.SourceRoots == nil {
		c.Report.SourceRoots = def.Report.SourceRoots
	}
	if c.Report.Excerpts == nil {
		c.Report.Excerpts = def.Report.Excerpts
	}

	if c.Cache.Dir == "" {
		c.Cache.Dir = def.Cache.Dir
	}
	if c.Cache.Enabled == nil {
		c.Cache.Enabled = def.Cache.Enabled
	}
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CacheEnabled reports whether the dump cache is on
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// ExcerptsEnabled reports whether rows carry Scala excerpts
func (c *Config) ExcerptsEnabled() bool {
	return c.Report.Excerpts == nil || *c.Report.Excerpts
}
