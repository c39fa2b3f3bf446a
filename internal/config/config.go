// Package config loads behold's project configuration from .behold.kdl.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"

	"github.com/beholdci/behold/internal/registry"
	"github.com/beholdci/behold/internal/snapshot"
)

// ConfigFileName is the name of the behold configuration file.
const ConfigFileName = ".behold.kdl"

// Config is the resolved run configuration.
type Config struct {
	// SnapshotDir is the root directory for baseline/current/diff images.
	SnapshotDir string
	// Threshold is the maximum acceptable diff percentage, in [0,100].
	Threshold float64
	// BaseURL is the gallery dev server serving variant previews.
	BaseURL string
	// Settle is the fixed post-render delay before capture.
	Settle time.Duration
	// Concurrency bounds in-flight captures; 1 means sequential.
	Concurrency int
	// FailOnError makes Error results gate the CI exit code like failures.
	FailOnError bool
	// Chrome overrides browser binary discovery.
	Chrome string
	// CDPURL attaches to a running browser instead of launching one.
	CDPURL string
	// ReadySelector is the DOM marker the preview route renders once the
	// variant has mounted. Empty disables the wait.
	ReadySelector string
	// Viewports are the rendering surfaces to capture at.
	Viewports []snapshot.Viewport
	// Variants are the declared component variants.
	Variants []registry.Variant
}

// DefaultConfig returns the configuration used when no .behold.kdl exists.
func DefaultConfig() *Config {
	return &Config{
		SnapshotDir:   filepath.Join(".behold", "snapshots"),
		Threshold:     0.1,
		BaseURL:       "http://localhost:5173",
		Settle:        150 * time.Millisecond,
		Concurrency:   1,
		ReadySelector: "[data-behold-ready]",
		Viewports:     []snapshot.Viewport{{Width: 1280, Height: 720}},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold %v out of range [0,100]", c.Threshold)
	}
	if len(c.Viewports) == 0 {
		return fmt.Errorf("no viewports configured")
	}
	for _, vp := range c.Viewports {
		if vp.Width <= 0 || vp.Height <= 0 {
			return fmt.Errorf("viewport %q has non-positive dimensions", vp.Label())
		}
	}
	return nil
}

// kdlConfig mirrors the .behold.kdl document structure.
type kdlConfig struct {
	Settings  kdlSettings             `kdl:"settings"`
	Viewports map[string]*kdlViewport `kdl:"viewports"`
	Variants  map[string]*kdlVariant  `kdl:"variants"`
}

type kdlSettings struct {
	SnapshotDir   string  `kdl:"snapshot-dir"`
	Threshold     float64 `kdl:"threshold"`
	BaseURL       string  `kdl:"base-url"`
	SettleMs      int     `kdl:"settle-ms"`
	Concurrency   int     `kdl:"concurrency"`
	FailOnError   bool    `kdl:"fail-on-error"`
	Chrome        string  `kdl:"chrome"`
	CDPURL        string  `kdl:"cdp-url"`
	ReadySelector string  `kdl:"ready-selector"`
}

type kdlViewport struct {
	Width  int     `kdl:"width"`
	Height int     `kdl:"height"`
	Scale  float64 `kdl:"scale"`
}

type kdlVariant struct {
	Skip bool `kdl:"skip"`
}

// Load reads configuration starting from dir, walking up to the filesystem
// root. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	path := FindConfigFile(dir)
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// FindConfigFile searches for .behold.kdl from dir upward. Returns "" when
// no file is found.
func FindConfigFile(dir string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(absDir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(absDir)
		if parent == absDir {
			break
		}
		absDir = parent
	}
	return ""
}

// LoadFile reads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(string(data))
}

// sizeLabel matches viewport names of the "{width}x{height}" form, which
// are treated as unnamed viewports.
var sizeLabel = regexp.MustCompile(`^\d+x\d+$`)

// Parse parses KDL configuration data.
func Parse(data string) (*Config, error) {
	var doc kdlConfig
	if err := kdl.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}

	cfg := DefaultConfig()

	if doc.Settings.SnapshotDir != "" {
		cfg.SnapshotDir = doc.Settings.SnapshotDir
	}
	if doc.Settings.Threshold > 0 {
		cfg.Threshold = doc.Settings.Threshold
	}
	if doc.Settings.BaseURL != "" {
		cfg.BaseURL = doc.Settings.BaseURL
	}
	if doc.Settings.SettleMs > 0 {
		cfg.Settle = time.Duration(doc.Settings.SettleMs) * time.Millisecond
	}
	if doc.Settings.Concurrency > 0 {
		cfg.Concurrency = doc.Settings.Concurrency
	}
	cfg.FailOnError = doc.Settings.FailOnError
	cfg.Chrome = doc.Settings.Chrome
	cfg.CDPURL = doc.Settings.CDPURL
	if doc.Settings.ReadySelector != "" {
		cfg.ReadySelector = doc.Settings.ReadySelector
	}

	if len(doc.Viewports) > 0 {
		cfg.Viewports = nil
		for name, vp := range doc.Viewports {
			if vp == nil {
				continue
			}
			viewport := snapshot.Viewport{
				Width:             vp.Width,
				Height:            vp.Height,
				DeviceScaleFactor: vp.Scale,
				Name:              name,
			}
			if sizeLabel.MatchString(name) {
				viewport.Name = ""
			}
			cfg.Viewports = append(cfg.Viewports, viewport)
		}
		// Map iteration order is random; keep viewport order stable so
		// runs and reports are reproducible.
		sort.Slice(cfg.Viewports, func(i, j int) bool {
			return cfg.Viewports[i].Label() < cfg.Viewports[j].Label()
		})
	}

	for key, v := range doc.Variants {
		owner, name, ok := strings.Cut(key, "/")
		if !ok || owner == "" || name == "" {
			return nil, fmt.Errorf("variant %q: want \"Component/variant\"", key)
		}
		skip := false
		if v != nil {
			skip = v.Skip
		}
		cfg.Variants = append(cfg.Variants, registry.Variant{Owner: owner, Name: name, Skip: skip})
	}
	sort.Slice(cfg.Variants, func(i, j int) bool {
		return cfg.Variants[i].String() < cfg.Variants[j].String()
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
