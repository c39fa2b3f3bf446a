package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beholdci/behold/internal/registry"
	"github.com/beholdci/behold/internal/snapshot"
)

func TestParseFullConfig(t *testing.T) {
	input := `// .behold.kdl - visual regression configuration

settings {
    snapshot-dir "vrt/snapshots"
    threshold 0.5
    base-url "http://localhost:6006"
    settle-ms 300
    concurrency 4
    fail-on-error true
}

viewports {
    desktop width=1280 height=720
    mobile width=375 height=667 scale=2.0
}

variants {
    "Button/default"
    "Button/hover"
    "Modal/open" skip=true
}
`

	cfg, err := Parse(input)
	require.NoError(t, err)

	assert.Equal(t, "vrt/snapshots", cfg.SnapshotDir)
	assert.Equal(t, 0.5, cfg.Threshold)
	assert.Equal(t, "http://localhost:6006", cfg.BaseURL)
	assert.Equal(t, 300*time.Millisecond, cfg.Settle)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.True(t, cfg.FailOnError)

	require.Len(t, cfg.Viewports, 2)
	assert.Equal(t, snapshot.Viewport{Width: 1280, Height: 720, Name: "desktop"}, cfg.Viewports[0])
	assert.Equal(t, snapshot.Viewport{Width: 375, Height: 667, DeviceScaleFactor: 2, Name: "mobile"}, cfg.Viewports[1])

	require.Len(t, cfg.Variants, 3)
	assert.Equal(t, registry.Variant{Owner: "Button", Name: "default"}, cfg.Variants[0])
	assert.Equal(t, registry.Variant{Owner: "Button", Name: "hover"}, cfg.Variants[1])
	assert.Equal(t, registry.Variant{Owner: "Modal", Name: "open", Skip: true}, cfg.Variants[2])
}

func TestParseSizeLabelViewportStaysUnnamed(t *testing.T) {
	input := `viewports {
    "800x600" width=800 height=600
}`

	cfg, err := Parse(input)
	require.NoError(t, err)

	require.Len(t, cfg.Viewports, 1)
	assert.Empty(t, cfg.Viewports[0].Name)
	assert.Equal(t, "800x600", cfg.Viewports[0].Label())
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse("")
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.SnapshotDir, cfg.SnapshotDir)
	assert.Equal(t, def.Threshold, cfg.Threshold)
	assert.Equal(t, def.Viewports, cfg.Viewports)
	assert.Equal(t, 1, cfg.Concurrency)
}

func TestParseRejectsMalformedVariantKey(t *testing.T) {
	_, err := Parse(`variants { "no-slash-here" }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Component/variant")
}

func TestParseRejectsBadViewport(t *testing.T) {
	_, err := Parse(`viewports { broken width=0 height=100 }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive")
}

func TestValidateThresholdRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threshold = 101
	assert.Error(t, cfg.Validate())

	cfg.Threshold = 100
	assert.NoError(t, cfg.Validate())
}

func TestFindConfigFileWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	path := filepath.Join(root, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	assert.Equal(t, path, FindConfigFile(nested))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Threshold, cfg.Threshold)
}
