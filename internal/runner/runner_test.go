package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beholdci/behold/internal/capture"
	"github.com/beholdci/behold/internal/imaging"
	"github.com/beholdci/behold/internal/registry"
	"github.com/beholdci/behold/internal/snapshot"
)

// addressRenderer serves a canned image per address, failing addresses
// listed in broken.
type addressRenderer struct {
	image  []byte
	broken map[string]bool
}

func (a *addressRenderer) RenderAndCapture(_ context.Context, address string, _ snapshot.Viewport) ([]byte, error) {
	if a.broken[address] {
		return nil, errors.New("render crashed")
	}
	return a.image, nil
}

func whitePNG(t *testing.T) []byte {
	t.Helper()
	buf := imaging.NewBuffer(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			buf.SetPixel(x, y, 255, 255, 255, 255)
		}
	}
	data, err := imaging.EncodeBytes(buf)
	require.NoError(t, err)
	return data
}

func newTestRunner(t *testing.T, renderer capture.Renderer, variants []registry.Variant, config Config) *Runner {
	t.Helper()
	store, err := snapshot.NewStore(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	controller := capture.NewController(store, renderer, 0.1, nil)
	reg := registry.NewStatic("http://gallery", variants)
	return New(reg, controller, config, nil)
}

func TestRunIsolatesBrokenVariant(t *testing.T) {
	renderer := &addressRenderer{
		image:  whitePNG(t),
		broken: map[string]bool{"http://gallery/preview/B/default": true},
	}
	variants := []registry.Variant{
		{Owner: "A", Name: "default"},
		{Owner: "B", Name: "default"},
		{Owner: "C", Name: "default"},
	}
	viewports := []snapshot.Viewport{{Width: 4, Height: 4}}

	r := newTestRunner(t, renderer, variants, Config{Viewports: viewports})
	results, summary, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, snapshot.StatusNew, results[0].Status)
	assert.Equal(t, snapshot.StatusError, results[1].Status)
	assert.Equal(t, snapshot.StatusNew, results[2].Status)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.New)
	assert.Equal(t, 1, summary.Skipped)
}

func TestRunPreservesIterationOrder(t *testing.T) {
	renderer := &addressRenderer{image: whitePNG(t)}
	variants := []registry.Variant{
		{Owner: "Btn", Name: "default"},
		{Owner: "Btn", Name: "hover"},
	}
	viewports := []snapshot.Viewport{
		{Width: 4, Height: 4, Name: "desktop"},
		{Width: 4, Height: 4, Name: "mobile"},
	}

	r := newTestRunner(t, renderer, variants, Config{Viewports: viewports, Concurrency: 4})
	results, _, err := r.Run(context.Background())
	require.NoError(t, err)

	var order []string
	for _, res := range results {
		order = append(order, res.Identity.String())
	}
	assert.Equal(t, []string{
		"Btn/default@desktop",
		"Btn/default@mobile",
		"Btn/hover@desktop",
		"Btn/hover@mobile",
	}, order)
}

func TestRunSkipsFlaggedVariants(t *testing.T) {
	renderer := &addressRenderer{image: whitePNG(t)}
	variants := []registry.Variant{
		{Owner: "A", Name: "default"},
		{Owner: "B", Name: "default", Skip: true},
	}
	viewports := []snapshot.Viewport{{Width: 4, Height: 4}}

	r := newTestRunner(t, renderer, variants, Config{Viewports: viewports})
	results, summary, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].Identity.Owner)
	assert.Equal(t, 1, summary.Total)
}

func TestRunRejectsDuplicateIdentities(t *testing.T) {
	renderer := &addressRenderer{image: whitePNG(t)}
	variants := []registry.Variant{{Owner: "A", Name: "default"}}
	// Two viewports resolving to the same label collide.
	viewports := []snapshot.Viewport{
		{Width: 4, Height: 4, Name: "desktop"},
		{Width: 8, Height: 8, Name: "desktop"},
	}

	r := newTestRunner(t, renderer, variants, Config{Viewports: viewports})
	_, _, err := r.Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, snapshot.ErrDuplicateIdentity))
	assert.True(t, strings.Contains(err.Error(), "A/default@desktop"))
}

func TestRunCancellation(t *testing.T) {
	renderer := &addressRenderer{image: whitePNG(t)}
	variants := []registry.Variant{{Owner: "A", Name: "default"}}
	viewports := []snapshot.Viewport{{Width: 4, Height: 4}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(t, renderer, variants, Config{Viewports: viewports})
	_, _, err := r.Run(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
