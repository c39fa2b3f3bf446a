// Package capture drives the rendering collaborator to produce a current
// screenshot for a variant and classifies it against the stored baseline.
package capture

import (
	"context"
	"fmt"

	"github.com/beholdci/behold/internal/diff"
	"github.com/beholdci/behold/internal/imaging"
	"github.com/beholdci/behold/internal/log"
	"github.com/beholdci/behold/internal/snapshot"
)

// Renderer is the external rendering collaborator. It opens an isolated
// browsing context sized to the viewport, navigates to the address, waits
// for readiness and a settle delay, and returns raw PNG bytes. Failures
// surface as errors.
type Renderer interface {
	RenderAndCapture(ctx context.Context, address string, viewport snapshot.Viewport) ([]byte, error)
}

// Request identifies one capture target.
type Request struct {
	Owner    string
	Variant  string
	Address  string
	Viewport snapshot.Viewport
}

// Controller captures and classifies a single (variant, viewport) pair.
type Controller struct {
	store     *snapshot.Store
	renderer  Renderer
	threshold float64
	logger    *log.Logger
}

// NewController creates a capture controller. Threshold is the maximum
// acceptable diff percentage, in [0,100], compared inclusively.
func NewController(store *snapshot.Store, renderer Renderer, threshold float64, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Discard()
	}
	return &Controller{
		store:     store,
		renderer:  renderer,
		threshold: threshold,
		logger:    logger,
	}
}

// Capture produces the comparison result for one target. Every failure is
// recorded in the result as StatusError rather than returned, so a broken
// variant can never abort a run.
func (c *Controller) Capture(ctx context.Context, req Request) snapshot.Result {
	id := snapshot.NewIdentity(req.Owner, req.Variant, req.Viewport)
	result := snapshot.Result{
		Identity: id,
		Viewport: req.Viewport,
		Paths:    c.store.Paths(id),
	}

	raw, err := c.renderer.RenderAndCapture(ctx, req.Address, req.Viewport)
	if err != nil {
		return c.errored(result, fmt.Errorf("render %s: %w", id, err))
	}

	if err := c.store.WriteCurrent(id, raw); err != nil {
		return c.errored(result, err)
	}

	// First sight of a variant: the capture becomes the baseline. A fresh
	// project needs zero manual setup.
	if !c.store.BaselineExists(id) {
		if err := c.store.PromoteCurrent(id); err != nil {
			return c.errored(result, err)
		}
		c.logger.Info("baseline created", "identity", id.String())
		result.Status = snapshot.StatusNew
		return result
	}

	baseline, err := imaging.DecodeFile(result.Paths.Baseline)
	if err != nil {
		return c.errored(result, err)
	}
	current, err := imaging.DecodeBytes(raw)
	if err != nil {
		return c.errored(result, fmt.Errorf("decode current %s: %w", id, err))
	}

	cmp := diff.Compare(baseline, current)
	result.DiffPixels = cmp.DiffPixels
	result.TotalPixels = cmp.TotalPixels
	result.DiffPercentage = cmp.DiffPercentage

	// The diff image is persisted whenever any pixel differs, independent
	// of pass/fail; a below-threshold diff is still worth inspecting.
	if cmp.DiffPixels > 0 {
		if err := imaging.EncodeFile(result.Paths.Diff, cmp.DiffImage); err != nil {
			return c.errored(result, err)
		}
	} else if err := c.store.RemoveDiff(id); err != nil {
		return c.errored(result, err)
	}

	if cmp.DiffPercentage <= c.threshold {
		result.Status = snapshot.StatusPassed
	} else {
		result.Status = snapshot.StatusFailed
		c.logger.Warn("visual difference",
			"identity", id.String(),
			"diff_percentage", cmp.DiffPercentage,
			"diff_pixels", cmp.DiffPixels)
	}

	return result
}

func (c *Controller) errored(result snapshot.Result, err error) snapshot.Result {
	c.logger.Error("capture failed", "identity", result.Identity.String(), "error", err)
	result.Status = snapshot.StatusError
	result.ErrorMessage = err.Error()
	return result
}
