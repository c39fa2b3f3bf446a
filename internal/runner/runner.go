// Package runner iterates every declared (variant, viewport) pair, isolates
// per-item failures, and aggregates the run summary.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beholdci/behold/internal/capture"
	"github.com/beholdci/behold/internal/log"
	"github.com/beholdci/behold/internal/registry"
	"github.com/beholdci/behold/internal/snapshot"
)

// Runner orchestrates one visual regression run.
type Runner struct {
	registry   registry.Registry
	controller *capture.Controller
	viewports  []snapshot.Viewport
	// concurrency bounds the number of in-flight captures; <=1 means
	// strictly sequential.
	concurrency int
	logger      *log.Logger
}

// Config holds runner configuration.
type Config struct {
	Viewports   []snapshot.Viewport
	Concurrency int
}

// New creates a Runner.
func New(reg registry.Registry, controller *capture.Controller, config Config, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Discard()
	}
	return &Runner{
		registry:    reg,
		controller:  controller,
		viewports:   config.Viewports,
		concurrency: config.Concurrency,
		logger:      logger,
	}
}

// job is one (variant, viewport) pair, carrying its slot in the result list
// so concurrent workers preserve iteration order.
type job struct {
	index   int
	request capture.Request
}

// Run captures every non-skipped (variant, viewport) pair and returns the
// results in iteration order plus the derived summary. A single item's
// error never stops iteration; only registry enumeration failure,
// configuration errors, or cancellation abort the run.
func (r *Runner) Run(ctx context.Context) ([]snapshot.Result, snapshot.Summary, error) {
	start := time.Now()

	variants, err := r.registry.Variants(ctx)
	if err != nil {
		return nil, snapshot.Summary{}, fmt.Errorf("enumerate variants: %w", err)
	}

	jobs, err := r.plan(variants)
	if err != nil {
		return nil, snapshot.Summary{}, err
	}

	r.logger.Info("run started",
		"variants", len(variants),
		"viewports", len(r.viewports),
		"captures", len(jobs),
		"concurrency", r.concurrency)

	results := make([]snapshot.Result, len(jobs))
	if r.concurrency <= 1 {
		err = r.runSequential(ctx, jobs, results)
	} else {
		err = r.runConcurrent(ctx, jobs, results)
	}
	if err != nil {
		return nil, snapshot.Summary{}, err
	}

	summary := snapshot.Summarize(results, time.Since(start).Milliseconds())
	r.logger.Info("run finished",
		"total", summary.Total,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"new", summary.New,
		"skipped", summary.Skipped,
		"duration_ms", summary.DurationMs)

	return results, summary, nil
}

// plan builds the job list and rejects identity collisions up front. Each
// identity appears at most once, which also guarantees no two in-flight
// captures ever share snapshot paths.
func (r *Runner) plan(variants []registry.Variant) ([]job, error) {
	seen := make(map[snapshot.Identity]struct{})
	var jobs []job

	for _, v := range variants {
		if v.Skip {
			r.logger.Debug("variant skipped", "variant", v.String())
			continue
		}
		for _, vp := range r.viewports {
			id := snapshot.NewIdentity(v.Owner, v.Name, vp)
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("%w: %s", snapshot.ErrDuplicateIdentity, id)
			}
			seen[id] = struct{}{}

			jobs = append(jobs, job{
				index: len(jobs),
				request: capture.Request{
					Owner:    v.Owner,
					Variant:  v.Name,
					Address:  r.registry.Address(v),
					Viewport: vp,
				},
			})
		}
	}

	return jobs, nil
}

func (r *Runner) runSequential(ctx context.Context, jobs []job, results []snapshot.Result) error {
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		results[j.index] = r.controller.Capture(ctx, j.request)
	}
	return nil
}

func (r *Runner) runConcurrent(ctx context.Context, jobs []job, results []snapshot.Result) error {
	queue := make(chan job)
	var wg sync.WaitGroup

	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				results[j.index] = r.controller.Capture(ctx, j.request)
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case queue <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	return ctx.Err()
}
