package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/beholdci/behold/internal/browser"
	"github.com/beholdci/behold/internal/capture"
	"github.com/beholdci/behold/internal/lifecycle"
	"github.com/beholdci/behold/internal/registry"
	"github.com/beholdci/behold/internal/report"
	"github.com/beholdci/behold/internal/runner"
	"github.com/beholdci/behold/internal/snapshot"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture and compare all component variants",
	Long: `Run captures a screenshot of every declared (variant, viewport)
pair and compares it against the stored baseline.

A variant seen for the first time becomes its own baseline (status "new").
A capture whose diff percentage exceeds the threshold fails the run.
Captures that error (navigation timeout, crashed page) are reported but do
not gate the exit code unless --fail-on-error is set.

Exit codes:
  0  all captures passed (or were new)
  1  at least one capture failed, or --fail-on-error and an error occurred`,
	Run: runRun,
}

func init() {
	addRunFlags(runCmd)
}

// addRunFlags registers run's flags; shared with the root command since
// bare "behold" runs the suite.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("threshold", -1, "Max acceptable diff percentage (overrides config)")
	cmd.Flags().Int("concurrency", 0, "Concurrent captures (overrides config)")
	cmd.Flags().Duration("settle", 0, "Post-render settle delay (overrides config)")
	cmd.Flags().String("base-url", "", "Gallery dev server base URL (overrides config)")
	cmd.Flags().StringSlice("viewport", nil, "Capture viewport, WxH or name=WxH (repeatable, overrides config)")
	cmd.Flags().String("chrome", "", "Chrome/Chromium binary (overrides config)")
	cmd.Flags().String("cdp", "", "Attach to a running browser at this devtools websocket URL")
	cmd.Flags().Bool("update", false, "Promote every capture to its baseline after the run")
	cmd.Flags().Bool("fail-on-error", false, "Also gate the exit code on errored captures")
	cmd.Flags().String("html", "", "Write an HTML report to this path")
	cmd.Flags().String("json", "", "Write the JSON report to this path (default: <snapshot-dir>/report.json)")
}

func runRun(cmd *cobra.Command, args []string) {
	app, err := newAppContext(cmd)
	if err != nil {
		fatal(err)
	}
	applyRunOverrides(cmd, app)

	ctx, cancel := signalContext()
	defer cancel()

	var rend capture.Renderer
	if app.cfg.CDPURL != "" {
		b, err := browser.Attach(ctx, app.cfg.CDPURL, browserOptions(app))
		if err != nil {
			fatal(err)
		}
		defer b.Close()
		rend = b
	} else {
		b, err := browser.Launch(ctx, browserOptions(app))
		if err != nil {
			fatal(err)
		}
		defer b.Close()
		rend = b
	}

	reg := registry.NewStatic(app.cfg.BaseURL, app.cfg.Variants)
	controller := capture.NewController(app.store, rend, app.cfg.Threshold, app.logger)
	r := runner.New(reg, controller, runner.Config{
		Viewports:   app.cfg.Viewports,
		Concurrency: app.cfg.Concurrency,
	}, app.logger)

	results, summary, err := r.Run(ctx)
	if err != nil {
		fatal(err)
	}

	updated := false
	if update, _ := cmd.Flags().GetBool("update"); update {
		manager := lifecycle.NewManager(app.store, app.logger)
		count, err := manager.Update(results)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Updated %d baseline(s)\n", count)
		updated = true
	}

	rep := report.New(results, summary)
	jsonPath := app.reportPath()
	if p, _ := cmd.Flags().GetString("json"); p != "" {
		jsonPath = p
	}
	if err := rep.WriteJSON(jsonPath); err != nil {
		fatal(err)
	}
	if htmlPath, _ := cmd.Flags().GetString("html"); htmlPath != "" {
		if err := rep.WriteHTML(htmlPath); err != nil {
			fatal(err)
		}
	}

	printRun(results, summary)

	failOnError, _ := cmd.Flags().GetBool("fail-on-error")
	gateOnError := (failOnError || app.cfg.FailOnError) && summary.Skipped > 0
	// Failures accepted via --update no longer gate the exit code.
	if (summary.Failed > 0 && !updated) || gateOnError {
		os.Exit(1)
	}
}

func applyRunOverrides(cmd *cobra.Command, app *appContext) {
	if v, _ := cmd.Flags().GetFloat64("threshold"); v >= 0 {
		app.cfg.Threshold = v
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		app.cfg.Concurrency = v
	}
	if v, _ := cmd.Flags().GetDuration("settle"); v > 0 {
		app.cfg.Settle = v
	}
	if v, _ := cmd.Flags().GetString("base-url"); v != "" {
		app.cfg.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("chrome"); v != "" {
		app.cfg.Chrome = v
	}
	if v, _ := cmd.Flags().GetString("cdp"); v != "" {
		app.cfg.CDPURL = v
	}
	if vals, _ := cmd.Flags().GetStringSlice("viewport"); len(vals) > 0 {
		viewports := make([]snapshot.Viewport, 0, len(vals))
		for _, s := range vals {
			vp, err := parseViewport(s)
			if err != nil {
				fatal(err)
			}
			viewports = append(viewports, vp)
		}
		app.cfg.Viewports = viewports
	}
	if err := app.cfg.Validate(); err != nil {
		fatal(err)
	}
}

// parseViewport parses "WxH" or "name=WxH" flag values.
func parseViewport(s string) (snapshot.Viewport, error) {
	var vp snapshot.Viewport
	size := s
	if name, rest, ok := strings.Cut(s, "="); ok {
		vp.Name = name
		size = rest
	}
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return vp, fmt.Errorf("viewport %q: want WxH or name=WxH", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return vp, fmt.Errorf("viewport %q: bad width: %w", s, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return vp, fmt.Errorf("viewport %q: bad height: %w", s, err)
	}
	vp.Width, vp.Height = width, height
	return vp, nil
}

func browserOptions(app *appContext) browser.Options {
	return browser.Options{
		Chrome:            app.cfg.Chrome,
		ReadySelector:     app.cfg.ReadySelector,
		Settle:            app.cfg.Settle,
		NavigationTimeout: 30 * time.Second,
		Logger:            app.logger,
	}
}
