package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beholdci/behold/internal/lifecycle"
	"github.com/beholdci/behold/internal/report"
)

var approveCmd = &cobra.Command{
	Use:   "approve [pattern]",
	Short: "Promote failed captures to baselines",
	Long: `Approve accepts the visual changes of failed captures from the last
run by copying their current images over the baselines.

An optional glob pattern narrows which identities are approved. Patterns
match "Component/variant" or the full "Component/variant@viewport" form:

  behold approve                    # approve every failure
  behold approve 'Button/*'         # approve all Button variants
  behold approve '*/default'        # approve the default variant everywhere
  behold approve 'Card/*@mobile'    # approve Card failures at one viewport

Captures that errored are never approved; there is no trustworthy current
image to promote.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runApprove,
}

func runApprove(cmd *cobra.Command, args []string) {
	app, err := newAppContext(cmd)
	if err != nil {
		fatal(err)
	}

	rep, err := report.LoadJSON(app.reportPath())
	if err != nil {
		fatal(err)
	}

	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}

	manager := lifecycle.NewManager(app.store, app.logger)
	count, err := manager.Approve(rep.Results, pattern)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Approved %d baseline(s)\n", count)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Promote every capture from the last run to its baseline",
	Long: `Update unconditionally copies every current image from the last run
over its baseline, regardless of pass/fail status. Use it to accept all
changes after reviewing a run.`,
	Run: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) {
	app, err := newAppContext(cmd)
	if err != nil {
		fatal(err)
	}

	rep, err := report.LoadJSON(app.reportPath())
	if err != nil {
		fatal(err)
	}

	manager := lifecycle.NewManager(app.store, app.logger)
	count, err := manager.Update(rep.Results)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Updated %d baseline(s)\n", count)
}
