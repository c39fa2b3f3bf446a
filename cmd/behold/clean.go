package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beholdci/behold/internal/lifecycle"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete baselines for removed variants",
	Long: `Clean scans the snapshot directory for baseline images whose
identity no longer matches any declared (variant, viewport) combination
and deletes them.

Baselines of variants that are declared but skipped are kept.`,
	Run: runClean,
}

func runClean(cmd *cobra.Command, args []string) {
	app, err := newAppContext(cmd)
	if err != nil {
		fatal(err)
	}

	manager := lifecycle.NewManager(app.store, app.logger)
	deleted, err := manager.CleanOrphans(app.cfg.Variants, app.cfg.Viewports)
	if err != nil {
		fatal(err)
	}

	if len(deleted) == 0 {
		fmt.Println("No orphaned baselines")
		return
	}
	for _, id := range deleted {
		fmt.Printf("Removed %s\n", id)
	}
	fmt.Printf("Removed %d orphaned baseline(s)\n", len(deleted))
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show known baselines",
	Run:   runList,
}

func runList(cmd *cobra.Command, args []string) {
	app, err := newAppContext(cmd)
	if err != nil {
		fatal(err)
	}

	ids, err := app.store.ListBaselines()
	if err != nil {
		fatal(err)
	}

	if len(ids) == 0 {
		fmt.Println("No baselines yet; run `behold run` to create them")
		return
	}
	for _, id := range ids {
		info, err := os.Stat(app.store.Paths(id).Baseline)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%-50s %s\n", id, info.ModTime().Format("2006-01-02 15:04:05"))
	}
}
