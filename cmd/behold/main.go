package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName    = "behold"
	appVersion = "0.3.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Visual regression testing for component galleries",
	Long: `Behold captures screenshots of component variants in a headless
browser and compares them against approved baseline images.

Subcommands:
  run      capture and compare all variants (default)
  approve  promote failed captures to baselines
  update   promote every capture to its baseline
  clean    delete baselines for removed variants
  list     show known baselines`,
	Version: appVersion,
	// Invoking behold with no subcommand runs the suite.
	Run: runRun,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to .behold.kdl (default: search upward from cwd)")
	rootCmd.PersistentFlags().String("dir", "", "Snapshot directory (overrides config)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log", "text", "Log format: text or json")

	addRunFlags(rootCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(listCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// fatal prints the error and exits. Used by command Run funcs for failures
// that are not test-result failures.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
