package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/beholdci/behold/internal/snapshot"
)

var (
	stylePassed = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleFailed = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleNew    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleDim    = lipgloss.NewStyle().Faint(true)
)

func statusStyle(status snapshot.Status) lipgloss.Style {
	switch status {
	case snapshot.StatusPassed:
		return stylePassed
	case snapshot.StatusFailed:
		return styleFailed
	case snapshot.StatusNew:
		return styleNew
	default:
		return styleError
	}
}

// printRun writes the human-readable run outcome. Styling is skipped when
// stdout is not a terminal (CI logs, pipes).
func printRun(results []snapshot.Result, summary snapshot.Summary) {
	styled := term.IsTerminal(int(os.Stdout.Fd()))

	render := func(style lipgloss.Style, s string) string {
		if !styled {
			return s
		}
		return style.Render(s)
	}

	for _, r := range results {
		line := fmt.Sprintf("%-8s %s", r.Status, r.Identity)
		switch r.Status {
		case snapshot.StatusFailed:
			line += fmt.Sprintf("  %.2f%% (%d px)", r.DiffPercentage, r.DiffPixels)
		case snapshot.StatusError:
			line += "  " + r.ErrorMessage
		}
		fmt.Println(render(statusStyle(r.Status), line))
	}

	fmt.Println(render(styleDim, fmt.Sprintf(
		"\n%d total: %d passed, %d failed, %d new, %d errors in %dms",
		summary.Total, summary.Passed, summary.Failed, summary.New, summary.Skipped, summary.DurationMs)))
}
