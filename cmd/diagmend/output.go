package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"diagmend/internal/diagram"
	"diagmend/internal/pipeline"
)

var (
	styleValid     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleRepaired  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleCorrected = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleMuted     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleHeader    = lipgloss.NewStyle().Bold(true)
)

func statusStyle(s diagram.Status) lipgloss.Style {
	switch s {
	case diagram.StatusValid:
		return styleValid
	case diagram.StatusRepairedValid:
		return styleRepaired
	case diagram.StatusAiCorrectedValid:
		return styleCorrected
	default:
		return styleFailed
	}
}

// printSummary writes a per-block status table to w. Goes to stderr so the
// fixed text on stdout stays pipeable.
func printSummary(w io.Writer, res pipeline.Result) {
	if len(res.Outcomes) == 0 {
		fmt.Fprintln(w, styleMuted.Render("no diagram blocks found"))
		return
	}

	fmt.Fprintln(w, styleHeader.Render(fmt.Sprintf("%d diagram block(s): %d fixed, %d failed",
		len(res.Outcomes), res.Fixed(), res.Failed())))

	for _, o := range res.Outcomes {
		line := fmt.Sprintf("  block %d (%s): %s", o.Block.Index, o.Block.Type, o.Status)
		fmt.Fprintln(w, statusStyle(o.Status).Render(line))

		if o.Status == diagram.StatusRepairedValid {
			for _, ra := range o.Repairs {
				if ra.Changed() {
					fmt.Fprintln(w, styleMuted.Render(fmt.Sprintf("    attempt %d: %v", ra.Attempt, ra.AppliedRules)))
				}
			}
		}
		if o.Status == diagram.StatusAiCorrectedValid {
			fmt.Fprintln(w, styleMuted.Render(fmt.Sprintf("    corrected after %d AI round(s)", len(o.Rounds))))
		}
		if o.Status == diagram.StatusFailed {
			for _, d := range o.Diagnostics {
				fmt.Fprintln(w, styleMuted.Render("    "+d))
			}
		}
	}
}
