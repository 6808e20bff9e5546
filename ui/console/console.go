// Package console prints a compact, colored pass report for -once runs.
package console

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"sitewatch/internal/output"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

const labelWidth = 20

// Print renders the dashboard view to the writer in a highly compact format.
func Print(w io.Writer, view output.DashboardView) {
	fmt.Fprintf(w, "%s■ SITEWATCH REPORT%s %s\n", colorCyan, colorReset, view.EvaluatedAt)

	if len(view.Sections) == 0 {
		fmt.Fprintf(w, "  (no site matches the filter)\n")
	}

	for _, sec := range view.Sections {
		// Section Header
		fmt.Fprintf(w, "%s─ %s [%s]%s %s%s%s\n",
			colorCyan, sec.Title, sec.ID, colorReset,
			colorFor(output.StatusForLevel(sec.Level)), sec.Level, colorReset)
		if sec.Subtitle != "" {
			fmt.Fprintf(w, "  %s\n", sec.Subtitle)
		}

		for _, it := range sec.Items {
			label := truncate(it.Label, labelWidth)
			dots := strings.Repeat("·", labelWidth+2-utf8.RuneCountInString(label))
			fmt.Fprintf(w, "  %s%s%s%s %10s%s\n", label, colorCyan, dots, colorReset, valueOf(it), marker(it.Status))
		}

		for _, inc := range sec.Incidents {
			color := colorFor(output.StatusForSeverity(inc.Severity))
			fmt.Fprintf(w, "    %s•%s %-34s %-13s %s", color, colorReset, inc.Code, inc.Kind, inc.Detail)
			if inc.At != "" {
				fmt.Fprintf(w, " (%s)", inc.At)
			}
			fmt.Fprintln(w)
		}
	}

	// Single-line Summary
	fmt.Fprintf(w, "%s─ Summary%s: Sites: %d | Incidents: %d | Highest risk: %d\n\n",
		colorCyan, colorReset, len(view.Sections), view.TotalIncidents, view.HighestRisk)
}

func valueOf(it output.Item) string {
	switch {
	case it.Unit != "":
		return strconv.FormatFloat(it.Value, 'f', -1, 64) + it.Unit
	case it.Note != "":
		return truncate(it.Note, 25)
	default:
		return strconv.FormatFloat(it.Value, 'f', -1, 64)
	}
}

func marker(status string) string {
	color := colorFor(status)
	switch status {
	case output.StatusOK:
		return fmt.Sprintf(" %s✓%s", color, colorReset)
	case output.StatusWarn:
		return fmt.Sprintf(" %s!%s", color, colorReset)
	case output.StatusCrit:
		return fmt.Sprintf(" %sX%s", color, colorReset)
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func colorFor(status string) string {
	switch status {
	case output.StatusWarn:
		return colorYellow
	case output.StatusCrit:
		return colorRed
	default:
		return colorGreen
	}
}
