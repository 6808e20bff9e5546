package views

import (
	"fmt"
	"strings"

	"sitewatch/internal/flagger"
	"sitewatch/internal/output"
	"sitewatch/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func ColorForStatus(status string) lipgloss.Style {
	sStyle := styles.StatusStyle
	if status == output.StatusWarn {
		return sStyle.Foreground(lipgloss.Color("220")) // Gold
	} else if status == output.StatusCrit {
		return sStyle.Foreground(lipgloss.Color("196")) // Red
	}
	return sStyle.Foreground(lipgloss.Color("46")) // Green
}

func colorForLevel(l flagger.RiskLevel) lipgloss.Color {
	switch l {
	case flagger.LevelHigh:
		return styles.LevelHigh
	case flagger.LevelMedium:
		return styles.LevelMedium
	default:
		return styles.LevelLow
	}
}

// RiskBar draws score (0-100) as a bar of width cells.
func RiskBar(score, width int, level flagger.RiskLevel) string {
	filled := score * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %3d", lipgloss.NewStyle().Foreground(colorForLevel(level)).Render(bar), score)
}

func footer(text string) string {
	return lipgloss.NewStyle().Padding(1, 2).Foreground(styles.Subtle).Render(text)
}

func waiting(props ViewProps) string {
	return lipgloss.Place(props.Width, props.Height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Bold(true).Render(props.SpinnerView+" Waiting for the first pass..."))
}
