package views

import (
	"fmt"
	"strings"

	"sitewatch/ui/tui/state"

	"github.com/charmbracelet/lipgloss"
)

type ConsoleView struct{}

func (v ConsoleView) Render(s state.AppState, props ViewProps) string {
	content := strings.Join(s.ConsoleLogs, "\n")
	if content == "" {
		content = "No passes yet."
	}

	header := MenuHeaderStyle.Width(props.Width).Render("Live Console View")

	availableHeight := props.Height - lipgloss.Height(header) - 4
	if availableHeight < 1 {
		availableHeight = 1
	}

	lines := strings.Split(content, "\n")
	totalLines := len(lines)

	scrollY := props.ScrollY
	if scrollY < 0 {
		scrollY = 0
	}
	if scrollY > totalLines-availableHeight {
		scrollY = totalLines - availableHeight
	}
	if scrollY < 0 {
		scrollY = 0
	}

	end := scrollY + availableHeight
	if end > totalLines {
		end = totalLines
	}

	visibleLines := lines[scrollY:end]
	viewContent := strings.Join(visibleLines, "\n")

	box := lipgloss.NewStyle().
		Width(props.Width-4).
		Height(availableHeight).
		Padding(0, 1).
		Render(viewContent)

	footerText := fmt.Sprintf("Scroll: %d/%d • Press 'b' to go back", scrollY, totalLines)
	if totalLines > availableHeight {
		footerText += " • Use ↑/↓ to scroll"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(box),
		lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#555")).Render(footerText),
	)
}
