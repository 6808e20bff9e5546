package views

import (
	"fmt"
	"strings"

	"sitewatch/internal/output"
	"sitewatch/ui/tui/state"
	"sitewatch/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type IncidentsView struct{}

func (v IncidentsView) Render(s state.AppState, props ViewProps) string {
	if s.Payload == nil {
		return waiting(props)
	}

	f := s.IncidentFilter()
	incidents := f.Apply(s.Payload.Incidents)

	title := "Incidents"
	if r := s.Payload.SiteReport(f.SiteID); r != nil {
		title = fmt.Sprintf("Incidents • %s (%s) • risk %d %s", r.Site.Name, r.Site.ID, r.Risk, r.Level)
	}
	header := MenuHeaderStyle.Width(props.Width).Render(title)

	filterLine := fmt.Sprintf("Domain: %s   Kind: %s   Showing %d",
		orAll(string(f.Domain)), orAll(string(f.Kind)), len(incidents))

	headStyle := lipgloss.NewStyle().Bold(true).Foreground(BrandColor)
	lines := []string{headStyle.Render(fmt.Sprintf("%-30s %-14s %-10s %-9s %s", "CODE", "KIND", "DEVICE", "AT", "DETAIL"))}
	for _, inc := range incidents {
		row := fmt.Sprintf("%-30s %-14s %-10s %-9s %s", inc.Code, inc.Kind, inc.DeviceID, inc.At, inc.Detail)
		if inc.IsCascade() {
			row = lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Render(row)
		} else {
			row = ColorForStatus(output.StatusForSeverity(inc.Severity)).UnsetBold().Render(row)
		}
		lines = append(lines, row)
	}
	if len(incidents) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.Special).Render("No incidents match."))
	}

	// Scroll
	available := props.Height - 10
	if available < 3 {
		available = 3
	}
	body := lines
	if len(lines) > available {
		start := props.ScrollY
		if start > len(lines)-available {
			start = len(lines) - available
		}
		if start < 0 {
			start = 0
		}
		body = append([]string{lines[0]}, lines[start+1:min(start+available, len(lines))]...)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2, 0, 2).Render(filterLine),
		lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(body, "\n")),
		footer("[←/→] Site • [d] Domain • [f] Kind • [↑/↓] Scroll • [b] Back"),
	)
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}
