package views

import (
	"fmt"

	"sitewatch/ui/tui/state"
	"sitewatch/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

type RiskView struct{}

func (v RiskView) Render(s state.AppState, props ViewProps) string {
	if s.Payload == nil {
		return waiting(props)
	}
	r := s.Payload.SiteReport(s.SelectedSiteID())
	if r == nil {
		return waiting(props)
	}

	header := MenuHeaderStyle.Width(props.Width).Render(fmt.Sprintf("Risk History • %s (%s)", r.Site.Name, r.Site.ID))

	chart := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Highlight).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Last %d passes", len(s.RiskHistory[r.Site.ID]))),
			props.ChartView,
		))

	b := r.Breakdown
	breakdown := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Highlight).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render("Current Breakdown"),
			fmt.Sprintf("Gateway outages : %d", b.GatewayOutages),
			fmt.Sprintf("Cascades        : %d", b.Cascades),
			fmt.Sprintf("Generator down  : %t", b.GeneratorDown),
			fmt.Sprintf("Disconnects     : %d", b.Disconnects),
			fmt.Sprintf("Zone faults     : %d", b.ZoneFaults),
			fmt.Sprintf("Doors open      : %d", b.DoorsOpen),
			fmt.Sprintf("Electrical      : %d", b.Electrical),
			fmt.Sprintf("Hydraulic       : %d", b.Hydraulic),
			"",
			fmt.Sprintf("Main %d + Doors %d", b.MainPoints, b.DoorPoints),
			RiskBar(r.Risk, 20, r.Level),
		))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, chart, breakdown),
		footer("[←/→] Select site • [b] Back"),
	)
}
