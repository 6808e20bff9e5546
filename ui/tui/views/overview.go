package views

import (
	"fmt"

	"sitewatch/internal/output"
	"sitewatch/ui/tui/state"
	"sitewatch/ui/tui/styles"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

// SiteZoneID is the bubblezone id of a site card.
func SiteZoneID(i int) string {
	return fmt.Sprintf("site_%d", i)
}

type OverviewView struct{}

func (v OverviewView) Render(s state.AppState, props ViewProps) string {
	if s.Err != nil && s.Payload == nil {
		return fmt.Sprintf("Error: %v", s.Err)
	}
	if s.Payload == nil {
		return waiting(props)
	}

	dashboard := output.BuildDashboard(s.Payload, output.SmartFilter{})

	header := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render("Sitewatch"),
		fmt.Sprintf(" Last Update: %s • %d incidents • highest risk %d",
			s.LastUpdate.Format("15:04:05"), dashboard.TotalIncidents, dashboard.HighestRisk),
	)

	renderSection := func(sec output.Section) string {
		content := ""
		for _, item := range sec.Items {
			var valStr string
			switch {
			case item.Key == output.ItemRisk:
				valStr = RiskBar(int(item.Value), 20, sec.Level)
			case item.Note != "":
				valStr = item.Note
			default:
				valStr = fmt.Sprintf("%.0f", item.Value)
			}
			if item.Status != "" {
				valStr += " " + ColorForStatus(item.Status).Render("["+item.Status+"]")
			}
			content += fmt.Sprintf("%-12s : %s\n", item.Label, valStr)
		}
		if risk := sec.ItemByKey(output.ItemRisk); risk != nil && risk.Note != "" {
			content += lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#888")).Render(risk.Note)
		}
		return content
	}

	selected := s.SelectedSiteID()
	var cards []string
	for i, sec := range dashboard.Sections {
		style := styles.CardStyle
		if sec.ID == selected {
			style = styles.SelectedCardStyle
		}
		title := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s (%s) • %s", sec.Title, sec.ID, sec.Level))
		cards = append(cards, zone.Mark(SiteZoneID(i), style.Render(
			lipgloss.JoinVertical(lipgloss.Left,
				title,
				lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Render(sec.Subtitle),
				"",
				renderSection(sec),
			),
		)))
	}

	// Two cards per row
	var rows []string
	for i := 0; i < len(cards); i += 2 {
		end := min(i+2, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}

	parts := append([]string{header}, rows...)
	if s.Err != nil {
		parts = append(parts, ColorForStatus(output.StatusCrit).Render("Last pass failed: "+s.Err.Error()))
	}
	parts = append(parts, footer("[←/→] Select site • [Enter] Incidents • [b] Back • [q] Quit"))
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
