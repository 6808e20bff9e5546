package views

import (
	"fmt"
	"strings"

	"sitewatch/internal/engine"
	"sitewatch/ui/tui/state"

	"github.com/charmbracelet/lipgloss"
)

type LegendView struct{}

var codeLegend = [][2]string{
	{engine.CodeOffline + "<device>", "device offline (Mất kết nối)"},
	{engine.CodeStatus + "<UPS|FAN|PUMP>.<device>", "status metric reports OFF/Offline"},
	{engine.CodeZone + "2|3.<device>", "FACP zone open/short circuit"},
	{engine.CodeDoorOpen + "<device>.<door>", "door reported Open (Cửa mở)"},
	{engine.CodeThreshold + "<device>.<metric>.LOW|HIGH", "value outside its range (Vượt ngưỡng)"},
	{engine.CodeCascade + "<gateway>.<device>", "inherited from an offline gateway"},
}

func (v LegendView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Code & Risk Legend")

	var codes []string
	for _, row := range codeLegend {
		codes = append(codes, fmt.Sprintf("%-36s %s", row[0], row[1]))
	}

	points := []string{
		fmt.Sprintf("Gateway offline            +%d", engine.RiskGatewayOutage),
		fmt.Sprintf("Cascaded incident          +%d", engine.RiskCascade),
		fmt.Sprintf("Generator disconnected     +%d (once per site)", engine.RiskGeneratorOutage),
		fmt.Sprintf("Other disconnect           +%d", engine.RiskDisconnect),
		fmt.Sprintf("FACP zone fault            +%d", engine.RiskZoneFault),
		fmt.Sprintf("Door open                  +%d (doors capped at %d)", engine.RiskDoorOpen, engine.RiskDoorCap),
		fmt.Sprintf("Electrical out of range    +%d", engine.RiskElectrical),
		fmt.Sprintf("Other out of range         +%d", engine.RiskHydraulic),
		fmt.Sprintf("Score is capped at %d. Cao ≥ 70, Trung bình ≥ 40, else Thấp.", engine.RiskMax),
	}

	box := func(title string, lines []string) string {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BrandColor).
			Padding(1, 2).
			Margin(1, 1).
			Render(lipgloss.JoinVertical(lipgloss.Left,
				lipgloss.NewStyle().Bold(true).Render(title),
				strings.Join(lines, "\n"),
			))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		box("Incident Codes", codes),
		box("Risk Points", points),
		footer("Press 'b' to go back"),
	)
}
