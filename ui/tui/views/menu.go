package views

import (
	"fmt"
	"math"

	"sitewatch/ui/tui/state"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type MenuView struct{}

func (v MenuView) Render(s state.AppState, props ViewProps) string {
	// 1. Header
	header := MenuHeaderStyle.Width(props.Width).Render("SITEWATCH // FIRE-ALARM INCIDENTS & SITE RISK")

	// 2. Menu Items
	options := MenuOptions

	var menuItems []string
	listStartY := 6

	for i, option := range options {
		// Animation Logic
		dist := math.Abs(float64(i) - props.AnimCursor)
		selectionStrength := 0.0
		if dist < 1.0 {
			selectionStrength = 1.0 - dist
		}

		// Mouse Gradient Logic
		itemCenterY := listStartY + (i * 3) + 1
		mouseDistY := math.Abs(float64(props.MouseY - itemCenterY))

		borderColor := BaseColor
		if mouseDistY < 10 {
			ratio := 1.0 - (mouseDistY / 10.0)
			if ratio > 0.5 {
				borderColor = lipgloss.Color("#aaa")
			}
		}

		if selectionStrength > 0.1 || i == props.MenuCursor {
			borderColor = BrandColor
		}

		// Style & Render
		popOut := int(selectionStrength * 2)

		boxStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1).
			MarginLeft(2 + popOut).
			Width(40)

		if i == props.MenuCursor {
			boxStyle = boxStyle.Bold(true).Foreground(lipgloss.Color("#FFF"))
		} else {
			boxStyle = boxStyle.Foreground(lipgloss.Color("#AAA"))
		}

		text := fmt.Sprintf("%02d. %s", i+1, option)
		renderedItem := boxStyle.Render(text)

		zoneID := fmt.Sprintf("menu_%d", i)
		menuItems = append(menuItems, zone.Mark(zoneID, renderedItem))
	}

	// 3. Construct Menu Box
	menuList := lipgloss.JoinVertical(lipgloss.Left, menuItems...)

	menuContent := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(2).Foreground(BrandColor).Render("MONITORING VIEWS"),
		CopyStyle.Render(summaryLine(s)),
		menuList,
	)

	menuBox := MenuBoxStyle.Render(menuContent)

	// 4. Footer
	controlsText := lipgloss.NewStyle().Foreground(lipgloss.Color("#333")).Render("\n[↑/↓] Navigate • [Enter] Select • [Q] Quit")
	footerStyled := lipgloss.NewStyle().PaddingLeft(2).Render(controlsText)

	body := lipgloss.JoinVertical(lipgloss.Left,
		menuBox,
		footerStyled,
	)

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

// MenuOptions are the menu entries; the index is the menu cursor.
var MenuOptions = []string{
	"Console Output View",
	"Site Overview",
	"Incident List",
	"Risk History",
	"Code & Risk Legend",
}

func summaryLine(s state.AppState) string {
	if s.Payload == nil {
		return "Waiting for the first evaluation pass."
	}
	highest := 0
	for _, r := range s.Payload.Sites {
		highest = max(highest, r.Risk)
	}
	return fmt.Sprintf("%d sites • %d devices • %d incidents • highest risk %d",
		len(s.Payload.Sites), len(s.Payload.Devices), len(s.Payload.Incidents), highest)
}

// Keep styles global or move to theme.go if preferred, but keeping here for now.
var (
	BrandColor = lipgloss.Color("#f27b24")
	BaseColor  = lipgloss.Color("#444")

	MenuHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(BrandColor).
			Align(lipgloss.Left).
			Padding(1, 2)

	MenuBoxStyle = lipgloss.NewStyle().
			Padding(1, 0).
			MarginTop(1)

	CopyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888")).
			Italic(true).
			MarginBottom(1).
			PaddingLeft(2)
)
