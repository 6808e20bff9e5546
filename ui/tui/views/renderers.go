package views

import (
	"sitewatch/ui/tui/state"
)

func RenderMenu(s state.AppState, width, height, cursor int, animCursor float64, mouseX, mouseY int) string {
	v := MenuView{}
	return v.Render(s, ViewProps{
		Width:      width,
		Height:     height,
		MenuCursor: cursor,
		AnimCursor: animCursor,
		MouseX:     mouseX,
		MouseY:     mouseY,
	})
}

func RenderOverview(s state.AppState, spinnerView string, width, height int) string {
	v := OverviewView{}
	return v.Render(s, ViewProps{
		Width:       width,
		Height:      height,
		SpinnerView: spinnerView,
	})
}

func RenderIncidents(s state.AppState, spinnerView string, width, height, scrollY int) string {
	v := IncidentsView{}
	return v.Render(s, ViewProps{
		Width:       width,
		Height:      height,
		SpinnerView: spinnerView,
		ScrollY:     scrollY,
	})
}

func RenderRisk(s state.AppState, spinnerView, chartView string, width, height int) string {
	v := RiskView{}
	return v.Render(s, ViewProps{
		Width:       width,
		Height:      height,
		SpinnerView: spinnerView,
		ChartView:   chartView,
	})
}

func RenderLegend(s state.AppState, width, height int) string {
	v := LegendView{}
	return v.Render(s, ViewProps{
		Width:  width,
		Height: height,
	})
}

func RenderRawConsole(s state.AppState, width, height, scrollY int) string {
	v := ConsoleView{}
	return v.Render(s, ViewProps{
		Width:   width,
		Height:  height,
		ScrollY: scrollY,
	})
}
