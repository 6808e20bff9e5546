package views

import (
	"sitewatch/ui/tui/state"
)

// ViewProps carries what the controller owns and the pages only read.
type ViewProps struct {
	Width, Height  int
	MouseX, MouseY int

	MenuCursor  int
	AnimCursor  float64
	SpinnerView string
	ChartView   string // pre-rendered risk chart of the selected site
	ScrollY     int    // first visible line of scrollable pages
}

// View renders one page from the current pass.
type View interface {
	Render(s state.AppState, props ViewProps) string
}

var (
	_ View = MenuView{}
	_ View = ConsoleView{}
	_ View = OverviewView{}
	_ View = IncidentsView{}
	_ View = RiskView{}
	_ View = LegendView{}
)
