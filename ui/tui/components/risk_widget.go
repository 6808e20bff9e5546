package components

import (
	"sitewatch/ui/tui/styles"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RiskWidget charts a site's risk score over the last passes.
type RiskWidget struct {
	Chart   linechart.Model
	Title   string
	History []float64
	Width   int
	Height  int
}

func NewRiskWidget(width, height int) *RiskWidget {
	// width, height, minX, maxX, minY, maxY
	lc := linechart.New(width, height, 0, 30, 0, 100)
	return &RiskWidget{
		Chart:   lc,
		Title:   "Risk History",
		History: make([]float64, 0, 31),
		Width:   width,
		Height:  height,
	}
}

func (c *RiskWidget) Init() tea.Cmd {
	return nil
}

// SetHistory replaces the plotted series.
func (c *RiskWidget) SetHistory(title string, history []float64) {
	c.Title = title
	c.History = append(c.History[:0], history...)
}

func (c *RiskWidget) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return c, nil
}

func (c *RiskWidget) Resize(w, h int) {
	c.Width = w
	c.Height = h
	c.Chart.Resize(w, h)
}

// ChartView renders the bare chart.
func (c *RiskWidget) ChartView() string {
	c.Chart.Clear()
	if len(c.History) == 1 {
		p := canvas.Float64Point{X: 0, Y: c.History[0]}
		c.Chart.DrawBrailleLine(p, p)
	}
	for i := 0; i < len(c.History)-1; i++ {
		c.Chart.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: c.History[i]},
			canvas.Float64Point{X: float64(i + 1), Y: c.History[i+1]},
		)
	}
	c.Chart.DrawXYAxisAndLabel()
	return c.Chart.View()
}

func (c *RiskWidget) View() string {
	return styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(c.Title),
			c.ChartView(),
		),
	)
}

var _ Component = (*RiskWidget)(nil)
