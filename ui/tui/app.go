// Package tui is the interactive terminal dashboard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/output"
	"sitewatch/ui/tui/components"
	"sitewatch/ui/tui/state"
	"sitewatch/ui/tui/views"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

const passTimeout = 10 * time.Second

// PassSource runs evaluation passes for the dashboard.
type PassSource interface {
	PullOnce(ctx context.Context) error
	Latest() *output.PipelinePayload
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	source         PassSource
	interval       time.Duration
	logger         *zap.Logger
	state          state.AppState
	spinner        spinner.Model
	riskChart      *components.RiskWidget
	menuCursor     int
	animCursor     float64
	velocity       float64 // Physics velocity
	spring         harmonica.Spring
	consoleScrollY int
	incidentScroll int
	mouseX         int
	mouseY         int
	quitting       bool
	width          int
	height         int
}

// Messages
type TickMsg time.Time
type AnimateMsg time.Time
type PassLoadedMsg struct {
	Payload *output.PipelinePayload
	Err     error
}

func InitialModel(source PassSource, interval time.Duration, logger *zap.Logger) MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize physics spring for smooth cursor animation
	// Increased frequency (12.0) for faster response and damping (0.9) to prevent overshoot
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	return MainModel{
		source:    source,
		interval:  interval,
		logger:    logger.Named("tui"),
		spinner:   s,
		riskChart: components.NewRiskWidget(30, 10),
		spring:    spring,
		state: state.AppState{
			RiskHistory: make(map[string][]float64),
			CurrentPage: state.PageMenu,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		fetchPassCmd(m.source),
		tickCmd(m.interval),
		animateCmd(),
	)
}

// Commands
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func fetchPassCmd(src PassSource) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
		defer cancel()
		if err := src.PullOnce(ctx); err != nil {
			return PassLoadedMsg{Err: err}
		}
		return PassLoadedMsg{Payload: src.Latest()}
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case TickMsg:
		return m.handleTickMsg(msg)

	case PassLoadedMsg:
		return m.handlePassLoadedMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	if m.state.CurrentPage == state.PageMenu {
		switch msg.String() {
		case "up", "k":
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case "down", "j":
			if m.menuCursor < len(views.MenuOptions)-1 {
				m.menuCursor++
			}
		case "enter":
			m.navigateTo(m.menuCursor)
		}
		return m, nil
	}

	switch msg.String() {
	case "b", "esc", "backspace":
		m.state.CurrentPage = state.PageMenu
		m.consoleScrollY = 0
		m.incidentScroll = 0
		return m, nil
	case "r":
		return m, fetchPassCmd(m.source)
	}

	switch m.state.CurrentPage {
	case state.PageConsole:
		switch msg.String() {
		case "up", "k":
			if m.consoleScrollY > 0 {
				m.consoleScrollY--
			}
		case "down", "j":
			m.consoleScrollY++
		}

	case state.PageOverview, state.PageRisk:
		switch msg.String() {
		case "left", "h", "shift+tab":
			m.selectSite(-1)
		case "right", "l", "tab":
			m.selectSite(1)
		case "enter":
			m.state.CurrentPage = state.PageIncidents
		}

	case state.PageIncidents:
		switch msg.String() {
		case "left", "h", "shift+tab":
			m.selectSite(-1)
		case "right", "l", "tab":
			m.selectSite(1)
		case "d":
			m.state.CycleDomain()
			m.incidentScroll = 0
		case "f":
			m.state.CycleKind()
			m.incidentScroll = 0
		case "up", "k":
			if m.incidentScroll > 0 {
				m.incidentScroll--
			}
		case "down", "j":
			m.incidentScroll++
		}
	}
	return m, nil
}

func (m *MainModel) selectSite(delta int) {
	m.state.CycleSite(delta)
	m.incidentScroll = 0
	m.refreshChart()
}

func (m *MainModel) navigateTo(cursor int) {
	switch cursor {
	case 0:
		m.state.CurrentPage = state.PageConsole
	case 1:
		m.state.CurrentPage = state.PageOverview
	case 2:
		m.state.CurrentPage = state.PageIncidents
	case 3:
		m.state.CurrentPage = state.PageRisk
	case 4:
		m.state.CurrentPage = state.PageLegend
	}
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	var v float64 = m.velocity
	m.animCursor, v = m.spring.Update(m.animCursor, float64(m.menuCursor), v)
	m.velocity = v
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	newW := msg.Width/2 - 6
	if newW > 10 {
		m.riskChart.Resize(newW, 10)
		m.refreshChart()
	}
	return m, nil
}

func (m *MainModel) handleTickMsg(msg TickMsg) (tea.Model, tea.Cmd) {
	return m, tea.Batch(
		fetchPassCmd(m.source),
		tickCmd(m.interval),
	)
}

func (m *MainModel) handlePassLoadedMsg(msg PassLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.state.Err = msg.Err
		m.logger.Warn("pass failed", zap.Error(msg.Err))
		return m, nil
	}
	if msg.Payload == nil {
		return m, nil
	}

	// Update State
	now := time.Now()
	m.state.Apply(msg.Payload, now, passLogLine(now, msg.Payload))
	m.refreshChart()
	return m, nil
}

func passLogLine(at time.Time, p *output.PipelinePayload) string {
	parts := make([]string, 0, len(p.Sites))
	for _, r := range p.Sites {
		parts = append(parts, fmt.Sprintf("%s: %d (%s) %d inc", r.Site.ID, r.Risk, r.Level, r.IncidentCount))
	}
	return fmt.Sprintf("[%s] %s", at.Format("15:04:05"), strings.Join(parts, " | "))
}

// refreshChart plots the risk history of the selected site.
func (m *MainModel) refreshChart() {
	id := m.state.SelectedSiteID()
	m.riskChart.SetHistory(id, m.state.RiskHistory[id])
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if msg.Action != tea.MouseActionRelease {
		return m, nil
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		for i := range views.MenuOptions {
			if zone.Get(fmt.Sprintf("menu_%d", i)).InBounds(msg) {
				m.menuCursor = i
				m.navigateTo(i)
				return m, nil
			}
		}
	case state.PageOverview:
		for i := range m.state.SiteIDs() {
			if zone.Get(views.SiteZoneID(i)).InBounds(msg) {
				m.state.SelectedSite = i
				m.refreshChart()
				return m, nil
			}
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	switch m.state.CurrentPage {
	case state.PageMenu:
		return views.RenderMenu(m.state, m.width, m.height, m.menuCursor, m.animCursor, m.mouseX, m.mouseY)
	case state.PageOverview:
		return views.RenderOverview(m.state, m.spinner.View(), m.width, m.height)
	case state.PageIncidents:
		return views.RenderIncidents(m.state, m.spinner.View(), m.width, m.height, m.incidentScroll)
	case state.PageRisk:
		return views.RenderRisk(m.state, m.spinner.View(), m.riskChart.ChartView(), m.width, m.height)
	case state.PageLegend:
		return views.RenderLegend(m.state, m.width, m.height)
	case state.PageConsole:
		return views.RenderRawConsole(m.state, m.width, m.height, m.consoleScrollY)
	default:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Bold(true).Render("Unknown page\n\nPress 'b' to go back"),
		)
	}
}

// Start runs the dashboard until the user quits.
func Start(source PassSource, interval time.Duration, logger *zap.Logger) error {
	m := InitialModel(source, interval, logger)
	p := tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
