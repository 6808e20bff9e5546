package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sitewatch/internal/collector"
	"sitewatch/internal/flagger"
	"sitewatch/internal/output"
	"sitewatch/ui/tui/state"

	tea "github.com/charmbracelet/bubbletea"
)

type seedCollector struct{}

func (seedCollector) GetSnapshots(ctx context.Context) ([]collector.DeviceSnapshot, error) {
	return collector.DefaultSeed(), nil
}

// MockPassSource evaluates the default seed on every pull.
type MockPassSource struct {
	latest *output.PipelinePayload
	err    error
}

func (m *MockPassSource) PullOnce(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	p, err := output.RunPipeline(ctx, seedCollector{},
		flagger.NewFlaggerService(flagger.DefaultConfig()), collector.NodeInfo{Hostname: "tui-test"})
	if err != nil {
		return err
	}
	m.latest = p
	return nil
}

func (m *MockPassSource) Latest() *output.PipelinePayload {
	return m.latest
}

func loadedModel(t *testing.T) MainModel {
	t.Helper()
	src := &MockPassSource{}
	model := InitialModel(src, time.Second, nil)
	msg := fetchPassCmd(src)()
	updatedModel, _ := model.Update(msg)
	return *updatedModel.(*MainModel)
}

func TestMenuNavigation(t *testing.T) {
	model := InitialModel(&MockPassSource{}, time.Second, nil)

	// Initial state
	if model.menuCursor != 0 {
		t.Errorf("Expected initial menu cursor 0, got %d", model.menuCursor)
	}
	if model.state.CurrentPage != state.PageMenu {
		t.Errorf("Expected initial page PageMenu, got %v", model.state.CurrentPage)
	}

	// Test Down Navigation
	cmd := tea.KeyMsg{Type: tea.KeyDown, Runes: []rune{}, Alt: false}
	updatedModel, _ := model.Update(cmd)
	m := updatedModel.(*MainModel)

	if m.menuCursor != 1 {
		t.Errorf("Expected menu cursor 1 after Down key, got %d", m.menuCursor)
	}

	// Test Up Navigation
	cmd = tea.KeyMsg{Type: tea.KeyUp, Runes: []rune{}, Alt: false}
	updatedModel, _ = m.Update(cmd)
	m = updatedModel.(*MainModel)

	if m.menuCursor != 0 {
		t.Errorf("Expected menu cursor 0 after Up key, got %d", m.menuCursor)
	}

	// Cursor stops at the last option
	for i := 0; i < 10; i++ {
		updatedModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
		m = updatedModel.(*MainModel)
	}
	if m.menuCursor != 4 {
		t.Errorf("Expected menu cursor to stop at 4, got %d", m.menuCursor)
	}
}

func TestMenuAnimationLogic(t *testing.T) {
	model := InitialModel(&MockPassSource{}, time.Second, nil)

	// Move cursor to 1
	model.menuCursor = 1

	// Initial animation cursor should be 0
	if model.animCursor != 0 {
		t.Errorf("Expected initial animCursor 0, got %f", model.animCursor)
	}

	// The spring physics should move animCursor towards menuCursor (1.0)
	animateMsg := AnimateMsg(time.Now())
	updatedModel, _ := model.Update(animateMsg)
	m := updatedModel.(*MainModel)

	if m.animCursor <= 0 {
		t.Errorf("Expected animCursor to increase after animation frame, got %f", m.animCursor)
	}
	if m.animCursor >= 1.0 {
		t.Errorf("Expected animCursor to not reach target immediately, got %f", m.animCursor)
	}

	updatedModel, _ = m.Update(animateMsg)
	m = updatedModel.(*MainModel)
	prevCursor := m.animCursor

	updatedModel, _ = m.Update(animateMsg)
	m = updatedModel.(*MainModel)

	if m.animCursor <= prevCursor {
		t.Errorf("Expected animCursor to continue increasing, got %f (prev %f)", m.animCursor, prevCursor)
	}
}

func TestPageTransition(t *testing.T) {
	pages := []state.Page{
		state.PageConsole,
		state.PageOverview,
		state.PageIncidents,
		state.PageRisk,
		state.PageLegend,
	}

	for i, want := range pages {
		model := InitialModel(&MockPassSource{}, time.Second, nil)
		model.menuCursor = i
		updatedModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m := updatedModel.(*MainModel)

		if m.state.CurrentPage != want {
			t.Errorf("menu %d: expected page %v, got %v", i, want, m.state.CurrentPage)
		}

		// Go Back
		updatedModel, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}})
		m = updatedModel.(*MainModel)

		if m.state.CurrentPage != state.PageMenu {
			t.Errorf("Expected page to change back to PageMenu, got %v", m.state.CurrentPage)
		}
	}
}

func TestPassLoaded(t *testing.T) {
	m := loadedModel(t)

	if m.state.Payload == nil {
		t.Fatal("Expected payload after pass")
	}
	if got := len(m.state.Payload.Incidents); got != 29 {
		t.Errorf("Expected 29 incidents, got %d", got)
	}
	if got := m.state.RiskHistory["SITE-A"]; len(got) != 1 || got[0] != 100 {
		t.Errorf("Expected SITE-A history [100], got %v", got)
	}
	if len(m.state.ConsoleLogs) != 1 || !strings.Contains(m.state.ConsoleLogs[0], "SITE-B: 100") {
		t.Errorf("Unexpected console log %v", m.state.ConsoleLogs)
	}
	if m.riskChart.Title != "SITE-A" {
		t.Errorf("Expected chart for SITE-A, got %q", m.riskChart.Title)
	}
}

func TestPassFailureKeepsPayload(t *testing.T) {
	m := loadedModel(t)
	prev := m.state.Payload

	updatedModel, _ := m.Update(PassLoadedMsg{Err: errors.New("collector down")})
	got := updatedModel.(*MainModel)

	if got.state.Err == nil {
		t.Error("Expected error to be recorded")
	}
	if got.state.Payload != prev {
		t.Error("Expected previous payload to be kept")
	}
}

func TestIncidentPageSelection(t *testing.T) {
	m := loadedModel(t)
	m.state.CurrentPage = state.PageIncidents

	updatedModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	got := updatedModel.(*MainModel)
	if id := got.state.SelectedSiteID(); id != "SITE-B" {
		t.Errorf("Expected SITE-B after right, got %s", id)
	}
	if got.riskChart.Title != "SITE-B" {
		t.Errorf("Expected chart to follow selection, got %q", got.riskChart.Title)
	}

	updatedModel, _ = got.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	got = updatedModel.(*MainModel)
	f := got.state.IncidentFilter()
	if f.SiteID != "SITE-B" || f.Domain != state.DomainCycle[1] {
		t.Errorf("Unexpected filter %+v", f)
	}

	updatedModel, _ = got.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	got = updatedModel.(*MainModel)
	if got.state.IncidentFilter().Kind != state.KindCycle[1] {
		t.Errorf("Expected kind filter %s, got %s", state.KindCycle[1], got.state.IncidentFilter().Kind)
	}
}

func TestOverviewEnterOpensIncidents(t *testing.T) {
	m := loadedModel(t)
	m.state.CurrentPage = state.PageOverview

	updatedModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := updatedModel.(*MainModel)
	if got.state.CurrentPage != state.PageIncidents {
		t.Errorf("Expected PageIncidents, got %v", got.state.CurrentPage)
	}
}
