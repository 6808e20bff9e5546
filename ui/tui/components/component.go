package components

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Component is a widget the controller embeds and redraws each frame.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Model, tea.Cmd)
	View() string
}
