// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Full-screen chat with the partner team plus a partner browser
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/partneros/engine"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewChat ViewMode = iota
	ViewList
	ViewDetail
	ViewGraph
	ViewConfirmDelete
)

// entry is one line group in the chat transcript.
type entry struct {
	user  bool
	agent string
	text  string
	err   string
}

// Model is the main bubbletea model
type Model struct {
	engine   *engine.Engine
	session  *engine.Session
	viewMode ViewMode

	// Chat view state
	input      textinput.Model
	transcript []entry
	waiting    bool

	// List and detail view state
	selectedRow  int
	selectedName string

	// Graph view state
	graphDOT string

	// Delete confirmation state
	deleteMessage string

	// UI state
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model chatting in conversationID.
func NewModel(e *engine.Engine, conversationID string) Model {
	input := textinput.New()
	input.Placeholder = `Try "onboard Acme" or "calculate commission for Acme"`
	input.CharLimit = 5000
	input.Focus()

	return Model{
		engine:   e,
		session:  engine.NewSession(e, conversationID),
		viewMode: ViewChat,
		input:    input,
		width:    80,
		height:   24,
	}
}

// Run starts the full-screen program and blocks until the user quits.
func Run(e *engine.Engine, conversationID string) error {
	_, err := tea.NewProgram(NewModel(e, conversationID), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		return m, nil
	case responseMsg:
		return m.handleResponse(msg)
	}

	if m.viewMode == ViewChat {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewChat:
		return m.renderChatView()
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// The chat view owns every other key for typing.
	if m.viewMode == ViewChat {
		return m.handleChatKeys(msg)
	}
	if msg.String() == "q" {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)

// renderTabs shows which of the two top-level screens is active.
func (m Model) renderTabs() string {
	tabs := []struct {
		label string
		mode  ViewMode
	}{{"Chat", ViewChat}, {"Partners", ViewList}}

	var rendered []string
	for _, tab := range tabs {
		if tab.mode == m.viewMode {
			rendered = append(rendered, tabActiveStyle.Render(tab.label))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab.label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
