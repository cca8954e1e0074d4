// ABOUTME: Chat view for the TUI
// ABOUTME: Sends lines through the engine session off the UI goroutine and renders the transcript
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/partneros/engine"
)

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	agentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

const chatHelp = "/help for commands • /partners to browse • /clear to reset • ctrl+c to quit"

type responseMsg struct {
	resp *engine.Response
}

func (m Model) send(line string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		return responseMsg{resp: session.Send(context.Background(), line)}
	}
}

func (m Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.viewMode = ViewList
		m.selectedRow = 0
		return m, nil
	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" || m.waiting {
		return m, nil
	}
	m.input.SetValue("")

	switch strings.ToLower(line) {
	case "quit", "exit":
		return m, tea.Quit
	case "/help":
		m.transcript = append(m.transcript, entry{agent: "system", text: chatHelp})
		return m, nil
	case "/partners":
		m.viewMode = ViewList
		m.selectedRow = 0
		return m, nil
	case "/clear":
		m.session.Reset()
		m.transcript = nil
		if err := m.engine.Memory().Clear(context.Background(), m.session.ConversationID()); err != nil {
			m.transcript = append(m.transcript, entry{agent: "system", err: err.Error()})
		}
		return m, nil
	}

	m.transcript = append(m.transcript, entry{user: true, text: line})
	m.waiting = true
	return m, m.send(line)
}

func (m Model) handleResponse(msg responseMsg) (tea.Model, tea.Cmd) {
	m.waiting = false
	resp := msg.resp
	m.transcript = append(m.transcript, entry{agent: resp.Agent, text: resp.Response, err: resp.Error})
	if m.session.Pending() {
		m.input.Placeholder = "Partner company name"
	} else {
		m.input.Placeholder = ""
	}
	return m, nil
}

func (m Model) renderChatView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PARTNEROS"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	s.WriteString(m.renderTranscript())
	s.WriteString("\n")
	if m.waiting {
		s.WriteString(helpStyle.Render("thinking..."))
		s.WriteString("\n")
	}
	s.WriteString(m.input.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(chatHelp))

	return s.String()
}

// renderTranscript keeps only the newest lines that fit on screen.
func (m Model) renderTranscript() string {
	var lines []string
	for _, e := range m.transcript {
		if e.user {
			lines = append(lines, userStyle.Render("you")+" "+textStyle.Render(e.text))
		} else {
			agent := e.agent
			if agent == "" {
				agent = "system"
			}
			lines = append(lines, agentStyle.Render(agent))
			if e.text != "" {
				lines = append(lines, strings.Split(textStyle.Render(e.text), "\n")...)
			}
			if e.err != "" {
				lines = append(lines, errorStyle.Render(e.err))
			}
		}
		lines = append(lines, "")
	}

	room := m.height - 9
	if room < 3 {
		room = 3
	}
	if len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	return strings.Join(lines, "\n")
}
