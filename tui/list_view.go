// ABOUTME: Partner list view for the TUI
// ABOUTME: Table of partners with tier, deal count and value
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/partneros/models"
	"github.com/harperreed/partneros/skills"
)

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PARTNEROS"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	s.WriteString(m.renderPartnersTable())
	s.WriteString("\n")

	if m.deleteMessage != "" {
		s.WriteString(m.deleteMessage)
		s.WriteString("\n")
	}

	s.WriteString(m.renderListHelp())
	return s.String()
}

func (m Model) partners() ([]models.Partner, error) {
	return m.engine.Ledger().List()
}

func (m Model) renderPartnersTable() string {
	partners, err := m.partners()
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if len(partners) == 0 {
		return "No partners yet. Switch to Chat and try \"onboard Acme\"."
	}

	columns := []table.Column{
		{Title: "Name", Width: 28},
		{Title: "Tier", Width: 8},
		{Title: "Status", Width: 12},
		{Title: "Deals", Width: 6},
		{Title: "Value", Width: 14},
	}

	var rows []table.Row
	for _, p := range partners {
		rows = append(rows, table.Row{
			p.Name,
			string(p.Tier),
			p.Status,
			fmt.Sprintf("%d", len(p.Deals)),
			skills.Dollars(p.TotalDealValue()),
		})
	}

	height := m.height - 10
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Enter: View details",
		"Tab: Chat",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.deleteMessage = ""
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if partners, err := m.partners(); err == nil && m.selectedRow < len(partners)-1 {
			m.selectedRow++
		}
	case "tab", "esc":
		m.viewMode = ViewChat
	case "enter":
		if name := m.getSelectedName(); name != "" {
			m.selectedName = name
			m.viewMode = ViewDetail
		}
	}

	return m, nil
}

func (m Model) getSelectedName() string {
	partners, err := m.partners()
	if err != nil || m.selectedRow >= len(partners) {
		return ""
	}
	return partners[m.selectedRow].Name
}
