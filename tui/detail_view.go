package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/partneros/skills"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PARTNER DETAIL"))
	s.WriteString("\n\n")
	s.WriteString(m.renderPartnerDetail())
	s.WriteString("\n\n")
	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	}
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderPartnerDetail() string {
	p, err := m.engine.Ledger().Get(m.selectedName)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if p == nil {
		return fmt.Sprintf("Partner '%s' not found.", m.selectedName)
	}

	var s strings.Builder

	s.WriteString(m.renderField("Name", p.Name))
	s.WriteString(m.renderField("Tier", string(p.Tier)))
	s.WriteString(m.renderField("Status", p.Status))
	s.WriteString(m.renderField("Contact", p.Contact))
	s.WriteString(m.renderField("Email", p.Email))
	s.WriteString(m.renderField("Created", p.CreatedAt.Format("2006-01-02")))
	s.WriteString(m.renderField("Total Deal Value", skills.Dollars(p.TotalDealValue())))

	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Bold(true).Render("DEALS"))
	s.WriteString("\n")
	for _, d := range p.Deals {
		s.WriteString(fmt.Sprintf("  • %s %s (%s)\n", skills.Dollars(d.Value), d.Account, d.Status))
	}

	s.WriteString("\n")
	s.WriteString(lipgloss.NewStyle().Bold(true).Render("DOCUMENTS"))
	s.WriteString("\n")
	for _, d := range p.Documents {
		s.WriteString(fmt.Sprintf("  • [%s] %s %s\n", d.CreatedAt.Format("2006-01-02"), d.Type.Label(), d.Path))
	}

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		value = "-"
	}
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"Esc: Back",
		"d: Delete",
		"g: View graph",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
	case "d":
		m.viewMode = ViewConfirmDelete
	case "g":
		if err := m.generateGraph(); err != nil {
			m.err = err
			return m, nil
		}
		m.viewMode = ViewGraph
	}

	return m, nil
}
