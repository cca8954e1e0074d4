// ABOUTME: Tests for the TUI model
// ABOUTME: Drives chat, partner browsing and deletion through Update without a terminal
package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/partneros/docgen"
	"github.com/harperreed/partneros/engine"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/memory"
)

func setupTestModel(t *testing.T) Model {
	t.Helper()
	dir := t.TempDir()

	l, err := ledger.Open(filepath.Join(dir, "partners.json"), nil)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	store, err := memory.NewFileStore(filepath.Join(dir, "memory"), nil)
	if err != nil {
		t.Fatalf("failed to create memory store: %v", err)
	}
	mem, err := memory.New(context.Background(), store, nil)
	if err != nil {
		t.Fatalf("failed to load memory: %v", err)
	}
	e, err := engine.New(engine.Options{
		Ledger: l,
		Memory: mem,
		Docs:   docgen.New(docgen.DefaultTemplates(), filepath.Join(dir, "documents"), nil),
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return NewModel(e, "tui")
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// say types line into the chat input, submits it and feeds the reply back in.
func say(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("no command returned for %q", line)
	}
	if !m.waiting {
		t.Errorf("model not waiting after %q", line)
	}
	m, _ = update(t, m, cmd())
	return m
}

func TestChatOnboardsPartner(t *testing.T) {
	m := setupTestModel(t)

	m = say(t, m, "onboard Acme")

	if m.waiting {
		t.Error("still waiting after response")
	}
	if len(m.transcript) != 2 {
		t.Fatalf("expected 2 transcript entries, got %d", len(m.transcript))
	}
	if !m.transcript[0].user || m.transcript[0].text != "onboard Acme" {
		t.Errorf("unexpected user entry: %+v", m.transcript[0])
	}

	p, err := m.engine.Ledger().Get("Acme")
	if err != nil || p == nil {
		t.Fatalf("Acme not in ledger: %v", err)
	}
	if len(p.Documents) != 4 {
		t.Errorf("expected 4 documents, got %d", len(p.Documents))
	}

	if !strings.Contains(m.View(), "onboard Acme") {
		t.Error("transcript missing from chat view")
	}
}

func TestChatAsksForPartnerName(t *testing.T) {
	m := setupTestModel(t)

	m = say(t, m, "create an nda")
	if !m.session.Pending() {
		t.Fatal("expected a pending clarification")
	}
	if m.input.Placeholder != "Partner company name" {
		t.Errorf("unexpected placeholder %q", m.input.Placeholder)
	}

	m = say(t, m, "Globex")
	if m.session.Pending() {
		t.Error("clarification still pending")
	}
	p, _ := m.engine.Ledger().Get("Globex")
	if p == nil || len(p.Documents) != 1 {
		t.Fatalf("expected Globex with one document, got %+v", p)
	}
}

func TestSlashCommands(t *testing.T) {
	m := setupTestModel(t)

	m.input.SetValue("/help")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.transcript) != 1 || m.transcript[0].text != chatHelp {
		t.Errorf("help not shown: %+v", m.transcript)
	}

	m.input.SetValue("/clear")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.transcript) != 0 {
		t.Errorf("transcript not cleared: %+v", m.transcript)
	}

	m.input.SetValue("/partners")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.viewMode != ViewList {
		t.Errorf("expected list view, got %v", m.viewMode)
	}
	if !strings.Contains(m.View(), "No partners yet") {
		t.Error("empty list message missing")
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q did not quit from list view")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
}

func TestTypingQInChatDoesNotQuit(t *testing.T) {
	m := setupTestModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if m.input.Value() != "q" {
		t.Errorf("expected q in input, got %q", m.input.Value())
	}
	if m.viewMode != ViewChat {
		t.Errorf("left chat view: %v", m.viewMode)
	}
}

func TestBrowseAndDeletePartner(t *testing.T) {
	m := setupTestModel(t)
	if _, err := m.engine.Ledger().Add("Acme", "gold", "Jane", "jane@acme.test"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := m.engine.Ledger().RegisterDeal("Acme", 50_000, "Initech"); err != nil {
		t.Fatalf("RegisterDeal failed: %v", err)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.viewMode != ViewList {
		t.Fatalf("expected list view, got %v", m.viewMode)
	}
	if !strings.Contains(m.View(), "Acme") {
		t.Error("partner missing from list")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.viewMode != ViewDetail || m.selectedName != "Acme" {
		t.Fatalf("expected Acme detail, got %v %q", m.viewMode, m.selectedName)
	}
	view := m.View()
	for _, want := range []string{"jane@acme.test", "$50,000", "Initech"} {
		if !strings.Contains(view, want) {
			t.Errorf("detail view missing %q", want)
		}
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	if m.viewMode != ViewGraph || !strings.Contains(m.graphDOT, "Initech") {
		t.Errorf("graph not generated: %v", m.viewMode)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if m.viewMode != ViewConfirmDelete {
		t.Fatalf("expected confirm view, got %v", m.viewMode)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if m.viewMode != ViewList {
		t.Errorf("expected list view after delete, got %v", m.viewMode)
	}
	if m.deleteMessage != "Deleted Acme" {
		t.Errorf("unexpected delete message %q", m.deleteMessage)
	}
	if p, _ := m.engine.Ledger().Get("Acme"); p != nil {
		t.Error("Acme still in ledger")
	}
}
