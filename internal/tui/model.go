// Package tui is an interactive settings form for paysplit.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/paysplit/internal/budget"
	"github.com/Veraticus/paysplit/internal/model"
	"github.com/Veraticus/paysplit/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Submitter is the part of the engine the form drives.
type Submitter interface {
	Fields() []budget.FormEntry
	SubmitSettings(ctx context.Context, entries []budget.FormEntry) (model.Settings, error)
}

type savedMsg struct {
	settings model.Settings
}

type saveFailedMsg struct {
	err error
}

// Model is the settings form.
type Model struct {
	ctx       context.Context
	submitter Submitter
	err       error
	theme     themes.Theme
	keymap    KeyMap
	status    string
	fields    []budget.Field
	inputs    []textinput.Model
	help      help.Model
	focus     int
	saving    bool
	quitting  bool
}

// New creates a form editing the submitter's current settings.
func New(ctx context.Context, submitter Submitter, theme themes.Theme) Model {
	m := Model{
		ctx:       ctx,
		submitter: submitter,
		theme:     theme,
		keymap:    DefaultKeyMap(),
		help:      help.New(),
	}
	m.load(submitter.Fields())
	return m
}

func (m *Model) load(entries []budget.FormEntry) {
	m.fields = make([]budget.Field, 0, len(entries))
	m.inputs = make([]textinput.Model, 0, len(entries))
	for _, e := range entries {
		f, err := budget.ParseField(e)
		if err != nil {
			continue
		}
		in := textinput.New()
		in.CharLimit = 16
		in.Width = 12
		in.Prompt = ""
		in.SetValue(f.Value)
		m.fields = append(m.fields, f)
		m.inputs = append(m.inputs, in)
	}
	m.focus = 0
	m.focusCurrent()
}

func (m *Model) focusCurrent() {
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

// Entries returns the form's current values in field order.
func (m Model) Entries() []budget.FormEntry {
	out := make([]budget.FormEntry, len(m.fields))
	for i, f := range m.fields {
		out[i] = budget.FormEntry{Name: f.Name(), Value: m.inputs[i].Value()}
	}
	return out
}

// Err returns the last save error.
func (m Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case savedMsg:
		m.saving = false
		m.err = nil
		m.status = "Settings saved!"
		m.load(budget.Fields(msg.settings))

	case saveFailedMsg:
		m.saving = false
		m.err = msg.err
		m.status = ""
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Submit):
		if m.saving {
			return m, nil
		}
		m.saving = true
		m.status = "Saving..."
		return m, m.submit(m.Entries())

	case key.Matches(msg, m.keymap.Reset):
		m.err = nil
		m.status = ""
		m.load(m.submitter.Fields())
		return m, nil

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keymap.Next):
		m.move(1)
		return m, nil

	case key.Matches(msg, m.keymap.Prev):
		m.move(-1)
		return m, nil
	}

	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) move(delta int) {
	if len(m.inputs) == 0 {
		return
	}
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.focusCurrent()
}

func (m Model) submit(entries []budget.FormEntry) tea.Cmd {
	return func() tea.Msg {
		s, err := m.submitter.SubmitSettings(m.ctx, entries)
		if err != nil {
			return saveFailedMsg{err: err}
		}
		return savedMsg{settings: s}
	}
}

// liveTotal sums the percentage fields as typed, ignoring unparsable ones.
func (m Model) liveTotal() decimal.Decimal {
	total := decimal.Zero
	for i, f := range m.fields {
		if f.Kind == budget.FieldLimitAmount {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[i].Value()), 64)
		if err != nil {
			continue
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}

func label(f budget.Field) string {
	switch f.Kind {
	case budget.FieldLimitPercent:
		return f.Category + " % (limited)"
	case budget.FieldLimitAmount:
		return f.Category + " limit $"
	default:
		return f.Category + " %"
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("💸 Paycheck categories"))
	b.WriteString("\n")

	width := 0
	for _, f := range m.fields {
		width = max(width, lipgloss.Width(label(f)))
	}

	for i, f := range m.fields {
		style := m.theme.Label
		if i == m.focus {
			style = m.theme.FocusedLabel
		}
		fmt.Fprintf(&b, "%s  %s\n", style.Width(width).Render(label(f)), m.inputs[i].View())
	}
	if len(m.fields) == 0 {
		b.WriteString(m.theme.Muted.Render("No categories configured."))
		b.WriteString("\n")
	}

	total := m.liveTotal()
	totalLine := "Total: " + total.String() + "%"
	if total.Equal(decimal.NewFromInt(100)) {
		b.WriteString("\n" + m.theme.StatusSuccess.Render(totalLine) + "\n")
	} else {
		b.WriteString("\n" + m.theme.StatusWarning.Render(totalLine) + "\n")
	}

	switch {
	case m.err != nil:
		msg := budget.UserMessage(m.err)
		if msg == "" {
			msg = m.err.Error()
		}
		b.WriteString(m.theme.StatusError.Render("⚠️ " + msg))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(m.theme.StatusSuccess.Render("✅ " + m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n" + m.help.View(m.keymap))
	return m.theme.RoundedBox.Render(b.String())
}
