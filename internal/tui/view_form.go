package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	fieldRecipient = iota
	fieldRange
)

var (
	labelStyle = lipgloss.NewStyle().Width(12).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func newFormInputs() []textinput.Model {
	recipient := textinput.New()
	recipient.Placeholder = "name@example.com"
	recipient.CharLimit = 254
	recipient.Width = 40

	rng := textinput.New()
	rng.Placeholder = "30d, 6m, 1y (empty for all)"
	rng.CharLimit = 8
	rng.Width = 40

	return []textinput.Model{recipient, rng}
}

// focusField moves focus to input i and blurs the others.
func (m *AppModel) focusField(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}

func (m *AppModel) formView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New report ("+m.sourceName()+")") + "\n\n")
	b.WriteString(labelStyle.Render("Recipient") + m.inputs[fieldRecipient].View() + "\n")
	b.WriteString(labelStyle.Render("Range") + m.inputs[fieldRange].View() + "\n")
	if m.formErr != "" {
		b.WriteString("\n" + errorStyle.Render(m.formErr) + "\n")
	}
	b.WriteString(formFooter())
	return b.String()
}

func formFooter() string {
	return footerStyle.Render("tab: next field  enter: run  esc: back to results  ctrl+c: quit")
}
