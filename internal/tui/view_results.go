package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"pledgetally/internal/display"
	"pledgetally/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	statLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)
)

var columnWidths = []int{16, 28, 6, 6, 6, 8, 11, 11, 11, 8}

func newResultsTable() table.Model {
	cols := make([]table.Column, len(display.RowHeaders))
	for i, h := range display.RowHeaders {
		cols[i] = table.Column{Title: h, Width: columnWidths[i]}
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true))
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)
	return t
}

func reportRows(r *model.Report) []table.Row {
	return lo.Map(r.Rows, func(row model.DetailRow, _ int) table.Row {
		cells := display.RowCells(row)
		if !row.Matched() {
			cells[1] = "· " + cells[1]
		}
		return cells
	})
}

// summaryView lays the report counters out in two columns.
func summaryView(r *model.Report) string {
	stats := display.Summary(r)
	half := (len(stats) + 1) / 2
	render := func(ss []display.Stat) string {
		lines := lo.Map(ss, func(s display.Stat, _ int) string {
			return statLabelStyle.Render(fmt.Sprintf("%-20s", s.Label)) + s.Value
		})
		return strings.Join(lines, "\n")
	}
	left := lipgloss.NewStyle().PaddingRight(4).Render(render(stats[:half]))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, render(stats[half:]))
}

func (m *AppModel) resultsView() string {
	r := m.report
	var b strings.Builder
	title := fmt.Sprintf("Reports to %s", r.Recipient)
	if r.RangeToken != "" {
		title += " over " + r.RangeToken
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	b.WriteString(summaryView(r) + "\n\n")
	if len(r.Rows) == 0 {
		b.WriteString("No matching messages.\n")
	} else {
		b.WriteString(m.table.View() + "\n")
	}
	b.WriteString(resultsFooter())
	return b.String()
}

func resultsFooter() string {
	return footerStyle.Render("enter: details  n: new report  q: quit  ·=no metrics")
}
