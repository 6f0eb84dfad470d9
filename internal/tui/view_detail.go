package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pledgetally/internal/display"
	"pledgetally/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingBottom(1)

	matchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	absentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func detailHeader(row model.DetailRow) string {
	return headerStyle.Render(fmt.Sprintf("Subject: %s\nDate: %s\nMessage: %s",
		row.Subject, row.Date.Local().Format("Jan 2, 2006 15:04"), row.MessageID))
}

// detailContent shows which fields matched for row, followed by the body
// when one is available.
func detailContent(row model.DetailRow, body string) string {
	var b strings.Builder
	b.WriteString(detailHeader(row) + "\n")
	if !row.Matched() {
		b.WriteString(absentStyle.Render("No metrics found in this message.") + "\n")
	} else {
		for _, f := range display.Fields(row.Record) {
			if f.Matched {
				b.WriteString(matchedStyle.Render(fmt.Sprintf("  %-18s %s", f.Name, f.Value)) + "\n")
			} else {
				b.WriteString(absentStyle.Render(fmt.Sprintf("  %-18s absent", f.Name)) + "\n")
			}
		}
	}
	if body != "" {
		b.WriteString("\n" + body)
	}
	return b.String()
}

func detailFooter(canOpen bool) string {
	if canOpen {
		return footerStyle.Render("o: open in gmail  esc: back  q: quit")
	}
	return footerStyle.Render("esc: back  q: quit")
}
