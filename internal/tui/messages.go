package tui

import (
	"pledgetally/internal/model"
	"pledgetally/internal/scan"
)

// Async message types for Bubble Tea commands.

type sourceReadyMsg struct {
	source scan.Source
	err    error
}

type authURLMsg string

type fetchProgressMsg struct {
	phase string
	done  int
	total int
}

type scanDoneMsg struct {
	report *model.Report
	err    error
}

type bodyLoadedMsg struct {
	id   string
	body string
	err  error
}

type statusMsg string
