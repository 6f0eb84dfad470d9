package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"pledgetally/internal/gmail"
	"pledgetally/internal/model"
	"pledgetally/internal/scan"
)

type viewState int

const (
	viewLoading  viewState = iota
	viewAuth               // waiting for auth code input
	viewForm               // recipient and range inputs
	viewScanning           // scan in progress
	viewResults            // totals and detail rows
	viewDetail             // single row diagnostics and body
)

// SourceOpener connects the configured message source and builds scan
// services for it.
type SourceOpener interface {
	CreateInteractive(ctx context.Context, uiEvents chan<- interface{}, userResponses <-chan string) (scan.Source, error)
	NewScanService(src scan.Source) *scan.Service
}

// Store supplies remembered inputs and cached message bodies. Either may be
// missing.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, error)
	GetMessagesByIDs(ctx context.Context, source string, ids []string) (map[string]model.RawMessage, error)
}

type progressReporter interface {
	OnProgress(fn func(gmail.Progress))
}

type AppModel struct {
	// Core state
	opener  SourceOpener
	store   Store
	source  scan.Source
	service *scan.Service
	log     zerolog.Logger
	Err     error
	status  string

	// Auth flow
	uiEvents      chan interface{}
	userResponses chan string
	authInput     textinput.Model
	authURL       string

	// Form
	inputs   []textinput.Model
	focus    int
	formErr  string
	defaults scan.Request

	// Results
	view        viewState
	report      *model.Report
	selectedRow *model.DetailRow

	// Sub-models
	spinner  spinner.Model
	table    table.Model
	viewport viewport.Model

	// Layout
	width, height int

	// Program reference for sending messages from goroutines
	program *tea.Program
}

// SetProgram stores a reference to the tea.Program so goroutines can send
// progress messages back to the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
}

// NewAppModel creates the application model. store may be nil. defaults
// prefill the form when nothing has been remembered yet.
func NewAppModel(opener SourceOpener, store Store, defaults scan.Request, log zerolog.Logger) AppModel {
	ai := textinput.New()
	ai.Placeholder = "Paste auth code here"
	ai.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return AppModel{
		opener:        opener,
		store:         store,
		log:           log,
		status:        "Connecting...",
		view:          viewLoading,
		uiEvents:      make(chan interface{}),
		userResponses: make(chan string),
		authInput:     ai,
		inputs:        newFormInputs(),
		defaults:      defaults,
		spinner:       sp,
		table:         newResultsTable(),
		viewport:      viewport.New(0, 0),
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.connectCmd(), textinput.Blink, m.spinner.Tick)
}

func (m *AppModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		go func() {
			src, err := m.opener.CreateInteractive(context.Background(), m.uiEvents, m.userResponses)
			m.uiEvents <- sourceReadyMsg{source: src, err: err}
		}()

		// A Gmail auth flow sends the auth URL as a raw string before the
		// goroutine above reports the result.
		event := <-m.uiEvents
		switch v := event.(type) {
		case string:
			return authURLMsg(v)
		default:
			return event
		}
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-14, 3)) // room for summary + footer
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 3 // room for footer
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case authURLMsg:
		m.authURL = string(msg)
		m.view = viewAuth
		return m, nil

	case sourceReadyMsg:
		if msg.err != nil {
			m.Err = msg.err
			m.status = "Connection failed!"
			return m, tea.Quit
		}
		m.source = msg.source
		m.service = m.opener.NewScanService(msg.source)
		if pr, ok := msg.source.(progressReporter); ok {
			pr.OnProgress(m.sendProgress)
		}
		m.prefillForm()
		m.view = viewForm
		m.status = ""
		return m, m.focusField(fieldRecipient)

	case fetchProgressMsg:
		if msg.total > 0 {
			m.status = fmt.Sprintf("%s... %d / %d messages", msg.phase, msg.done, msg.total)
		} else {
			m.status = fmt.Sprintf("%s... %d messages", msg.phase, msg.done)
		}
		return m, nil

	case scanDoneMsg:
		return m.scanDone(msg)

	case bodyLoadedMsg:
		if m.selectedRow == nil || m.selectedRow.MessageID != msg.id {
			return m, nil
		}
		if msg.err != nil {
			m.status = fmt.Sprintf("Failed to load body: %v", msg.err)
			return m, clearStatusAfter(2 * time.Second)
		}
		m.viewport.SetContent(detailContent(*m.selectedRow, msg.body))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.status = string(msg)
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewAuth:
		m.authInput, cmd = m.authInput.Update(msg)
	case viewForm:
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	case viewResults:
		m.table, cmd = m.table.Update(msg)
	case viewDetail:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	}

	switch m.view {
	case viewAuth:
		switch key {
		case "enter":
			val := m.authInput.Value()
			m.authInput.Reset()
			return m, func() tea.Msg {
				m.userResponses <- val
				return <-m.uiEvents
			}
		case "esc":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.authInput, cmd = m.authInput.Update(msg)
		return m, cmd

	case viewForm:
		switch key {
		case "tab", "down":
			return m, m.focusField((m.focus + 1) % len(m.inputs))
		case "shift+tab", "up":
			return m, m.focusField((m.focus + len(m.inputs) - 1) % len(m.inputs))
		case "esc":
			if m.report != nil {
				m.view = viewResults
			}
			return m, nil
		case "enter":
			return m.submitForm()
		}
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd

	case viewResults:
		switch key {
		case "q":
			return m, tea.Quit
		case "n":
			m.formErr = ""
			m.view = viewForm
			return m, m.focusField(fieldRecipient)
		case "enter":
			return m.enterDetail()
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case viewDetail:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewResults
			m.selectedRow = nil
			return m, nil
		case "o":
			if m.selectedRow != nil && m.canOpenInGmail() {
				if err := gmail.OpenBrowser(gmail.MessageURL(m.selectedRow.MessageID)); err != nil {
					m.status = fmt.Sprintf("Open failed: %v", err)
					return m, clearStatusAfter(2 * time.Second)
				}
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// prefillForm fills the inputs from remembered settings, then defaults.
func (m *AppModel) prefillForm() {
	recipient, rng := m.defaults.Recipient, m.defaults.Range
	if m.store != nil {
		ctx := context.Background()
		if v, err := m.store.GetSetting(ctx, scan.SettingLastRecipient); err == nil && v != "" {
			recipient = v
		}
		if v, err := m.store.GetSetting(ctx, scan.SettingLastRange); err == nil && v != "" {
			rng = v
		}
	}
	m.inputs[fieldRecipient].SetValue(recipient)
	m.inputs[fieldRange].SetValue(rng)
}

func (m *AppModel) submitForm() (tea.Model, tea.Cmd) {
	req := scan.Request{
		Recipient: strings.TrimSpace(m.inputs[fieldRecipient].Value()),
		Range:     strings.TrimSpace(m.inputs[fieldRange].Value()),
	}
	m.formErr = ""
	m.view = viewScanning
	m.status = "Searching..."
	return m, m.scanCmd(req)
}

func (m *AppModel) scanDone(msg scanDoneMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	if msg.err != nil {
		var se *scan.Error
		if errors.As(msg.err, &se) && se.Phase == scan.PhaseValidate {
			m.formErr = se.Err.Error()
			m.view = viewForm
			return m, m.focusField(m.focus)
		}
		m.log.Error().Err(msg.err).Msg("scan failed")
		m.formErr = "Scan failed: " + msg.err.Error()
		m.view = viewForm
		return m, nil
	}
	m.report = msg.report
	m.table.SetRows(reportRows(msg.report))
	m.table.GotoTop()
	m.view = viewResults
	return m, nil
}

func (m *AppModel) enterDetail() (tea.Model, tea.Cmd) {
	if m.report == nil || len(m.report.Rows) == 0 {
		return m, nil
	}
	i := m.table.Cursor()
	if i < 0 || i >= len(m.report.Rows) {
		return m, nil
	}
	row := m.report.Rows[i]
	m.selectedRow = &row
	m.viewport.SetContent(detailContent(row, ""))
	m.viewport.GotoTop()
	m.view = viewDetail
	return m, m.loadBodyCmd(row.MessageID)
}

func (m *AppModel) canOpenInGmail() bool {
	return m.source != nil && m.source.Name() == "gmail"
}

func (m *AppModel) sourceName() string {
	if m.source == nil {
		return "not connected"
	}
	return m.source.Name()
}

func (m *AppModel) sendProgress(p gmail.Progress) {
	if m.program != nil {
		m.program.Send(fetchProgressMsg{phase: p.Phase, done: p.Done, total: p.Total})
	}
}

// Commands

func (m *AppModel) scanCmd(req scan.Request) tea.Cmd {
	svc := m.service
	return func() tea.Msg {
		r, err := svc.Run(context.Background(), req)
		return scanDoneMsg{report: r, err: err}
	}
}

// loadBodyCmd reads the cached body of a scanned message. Without a store
// the detail view shows diagnostics only.
func (m *AppModel) loadBodyCmd(id string) tea.Cmd {
	if m.store == nil || m.source == nil {
		return nil
	}
	st, source := m.store, m.source.Name()
	return func() tea.Msg {
		msgs, err := st.GetMessagesByIDs(context.Background(), source, []string{id})
		if err != nil {
			return bodyLoadedMsg{id: id, err: err}
		}
		return bodyLoadedMsg{id: id, body: msgs[id].Body}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	// Auth code input
	if m.view == viewAuth {
		return "Please open this URL in your browser to authenticate:\n\n" +
			m.authURL + "\n\n" +
			m.authInput.View()
	}

	// Error state
	if m.Err != nil {
		return "Error: " + m.Err.Error() + "\n"
	}

	var b strings.Builder

	switch m.view {
	case viewLoading:
		b.WriteString(m.spinner.View() + " " + m.status + "\n")
		return b.String()
	case viewScanning:
		b.WriteString(m.spinner.View() + " " + m.status + "\n")
		return b.String()
	case viewForm:
		b.WriteString(m.formView())
	case viewResults:
		b.WriteString(m.resultsView())
	case viewDetail:
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
		b.WriteString(detailFooter(m.canOpenInGmail()))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	return b.String()
}
