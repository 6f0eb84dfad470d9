package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pledgetally/internal/model"
	"pledgetally/internal/scan"
)

type stubSource struct {
	msgs []model.RawMessage
}

func (s *stubSource) Name() string { return "mbox" }

func (s *stubSource) Search(context.Context, model.Query) ([]model.RawMessage, error) {
	return s.msgs, nil
}

func (s *stubSource) OperatorAddress(context.Context) (string, error) {
	return "me@example.com", nil
}

type stubOpener struct {
	src scan.Source
	err error
}

func (o *stubOpener) CreateInteractive(context.Context, chan<- interface{}, <-chan string) (scan.Source, error) {
	return o.src, o.err
}

func (o *stubOpener) NewScanService(src scan.Source) *scan.Service {
	return scan.NewService(src, nil, zerolog.Nop(), scan.Options{})
}

type stubStore struct {
	settings map[string]string
	bodies   map[string]model.RawMessage
}

func (s *stubStore) GetSetting(_ context.Context, key string) (string, error) {
	return s.settings[key], nil
}

func (s *stubStore) GetMessagesByIDs(_ context.Context, _ string, ids []string) (map[string]model.RawMessage, error) {
	out := map[string]model.RawMessage{}
	for _, id := range ids {
		if m, ok := s.bodies[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func sentMessages() []model.RawMessage {
	date := time.Now().Add(-24 * time.Hour)
	return []model.RawMessage{
		{ID: "a", From: "me@example.com", To: []string{"dan@example.com"}, Date: date, Subject: "Monday",
			Body: "Number of calls: 10\nNumber of pickups: 5"},
		{ID: "b", From: "me@example.com", To: []string{"dan@example.com"}, Date: date, Subject: "Notes", Body: "see you"},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func connected(t *testing.T, store Store) *AppModel {
	t.Helper()
	src := &stubSource{msgs: sentMessages()}
	m := NewAppModel(&stubOpener{src: src}, store, scan.Request{Range: "30d"}, zerolog.Nop())
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m.Update(sourceReadyMsg{source: src})
	require.Equal(t, viewForm, m.view)
	return &m
}

func TestSourceFailureQuits(t *testing.T) {
	m := NewAppModel(&stubOpener{}, nil, scan.Request{}, zerolog.Nop())
	_, cmd := m.Update(sourceReadyMsg{err: errors.New("no credentials")})
	require.NotNil(t, cmd)
	assert.EqualError(t, m.Err, "no credentials")
	assert.Contains(t, m.View(), "no credentials")
}

func TestFormPrefill(t *testing.T) {
	m := connected(t, &stubStore{settings: map[string]string{scan.SettingLastRecipient: "dan@example.com"}})
	assert.Equal(t, "dan@example.com", m.inputs[fieldRecipient].Value())
	assert.Equal(t, "30d", m.inputs[fieldRange].Value())
}

func TestScanAndDetail(t *testing.T) {
	store := &stubStore{bodies: map[string]model.RawMessage{"a": {ID: "a", Body: "Number of calls: 10\nNumber of pickups: 5"}}}
	m := connected(t, store)
	m.inputs[fieldRecipient].SetValue("dan@example.com")

	_, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, viewScanning, m.view)

	m.Update(cmd())
	require.Equal(t, viewResults, m.view)
	require.NotNil(t, m.report)
	assert.Equal(t, 2, m.report.EmailsFound)
	assert.Equal(t, 1, m.report.EmailsWithMetrics)
	assert.Contains(t, m.View(), "50.00%")

	_, cmd = m.Update(key("enter"))
	require.Equal(t, viewDetail, m.view)
	require.NotNil(t, cmd)
	m.Update(cmd())
	content := m.viewport.View()
	assert.Contains(t, content, "numberOfCalls")
	assert.Contains(t, content, "absent")

	m.Update(key("esc"))
	assert.Equal(t, viewResults, m.view)

	m.Update(key("n"))
	assert.Equal(t, viewForm, m.view)
}

func TestValidationErrorReturnsToForm(t *testing.T) {
	m := connected(t, nil)
	m.inputs[fieldRecipient].SetValue("dan@example.com")
	m.inputs[fieldRange].SetValue("3w")

	_, cmd := m.Update(key("enter"))
	m.Update(cmd())
	assert.Equal(t, viewForm, m.view)
	assert.Contains(t, m.formErr, "invalid date range")
	assert.Nil(t, m.report)
}
