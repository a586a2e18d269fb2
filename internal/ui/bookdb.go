package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dis-maja/swesrc/internal/bookdb"
	"github.com/dis-maja/swesrc/internal/config"
)

const (
	fieldURL = iota
	fieldUsername
	fieldPassword
	fieldCount
)

var fieldLabels = [fieldCount]string{"URL", "Username", "Password"}

type bookdbState struct {
	inputs       [fieldCount]textinput.Model
	focus        int
	editing      bool
	showPassword bool
	testing      bool
	result       string
	resultOK     bool
}

type testMsg struct {
	status string
	err    error
}

func newBookDBState(cfg config.BookDB, showPassword bool) bookdbState {
	s := bookdbState{showPassword: showPassword}
	values := [fieldCount]string{cfg.URL, cfg.Username, cfg.Password}
	for i := range s.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 256
		in.SetValue(values[i])
		s.inputs[i] = in
	}
	s.applyEcho()
	return s
}

func (s *bookdbState) applyEcho() {
	if s.showPassword {
		s.inputs[fieldPassword].EchoMode = textinput.EchoNormal
	} else {
		s.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	}
}

func (s bookdbState) credentials() bookdb.Credentials {
	return bookdb.Credentials{
		URL:      strings.TrimSpace(s.inputs[fieldURL].Value()),
		Username: strings.TrimSpace(s.inputs[fieldUsername].Value()),
		Password: s.inputs[fieldPassword].Value(),
	}
}

func (m Model) handleBookDBKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.bookdb
	switch {
	case key.Matches(msg, m.keys.Up):
		if s.focus > 0 {
			s.focus--
		}
	case key.Matches(msg, m.keys.Down):
		if s.focus < fieldCount-1 {
			s.focus++
		}
	case key.Matches(msg, m.keys.Select):
		s.editing = true
		cmd := s.inputs[s.focus].Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Reveal):
		s.showPassword = !s.showPassword
		s.applyEcho()
		m.prefs.ShowPassword = s.showPassword
		m.savePrefs()
	case key.Matches(msg, m.keys.Test):
		return m.startTest()
	case key.Matches(msg, m.keys.Save):
		creds := s.credentials()
		m.cfg.BookDB.URL = creds.URL
		m.cfg.BookDB.Username = creds.Username
		m.cfg.BookDB.Password = creds.Password
		if m.catalog != nil {
			m.catalog.SetCredentials(creds)
		}
		return m, m.saveConfigCmd("bookDB settings")
	}
	return m, nil
}

// handleBookDBEditKey feeds keys to the focused input until enter or esc.
func (m Model) handleBookDBEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.bookdb
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		s.inputs[s.focus].Blur()
		s.editing = false
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return m, cmd
}

func (m Model) startTest() (tea.Model, tea.Cmd) {
	if m.catalog == nil || m.bookdb.testing {
		return m, nil
	}
	m.catalog.SetCredentials(m.bookdb.credentials())
	m.bookdb.testing = true
	m.bookdb.result = "Testing..."
	m.bookdb.resultOK = false
	return m, func() tea.Msg {
		ctx, cancel := m.catalogContext()
		defer cancel()
		status, err := m.catalog.Test(ctx)
		return testMsg{status: status, err: err}
	}
}

func (m Model) handleTest(msg testMsg) (tea.Model, tea.Cmd) {
	s := &m.bookdb
	s.testing = false
	if msg.err != nil {
		s.result = msg.err.Error()
		s.resultOK = false
		m.logger.Warn("bookdb test failed", "error", msg.err)
		return m, nil
	}
	s.result = msg.status
	s.resultOK = true
	m.logger.Info("bookdb test passed", "status", msg.status)

	if !m.locked {
		m.requestReindex()
		return m, nil
	}
	// A passing test releases the startup lock.
	m.locked = false
	m.startupErr = ""
	m.view = ViewSources
	m.setStatus("INFO", "Connected to bookDB")
	m.requestReindex()
	return m, m.loadCountiesCmd()
}

func (m Model) bookdbLines(width int) []string {
	styles := m.theme.Styles()
	s := m.bookdb
	lines := make([]string, 0, fieldCount+4)
	for i := range s.inputs {
		label := styles.MutedText.Width(10).Render(fieldLabels[i])
		in := s.inputs[i]
		in.Width = max(width-14, 10)
		line := label + " " + in.View()
		if i == s.focus {
			marker := "›"
			if s.editing {
				marker = "✎"
			}
			line = styles.AccentText.Render(marker) + " " + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	lines = append(lines, "")
	switch {
	case s.result == "":
	case s.resultOK:
		lines = append(lines, styles.SuccessText.Render("  "+s.result))
	default:
		lines = append(lines, styles.DangerText.Render("  "+s.result))
	}
	lines = append(lines, "", styles.FaintText.Render("  enter edit · t test · s save · v show/hide password"))
	return lines
}
