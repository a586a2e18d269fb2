package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dis-maja/swesrc/internal/logtail"
)

var logLevels = []string{"DEBU", "INFO", "WARN", "ERRO"}

type logState struct {
	viewport viewport.Model
	lines    []string
	follow   bool
	level    string
	err      error
}

type logLinesMsg struct {
	lines []string
	err   error
}

func newLogState() logState {
	return logState{viewport: viewport.New(0, 0), follow: true, level: "DEBU"}
}

func (m *Model) resizeLogViewport() {
	m.logs.viewport.Width = m.width
	m.logs.viewport.Height = max(bodyHeight(m.height)-1, 1)
	m.renderLogContent()
}

func (m Model) readLogCmd() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogLineLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logs.err = msg.err
	if msg.err != nil {
		return
	}
	m.logs.lines = msg.lines
	m.renderLogContent()
}

func (m *Model) renderLogContent() {
	styles := m.theme.Styles()
	lines := logtail.Filter(m.logs.lines, m.logs.level)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		e, ok := logtail.Parse(line)
		if !ok {
			out = append(out, styles.MutedText.Render(line))
			continue
		}
		var b strings.Builder
		b.WriteString(styles.FaintText.Render(e.Time))
		b.WriteString(" ")
		b.WriteString(styles.LevelStyle(e.Level).Render(e.Level))
		b.WriteString(" ")
		b.WriteString(styles.Text.Render(e.Message))
		if e.Fields != "" {
			b.WriteString(" ")
			b.WriteString(styles.MutedText.Render(e.Fields))
		}
		out = append(out, b.String())
	}
	m.logs.viewport.SetContent(strings.Join(out, "\n"))
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

func (m Model) handleLogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			m.logs.viewport.GotoBottom()
			return m, m.readLogCmd()
		}
		return m, nil
	case key.Matches(msg, m.keys.CycleLevel):
		m.logs.level = nextLevel(m.logs.level)
		m.renderLogContent()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logs.follow = false
		m.logs.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logs.follow = true
		m.logs.viewport.GotoBottom()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.readLogCmd()
	}

	// Scrolling by hand pauses follow mode.
	var cmd tea.Cmd
	before := m.logs.viewport.YOffset
	m.logs.viewport, cmd = m.logs.viewport.Update(msg)
	if m.logs.viewport.YOffset < before {
		m.logs.follow = false
	}
	return m, cmd
}

func nextLevel(current string) string {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}
