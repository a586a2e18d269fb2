package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// listItem is one line of a selectable list.
type listItem struct {
	text   string
	note   string
	badge  string
	header bool
}

func (m Model) renderMain() string {
	header := m.renderHeader()
	tabs := m.renderTabs()
	body := m.renderBody(bodyHeight(m.height))
	status := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, body, status)
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	left := bg.Render("swesrc", styles.Logo)
	var right string
	snap := m.snapshot
	switch {
	case m.locked:
		right = bg.Render("offline", styles.DangerText)
	case !snap.HasIndex:
		right = bg.Render("indexing...", styles.MutedText)
	case snap.IsOffline():
		right = bg.Render(fmt.Sprintf("index stale (%d failures)", snap.ConsecutiveFailures), styles.WarningText)
	default:
		right = bg.Render(fmt.Sprintf("%d repositories · %d sources linked",
			snap.Repositories.Len(), len(snap.Rins)), styles.MutedText)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	line := bg.Space() + left + bg.FillLine("", max(gap, 1)) + right + bg.Space()
	return bg.FillLine(line, m.width)
}

func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Background)
	parts := make([]string, 0, len(normalViews)+1)
	for _, v := range m.views() {
		label := v.String()
		if v == m.view {
			parts = append(parts, styles.ActiveTab.Render(label))
		} else {
			parts = append(parts, styles.Tab.Render(label))
		}
	}
	return bg.FillLine(strings.Join(parts, bg.Space()), m.width)
}

func (m Model) renderBody(height int) string {
	var lines []string
	switch m.view {
	case ViewSources:
		lines = m.renderTitled(m.sourcesBreadcrumb(), m.sourcesItems(), m.sources.cursor[m.sources.stage], height)
	case ViewRepositories:
		lines = m.renderTitled("Repositories", m.repositoryItems(), m.repoRow, height)
	case ViewSettings:
		title := "Import settings"
		if m.settings.dirty {
			title += " (unsaved)"
		}
		lines = m.renderTitled(title, m.settingsItems(), m.settings.cursor, height)
	case ViewBookDB:
		lines = append([]string{m.theme.Styles().AccentText.Bold(true).Render("bookDB connection")}, m.bookdbLines(m.width)...)
	case ViewLog:
		lines = []string{m.logTitle(), m.logs.viewport.View()}
	case ViewError:
		lines = m.errorLines()
	}

	content := strings.Join(lines, "\n")
	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.FocusBg)).
		Width(m.width).
		Height(height).
		MaxHeight(height).
		Render(content)
}

// renderTitled renders a title line followed by a scrolled list.
func (m Model) renderTitled(title string, items []listItem, cursor, height int) []string {
	styles := m.theme.Styles()
	lines := []string{styles.AccentText.Bold(true).Render(truncate(title, m.width))}
	if len(items) == 0 {
		return append(lines, styles.FaintText.Render("  (empty)"))
	}
	start, end := window(len(items), cursor, height-1)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderItem(items[i], i == cursor))
	}
	return lines
}

func (m Model) renderItem(it listItem, selected bool) string {
	styles := m.theme.Styles()
	if it.header {
		return styles.WarningText.Bold(true).Render(truncate(it.text, m.width))
	}

	badgeWidth := 0
	if it.badge != "" {
		badgeWidth = len(it.badge) + 3
	}
	text := it.text
	if it.note != "" {
		text += "  " + it.note
	}
	text = truncate(text, max(m.width-badgeWidth-2, 1))

	line := text
	if it.badge != "" {
		line += " [" + it.badge + "]"
	}
	switch {
	case selected:
		return styles.Selected.Width(m.width).Render(line)
	case it.badge != "":
		return styles.MutedText.Render(line)
	}
	return styles.Text.Render(line)
}

func (m Model) logTitle() string {
	styles := m.theme.Styles()
	mode := "paused"
	if m.logs.follow {
		mode = "following"
	}
	title := fmt.Sprintf("Log · %s · level %s", mode, m.logs.level)
	if m.logs.err != nil {
		return styles.DangerText.Render(title + " · " + m.logs.err.Error())
	}
	return styles.AccentText.Bold(true).Render(title)
}

func (m Model) errorLines() []string {
	styles := m.theme.Styles()
	lines := []string{
		styles.DangerText.Render("Could not connect to bookDB"),
		"",
	}
	for _, l := range strings.Split(lipgloss.NewStyle().Width(max(m.width-2, 10)).Render(m.startupErr), "\n") {
		lines = append(lines, styles.Text.Render(l))
	}
	return append(lines, "",
		styles.MutedText.Render("Check the URL and login on the bookDB page (tab), then press t to test."))
}

func (m Model) renderStatusBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	var left string
	if m.status != "" {
		style := styles.Text
		if m.statusLevel != "" && m.statusLevel != "INFO" {
			style = styles.LevelStyle(m.statusLevel)
		}
		left = bg.Render(truncate(m.status, max(m.width-20, 10)), style)
	}
	right := bg.Render(m.shortHelp(), styles.MutedText)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	line := bg.Space() + left + bg.FillLine("", max(gap, 1)) + right + bg.Space()
	return bg.FillLine(line, m.width)
}
