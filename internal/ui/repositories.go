package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dis-maja/swesrc/internal/browse"
	"github.com/dis-maja/swesrc/internal/importer"
)

type repoImportedMsg struct {
	rin      string
	name     string
	grampsID string
	err      error
}

func (m Model) repositoryRows() []browse.RepositoryRow {
	return browse.RepositoryRows(m.snapshot.Repositories)
}

func (m Model) handleRepositoriesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.repositoryRows()
	n := len(rows)

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.repoRow > 0 {
			m.repoRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.repoRow < n-1 {
			m.repoRow++
		}
	case key.Matches(msg, m.keys.Top):
		m.repoRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.repoRow = max(n-1, 0)
	case key.Matches(msg, m.keys.Refresh):
		m.requestReindex()
		m.setStatus("INFO", "Refreshing repositories...")
	case key.Matches(msg, m.keys.Add), key.Matches(msg, m.keys.Select):
		if n == 0 || m.importer == nil {
			return m, nil
		}
		row := rows[m.repoRow]
		if !row.Selectable() {
			m.setStatus("WARN", fmt.Sprintf("%s is already imported as %s", row.Name, row.GrampsID))
			return m, nil
		}
		m.setStatus("INFO", "Importing "+row.Name+"...")
		return m, m.addRepositoryCmd(row)
	}
	return m, nil
}

func (m Model) addRepositoryCmd(row browse.RepositoryRow) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.catalogContext()
		defer cancel()
		repo, err := m.importer.AddRepository(ctx, row.RIN)
		return repoImportedMsg{rin: row.RIN, name: row.Name, grampsID: repo.GrampsID, err: err}
	}
}

func (m Model) handleRepoImported(msg repoImportedMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.setStatus("INFO", fmt.Sprintf("Imported %s as %s", msg.name, msg.grampsID))
		m.requestReindex()
	case errors.Is(msg.err, importer.ErrAlreadyImported):
		m.setStatus("WARN", msg.name+" is already imported")
	default:
		m.setStatus("ERRO", "Import failed: "+msg.err.Error())
	}
	return m, nil
}

func (m Model) repositoryItems() []listItem {
	rows := m.repositoryRows()
	items := make([]listItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, listItem{text: r.Name, note: r.Ref, badge: r.GrampsID})
	}
	return items
}
