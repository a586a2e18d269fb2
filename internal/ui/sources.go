package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dis-maja/swesrc/internal/bookdb"
	"github.com/dis-maja/swesrc/internal/browse"
	"github.com/dis-maja/swesrc/internal/importer"
)

// sourceStage is the level of the Sources drill-down.
type sourceStage int

const (
	stageKind sourceStage = iota
	stageCounty
	stageArchive
	stageBooks
)

type sourcesState struct {
	stage   sourceStage
	cursor  [stageBooks + 1]int
	loading bool

	kind     browse.Kind
	counties []bookdb.County
	county   browse.Choice
	archives []browse.Choice
	archive  browse.Choice

	books []bookdb.Book
	types bookdb.BookTypes
	rows  []browse.Row
}

type countiesMsg struct {
	counties []bookdb.County
	err      error
}

type archivesMsg struct {
	cid      int
	archives []bookdb.Archive
	err      error
}

type booksMsg struct {
	kind  browse.Kind
	books []bookdb.Book
	types bookdb.BookTypes
	err   error
}

type importedMsg struct {
	what     string
	grampsID string
	err      error
}

func (m Model) loadCountiesCmd() tea.Cmd {
	if m.catalog == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := m.catalogContext()
		defer cancel()
		counties, err := m.catalog.Counties(ctx)
		return countiesMsg{counties: counties, err: err}
	}
}

func (m Model) loadArchivesCmd(cid int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.catalogContext()
		defer cancel()
		archives, err := m.catalog.Archives(ctx, cid)
		return archivesMsg{cid: cid, archives: archives, err: err}
	}
}

func (m Model) loadChurchBooksCmd(aid int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.catalogContext()
		defer cancel()
		types, err := m.catalog.BookTypes(ctx, aid)
		if err != nil {
			return booksMsg{kind: browse.KindChurch, err: err}
		}
		books, err := m.catalog.Books(ctx, aid)
		return booksMsg{kind: browse.KindChurch, books: books, types: types, err: err}
	}
}

func (m Model) loadSCBBooksCmd(cid int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.catalogContext()
		defer cancel()
		types, err := m.catalog.SCBBookTypes(ctx)
		if err != nil {
			return booksMsg{kind: browse.KindSCB, err: err}
		}
		books, err := m.catalog.SCBBooks(ctx, cid)
		return booksMsg{kind: browse.KindSCB, books: books, types: types, err: err}
	}
}

func (m Model) handleCounties(msg countiesMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus("ERRO", "Counties: "+msg.err.Error())
		return m, nil
	}
	m.sources.counties = msg.counties
	// Preselect the county used last time.
	for i, c := range msg.counties {
		if c.ID == m.prefs.LastCounty {
			m.sources.cursor[stageCounty] = i
		}
	}
	return m, nil
}

func (m Model) handleArchives(msg archivesMsg) (tea.Model, tea.Cmd) {
	m.sources.loading = false
	if msg.err != nil {
		m.setStatus("ERRO", "Archives: "+msg.err.Error())
		return m, nil
	}
	if msg.cid != m.sources.county.ID {
		return m, nil
	}
	m.sources.archives = browse.ArchiveChoices(msg.cid, msg.archives, m.sources.counties)
	m.sources.cursor[stageArchive] = 0
	m.sources.stage = stageArchive
	// A single archive is opened right away.
	if len(m.sources.archives) == 1 {
		return m.openArchive(m.sources.archives[0])
	}
	return m, nil
}

func (m Model) handleBooks(msg booksMsg) (tea.Model, tea.Cmd) {
	m.sources.loading = false
	if msg.err != nil {
		m.setStatus("ERRO", "Books: "+msg.err.Error())
		return m, nil
	}
	if msg.kind != m.sources.kind {
		return m, nil
	}
	m.sources.books = msg.books
	m.sources.types = msg.types
	m.sources.stage = stageBooks
	m.rebuildBookRows()
	m.sources.cursor[stageBooks] = max(browse.NextSelectable(m.sources.rows, 0, 1), 0)
	return m, nil
}

func (m *Model) rebuildBookRows() {
	s := &m.sources
	if s.stage != stageBooks {
		return
	}
	switch s.kind {
	case browse.KindChurch:
		s.rows = browse.ChurchBookRows(s.books, s.types, m.snapshot.Rins)
	case browse.KindSCB:
		s.rows = browse.SCBBookRows(s.books, s.types, m.snapshot.Rins)
	}
	if s.cursor[stageBooks] >= len(s.rows) {
		s.cursor[stageBooks] = max(len(s.rows)-1, 0)
	}
}

func (m Model) sourcesLen() int {
	switch m.sources.stage {
	case stageKind:
		return len(browse.Kinds())
	case stageCounty:
		return len(m.sources.counties)
	case stageArchive:
		return len(m.sources.archives)
	default:
		return len(m.sources.rows)
	}
}

func (m Model) handleSourcesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.sources
	n := m.sourcesLen()
	cur := &s.cursor[s.stage]

	switch {
	case key.Matches(msg, m.keys.Up):
		if *cur > 0 {
			*cur--
		}
	case key.Matches(msg, m.keys.Down):
		if *cur < n-1 {
			*cur++
		}
	case key.Matches(msg, m.keys.Top):
		*cur = 0
	case key.Matches(msg, m.keys.Bottom):
		*cur = max(n-1, 0)
	case key.Matches(msg, m.keys.Back):
		if s.stage > stageKind {
			s.stage--
			if s.stage == stageArchive && !s.kind.NeedsArchive() {
				s.stage = stageCounty
			}
			if s.stage == stageArchive && len(s.archives) == 1 {
				s.stage = stageCounty
			}
		}
	case key.Matches(msg, m.keys.Select):
		if n == 0 || s.loading {
			return m, nil
		}
		return m.openSourcesEntry(*cur)
	case key.Matches(msg, m.keys.Add):
		if s.stage == stageBooks {
			return m.addSelectedBook()
		}
	case key.Matches(msg, m.keys.Refresh):
		switch s.stage {
		case stageCounty:
			return m, m.loadCountiesCmd()
		case stageBooks:
			return m.reloadBooks()
		}
	}
	return m, nil
}

func (m Model) openSourcesEntry(i int) (tea.Model, tea.Cmd) {
	s := &m.sources
	switch s.stage {
	case stageKind:
		s.kind = browse.Kinds()[i]
		s.stage = stageCounty
		if len(s.counties) == 0 {
			return m, m.loadCountiesCmd()
		}
	case stageCounty:
		c := s.counties[i]
		s.county = browse.Choice{ID: c.ID, Name: c.Name}
		m.prefs.LastCounty = c.ID
		m.savePrefs()
		s.loading = true
		if s.kind.NeedsArchive() {
			return m, m.loadArchivesCmd(c.ID)
		}
		return m, m.loadSCBBooksCmd(c.ID)
	case stageArchive:
		return m.openArchive(s.archives[i])
	case stageBooks:
		return m.addSelectedBook()
	}
	return m, nil
}

func (m Model) openArchive(a browse.Choice) (tea.Model, tea.Cmd) {
	m.sources.archive = a
	m.sources.loading = true
	return m, m.loadChurchBooksCmd(a.ID)
}

func (m Model) reloadBooks() (tea.Model, tea.Cmd) {
	m.sources.loading = true
	if m.sources.kind.NeedsArchive() {
		return m, m.loadChurchBooksCmd(m.sources.archive.ID)
	}
	return m, m.loadSCBBooksCmd(m.sources.county.ID)
}

func (m Model) addSelectedBook() (tea.Model, tea.Cmd) {
	s := m.sources
	if m.importer == nil || len(s.rows) == 0 {
		return m, nil
	}
	row := s.rows[s.cursor[stageBooks]]
	if row.Header {
		return m, nil
	}
	if !row.Selectable() {
		m.setStatus("WARN", fmt.Sprintf("%s is already imported as %s", row.Label, row.GrampsID))
		return m, nil
	}

	what := row.Label
	cmd := func() tea.Msg {
		ctx, cancel := m.catalogContext()
		defer cancel()
		var (
			id  string
			err error
		)
		switch s.kind {
		case browse.KindChurch:
			src, e := m.importer.AddChurchBook(ctx, importer.ChurchBook{
				CountyID:  s.county.ID,
				ArchiveID: s.archive.ID,
				BookID:    row.BookID,
			})
			id, err = src.GrampsID, e
		case browse.KindSCB:
			src, e := m.importer.AddSCBBook(ctx, importer.SCBBook{CountyID: s.county.ID, BookID: row.BookID})
			id, err = src.GrampsID, e
		}
		return importedMsg{what: what, grampsID: id, err: err}
	}
	m.setStatus("INFO", "Importing "+what+"...")
	return m, cmd
}

func (m Model) handleImported(msg importedMsg) (tea.Model, tea.Cmd) {
	var merr *importer.MappingError
	switch {
	case msg.err == nil:
		m.setStatus("INFO", fmt.Sprintf("Imported %s as %s", msg.what, msg.grampsID))
		m.requestReindex()
	case errors.As(msg.err, &merr):
		m.setStatus("ERRO", merr.Error())
	case errors.Is(msg.err, importer.ErrAlreadyImported):
		m.setStatus("WARN", msg.what+" is already imported")
	default:
		m.setStatus("ERRO", "Import failed: "+msg.err.Error())
	}
	return m, nil
}

// sourcesItems returns the lines of the current drill-down level.
func (m Model) sourcesItems() []listItem {
	s := m.sources
	var items []listItem
	switch s.stage {
	case stageKind:
		for _, k := range browse.Kinds() {
			items = append(items, listItem{text: k.String()})
		}
	case stageCounty:
		for _, c := range s.counties {
			items = append(items, listItem{text: c.Name})
		}
	case stageArchive:
		for _, a := range s.archives {
			items = append(items, listItem{text: a.Name})
		}
	case stageBooks:
		for _, r := range s.rows {
			item := listItem{text: r.Label, header: r.Header, badge: r.GrampsID, note: r.Extra}
			if !r.Header {
				item.text = "  " + item.text
			}
			items = append(items, item)
		}
	}
	return items
}

func (m Model) sourcesBreadcrumb() string {
	s := m.sources
	parts := []string{"Sources"}
	if s.stage > stageKind {
		parts = append(parts, s.kind.String())
	}
	if s.stage > stageCounty {
		parts = append(parts, s.county.Name)
	}
	if s.stage > stageArchive && s.kind.NeedsArchive() {
		parts = append(parts, s.archive.Name)
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " › " + p
	}
	if s.loading {
		out += " (loading)"
	}
	return out
}
