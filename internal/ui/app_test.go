package ui

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dis-maja/swesrc/internal/bookdb"
	"github.com/dis-maja/swesrc/internal/config"
	"github.com/dis-maja/swesrc/internal/gendb"
	"github.com/dis-maja/swesrc/internal/importer"
	"github.com/dis-maja/swesrc/internal/state"
)

const testURL = "https://bookdb.example/api.php"

type fakeCatalog struct {
	mu       sync.Mutex
	creds    bookdb.Credentials
	testErr  error
	counties []bookdb.County
	archives map[int][]bookdb.Archive
	types    bookdb.BookTypes
	books    map[int][]bookdb.Book
	scbTypes bookdb.BookTypes
	scbBooks map[int][]bookdb.Book
}

func (f *fakeCatalog) Test(context.Context) (string, error) {
	if f.testErr != nil {
		return "", f.testErr
	}
	return bookdb.StatusOK, nil
}
func (f *fakeCatalog) Repositories(context.Context) ([]bookdb.RepositoryRow, error) { return nil, nil }
func (f *fakeCatalog) Repository(context.Context, string) ([]bookdb.RepositoryInfo, error) {
	return nil, nil
}
func (f *fakeCatalog) Counties(context.Context) ([]bookdb.County, error) { return f.counties, nil }
func (f *fakeCatalog) Archives(_ context.Context, cid int) ([]bookdb.Archive, error) {
	return f.archives[cid], nil
}
func (f *fakeCatalog) Archive(context.Context, int) (bookdb.ArchiveInfo, error) {
	return bookdb.ArchiveInfo{}, nil
}
func (f *fakeCatalog) BookTypes(context.Context, int) (bookdb.BookTypes, error) { return f.types, nil }
func (f *fakeCatalog) Books(_ context.Context, aid int) ([]bookdb.Book, error) {
	return f.books[aid], nil
}
func (f *fakeCatalog) Book(context.Context, int) (bookdb.BookInfo, error) {
	return bookdb.BookInfo{}, nil
}
func (f *fakeCatalog) BookRefs(context.Context, string) ([]bookdb.BookRef, error) { return nil, nil }
func (f *fakeCatalog) SCBArchive(context.Context) (bookdb.ArchiveInfo, error) {
	return bookdb.ArchiveInfo{}, nil
}
func (f *fakeCatalog) SCBBookTypes(context.Context) (bookdb.BookTypes, error) {
	return f.scbTypes, nil
}
func (f *fakeCatalog) SCBBooks(_ context.Context, cid int) ([]bookdb.Book, error) {
	return f.scbBooks[cid], nil
}
func (f *fakeCatalog) URL() string { return testURL }
func (f *fakeCatalog) Credentials() bookdb.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds
}
func (f *fakeCatalog) SetCredentials(c bookdb.Credentials) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds = c
}

type fakeImporter struct {
	mu       sync.Mutex
	repos    []string
	church   []importer.ChurchBook
	scb      []importer.SCBBook
	behavior importer.Behavior
	err      error
}

func (f *fakeImporter) AddRepository(_ context.Context, rin string) (gendb.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos = append(f.repos, rin)
	return gendb.Repository{GrampsID: "R0000", Name: "Riksarkivet"}, f.err
}

func (f *fakeImporter) AddChurchBook(_ context.Context, sel importer.ChurchBook) (gendb.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.church = append(f.church, sel)
	if f.err != nil {
		return gendb.Source{}, f.err
	}
	return gendb.Source{GrampsID: "S0000"}, nil
}

func (f *fakeImporter) AddSCBBook(_ context.Context, sel importer.SCBBook) (gendb.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scb = append(f.scb, sel)
	return gendb.Source{GrampsID: "S0001"}, f.err
}

func (f *fakeImporter) SetBehavior(b importer.Behavior) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.behavior = b
}

type countingRefresher struct{ n int }

func (r *countingRefresher) Trigger() { r.n++ }

type fixture struct {
	catalog  *fakeCatalog
	importer *fakeImporter
	indexer  *countingRefresher
	store    *state.Store
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		catalog: &fakeCatalog{
			creds:    bookdb.Credentials{URL: testURL, Username: "u", Password: "p"},
			counties: []bookdb.County{{ID: 1, Name: "Stockholm"}, {ID: 3, Name: "Uppsala"}},
			archives: map[int][]bookdb.Archive{
				1: {{ID: 10, Name: "Adelsö", CountyID: 1}, {ID: 11, Name: "Håtuna", CountyID: 3}},
				3: {{ID: 30, Name: "Alunda", CountyID: 3}},
			},
			types: bookdb.BookTypes{{ID: "1", Name: "Husförhör"}, {ID: "3", Name: "Födde"}},
			books: map[int][]bookdb.Book{
				10: {
					{ID: 100, TypeID: "1", SpecTypeID: "0", Period: "1700-1710", Signum: "AI:1"},
					{ID: 101, TypeID: "3", SpecTypeID: "0", Period: "1700-1720", Signum: "C:1"},
				},
			},
			scbTypes: bookdb.BookTypes{{ID: "1", Name: "Födde"}},
			scbBooks: map[int][]bookdb.Book{1: {{ID: 500, TypeID: "1", Period: "1861-1870", Signum: "H1:1", Extra: "Adelsö"}}},
		},
		importer: &fakeImporter{},
		indexer:  &countingRefresher{},
		store:    &state.Store{},
		dir:      t.TempDir(),
	}
}

func (f *fixture) model(startupErr string) Model {
	cfg := config.Default()
	cfg.BookDB.URL = testURL
	m := New(Options{
		Catalog:      f.catalog,
		Importer:     f.importer,
		Store:        f.store,
		Indexer:      f.indexer,
		Config:       cfg,
		ConfigPath:   filepath.Join(f.dir, "config.toml"),
		PrefsPath:    filepath.Join(f.dir, "prefs.toml"),
		StartupError: startupErr,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

// deliver runs cmd and feeds its message back, following chained commands.
func deliver(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return m
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestLockedModel_OnlyErrorAndBookDB(t *testing.T) {
	f := newFixture(t)
	m := f.model("bookdb test: Authentication Required")

	assert.Equal(t, ViewError, m.view)
	assert.Contains(t, m.View(), "Authentication Required")

	m, _ = press(t, m, "1")
	assert.Equal(t, ViewError, m.view)
	m, _ = press(t, m, "2")
	assert.Equal(t, ViewError, m.view)

	m, _ = press(t, m, "tab")
	assert.Equal(t, ViewBookDB, m.view)
	m, _ = press(t, m, "tab")
	assert.Equal(t, ViewError, m.view)
}

func TestLockedModel_PassingTestUnlocks(t *testing.T) {
	f := newFixture(t)
	m := f.model("bookdb test: failed")
	m, _ = press(t, m, "4")
	require.Equal(t, ViewBookDB, m.view)

	m, cmd := press(t, m, "t")
	require.NotNil(t, cmd)
	m = deliver(t, m, cmd)

	assert.False(t, m.locked)
	assert.Equal(t, ViewSources, m.view)
	assert.Equal(t, 1, f.indexer.n)
	assert.Len(t, m.sources.counties, 2)
}

func TestBookDBPage_FailedTestStaysLocked(t *testing.T) {
	f := newFixture(t)
	f.catalog.testErr = &bookdb.StatusError{Command: bookdb.CmdTest, Status: bookdb.StatusAuthenticationRequired, Code: 401}
	m := f.model("bookdb test: failed")
	m, _ = press(t, m, "4")

	m, cmd := press(t, m, "t")
	m = deliver(t, m, cmd)
	assert.True(t, m.locked)
	assert.False(t, m.bookdb.resultOK)
	assert.Contains(t, m.bookdb.result, bookdb.StatusAuthenticationRequired)
}

func TestBookDBPage_EditAndSave(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	m, _ = press(t, m, "4", "down", "enter")
	require.True(t, m.bookdb.editing)

	// While editing, page keys are text.
	m, _ = press(t, m, "x", "1")
	assert.Equal(t, ViewBookDB, m.view)
	m, _ = press(t, m, "enter")
	require.False(t, m.bookdb.editing)
	assert.Equal(t, "x1", m.bookdb.inputs[fieldUsername].Value())

	m, cmd := press(t, m, "s")
	require.NotNil(t, cmd)
	m = deliver(t, m, cmd)
	assert.Equal(t, "x1", f.catalog.Credentials().Username)

	saved, err := config.Load(filepath.Join(f.dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "x1", saved.BookDB.Username)
	assert.Equal(t, "bookDB settings saved", m.status)
}

func TestSourcesDrillDown_ChurchBooks(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	m = deliver(t, m, m.loadCountiesCmd())

	// Church books, then Stockholm.
	m, cmd := press(t, m, "enter")
	assert.Nil(t, cmd)
	assert.Equal(t, stageCounty, m.sources.stage)

	m, cmd = press(t, m, "enter")
	m = deliver(t, m, cmd)
	require.Equal(t, stageArchive, m.sources.stage)
	assert.Equal(t, "Håtuna (Uppsala)", m.sources.archives[1].Name)

	m, cmd = press(t, m, "enter")
	m = deliver(t, m, cmd)
	require.Equal(t, stageBooks, m.sources.stage)
	require.Len(t, m.sources.rows, 4)
	assert.Equal(t, 1, m.sources.cursor[stageBooks])
	assert.Contains(t, m.View(), "Husförhör 1700-1710 (AI:1)")

	m, cmd = press(t, m, "a")
	m = deliver(t, m, cmd)
	require.Len(t, f.importer.church, 1)
	assert.Equal(t, importer.ChurchBook{CountyID: 1, ArchiveID: 10, BookID: 100}, f.importer.church[0])
	assert.Equal(t, "Imported Husförhör 1700-1710 (AI:1) as S0000", m.status)
	assert.Equal(t, 1, f.indexer.n)

	m, _ = press(t, m, "esc")
	assert.Equal(t, stageArchive, m.sources.stage)
}

func TestSourcesDrillDown_SingleArchiveOpensBooks(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	m = deliver(t, m, m.loadCountiesCmd())

	m, _ = press(t, m, "enter", "down")
	m, cmd := press(t, m, "enter")
	m = deliver(t, m, cmd)
	assert.Equal(t, stageBooks, m.sources.stage)
	assert.Equal(t, "Alunda", m.sources.archive.Name)

	m, _ = press(t, m, "esc")
	assert.Equal(t, stageCounty, m.sources.stage)
}

func TestSourcesDrillDown_SCBSkipsArchive(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	m = deliver(t, m, m.loadCountiesCmd())

	m, _ = press(t, m, "down", "enter")
	require.Equal(t, stageCounty, m.sources.stage)
	m, cmd := press(t, m, "enter")
	m = deliver(t, m, cmd)
	require.Equal(t, stageBooks, m.sources.stage)
	require.Len(t, m.sources.rows, 2)
	assert.Equal(t, "Adelsö", m.sources.rows[1].Extra)

	m, cmd = press(t, m, "enter")
	_ = deliver(t, m, cmd)
	assert.Equal(t, []importer.SCBBook{{CountyID: 1, BookID: 500}}, f.importer.scb)
}

func TestSourcesBooks_ImportedRowsRefreshWithSnapshot(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	m = deliver(t, m, m.loadCountiesCmd())
	m, cmd := press(t, m, "enter", "enter")
	m = deliver(t, m, cmd)
	m, cmd = press(t, m, "enter")
	m = deliver(t, m, cmd)
	require.True(t, m.sources.rows[1].Selectable())

	f.store.Update(importer.RepositoryIndex{}, importer.RinIndex{"100": "S0007"}, nil)
	m = deliver(t, m, fetchSnapshotCmd(f.store))
	assert.Equal(t, "S0007", m.sources.rows[1].GrampsID)

	m, cmd = press(t, m, "a")
	assert.Nil(t, cmd)
	assert.Empty(t, f.importer.church)
	assert.Contains(t, m.status, "already imported as S0007")
}

func TestImportedMsg_MappingErrorOnStatusLine(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	next, _ := m.Update(importedMsg{what: "Födde", err: &importer.MappingError{Key: "SVAR", Name: "Riksarkivet"}})
	m = next.(Model)
	assert.Equal(t, "ERRO", m.statusLevel)
	assert.Equal(t, "bookDB repository missing: Riksarkivet (SVAR)", m.status)
	assert.Zero(t, f.indexer.n)
}

func TestRepositoriesPage_AddsUnlinked(t *testing.T) {
	f := newFixture(t)
	listing := []bookdb.RepositoryRow{{RIN: "1", Name: "Riksarkivet", Ref: "SVAR"}, {RIN: "2", Name: "ArkivDigital", Ref: "AD"}}
	linked := []gendb.Repository{{Handle: "h", GrampsID: "R0003", URLs: []gendb.URL{importer.RINURL(testURL, "1")}}}
	f.store.Update(importer.BuildRepositoryIndex(listing, linked, testURL), nil, nil)

	m := f.model("")
	m = deliver(t, m, fetchSnapshotCmd(f.store))
	m, _ = press(t, m, "2")
	require.Equal(t, ViewRepositories, m.view)
	assert.Contains(t, m.View(), "[R0003]")

	m, cmd := press(t, m, "a")
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "already imported")

	m, cmd = press(t, m, "j", "a")
	m = deliver(t, m, cmd)
	assert.Equal(t, []string{"2"}, f.importer.repos)
	assert.Equal(t, "Imported ArkivDigital as R0000", m.status)
}

func TestSettingsPage_ToggleAppliesAndSaves(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	m, _ = press(t, m, "3", "j", "space")
	assert.True(t, m.settings.behavior.SourCountry)
	assert.True(t, m.settings.dirty)
	assert.True(t, f.importer.behavior.SourCountry)
	assert.Contains(t, m.View(), "[x] Country in source titles")

	m, cmd := press(t, m, "s")
	m = deliver(t, m, cmd)
	assert.False(t, m.settings.dirty)

	saved, err := config.Load(filepath.Join(f.dir, "config.toml"))
	require.NoError(t, err)
	assert.True(t, saved.Behavior.SourCountry)
	assert.False(t, saved.Behavior.RepoI8n)
}

func TestLogPage_FiltersByLevel(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	m, _ = press(t, m, "5")

	next, _ := m.Update(logLinesMsg{lines: []string{
		"2026-01-02 10:00:00 DEBU query url=x",
		"2026-01-02 10:00:01 WARN index rebuild failed error=boom",
	}})
	m = next.(Model)
	assert.Contains(t, m.View(), "query")

	m, _ = press(t, m, "L", "L")
	assert.Equal(t, "WARN", m.logs.level)
	view := m.View()
	assert.NotContains(t, view, "query")
	assert.Contains(t, view, "index rebuild failed")

	m, _ = press(t, m, "f")
	assert.False(t, m.logs.follow)
}

func TestHelpOverlay(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	m, _ = press(t, m, "?")
	assert.True(t, strings.Contains(m.View(), "Keyboard Shortcuts"))
	m, _ = press(t, m, "x")
	assert.False(t, m.showHelp)
}

func TestCycleTheme_SavesPrefs(t *testing.T) {
	f := newFixture(t)
	m := f.model("")
	m, _ = press(t, m, "T")
	assert.Equal(t, "Kanagawa", m.theme.Name)
	assert.FileExists(t, filepath.Join(f.dir, "prefs.toml"))
}
