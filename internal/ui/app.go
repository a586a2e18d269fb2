package ui

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dis-maja/swesrc/internal/bookdb"
	"github.com/dis-maja/swesrc/internal/config"
	"github.com/dis-maja/swesrc/internal/gendb"
	"github.com/dis-maja/swesrc/internal/importer"
	"github.com/dis-maja/swesrc/internal/prefs"
	"github.com/dis-maja/swesrc/internal/state"
)

// View is a page of the UI.
type View int

const (
	ViewSources View = iota
	ViewRepositories
	ViewSettings
	ViewBookDB
	ViewLog
	ViewError
)

func (v View) String() string {
	switch v {
	case ViewSources:
		return "Sources"
	case ViewRepositories:
		return "Repositories"
	case ViewSettings:
		return "Settings"
	case ViewBookDB:
		return "bookDB"
	case ViewLog:
		return "Log"
	case ViewError:
		return "Error"
	}
	return "?"
}

var (
	normalViews = []View{ViewSources, ViewRepositories, ViewSettings, ViewBookDB, ViewLog}
	lockedViews = []View{ViewError, ViewBookDB}
)

// Catalog is the catalog client as the UI uses it.
type Catalog interface {
	bookdb.Catalog
	Credentials() bookdb.Credentials
	SetCredentials(bookdb.Credentials)
}

// Importer creates records from catalog entries.
type Importer interface {
	AddRepository(ctx context.Context, rin string) (gendb.Repository, error)
	AddChurchBook(ctx context.Context, sel importer.ChurchBook) (gendb.Source, error)
	AddSCBBook(ctx context.Context, sel importer.SCBBook) (gendb.Source, error)
	SetBehavior(b importer.Behavior)
}

// Refresher asks the background indexer for a rebuild.
type Refresher interface {
	Trigger()
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Catalog    Catalog
	Importer   Importer
	Store      *state.Store
	Indexer    Refresher
	Config     config.Config
	ConfigPath string
	Prefs      prefs.Prefs
	PrefsPath  string
	LogPath    string
	PollTick   time.Duration
	Logger     *log.Logger
	// StartupError is the result of the failed initial connection test.
	// When set only the Error and bookDB pages are reachable.
	StartupError string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Collaborators
	ctx      context.Context
	catalog  Catalog
	importer Importer
	store    *state.Store
	indexer  Refresher
	logger   *log.Logger

	// Persistence
	cfg        config.Config
	configPath string
	prefs      prefs.Prefs
	prefsPath  string
	logPath    string
	pollTick   time.Duration

	// UI state
	keys       keyMap
	theme      Theme
	view       View
	width      int
	height     int
	ready      bool
	locked     bool
	startupErr string
	showHelp   bool

	// Status line
	status      string
	statusLevel string

	// Data state
	snapshot state.Snapshot

	// Pages
	sources  sourcesState
	repoRow  int
	settings settingsState
	bookdb   bookdbState
	logs     logState
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	m := Model{
		ctx:        ctx,
		catalog:    opts.Catalog,
		importer:   opts.Importer,
		store:      opts.Store,
		indexer:    opts.Indexer,
		logger:     logger,
		cfg:        opts.Config,
		configPath: opts.ConfigPath,
		prefs:      opts.Prefs,
		prefsPath:  prefsPath,
		logPath:    opts.LogPath,
		pollTick:   pollTick,
		keys:       DefaultKeyMap(),
		theme:      GetTheme(opts.Prefs.Theme),
		view:       ViewSources,
		startupErr: opts.StartupError,
		settings:   settingsState{behavior: opts.Config.Behavior},
	}
	m.bookdb = newBookDBState(opts.Config.BookDB, opts.Prefs.ShowPassword)
	m.logs = newLogState()
	if strings.TrimSpace(opts.StartupError) != "" {
		m.locked = true
		m.view = ViewError
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if !m.locked {
		cmds = append(cmds, m.loadCountiesCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case countiesMsg:
		return m.handleCounties(msg)

	case archivesMsg:
		return m.handleArchives(msg)

	case booksMsg:
		return m.handleBooks(msg)

	case importedMsg:
		return m.handleImported(msg)

	case repoImportedMsg:
		return m.handleRepoImported(msg)

	case testMsg:
		return m.handleTest(msg)

	case savedMsg:
		if msg.err != nil {
			m.setStatus("ERRO", "Save failed: "+msg.err.Error())
		} else {
			m.setStatus("INFO", msg.what+" saved")
		}
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	// An edited input owns the keyboard.
	if m.view == ViewBookDB && m.bookdb.editing {
		return m.handleBookDBEditKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		return m.switchTo(m.cycleView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchTo(m.cycleView(-1))
	case key.Matches(msg, m.keys.PageSources):
		return m.switchTo(ViewSources)
	case key.Matches(msg, m.keys.PageRepositories):
		return m.switchTo(ViewRepositories)
	case key.Matches(msg, m.keys.PageSettings):
		return m.switchTo(ViewSettings)
	case key.Matches(msg, m.keys.PageBookDB):
		return m.switchTo(ViewBookDB)
	case key.Matches(msg, m.keys.PageLog):
		return m.switchTo(ViewLog)
	}

	switch m.view {
	case ViewSources:
		return m.handleSourcesKey(msg)
	case ViewRepositories:
		return m.handleRepositoriesKey(msg)
	case ViewSettings:
		return m.handleSettingsKey(msg)
	case ViewBookDB:
		return m.handleBookDBKey(msg)
	case ViewLog:
		return m.handleLogKey(msg)
	}
	return m, nil
}

func (m Model) views() []View {
	if m.locked {
		return lockedViews
	}
	return normalViews
}

func (m Model) reachable(v View) bool {
	for _, candidate := range m.views() {
		if candidate == v {
			return true
		}
	}
	return false
}

func (m Model) cycleView(step int) View {
	views := m.views()
	for i, v := range views {
		if v == m.view {
			return views[(i+step+len(views))%len(views)]
		}
	}
	return views[0]
}

func (m Model) switchTo(v View) (tea.Model, tea.Cmd) {
	if !m.reachable(v) {
		return m, nil
	}
	m.view = v
	if v == ViewLog {
		return m, m.readLogCmd()
	}
	return m, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.view == ViewLog && m.logs.follow {
		cmds = append(cmds, m.readLogCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	changed := snap.Generation != m.snapshot.Generation
	m.snapshot = snap
	if changed {
		m.rebuildBookRows()
		if n := m.snapshot.Repositories.Len(); m.repoRow >= n {
			m.repoRow = max(n-1, 0)
		}
	}
}

func (m *Model) setStatus(level, text string) {
	m.statusLevel = level
	m.status = text
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save preferences failed", "error", err)
	}
}

func (m Model) requestReindex() {
	if m.indexer != nil {
		m.indexer.Trigger()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type savedMsg struct {
	what string
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// catalogContext bounds one catalog call made on behalf of the UI.
func (m Model) catalogContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, CatalogTimeout)
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
