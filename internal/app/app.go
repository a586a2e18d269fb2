package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dis-maja/swesrc/internal/config"
	"github.com/dis-maja/swesrc/internal/prefs"
	"github.com/dis-maja/swesrc/internal/state"
	"github.com/dis-maja/swesrc/internal/ui"
)

const startupTestTimeout = 10 * time.Second

// Options configure the swesrc TUI.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/swesrc/prefs.toml
	EnvFile    string // optional dotenv file applied before SWESRC_* overrides
	PollEvery  int    // UI refresh in seconds; zero uses default
}

// LoadConfig reads the config file and applies the environment overrides.
func LoadConfig(path, envFile string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.LoadEnv(envFile); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Run boots the swesrc TUI until the user quits or the context is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return err
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}

	logFile, err := OpenLogFile(cfg.Log.Path)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()
	logger := NewLogger(logFile, cfg.Log.Level)
	logger.Info("swesrc starting", "database", cfg.Database.Driver)

	services, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = services.Close() }()

	startupErr := ""
	if err := checkCatalog(ctx, services); err != nil {
		logger.Warn("bookdb unavailable at startup", "error", err)
		startupErr = err.Error()
	}

	store := &state.Store{}
	indexer := NewIndexer(store, services.Importer, 0, logger.WithPrefix("index"))
	indexer.Start(ctx, services.Records)

	var pollTick time.Duration
	if opts.PollEvery > 0 {
		pollTick = time.Duration(opts.PollEvery) * time.Second
	}

	return ui.Run(ui.Options{
		Context:      ctx,
		Catalog:      services.Catalog,
		Importer:     services.Importer,
		Store:        store,
		Indexer:      indexer,
		Config:       cfg,
		ConfigPath:   opts.ConfigPath,
		Prefs:        userPrefs,
		PrefsPath:    opts.PrefsPath,
		LogPath:      cfg.Log.Path,
		PollTick:     pollTick,
		Logger:       logger,
		StartupError: startupErr,
	})
}

// checkCatalog runs the connection test the TUI gates on.
func checkCatalog(ctx context.Context, s *Services) error {
	ctx, cancel := context.WithTimeout(ctx, startupTestTimeout)
	defer cancel()
	status, err := s.Catalog.Test(ctx)
	if err != nil {
		return fmt.Errorf("bookdb test: %w", err)
	}
	s.Logger.Info("bookdb reachable", "status", status)
	return nil
}
