package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dis-maja/swesrc/internal/bookdb"
	"github.com/dis-maja/swesrc/internal/config"
	"github.com/dis-maja/swesrc/internal/gendb"
	"github.com/dis-maja/swesrc/internal/importer"
)

// Services bundles the long-lived collaborators shared by the CLI commands
// and the TUI.
type Services struct {
	Config   config.Config
	Catalog  *bookdb.Client
	Records  *gendb.Store
	Importer *importer.Importer
	Logger   *log.Logger
}

// Open connects the catalog client and opens the record store described by
// cfg.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (*Services, error) {
	catalog := bookdb.NewClient(bookdb.Options{
		Credentials: bookdb.Credentials{
			URL:      cfg.BookDB.URL,
			Username: cfg.BookDB.Username,
			Password: cfg.BookDB.Password,
		},
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.BookDB.RequestsPerSecond,
		Logger:            logger.WithPrefix("bookdb"),
	})

	records, err := gendb.Open(ctx, gendb.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Logger: logger.WithPrefix("gendb"),
	})
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	return &Services{
		Config:   cfg,
		Catalog:  catalog,
		Records:  records,
		Importer: importer.New(catalog, records, BehaviorFromConfig(cfg.Behavior), logger.WithPrefix("import")),
		Logger:   logger,
	}, nil
}

// Close releases the record store.
func (s *Services) Close() error {
	return s.Records.Close()
}

// BehaviorFromConfig converts the persisted toggles for the importer.
func BehaviorFromConfig(b config.Behavior) importer.Behavior {
	return importer.Behavior{
		RepoI8n:         b.RepoI8n,
		SourCountry:     b.SourCountry,
		SourI8n:         b.SourI8n,
		SourAvoidSignum: b.SourAvoidSignum,
	}
}
