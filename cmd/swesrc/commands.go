package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dis-maja/swesrc/internal/app"
	"github.com/dis-maja/swesrc/internal/browse"
	"github.com/dis-maja/swesrc/internal/config"
	"github.com/dis-maja/swesrc/internal/importer"
)

// withServices opens the catalog client and the record store around a
// command. CLI commands log to stderr.
func withServices(fn func(*cli.Context, *app.Services) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := app.LoadConfig(c.String("config"), c.String("env-file"))
		if err != nil {
			return err
		}
		logger := app.NewLogger(os.Stderr, cfg.Log.Level)
		s, err := app.Open(c.Context, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		return fn(c, s)
	}
}

func testAction(c *cli.Context, s *app.Services) error {
	status, err := s.Catalog.Test(c.Context)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, status)
	return err
}

func reposAction(c *cli.Context, s *app.Services) error {
	index, err := s.Importer.RepositoryIndex(c.Context)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, index.Len())
	for _, r := range browse.RepositoryRows(index) {
		rows = append(rows, []string{r.RIN, r.Name, r.Ref, r.GrampsID})
	}
	return printTable(c.App.Writer, []string{"RIN", "Name", "Ref", "Record"}, rows)
}

func countiesAction(c *cli.Context, s *app.Services) error {
	counties, err := s.Catalog.Counties(c.Context)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(counties))
	for _, ch := range browse.CountyChoices(counties) {
		rows = append(rows, []string{strconv.Itoa(ch.ID), ch.Name})
	}
	return printTable(c.App.Writer, []string{"ID", "County"}, rows)
}

func archivesAction(c *cli.Context, s *app.Services) error {
	cid := c.Int("county")
	counties, err := s.Catalog.Counties(c.Context)
	if err != nil {
		return err
	}
	archives, err := s.Catalog.Archives(c.Context, cid)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(archives))
	for _, ch := range browse.ArchiveChoices(cid, archives, counties) {
		rows = append(rows, []string{strconv.Itoa(ch.ID), ch.Name})
	}
	return printTable(c.App.Writer, []string{"ID", "Archive"}, rows)
}

func booksAction(c *cli.Context, s *app.Services) error {
	aid := c.Int("archive")
	types, err := s.Catalog.BookTypes(c.Context, aid)
	if err != nil {
		return err
	}
	books, err := s.Catalog.Books(c.Context, aid)
	if err != nil {
		return err
	}
	rins, err := s.Importer.RebuildRinIndex(c.Context)
	if err != nil {
		return err
	}
	return printBookRows(c.App.Writer, browse.ChurchBookRows(books, types, rins))
}

func scbBooksAction(c *cli.Context, s *app.Services) error {
	types, err := s.Catalog.SCBBookTypes(c.Context)
	if err != nil {
		return err
	}
	books, err := s.Catalog.SCBBooks(c.Context, c.Int("county"))
	if err != nil {
		return err
	}
	rins, err := s.Importer.RebuildRinIndex(c.Context)
	if err != nil {
		return err
	}
	return printBookRows(c.App.Writer, browse.SCBBookRows(books, types, rins))
}

func printBookRows(w io.Writer, rows []browse.Row) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		if r.Header {
			out = append(out, []string{"", r.Label, "", ""})
			continue
		}
		out = append(out, []string{strconv.Itoa(r.BookID), "  " + r.Label, r.Extra, r.GrampsID})
	}
	return printTable(w, []string{"ID", "Book", "Extra", "Record"}, out)
}

func repoRecordAction(draft bool) func(*cli.Context, *app.Services) error {
	return func(c *cli.Context, s *app.Services) error {
		rin := c.Args().First()
		if rin == "" {
			return cli.Exit("missing <rin>", 2)
		}
		if draft {
			repo, err := s.Importer.DraftRepository(c.Context, rin)
			if err != nil {
				return err
			}
			return printYAML(c.App.Writer, repo)
		}
		repo, err := s.Importer.AddRepository(c.Context, rin)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.App.Writer, "added %s %s\n", repo.GrampsID, repo.Name)
		return err
	}
}

func churchBookRecordAction(draft bool) func(*cli.Context, *app.Services) error {
	return func(c *cli.Context, s *app.Services) error {
		sel := importer.ChurchBook{
			CountyID:  c.Int("county"),
			ArchiveID: c.Int("archive"),
			BookID:    c.Int("book"),
		}
		if draft {
			src, err := s.Importer.DraftChurchBook(c.Context, sel)
			if err != nil {
				return err
			}
			return printYAML(c.App.Writer, src)
		}
		src, err := s.Importer.AddChurchBook(c.Context, sel)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.App.Writer, "added %s %s\n", src.GrampsID, src.Title)
		return err
	}
}

func scbBookRecordAction(draft bool) func(*cli.Context, *app.Services) error {
	return func(c *cli.Context, s *app.Services) error {
		sel := importer.SCBBook{CountyID: c.Int("county"), BookID: c.Int("book")}
		if draft {
			src, err := s.Importer.DraftSCBBook(c.Context, sel)
			if err != nil {
				return err
			}
			return printYAML(c.App.Writer, src)
		}
		src, err := s.Importer.AddSCBBook(c.Context, sel)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.App.Writer, "added %s %s\n", src.GrampsID, src.Title)
		return err
	}
}

func configShowAction(c *cli.Context) error {
	cfg, err := app.LoadConfig(c.String("config"), c.String("env-file"))
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(config.Keys()))
	for _, key := range config.Keys() {
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if key == "bookdb.password" && v != "" && !c.Bool("reveal") {
			v = "********"
		}
		rows = append(rows, []string{key, v})
	}
	return printTable(c.App.Writer, []string{"Key", "Value"}, rows)
}

// configSetAction edits the file as stored, without environment
// overrides, so they are not written back.
func configSetAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: swesrc config set <key> <value>", 2)
	}
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(c.Args().Get(0), c.Args().Get(1)); err != nil {
		return err
	}
	return config.Save(path, cfg)
}

func printTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
