package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dis-maja/swesrc/internal/app"
	"github.com/dis-maja/swesrc/internal/version"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "swesrc: %v\n", err)
		return 1
	}
	return 0
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "swesrc",
		Usage:   "import Swedish archive sources from bookDB into a genealogy record store",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
				EnvVars: []string{"SWESRC_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "prefs",
				Usage: "UI preferences file path",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file with SWESRC_* overrides",
			},
		},
		Action: tuiAction,
		Commands: []*cli.Command{
			{
				Name:   "tui",
				Usage:  "start the terminal UI (default)",
				Flags:  []cli.Flag{&cli.IntFlag{Name: "poll", Usage: "UI refresh interval in seconds"}},
				Action: tuiAction,
			},
			{
				Name:   "test",
				Usage:  "test the bookDB connection",
				Action: withServices(testAction),
			},
			{
				Name:   "repos",
				Usage:  "list bookDB repositories and their linked records",
				Action: withServices(reposAction),
			},
			{
				Name:   "counties",
				Usage:  "list counties",
				Action: withServices(countiesAction),
			},
			{
				Name:   "archives",
				Usage:  "list the archives of a county",
				Flags:  []cli.Flag{countyFlag()},
				Action: withServices(archivesAction),
			},
			{
				Name:   "books",
				Usage:  "list the church books of an archive",
				Flags:  []cli.Flag{archiveFlag()},
				Action: withServices(booksAction),
			},
			{
				Name:   "scb-books",
				Usage:  "list the SCB extracts of a county",
				Flags:  []cli.Flag{countyFlag()},
				Action: withServices(scbBooksAction),
			},
			{
				Name:        "import",
				Usage:       "add a catalog entry to the record store",
				Subcommands: recordCommands(false),
			},
			{
				Name:        "draft",
				Usage:       "print the record an import would create, as YAML",
				Subcommands: recordCommands(true),
			},
			{
				Name:  "config",
				Usage: "show or change the configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "print every setting",
						Flags:  []cli.Flag{&cli.BoolFlag{Name: "reveal", Usage: "show the password"}},
						Action: configShowAction,
					},
					{
						Name:      "set",
						Usage:     "change one setting and save",
						ArgsUsage: "<key> <value>",
						Action:    configSetAction,
					},
				},
			},
		},
	}
}

func recordCommands(draft bool) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "repo",
			Usage:     "a repository by RIN",
			ArgsUsage: "<rin>",
			Action:    withServices(repoRecordAction(draft)),
		},
		{
			Name:   "book",
			Usage:  "a church book",
			Flags:  []cli.Flag{countyFlag(), archiveFlag(), bookFlag()},
			Action: withServices(churchBookRecordAction(draft)),
		},
		{
			Name:   "scb",
			Usage:  "an SCB extract",
			Flags:  []cli.Flag{countyFlag(), bookFlag()},
			Action: withServices(scbBookRecordAction(draft)),
		},
	}
}

func countyFlag() cli.Flag {
	return &cli.IntFlag{Name: "county", Usage: "county id", Required: true}
}

func archiveFlag() cli.Flag {
	return &cli.IntFlag{Name: "archive", Usage: "archive id", Required: true}
}

func bookFlag() cli.Flag {
	return &cli.IntFlag{Name: "book", Usage: "book id", Required: true}
}

func tuiAction(c *cli.Context) error {
	return app.Run(c.Context, app.Options{
		ConfigPath: c.String("config"),
		PrefsPath:  c.String("prefs"),
		EnvFile:    c.String("env-file"),
		PollEvery:  c.Int("poll"),
	})
}
