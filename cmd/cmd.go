// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

func profileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "Profile name (defaults to the first configured profile)",
	}
}

func formatFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   usage,
		Value:   "text",
	}
}

// setupCommand handles configuration and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example configuration file",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// profilesCommand lists configured ledger servers.
func profilesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List configured profiles and their last sync",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Profiles,
	}
}

// syncCommand downloads accounts and transactions from a server.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Download accounts and transactions from the server",
		Flags:  []cli.Flag{profileFlag()},
		Action: r.Sync,
	}
}

// addCommand submits a new transaction.
func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Submit a transaction to the server",
		Flags: []cli.Flag{
			profileFlag(),
			&cli.StringFlag{
				Name:    "date",
				Aliases: []string{"d"},
				Usage:   "Transaction date (YYYY-MM-DD, defaults to today)",
			},
			&cli.StringFlag{
				Name:     "description",
				Aliases:  []string{"m"},
				Usage:    "Transaction description",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "comment",
				Usage: "Transaction comment",
			},
			&cli.StringSliceFlag{
				Name:     "posting",
				Usage:    `Posting as "account=amount currency"; the amount may be omitted on one posting`,
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "simulate",
				Usage: "Log the requests instead of sending them",
			},
		},
		Action: r.Add,
	}
}

// accountsCommand shows stored accounts.
func accountsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "Show accounts stored by the last sync",
		Flags: []cli.Flag{
			profileFlag(),
			formatFlag("Output format (text, csv)"),
		},
		Action: r.Accounts,
	}
}

// transactionsCommand shows stored transactions.
func transactionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "transactions",
		Aliases: []string{"tx"},
		Usage:   "Show transactions stored by the last sync",
		Flags: []cli.Flag{
			profileFlag(),
			formatFlag("Output format (text, csv, journal)"),
			&cli.StringFlag{
				Name:    "account",
				Aliases: []string{"a"},
				Usage:   "Only transactions touching this account or its sub-accounts",
			},
			&cli.StringFlag{
				Name:  "since",
				Usage: "Only transactions on or after this date (YYYY-MM-DD)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of transactions to show",
			},
		},
		Action: r.Transactions,
	}
}

// exportCommand writes stored data to files.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored accounts and transactions to files",
		Flags: []cli.Flag{
			profileFlag(),
			formatFlag("Export format (text, csv, markdown, journal)"),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   ".",
			},
		},
		Action: r.Export,
	}
}
