// Package main is the entry point for the departure board API.
// It only wires dependencies together and starts the requested command.
// No business logic belongs here.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to an optional TOML configuration file (env vars override it)",
		Sources: cli.EnvVars("CONFIG_FILE"),
	}

	app := &cli.Command{
		Name:   "tabliczki",
		Usage:  "Departure boards for saved sets of Gdansk ZTM stops",
		Writer: os.Stdout,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{Name: "up", Usage: "Apply all pending migrations", Action: migrateUp},
					{Name: "down", Usage: "Roll back the most recent migration", Action: migrateDown},
					{Name: "status", Usage: "List migrations and whether they are applied", Action: migrateStatus},
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
