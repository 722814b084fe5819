package cmd

import (
	"feedbridge/db"

	"github.com/urfave/cli/v2"
)

var databaseFlag = &cli.StringFlag{
	Name:    "database",
	Aliases: []string{"d"},
	Value:   "feed.db",
	Usage:   "SQLite database file location",
	EnvVars: []string{"FEEDBRIDGE_DATABASE"},
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Creates or upgrades the SQLite feed cache table. The sqlite backend also migrates on startup.`,
		Flags:       []cli.Flag{databaseFlag},
		Action: func(ctx *cli.Context) error {
			return db.Migrate(ctx.String("database"))
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Roll back the last database migration",
		Description: `Reverts the most recent migration of the SQLite feed cache.`,
		Flags:       []cli.Flag{databaseFlag},
		Action: func(ctx *cli.Context) error {
			return db.Rollback(ctx.String("database"))
		},
	}
}
