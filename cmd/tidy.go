package cmd

import (
	"feedbridge/db"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Remove expired feeds from the SQLite cache",
		Description: `Deletes rows whose TTL has passed. Expired rows are never served,
		this only keeps the database file small.`,
		Flags: []cli.Flag{databaseFlag},
		Action: func(ctx *cli.Context) error {
			store, err := db.Open(ctx.String("database"))
			if err != nil {
				return err
			}
			defer store.Close()

			_, err = store.Tidy(ctx.Context)
			return err
		},
	}
}
