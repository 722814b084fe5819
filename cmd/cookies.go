package cmd

import (
	"fmt"

	"feedbridge/cookies"

	"github.com/urfave/cli/v2"
)

func cookiesCmd() *cli.Command {
	return &cli.Command{
		Name:  "cookies",
		Usage: "Check a Netscape cookie file",
		Description: `Loads a Netscape format cookie file the way the server does and
		prints the Cookie header it would send to the given URL.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Cookie file to check",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "url",
				Value: "https://syndication.twitter.com",
				Usage: "URL to print the cookie header for",
			},
		},
		Action: func(ctx *cli.Context) error {
			jar, err := cookies.NewJar()
			if err != nil {
				return err
			}
			if _, err := cookies.LoadFile(jar, ctx.String("file")); err != nil {
				return err
			}

			header, err := cookies.Header(jar, ctx.String("url"))
			if err != nil {
				return err
			}
			fmt.Fprintln(ctx.App.Writer, header)
			return nil
		},
	}
}
