package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "feedbridge",
		Usage: "RSS feeds for Facebook pages and Twitter profiles",
		Description: `Builds RSS 2.0 feeds from Facebook pages (Graph API) and Twitter
		profiles (syndication timeline), caching the result for a short time.

		Flags can generally be set via environment variables, e.g.:

		--base-url => BASE_URL=https://feeds.example.com
		--port => PORT=8000
		--cache-backend => FEEDBRIDGE_CACHE_BACKEND=redis

		A .env file in the working directory is loaded on startup.
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"FEEDBRIDGE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format (text or json)",
				EnvVars: []string{"FEEDBRIDGE_LOG_FORMAT"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			if ctx.String("log-format") == "json" {
				log.SetFormatter(&log.JSONFormatter{})
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			evictCmd(),
			migrateCmd(),
			rollbackCmd(),
			tidyCmd(),
			cookiesCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// Execute runs the CLI until it finishes or the process is interrupted
func Execute() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Could not load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
