package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"feedbridge/cache"
	"feedbridge/config"
	"feedbridge/content"
	"feedbridge/cookies"
	"feedbridge/facebook"
	"feedbridge/feeds"
	"feedbridge/server"
	"feedbridge/twitter"
	"feedbridge/upstream"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the feeds",
		Description: `Starts the HTTP server.

		GET /rss?username=<page>            Facebook page feed
		GET /twitter-rss/<screen name>      Twitter profile feed
		GET /facebook/image/<id>            redirect to the largest photo variant
		GET /facebook/video/<id>            redirect to the video source
		GET /facebook/profile-picture/<id>  redirect to the page picture
		GET /metrics                        Prometheus metrics`,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   8000,
				Usage:   "Port to listen on",
				EnvVars: []string{"FEEDBRIDGE_PORT", "PORT"},
			},
			&cli.StringFlag{
				Name:     "base-url",
				Usage:    "Public URL of this server, used for media proxy links",
				EnvVars:  []string{"FEEDBRIDGE_BASE_URL", "BASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "graph-access-token",
				Usage:    "Facebook Graph API access token",
				EnvVars:  []string{"FEEDBRIDGE_GRAPH_ACCESS_TOKEN", "GRAPH_ACCESS_TOKEN"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "graph-host",
				Value:   facebook.DefaultGraphHost,
				Usage:   "Facebook Graph API host",
				EnvVars: []string{"FEEDBRIDGE_GRAPH_HOST"},
			},
			&cli.StringFlag{
				Name:    "syndication-host",
				Value:   twitter.DefaultSyndicationHost,
				Usage:   "Twitter syndication host",
				EnvVars: []string{"FEEDBRIDGE_SYNDICATION_HOST"},
			},
			&cli.StringFlag{
				Name:    "twitter-cookies",
				Usage:   "Contents of a Netscape cookie file for Twitter requests",
				EnvVars: []string{"TWITTER_COOKIES"},
			},
			&cli.StringFlag{
				Name:    "twitter-cookies-file",
				Usage:   "Netscape cookie file for Twitter requests",
				EnvVars: []string{"FEEDBRIDGE_TWITTER_COOKIES_FILE"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML configuration file",
				EnvVars: []string{"FEEDBRIDGE_CONFIG"},
			},
			&cli.DurationFlag{
				Name:    "upstream-timeout",
				Value:   30 * time.Second,
				Usage:   "Timeout of every upstream request",
				EnvVars: []string{"FEEDBRIDGE_UPSTREAM_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:    "evict-daily",
				Usage:   "Evict the whole cache every day at 00:00 UTC",
				EnvVars: []string{"FEEDBRIDGE_EVICT_DAILY"},
			},
		}, cacheFlags()...),
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return err
			}

			feedCache := openCache(ctx)
			defer feedCache.Close()

			serverConfig, err := newServerConfig(ctx, cfg, feedCache)
			if err != nil {
				return err
			}
			app := server.Server(serverConfig)

			if ctx.Bool("evict-daily") {
				go evictDaily(ctx.Context, feedCache)
			}

			errs := make(chan error, 1)
			go func() {
				addr := fmt.Sprintf(":%d", ctx.Int("port"))
				log.WithFields(log.Fields{
					"addr": addr,
				}).Info("Starting server")
				errs <- app.Listen(addr)
			}()

			select {
			case err := <-errs:
				return err
			case <-ctx.Context.Done():
				log.Info("Gracefully shutting down...")
				return app.ShutdownWithTimeout(30 * time.Second)
			}
		},
	}
}

// twitterJar builds the cookie jar for Twitter requests. Bad cookie content
// stops startup.
func twitterJar(ctx *cli.Context) (http.CookieJar, error) {
	jar, err := cookies.NewJar()
	if err != nil {
		return nil, err
	}

	if raw := ctx.String("twitter-cookies"); raw != "" {
		if _, err := cookies.Load(jar, raw); err != nil {
			return nil, fmt.Errorf("invalid TWITTER_COOKIES: %w", err)
		}
	}
	if path := ctx.String("twitter-cookies-file"); path != "" {
		if _, err := cookies.LoadFile(jar, path); err != nil {
			return nil, fmt.Errorf("invalid twitter cookie file: %w", err)
		}
	}

	return jar, nil
}

func newServerConfig(ctx *cli.Context, cfg *config.TomlConfig, feedCache *cache.FeedCache) (*server.ServerConfig, error) {
	baseURL := strings.TrimSuffix(ctx.String("base-url"), "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	timeout := ctx.Duration("upstream-timeout")

	split, err := cfg.Split()
	if err != nil {
		return nil, err
	}

	graph := facebook.NewClient(
		upstream.NewFetcher(&http.Client{Timeout: timeout}, upstream.DefaultHeaders),
		facebook.Config{
			GraphHost:   ctx.String("graph-host"),
			AccessToken: ctx.String("graph-access-token"),
			MaxPages:    cfg.Facebook.MaxPages,
		},
	)

	proxy := facebook.ProxyLinker{Base: baseURL + "/facebook"}
	var linker facebook.MediaLinker = proxy
	if cfg.Media.Mode == "graph" {
		linker = facebook.GraphLinker{Resolver: graph, Fallback: proxy, BatchSize: cfg.Media.BatchSize}
	}

	jar, err := twitterJar(ctx)
	if err != nil {
		return nil, err
	}

	return &server.ServerConfig{
		Facebook: &feeds.Pipeline{
			Source: feeds.SourceFacebook,
			Builder: &facebook.Source{
				Client: graph,
				Assembler: &facebook.Assembler{
					Normalizer: content.NewNormalizer(split),
					Linker:     linker,
				},
				ProfilePictureBase: baseURL + "/facebook/profile-picture",
			},
			Keys:  feeds.DualKeys(feeds.SourceFacebook),
			Cache: feedCache,
		},
		Twitter: &feeds.Pipeline{
			Source: feeds.SourceTwitter,
			Builder: &twitter.Source{
				Fetcher: upstream.NewFetcher(&http.Client{Timeout: timeout, Jar: jar}, upstream.DefaultHeaders),
				Host:    ctx.String("syndication-host"),
			},
			Keys:  feeds.HandleOnly(feeds.SourceTwitter),
			Cache: feedCache,
		},
		Media: graph,
	}, nil
}
