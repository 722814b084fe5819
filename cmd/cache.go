package cmd

import (
	"fmt"
	"time"

	"feedbridge/cache"
	"feedbridge/db"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func cacheFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "cache-backend",
			Value:   "sqlite",
			Usage:   "Feed cache backend (redis, sqlite, memory or none)",
			EnvVars: []string{"FEEDBRIDGE_CACHE_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Value:   "redis://localhost:6379/0",
			Usage:   "Redis address or URL for the redis cache backend",
			EnvVars: []string{"FEEDBRIDGE_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "database",
			Aliases: []string{"d"},
			Value:   "feed.db",
			Usage:   "SQLite database file for the sqlite cache backend",
			EnvVars: []string{"FEEDBRIDGE_DATABASE"},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Value:   cache.DefaultTTL,
			Usage:   "How long a built feed is served from the cache",
			EnvVars: []string{"FEEDBRIDGE_CACHE_TTL"},
		},
	}
}

// connectStore opens the configured backend and reports why it could not
func connectStore(ctx *cli.Context) (cache.Store, error) {
	backend := ctx.String("cache-backend")

	var store cache.Store
	var err error
	switch backend {
	case "redis":
		store, err = cache.ConnectRedis(ctx.Context, ctx.String("redis-url"), 30*time.Second)
	case "sqlite":
		store, err = db.Open(ctx.String("database"))
	case "memory":
		store = cache.NewMemoryStore()
	case "none":
		store = cache.NopStore{}
	default:
		err = fmt.Errorf("unknown cache backend %q", backend)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"backend": backend,
	}).Info("Cache configured")

	return store, nil
}

// openStore opens the configured backend for serving. A backend that cannot be
// reached is replaced by NopStore, so feeds are still served without caching.
func openStore(ctx *cli.Context) cache.Store {
	store, err := connectStore(ctx)
	if err != nil {
		log.WithFields(log.Fields{
			"backend": ctx.String("cache-backend"),
			"error":   err,
		}).Error("Cache unavailable, serving without cache")
		return cache.NopStore{}
	}
	return store
}

func openCache(ctx *cli.Context) *cache.FeedCache {
	return cache.New(openStore(ctx), ctx.Duration("cache-ttl"))
}
