package cmd

import (
	"context"
	"fmt"
	"time"

	"feedbridge/cache"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func evictCmd() *cli.Command {
	return &cli.Command{
		Name:  "evict",
		Usage: "Delete every cached feed",
		Description: `Deletes every key of the feed cache in one atomic batch.

		Meant to be run by a scheduler, e.g. daily from cron:

		0 0 * * * feedbridge evict`,
		Flags: cacheFlags(),
		Action: func(ctx *cli.Context) error {
			if ctx.String("cache-backend") == "memory" {
				log.Warn("The memory backend lives in the server process, nothing to evict from here")
			}

			store, err := connectStore(ctx)
			if err != nil {
				return fmt.Errorf("error opening cache: %w", err)
			}
			feedCache := cache.New(store, ctx.Duration("cache-ttl"))
			defer feedCache.Close()

			_, err = feedCache.EvictAll(ctx.Context)
			return err
		},
	}
}

// untilMidnight returns the time left until the next UTC midnight
func untilMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return next.Sub(now)
}

// evictDaily sweeps the cache at every UTC midnight until ctx is done
func evictDaily(ctx context.Context, feedCache *cache.FeedCache) {
	for {
		timer := time.NewTimer(untilMidnight(time.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := feedCache.EvictAll(ctx); err != nil {
				log.WithFields(log.Fields{
					"error": err,
				}).Error("Scheduled eviction failed")
			}
		}
	}
}
