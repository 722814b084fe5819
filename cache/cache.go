// Package cache stores compressed feeds under one or more keys with a fixed TTL
package cache

import (
	"context"
	"errors"
	"time"

	"feedbridge/models"

	gbytes "github.com/labstack/gommon/bytes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// DefaultTTL bounds how stale a cached feed can get
const DefaultTTL = 30 * time.Minute

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbridge_cache_lookups_total",
		Help: "Feed cache lookups by source and result",
	}, []string{"source", "result"})

	cacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedbridge_cache_writes_total",
		Help: "Feed cache writes by source and result",
	}, []string{"source", "result"})

	cacheEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedbridge_cache_evicted_keys_total",
		Help: "Keys removed by eviction sweeps",
	})

	cacheBlobSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedbridge_cache_blob_bytes",
		Help:    "Size of compressed feed blobs",
		Buckets: prometheus.ExponentialBuckets(1024, 2, 10),
	})
)

// FeedCache serializes, compresses and stores feeds
type FeedCache struct {
	store Store
	ttl   time.Duration
}

func New(store Store, ttl time.Duration) *FeedCache {
	if store == nil {
		store = NopStore{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FeedCache{store: store, ttl: ttl}
}

func (c *FeedCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the feed stored under key with its items sorted most recent first.
// Backend failures and undecodable blobs are reported as a miss.
func (c *FeedCache) Get(ctx context.Context, key Key) (models.CachedFeed, bool) {
	blob, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		cacheLookups.WithLabelValues(key.Source, "miss").Inc()
		return models.CachedFeed{}, false
	}
	if err != nil {
		cacheLookups.WithLabelValues(key.Source, "error").Inc()
		log.WithFields(log.Fields{
			"key":   key.String(),
			"error": err,
		}).Warn("Cache read failed, treating as miss")
		return models.CachedFeed{}, false
	}

	feed, err := Decode(blob)
	if err != nil {
		cacheLookups.WithLabelValues(key.Source, "error").Inc()
		log.WithFields(log.Fields{
			"key":   key.String(),
			"error": err,
		}).Warn("Cached feed is unreadable, treating as miss")
		return models.CachedFeed{}, false
	}

	cacheLookups.WithLabelValues(key.Source, "hit").Inc()
	models.SortItems(feed.Items)
	return feed, true
}

// Put writes the same feed under every key, one after the other. A failed
// write is logged and does not stop the remaining keys.
func (c *FeedCache) Put(ctx context.Context, feed models.CachedFeed, keys ...Key) {
	if len(keys) == 0 {
		return
	}

	blob, err := Encode(feed)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("Error encoding feed for cache")
		return
	}
	cacheBlobSize.Observe(float64(len(blob)))

	for _, key := range keys {
		if err := c.store.Set(ctx, key, blob, c.ttl); err != nil {
			cacheWrites.WithLabelValues(key.Source, "error").Inc()
			log.WithFields(log.Fields{
				"key":   key.String(),
				"error": err,
			}).Warn("Cache write failed")
			continue
		}
		cacheWrites.WithLabelValues(key.Source, "ok").Inc()
		log.WithFields(log.Fields{
			"key":  key.String(),
			"size": gbytes.Format(int64(len(blob))),
			"ttl":  c.ttl,
		}).Debug("Cached feed")
	}
}

// EvictAll deletes every cached feed in a single atomic batch
func (c *FeedCache) EvictAll(ctx context.Context) (int, error) {
	count, err := c.store.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	cacheEvicted.Add(float64(count))

	log.WithFields(log.Fields{
		"count": count,
	}).Info("Evicted feed cache")

	return count, nil
}

func (c *FeedCache) Close() error {
	return c.store.Close()
}
