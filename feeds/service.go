// Package feeds runs the cache-or-build pipeline for every source
package feeds

import (
	"context"
	"errors"

	"feedbridge/cache"
	"feedbridge/models"

	log "github.com/sirupsen/logrus"
)

const (
	SourceFacebook = "facebook"
	SourceTwitter  = "twitter"
)

// ErrMissingSubject is returned when a request names no subject
var ErrMissingSubject = errors.New("missing subject identifier")

// Builder fetches and normalizes the feed of one subject
type Builder interface {
	BuildFeed(ctx context.Context, subject string) (models.CachedFeed, error)
}

// KeyPolicy lists the cache keys a freshly built feed is written under
type KeyPolicy func(subject string, feed models.CachedFeed) []cache.Key

// DualKeys writes under the canonical id and the requested handle, so later
// lookups by either succeed
func DualKeys(source string) KeyPolicy {
	return func(subject string, feed models.CachedFeed) []cache.Key {
		keys := []cache.Key{cache.HandleKey(source, subject)}
		if id := feed.Metadata.CanonicalID; id != "" && cache.IDKey(source, id) != keys[0] {
			keys = append(keys, cache.IDKey(source, id))
		}
		return keys
	}
}

// HandleOnly writes under the normalized handle
func HandleOnly(source string) KeyPolicy {
	return func(subject string, _ models.CachedFeed) []cache.Key {
		return []cache.Key{cache.HandleKey(source, subject)}
	}
}

// Pipeline serves one source: cache read, then on a miss build and write back.
// Concurrent misses for the same subject each build; writes are idempotent.
type Pipeline struct {
	Source  string
	Builder Builder
	Keys    KeyPolicy
	Cache   *cache.FeedCache
}

// Feed returns the feed of subject and whether it came from the cache
func (p *Pipeline) Feed(ctx context.Context, subject string) (models.CachedFeed, bool, error) {
	if subject == "" {
		return models.CachedFeed{}, false, ErrMissingSubject
	}

	if feed, ok := p.Cache.Get(ctx, cache.HandleKey(p.Source, subject)); ok {
		log.WithFields(log.Fields{
			"source":  p.Source,
			"subject": subject,
			"items":   len(feed.Items),
		}).Debug("Cache hit")
		return feed, true, nil
	}

	feed, err := p.Builder.BuildFeed(ctx, subject)
	if err != nil {
		return models.CachedFeed{}, false, err
	}

	p.Cache.Put(ctx, feed, p.Keys(subject, feed)...)
	return feed, false, nil
}
