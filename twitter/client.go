package twitter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"feedbridge/models"
	"feedbridge/upstream"

	log "github.com/sirupsen/logrus"
)

const DefaultSyndicationHost = "https://syndication.twitter.com"

// Source builds Twitter feeds from the syndication timeline page. The fetcher
// should carry the cookie jar loaded at startup.
type Source struct {
	Fetcher *upstream.Fetcher
	Host    string
	Now     func() time.Time
}

func (s *Source) TimelineURL(screenName string) string {
	host := s.Host
	if host == "" {
		host = DefaultSyndicationHost
	}
	return fmt.Sprintf("%s/srv/timeline-profile/screen-name/%s", strings.TrimSuffix(host, "/"), url.PathEscape(screenName))
}

func (s *Source) BuildFeed(ctx context.Context, screenName string) (models.CachedFeed, error) {
	origin := s.Host
	if origin == "" {
		origin = DefaultSyndicationHost
	}

	body, err := s.Fetcher.Get(ctx, s.TimelineURL(screenName), upstream.Origin(origin))
	if err != nil {
		return models.CachedFeed{}, err
	}

	timeline, err := ExtractTimeline(body)
	if err != nil {
		return models.CachedFeed{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	feed, err := BuildFeed(timeline, now())
	if err != nil {
		return models.CachedFeed{}, err
	}

	log.WithFields(log.Fields{
		"user":    screenName,
		"entries": len(timeline.Entries),
		"items":   len(feed.Items),
	}).Info("Built twitter feed")

	return feed, nil
}
