// Package twitter builds feeds from the embedded timeline of syndication pages
package twitter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedbridge/content"
	"feedbridge/models"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const nextDataSelector = "script#__NEXT_DATA__"

// ErrEmptyTimeline is returned when a timeline has no entries to build a feed from
var ErrEmptyTimeline = errors.New("timeline has no entries")

// ParseError means the embedded timeline payload is missing or malformed
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Reason, e.Err)
	}
	return "parse error: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractTimeline finds the __NEXT_DATA__ payload in an HTML document and decodes its timeline
func ExtractTimeline(html []byte) (*Timeline, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &ParseError{Reason: "invalid html", Err: err}
	}

	raw := strings.TrimSpace(doc.Find(nextDataSelector).First().Text())
	if raw == "" {
		return nil, &ParseError{Reason: "__NEXT_DATA__ not found"}
	}

	var data NextData[SyndicationProps]
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, &ParseError{Reason: "invalid __NEXT_DATA__ json", Err: err}
	}

	return &data.Props.PageProps.Timeline, nil
}

// ParseTime accepts the classic Twitter timestamp format and RFC 3339
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RubyDate, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid created_at %q: %w", s, err)
	}
	return t, nil
}

type datedTweet struct {
	tweet     *Tweet
	published time.Time
}

// BuildItem renders one original tweet as a feed item
func BuildItem(tweet *Tweet, published time.Time) models.FeedItem {
	normalized := content.NormalizeTweet(tweet.FullText)
	body := normalized.Body

	for _, entity := range tweet.Entities.URLs {
		if entity.URL == "" {
			continue
		}
		body = strings.ReplaceAll(body, entity.URL, content.EscapeHTML(entity.ExpandedURL))
	}

	var media strings.Builder
	for _, entity := range tweet.Entities.Media {
		if entity.URL != "" {
			body = strings.ReplaceAll(body, entity.URL, "")
		}
		media.WriteString(content.LineBreak + `<img src="` + content.EscapeHTML(entity.MediaURLHTTPS) + `">`)
	}

	link := "https://twitter.com" + tweet.Permalink
	return models.FeedItem{
		ID:          link,
		Title:       normalized.Title,
		HTMLBody:    body + media.String(),
		Link:        link,
		PublishedAt: published,
	}
}

// BuildFeed turns a timeline into a feed sorted most recent first. Retweets
// are dropped; the feed metadata comes from the author of the newest entry.
func BuildFeed(timeline *Timeline, now time.Time) (models.CachedFeed, error) {
	var tweets []datedTweet
	for _, entry := range timeline.Entries {
		if entry.Type != "tweet" || entry.Content.Tweet == nil {
			continue
		}
		published, err := ParseTime(entry.Content.Tweet.CreatedAt)
		if err != nil {
			log.WithFields(log.Fields{
				"entry": entry.EntryID,
				"error": err,
			}).Warn("Skipping tweet")
			continue
		}
		tweets = append(tweets, datedTweet{tweet: entry.Content.Tweet, published: published})
	}

	if len(tweets) == 0 {
		return models.CachedFeed{}, ErrEmptyTimeline
	}

	items := make([]models.FeedItem, 0, len(tweets))
	for _, t := range tweets {
		if t.tweet.IsRetweet() {
			continue
		}
		items = append(items, BuildItem(t.tweet, t.published))
	}
	models.SortItems(items)

	newest := tweets[0]
	for _, t := range tweets[1:] {
		if t.published.After(newest.published) {
			newest = t
		}
	}
	user := newest.tweet.User

	return models.CachedFeed{
		Metadata: models.FeedMetadata{
			Title:       fmt.Sprintf("%s (@%s)", user.Name, user.ScreenName),
			Description: user.Description,
			CanonicalID: user.IDStr,
			Link:        "https://twitter.com/" + user.ScreenName,
			ImageURL:    user.ProfileImageURLHTTPS,
			GeneratedAt: now,
		},
		Items: items,
	}, nil
}
