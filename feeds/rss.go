package feeds

import (
	"fmt"

	"feedbridge/models"

	gfeeds "github.com/gorilla/feeds"
)

// ContentType of rendered feeds
const ContentType = "application/rss+xml; charset=utf-8"

// RenderRSS renders a feed as an RSS 2.0 document, most recent item first
func RenderRSS(feed models.CachedFeed) (string, error) {
	items := append([]models.FeedItem(nil), feed.Items...)
	models.SortItems(items)

	out := &gfeeds.Feed{
		Title:       feed.Metadata.Title,
		Link:        &gfeeds.Link{Href: feed.Metadata.Link},
		Description: feed.Metadata.Description,
		Id:          feed.Metadata.CanonicalID,
		Updated:     feed.Metadata.GeneratedAt,
		Items:       make([]*gfeeds.Item, 0, len(items)),
	}
	if feed.Metadata.ImageURL != "" {
		out.Image = &gfeeds.Image{
			Url:   feed.Metadata.ImageURL,
			Title: feed.Metadata.Title,
			Link:  feed.Metadata.Link,
		}
	}

	for _, item := range items {
		out.Items = append(out.Items, &gfeeds.Item{
			Id:          item.ID,
			Title:       item.Title,
			Link:        &gfeeds.Link{Href: item.Link},
			Description: item.HTMLBody,
			Created:     item.PublishedAt,
		})
	}

	rss, err := out.ToRss()
	if err != nil {
		return "", fmt.Errorf("error rendering rss: %w", err)
	}
	return rss, nil
}
