package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"feedbridge/models"

	"github.com/klauspost/compress/gzip"
)

// FormatVersion is written into every stored document.
//
// Format invariant: every instant is stored as an RFC 3339 string with
// nanosecond precision and an explicit offset (always UTC, "Z"). Decoding
// parses these strings back into time.Time; the zero time is stored as "".
const FormatVersion = 1

type metadataDocument struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ID          string `json:"id"`
	Link        string `json:"link"`
	Image       string `json:"image"`
	Updated     string `json:"updated"`
}

type itemDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Date        string `json:"date"`
}

type document struct {
	Version int              `json:"v"`
	Feed    metadataDocument `json:"feed"`
	Items   []itemDocument   `json:"items"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Marshal serializes a feed into the versioned JSON document
func Marshal(feed models.CachedFeed) ([]byte, error) {
	doc := document{
		Version: FormatVersion,
		Feed: metadataDocument{
			Title:       feed.Metadata.Title,
			Description: feed.Metadata.Description,
			ID:          feed.Metadata.CanonicalID,
			Link:        feed.Metadata.Link,
			Image:       feed.Metadata.ImageURL,
			Updated:     formatTime(feed.Metadata.GeneratedAt),
		},
		Items: make([]itemDocument, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		doc.Items = append(doc.Items, itemDocument{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.HTMLBody,
			Link:        item.Link,
			Date:        formatTime(item.PublishedAt),
		})
	}
	return json.Marshal(doc)
}

// Unmarshal rebuilds a feed, reconstructing every instant explicitly
func Unmarshal(data []byte) (models.CachedFeed, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.CachedFeed{}, fmt.Errorf("error decoding cached feed: %w", err)
	}
	if doc.Version != FormatVersion {
		return models.CachedFeed{}, fmt.Errorf("unsupported cached feed version %d", doc.Version)
	}

	generated, err := parseTime(doc.Feed.Updated)
	if err != nil {
		return models.CachedFeed{}, fmt.Errorf("error decoding feed timestamp: %w", err)
	}

	feed := models.CachedFeed{
		Metadata: models.FeedMetadata{
			Title:       doc.Feed.Title,
			Description: doc.Feed.Description,
			CanonicalID: doc.Feed.ID,
			Link:        doc.Feed.Link,
			ImageURL:    doc.Feed.Image,
			GeneratedAt: generated,
		},
		Items: make([]models.FeedItem, 0, len(doc.Items)),
	}

	for _, item := range doc.Items {
		published, err := parseTime(item.Date)
		if err != nil {
			return models.CachedFeed{}, fmt.Errorf("error decoding item %s timestamp: %w", item.ID, err)
		}
		feed.Items = append(feed.Items, models.FeedItem{
			ID:          item.ID,
			Title:       item.Title,
			HTMLBody:    item.Description,
			Link:        item.Link,
			PublishedAt: published,
		})
	}

	return feed, nil
}

// Encode serializes and gzip-compresses a feed
func Encode(feed models.CachedFeed) ([]byte, error) {
	data, err := Marshal(feed)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("error compressing cached feed: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("error compressing cached feed: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses and deserializes a blob written by Encode
func Decode(blob []byte) (models.CachedFeed, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return models.CachedFeed{}, fmt.Errorf("error decompressing cached feed: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return models.CachedFeed{}, fmt.Errorf("error decompressing cached feed: %w", err)
	}
	return Unmarshal(data)
}
