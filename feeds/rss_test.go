package feeds_test

import (
	"strings"
	"testing"

	"feedbridge/feeds"
	"feedbridge/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRSS(t *testing.T) {
	feed := exampleFeed()
	feed.Metadata.ImageURL = "https://feeds.example.com/facebook/profile-picture/examplepage"
	// out of order on purpose
	feed.Items[0], feed.Items[1] = feed.Items[1], feed.Items[0]

	rss, err := feeds.RenderRSS(feed)
	require.NoError(t, err)

	assert.Contains(t, rss, `<rss version="2.0"`)
	assert.Contains(t, rss, "<title>Example Page</title>")
	assert.Contains(t, rss, "<url>https://feeds.example.com/facebook/profile-picture/examplepage</url>")

	newer := strings.Index(rss, "https://facebook.com/100/posts/a")
	older := strings.Index(rss, "https://facebook.com/100/posts/b")
	require.NotEqual(t, -1, newer)
	require.NotEqual(t, -1, older)
	assert.Less(t, newer, older)

	assert.Equal(t, "b", feed.Items[0].ID, "the input feed is left untouched")
}

func TestRenderRSSEmpty(t *testing.T) {
	rss, err := feeds.RenderRSS(models.CachedFeed{Metadata: models.FeedMetadata{Title: "Nothing"}})
	require.NoError(t, err)
	assert.Contains(t, rss, "<title>Nothing</title>")
	assert.NotContains(t, rss, "<item>")
	assert.NotContains(t, rss, "<image>")
}
