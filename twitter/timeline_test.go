package twitter_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedbridge/twitter"
	"feedbridge/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timelineHTML = `<!DOCTYPE html><html><head></head><body>
<div id="__next"></div>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"lang":"en","timeline":{"entries":[
  {"type":"tweet","entry_id":"tweet-1","content":{"tweet":{
    "id_str":"1","created_at":"Mon Nov 04 10:00:00 +0000 2024",
    "full_text":"Older post",
    "permalink":"/example/status/1",
    "user":{"id_str":"42","name":"Example","screen_name":"example","description":"old bio","profile_image_url_https":"https://pbs/old.jpg"}
  }}},
  {"type":"tweet","entry_id":"tweet-3","content":{"tweet":{
    "id_str":"3","created_at":"Wed Nov 06 10:00:00 +0000 2024",
    "full_text":"RT @other: shared",
    "permalink":"/example/status/3",
    "retweeted_status":{"id_str":"99","full_text":"shared","permalink":"/other/status/99"},
    "user":{"id_str":"42","name":"Example","screen_name":"example","description":"bio","profile_image_url_https":"https://pbs/avatar.jpg"}
  }}},
  {"type":"tombstone","entry_id":"tombstone-1","content":{}},
  {"type":"tweet","entry_id":"tweet-2","content":{"tweet":{
    "id_str":"2","created_at":"Tue Nov 05 10:00:00 +0000 2024",
    "full_text":"Read https://t.co/a & again https://t.co/a\nhttps://t.co/m",
    "permalink":"/example/status/2",
    "entities":{
      "urls":[{"url":"https://t.co/a","expanded_url":"https://example.com/article"}],
      "media":[
        {"type":"photo","url":"https://t.co/m","media_url_https":"https://pbs/1.jpg"},
        {"type":"photo","url":"https://t.co/m","media_url_https":"https://pbs/2.jpg"}
      ]
    },
    "user":{"id_str":"42","name":"Example","screen_name":"example","description":"bio","profile_image_url_https":"https://pbs/avatar.jpg"}
  }}},
  {"type":"tweet","entry_id":"tweet-4","content":{"tweet":{
    "id_str":"4","created_at":"not a date","full_text":"broken","permalink":"/example/status/4"
  }}}
]}}}}
</script></body></html>`

func TestExtractTimeline(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		entries int
		wantErr bool
	}{
		{
			name:    "embedded payload",
			html:    timelineHTML,
			entries: 5,
		},
		{
			name:    "no payload",
			html:    `<html><body><p>Rate limited</p></body></html>`,
			wantErr: true,
		},
		{
			name:    "malformed payload",
			html:    `<html><body><script id="__NEXT_DATA__">{"props": </script></body></html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeline, err := twitter.ExtractTimeline([]byte(tt.html))
			if tt.wantErr {
				var parseErr *twitter.ParseError
				assert.True(t, errors.As(err, &parseErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, timeline.Entries, tt.entries)
		})
	}
}

func TestBuildFeed(t *testing.T) {
	timeline, err := twitter.ExtractTimeline([]byte(timelineHTML))
	require.NoError(t, err)

	now := time.Date(2024, 11, 7, 0, 0, 0, 0, time.UTC)
	feed, err := twitter.BuildFeed(timeline, now)
	require.NoError(t, err)

	assert.Equal(t, "Example (@example)", feed.Metadata.Title)
	assert.Equal(t, "bio", feed.Metadata.Description)
	assert.Equal(t, "42", feed.Metadata.CanonicalID)
	assert.Equal(t, "https://twitter.com/example", feed.Metadata.Link)
	assert.Equal(t, "https://pbs/avatar.jpg", feed.Metadata.ImageURL)
	assert.Equal(t, now, feed.Metadata.GeneratedAt)

	require.Len(t, feed.Items, 2)

	newest := feed.Items[0]
	assert.Equal(t, "https://twitter.com/example/status/2", newest.ID)
	assert.Equal(t, newest.ID, newest.Link)
	assert.Equal(t, "Read https://t.co/a &amp; again https://t.co/a", newest.Title)
	assert.Equal(t,
		"Read https://example.com/article &amp; again https://example.com/article<br>\n"+
			"<br>\n<img src=\"https://pbs/1.jpg\">"+
			"<br>\n<img src=\"https://pbs/2.jpg\">",
		newest.HTMLBody)
	assert.True(t, time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC).Equal(newest.PublishedAt))

	assert.Equal(t, "https://twitter.com/example/status/1", feed.Items[1].ID)
	assert.Equal(t, "Older post", feed.Items[1].HTMLBody)
}

func TestBuildFeedEmpty(t *testing.T) {
	tests := []struct {
		name     string
		timeline twitter.Timeline
	}{
		{
			name: "no entries",
		},
		{
			name: "only non-tweet entries",
			timeline: twitter.Timeline{Entries: []twitter.Entry{
				{Type: "tombstone"},
				{Type: "tweet"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := twitter.BuildFeed(&tt.timeline, time.Now())
			assert.ErrorIs(t, err, twitter.ErrEmptyTimeline)
		})
	}
}

func TestSourceBuildFeed(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		assert.Equal(t, "auth=1", r.Header.Get("cookie"))
		_, _ = w.Write([]byte(timelineHTML))
	}))
	defer srv.Close()

	source := &twitter.Source{
		Fetcher: upstream.NewFetcher(srv.Client(), map[string]string{"cookie": "auth=1"}),
		Host:    srv.URL,
	}

	feed, err := source.BuildFeed(context.Background(), "example")
	require.NoError(t, err)
	assert.Equal(t, "/srv/timeline-profile/screen-name/example", requested)
	assert.Len(t, feed.Items, 2)
}

func TestSourceUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	source := &twitter.Source{Fetcher: upstream.NewFetcher(srv.Client(), nil), Host: srv.URL}

	_, err := source.BuildFeed(context.Background(), "example")
	var upstreamErr *upstream.Error
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.Status)
}

func TestBuildItemEscapesExpandedURLs(t *testing.T) {
	published := time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC)
	tweet := &twitter.Tweet{
		FullText:  "Search https://t.co/q",
		Permalink: "/example/status/5",
		Entities: twitter.Entities{
			URLs: []twitter.URLEntity{{
				URL:         "https://t.co/q",
				ExpandedURL: `https://example.com/search?q="go"&page=2`,
			}},
			Media: []twitter.MediaEntity{{
				MediaURLHTTPS: "https://pbs/img.jpg?format=jpg&name=large",
			}},
		},
	}

	item := twitter.BuildItem(tweet, published)

	assert.Equal(t,
		"Search https://example.com/search?q=&quot;go&quot;&amp;page=2"+
			"<br>\n<img src=\"https://pbs/img.jpg?format=jpg&amp;name=large\">",
		item.HTMLBody)
}
