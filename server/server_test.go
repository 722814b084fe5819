package server_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedbridge/cache"
	"feedbridge/feeds"
	"feedbridge/models"
	"feedbridge/server"
	"feedbridge/twitter"
	"feedbridge/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type builderFunc func(ctx context.Context, subject string) (models.CachedFeed, error)

func (f builderFunc) BuildFeed(ctx context.Context, subject string) (models.CachedFeed, error) {
	return f(ctx, subject)
}

type fakeMedia struct {
	err error
}

func (f fakeMedia) LargestImage(_ context.Context, id string) (string, error) {
	return "https://cdn.example.com/" + id + ".jpg", f.err
}

func (f fakeMedia) VideoSource(_ context.Context, id string) (string, error) {
	return "https://video.example.com/" + id + ".mp4", f.err
}

func (f fakeMedia) ProfilePicture(_ context.Context, user string) (string, error) {
	return "https://cdn.example.com/avatar/" + user + ".jpg", f.err
}

func feedFor(subject string) models.CachedFeed {
	return models.CachedFeed{
		Metadata: models.FeedMetadata{Title: "Feed of " + subject, CanonicalID: "100"},
		Items: []models.FeedItem{{
			ID:          "https://example.com/" + subject + "/1",
			Title:       "Hello",
			Link:        "https://example.com/" + subject + "/1",
			PublishedAt: time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC),
		}},
	}
}

func newConfig(facebook, twitterBuilder feeds.Builder, media server.MediaResolver) *server.ServerConfig {
	feedCache := cache.New(cache.NewMemoryStore(), cache.DefaultTTL)
	return &server.ServerConfig{
		Facebook: &feeds.Pipeline{
			Source:  feeds.SourceFacebook,
			Builder: facebook,
			Keys:    feeds.DualKeys(feeds.SourceFacebook),
			Cache:   feedCache,
		},
		Twitter: &feeds.Pipeline{
			Source:  feeds.SourceTwitter,
			Builder: twitterBuilder,
			Keys:    feeds.HandleOnly(feeds.SourceTwitter),
			Cache:   feedCache,
		},
		Media: media,
	}
}

func okBuilder() feeds.Builder {
	return builderFunc(func(_ context.Context, subject string) (models.CachedFeed, error) {
		return feedFor(subject), nil
	})
}

func errBuilder(err error) feeds.Builder {
	return builderFunc(func(context.Context, string) (models.CachedFeed, error) {
		return models.CachedFeed{}, err
	})
}

func TestServerRoutes(t *testing.T) {
	tests := []struct {
		name         string
		facebook     feeds.Builder
		twitter      feeds.Builder
		media        server.MediaResolver
		path         string
		expectedCode int
		expectedBody string
		location     string
	}{
		{
			name:         "health",
			path:         "/healthz",
			expectedCode: 200,
			expectedBody: "OK",
		},
		{
			name:         "facebook feed",
			facebook:     okBuilder(),
			path:         "/rss?username=ExamplePage",
			expectedCode: 200,
			expectedBody: "Feed of examplepage",
		},
		{
			name:         "missing username",
			facebook:     okBuilder(),
			path:         "/rss",
			expectedCode: 400,
			expectedBody: "Missing user",
		},
		{
			name:         "blank username",
			facebook:     okBuilder(),
			path:         "/rss?username=%20",
			expectedCode: 400,
			expectedBody: "Missing user",
		},
		{
			name:         "upstream error message is passed through",
			facebook:     errBuilder(&upstream.Error{Status: 400, Message: "Unsupported get request."}),
			path:         "/rss?username=missing",
			expectedCode: 400,
			expectedBody: "Unsupported get request.",
		},
		{
			name:         "twitter feed",
			twitter:      okBuilder(),
			path:         "/twitter-rss/Example",
			expectedCode: 200,
			expectedBody: "Feed of example",
		},
		{
			name:         "empty timeline",
			twitter:      errBuilder(twitter.ErrEmptyTimeline),
			path:         "/twitter-rss/example",
			expectedCode: 404,
		},
		{
			name:         "unreadable timeline",
			twitter:      errBuilder(&twitter.ParseError{Reason: "__NEXT_DATA__ not found"}),
			path:         "/twitter-rss/example",
			expectedCode: 500,
		},
		{
			name:         "image redirect",
			media:        fakeMedia{},
			path:         "/facebook/image/123",
			expectedCode: 302,
			location:     "https://cdn.example.com/123.jpg",
		},
		{
			name:         "video redirect",
			media:        fakeMedia{},
			path:         "/facebook/video/456",
			expectedCode: 302,
			location:     "https://video.example.com/456.mp4",
		},
		{
			name:         "profile picture redirect",
			media:        fakeMedia{},
			path:         "/facebook/profile-picture/examplepage",
			expectedCode: 302,
			location:     "https://cdn.example.com/avatar/examplepage.jpg",
		},
		{
			name:         "media lookup failure",
			media:        fakeMedia{err: &upstream.Error{Message: "Unsupported get request."}},
			path:         "/facebook/image/123",
			expectedCode: 400,
			expectedBody: "Unsupported get request.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := server.Server(newConfig(tt.facebook, tt.twitter, tt.media))

			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedCode, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if tt.expectedBody != "" {
				assert.Contains(t, string(body), tt.expectedBody)
			}
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get("Location"))
			}
			if tt.expectedCode == 200 && strings.Contains(tt.path, "rss") {
				assert.Equal(t, feeds.ContentType, resp.Header.Get("Content-Type"))
			}
		})
	}
}

func TestServerCachesFeeds(t *testing.T) {
	builds := 0
	builder := builderFunc(func(_ context.Context, subject string) (models.CachedFeed, error) {
		builds++
		return feedFor(subject), nil
	})
	app := server.Server(newConfig(builder, nil, nil))

	var bodies []string
	for _, expected := range []string{"MISS", "HIT"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/rss?username=examplepage", nil))
		require.NoError(t, err)
		assert.Equal(t, expected, resp.Header.Get("X-Cache"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()
		bodies = append(bodies, string(body))
	}

	assert.Equal(t, 1, builds)
	assert.Equal(t, bodies[0], bodies[1])
}

func TestServerMetrics(t *testing.T) {
	app := server.Server(newConfig(nil, nil, nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}
