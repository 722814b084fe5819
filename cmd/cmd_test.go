package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"feedbridge/cache"
	"feedbridge/db"
	"feedbridge/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntilMidnight(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected time.Duration
	}{
		{
			name:     "just after midnight",
			now:      time.Date(2024, 11, 6, 0, 0, 1, 0, time.UTC),
			expected: 24*time.Hour - time.Second,
		},
		{
			name:     "late evening",
			now:      time.Date(2024, 11, 6, 22, 30, 0, 0, time.UTC),
			expected: 90 * time.Minute,
		},
		{
			name:     "exactly midnight waits a full day",
			now:      time.Date(2024, 11, 6, 0, 0, 0, 0, time.UTC),
			expected: 24 * time.Hour,
		},
		{
			name:     "end of year",
			now:      time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
			expected: time.Hour,
		},
		{
			name:     "other time zones use utc midnight",
			now:      time.Date(2024, 11, 6, 8, 0, 0, 0, time.FixedZone("JST", 9*60*60)),
			expected: 1 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, untilMidnight(tt.now))
		})
	}
}

func TestEvictCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.db")

	store, err := db.Open(path)
	require.NoError(t, err)
	feedCache := cache.New(store, time.Minute)
	key := cache.HandleKey("twitter", "example")
	feedCache.Put(context.Background(), models.CachedFeed{}, key)
	require.NoError(t, feedCache.Close())

	require.NoError(t, RootApp().Run([]string{"feedbridge", "evict", "--database", path}))

	store, err = db.Open(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), key)
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestEvictCommandFailsWithoutBackend(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "unopenable sqlite database",
			args: []string{"--database", filepath.Join(t.TempDir(), "missing", "dir", "feed.db")},
		},
		{
			name: "unknown backend",
			args: []string{"--cache-backend", "memcached"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"feedbridge", "evict"}, tt.args...)
			assert.Error(t, RootApp().Run(args))
		})
	}
}

func TestCookiesCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("# Netscape HTTP Cookie File\n.example.com\tTRUE\t/\tTRUE\t9999999999\tsession\tabc123\n"), 0o600))

	var out bytes.Buffer
	app := RootApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"feedbridge", "cookies", "--file", path, "--url", "https://example.com"}))
	assert.Equal(t, "session=abc123\n", out.String())
}

func TestCookiesCommandRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(path, []byte("session=abc123"), 0o600))

	err := RootApp().Run([]string{"feedbridge", "cookies", "--file", path})
	assert.Error(t, err)
}
