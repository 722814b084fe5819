package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedbridge/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, upstream.DefaultHeaders["user-agent"], r.Header.Get("User-Agent"))
		assert.Equal(t, "https://www.facebook.com", r.Header.Get("Origin"))
		assert.Equal(t, "https://www.facebook.com/", r.Header.Get("Referer"))

		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"gone"}`))
			return
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	fetcher := upstream.NewFetcher(srv.Client(), upstream.DefaultHeaders)
	ctx := context.Background()

	body, err := fetcher.Get(ctx, srv.URL+"/ok", upstream.Origin("https://www.facebook.com"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	body, err = fetcher.Get(ctx, srv.URL+"/missing", upstream.Origin("https://www.facebook.com"))
	var upstreamErr *upstream.Error
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusNotFound, upstreamErr.Status)
	assert.Equal(t, "Not Found", upstreamErr.Message)
	assert.Equal(t, `{"error":"gone"}`, string(body), "the body is kept for structured errors")
}

func TestFetcherTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := upstream.NewFetcher(nil, nil).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)

	var upstreamErr *upstream.Error
	assert.False(t, errors.As(err, &upstreamErr))
}
