// Package upstream performs the outbound requests to the content APIs
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "feedbridge_upstream_request_duration_seconds",
	Help:    "Duration of requests to upstream content APIs",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
}, []string{"host", "status"})

// DefaultHeaders mimic a desktop browser
var DefaultHeaders = map[string]string{
	"accept":          "*/*",
	"accept-language": "en-US,en;q=0.5",
	"sec-fetch-dest":  "empty",
	"sec-fetch-mode":  "cors",
	"sec-fetch-site":  "same-origin",
	"user-agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
}

// Origin returns the origin and referer headers for a site
func Origin(site string) map[string]string {
	return map[string]string{
		"origin":  site,
		"referer": site + "/",
	}
}

// Error is an upstream failure, either a non-2xx status or an error object in the body
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.Status, e.Message)
	}
	return "upstream error: " + e.Message
}

// Fetcher issues GET requests. Callers own timeouts through ctx.
type Fetcher struct {
	client  *http.Client
	headers map[string]string
}

func NewFetcher(client *http.Client, headers map[string]string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, headers: headers}
}

// Get returns the body of url. A non-2xx response is returned as *Error along with
// the body so callers can look for a structured error inside it.
func (f *Fetcher) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building request: %w", err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		fetchDuration.WithLabelValues(req.URL.Host, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("error fetching %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	fetchDuration.WithLabelValues(req.URL.Host, fmt.Sprint(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("error reading response from %s: %w", req.URL.Host, err)
	}

	log.WithFields(log.Fields{
		"host":    req.URL.Host,
		"path":    req.URL.Path,
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("Upstream request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return body, nil
}
