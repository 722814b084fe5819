// Package cookies loads Netscape format cookie files into a cookie jar
package cookies

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

var netscapeMagic = regexp.MustCompile(`^#( Netscape)? HTTP Cookie File`)

const httpOnlyPrefix = "#HttpOnly_"

// FormatError means the content is not a Netscape cookie file or has a bad record
type FormatError struct {
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("cookie file line %d: %s", e.Line, e.Reason)
	}
	return "cookie file: " + e.Reason
}

// Jar is the part of http.CookieJar the loader needs
type Jar interface {
	SetCookies(u *url.URL, cookies []*http.Cookie)
	Cookies(u *url.URL) []*http.Cookie
}

// NewJar returns an empty jar using the public suffix list
func NewJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// Record is one cookie together with the url it is set for
type Record struct {
	Origin *url.URL
	Cookie *http.Cookie
}

// Parse reads every cookie record of a Netscape cookie file.
// The whole content is validated before anything is returned.
func Parse(content string) ([]Record, error) {
	if !netscapeMagic.MatchString(content) {
		return nil, &FormatError{Reason: "the content does not look like a Netscape format cookies file"}
	}

	var records []Record
	for i, row := range strings.Split(content, "\n") {
		row = strings.TrimSuffix(row, "\r")

		httpOnly := false
		if strings.HasPrefix(row, httpOnlyPrefix) {
			httpOnly = true
			row = strings.TrimPrefix(row, httpOnlyPrefix)
		}

		if strings.HasPrefix(row, "#") || strings.TrimSpace(row) == "" {
			continue
		}

		fields := strings.Split(row, "\t")
		if len(fields) != 7 {
			return nil, &FormatError{Line: i + 1, Reason: fmt.Sprintf("expected 7 fields, got %d", len(fields))}
		}
		domain, domainFlag, path, secure, expires, name, value := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]

		expiry, err := strconv.ParseInt(expires, 10, 64)
		if err != nil {
			return nil, &FormatError{Line: i + 1, Reason: "invalid expiry " + strconv.Quote(expires)}
		}

		host := strings.TrimPrefix(domain, ".")
		if host == "" {
			return nil, &FormatError{Line: i + 1, Reason: "empty domain"}
		}

		cookie := &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     path,
			Secure:   secure == "TRUE",
			HttpOnly: httpOnly,
		}
		// A domain cookie applies to subdomains, a host cookie only to its host
		if domainFlag == "TRUE" || strings.HasPrefix(domain, ".") {
			cookie.Domain = host
		}
		if expiry > 0 {
			cookie.Expires = time.Unix(expiry, 0)
		}

		records = append(records, Record{
			Origin: &url.URL{Scheme: "https", Host: host, Path: "/"},
			Cookie: cookie,
		})
	}

	return records, nil
}

// Load parses content and stores every cookie in jar. It returns the number of
// cookies applied. Malformed content leaves the jar untouched.
func Load(jar Jar, content string) (int, error) {
	records, err := Parse(content)
	if err != nil {
		return 0, err
	}
	for _, r := range records {
		jar.SetCookies(r.Origin, []*http.Cookie{r.Cookie})
	}

	log.WithFields(log.Fields{
		"count": len(records),
	}).Info("Loaded cookies")

	return len(records), nil
}

// LoadFile reads a cookie file from disk and loads it into jar
func LoadFile(jar Jar, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("error reading cookie file: %w", err)
	}
	return Load(jar, string(data))
}

// Header returns the Cookie header value the jar would send to rawURL
func Header(jar Jar, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	parts := make([]string, 0)
	for _, c := range jar.Cookies(u) {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; "), nil
}
