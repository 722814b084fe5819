// Package facebook builds feeds from Graph API pages and resolves their media
package facebook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"feedbridge/models"
	"feedbridge/upstream"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultGraphHost = "https://graph.facebook.com"
	GraphVersion     = "v21.0"
	siteOrigin       = "https://www.facebook.com"

	profileFields = "name,about,link,picture,posts{created_time,message,story,permalink_url,attachments}"
)

type Config struct {
	// GraphHost is the scheme and host of the Graph API
	GraphHost   string
	AccessToken string
	// MaxPages caps how many pages of posts are read per profile
	MaxPages int
}

type Client struct {
	fetcher *upstream.Fetcher
	config  Config
}

func NewClient(fetcher *upstream.Fetcher, config Config) *Client {
	if config.GraphHost == "" {
		config.GraphHost = DefaultGraphHost
	}
	if config.MaxPages < 1 {
		config.MaxPages = 1
	}
	return &Client{fetcher: fetcher, config: config}
}

func graphError(status int, message string) *upstream.Error {
	return &upstream.Error{Status: status, Message: message}
}

func (c *Client) objectURL(id string, query url.Values) string {
	query.Set("access_token", c.config.AccessToken)
	return fmt.Sprintf("%s/%s/%s?%s", strings.TrimSuffix(c.config.GraphHost, "/"), GraphVersion, url.PathEscape(id), query.Encode())
}

// get fetches a Graph URL and decodes it into v. Error envelopes become *upstream.Error
// carrying the Graph message, whatever the HTTP status.
func (c *Client) get(ctx context.Context, u string, v any) error {
	body, err := c.fetcher.Get(ctx, u, upstream.Origin(siteOrigin))

	var upstreamErr *upstream.Error
	if err != nil && !errors.As(err, &upstreamErr) {
		return err
	}

	if decodeErr := decodeGraph(body, v); decodeErr != nil {
		var ge *upstream.Error
		if errors.As(decodeErr, &ge) {
			if upstreamErr != nil {
				ge.Status = upstreamErr.Status
			}
			return ge
		}
		if upstreamErr != nil {
			return upstreamErr
		}
		return fmt.Errorf("error decoding graph response: %w", decodeErr)
	}

	if upstreamErr != nil {
		return upstreamErr
	}
	return nil
}

// Profile fetches a page with its posts, following pagination up to MaxPages
func (c *Client) Profile(ctx context.Context, user string) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, c.objectURL(user, url.Values{"fields": {profileFields}}), &profile); err != nil {
		return nil, err
	}

	next := profile.Posts.Paging.Next
	for page := 1; page < c.config.MaxPages && next != ""; page++ {
		var more PostPage
		if err := c.get(ctx, next, &more); err != nil {
			// later pages are best effort, the first page is enough for a feed
			log.WithFields(log.Fields{
				"user":  user,
				"page":  page,
				"error": err,
			}).Warn("Stopping pagination")
			break
		}
		profile.Posts.Data = append(profile.Posts.Data, more.Data...)
		next = more.Paging.Next
	}

	return &profile, nil
}

func largest(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	sorted := append([]Image(nil), images...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Height*sorted[i].Width > sorted[j].Height*sorted[j].Width
	})
	return sorted[0].Source
}

// LargestImage returns the photo variant with the highest pixel area
func (c *Client) LargestImage(ctx context.Context, id string) (string, error) {
	var collection ImageCollection
	if err := c.get(ctx, c.objectURL(id, url.Values{"fields": {"images"}}), &collection); err != nil {
		return "", err
	}
	if src := largest(collection.Images); src != "" {
		return src, nil
	}
	return "", graphError(0, "no images for "+id)
}

// VideoSource returns the disclosed source of a video
func (c *Client) VideoSource(ctx context.Context, id string) (string, error) {
	var video VideoSource
	if err := c.get(ctx, c.objectURL(id, url.Values{"fields": {"source"}}), &video); err != nil {
		return "", err
	}
	if video.Source == "" {
		return "", graphError(0, "no source for "+id)
	}
	return video.Source, nil
}

func (c *Client) ProfilePicture(ctx context.Context, user string) (string, error) {
	var profile struct {
		Picture ProfilePicture `json:"picture"`
	}
	if err := c.get(ctx, c.objectURL(user, url.Values{"fields": {"picture"}}), &profile); err != nil {
		return "", err
	}
	if profile.Picture.Data.URL == "" {
		return "", graphError(0, "no picture for "+user)
	}
	return profile.Picture.Data.URL, nil
}

func (c *Client) batchURL(ids []string, fields string) string {
	query := url.Values{
		"ids":          {strings.Join(ids, ",")},
		"fields":       {fields},
		"access_token": {c.config.AccessToken},
	}
	return fmt.Sprintf("%s/%s/?%s", strings.TrimSuffix(c.config.GraphHost, "/"), GraphVersion, query.Encode())
}

// BatchImages resolves the largest image of many photos in one request
func (c *Client) BatchImages(ctx context.Context, ids []string) (map[string]string, error) {
	var collections map[string]ImageCollection
	if err := c.get(ctx, c.batchURL(ids, "images"), &collections); err != nil {
		return nil, err
	}
	resolved := make(map[string]string, len(collections))
	for id, collection := range collections {
		resolved[id] = largest(collection.Images)
	}
	return resolved, nil
}

// BatchVideos resolves the sources of many videos in one request
func (c *Client) BatchVideos(ctx context.Context, ids []string) (map[string]string, error) {
	var videos map[string]VideoSource
	if err := c.get(ctx, c.batchURL(ids, "source"), &videos); err != nil {
		return nil, err
	}
	resolved := make(map[string]string, len(videos))
	for id, video := range videos {
		resolved[id] = video.Source
	}
	return resolved, nil
}

// Source builds Facebook feeds
type Source struct {
	Client    *Client
	Assembler *Assembler
	// ProfilePictureBase is the proxy prefix used for the feed image
	ProfilePictureBase string
	Now                func() time.Time
}

// BuildFeed fetches a profile and assembles its feed. Items keep upstream order.
func (s *Source) BuildFeed(ctx context.Context, user string) (models.CachedFeed, error) {
	profile, err := s.Client.Profile(ctx, user)
	if err != nil {
		return models.CachedFeed{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	posts := make([]models.Post, 0, len(profile.Posts.Data))
	for _, p := range profile.Posts.Data {
		posts = append(posts, p.ToModel())
	}

	items := s.Assembler.Assemble(ctx, profile.ID, posts)

	log.WithFields(log.Fields{
		"user":    user,
		"subject": profile.ID,
		"posts":   len(posts),
		"items":   len(items),
	}).Info("Built facebook feed")

	return models.CachedFeed{
		Metadata: models.FeedMetadata{
			Title:       profile.Name,
			Description: profile.About,
			CanonicalID: profile.ID,
			Link:        profile.Link,
			ImageURL:    strings.TrimSuffix(s.ProfilePictureBase, "/") + "/" + url.PathEscape(user),
			GeneratedAt: now(),
		},
		Items: items,
	}, nil
}
