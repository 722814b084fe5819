package facebook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feedbridge/content"
	"feedbridge/models"

	log "github.com/sirupsen/logrus"
)

// Graph API timestamps use a numeric offset without a colon
const graphTimeLayout = "2006-01-02T15:04:05-0700"

// ParseTime parses a post creation timestamp into an absolute instant
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(graphTimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid created_time %q: %w", s, err)
	}
	return t, nil
}

// PostURL builds the stable link of a post. Composite ids look like
// "<page id>_<post id>" and only the part after the first underscore is used.
func PostURL(subjectID, postID string) string {
	if _, suffix, ok := strings.Cut(postID, "_"); ok {
		postID = suffix
	}
	return fmt.Sprintf("https://facebook.com/%s/posts/%s", subjectID, postID)
}

// AssembleItem combines the normalized text of a post with its media embeds.
// links must contain the urls for the references of the post's attachments.
func AssembleItem(normalizer *content.Normalizer, subjectID string, post models.Post, links map[MediaRef]string) (models.FeedItem, error) {
	published, err := ParseTime(post.CreatedTime)
	if err != nil {
		return models.FeedItem{}, err
	}

	normalized := normalizer.Normalize(subjectID, post.Text())

	var body strings.Builder
	body.WriteString(normalized.Body)
	for _, fragment := range EmbedFragments(CollectMedia(post.Attachments), links) {
		body.WriteString(fragment)
	}

	link := PostURL(subjectID, post.ID)
	return models.FeedItem{
		ID:          link,
		Title:       normalized.Title,
		HTMLBody:    body.String(),
		Link:        link,
		PublishedAt: published,
	}, nil
}

// Assembler turns the posts of one subject into feed items. Media of all posts
// is linked in one batch before any body is rendered.
type Assembler struct {
	Normalizer *content.Normalizer
	Linker     MediaLinker
}

func (a *Assembler) Assemble(ctx context.Context, subjectID string, posts []models.Post) []models.FeedItem {
	var refs []MediaRef
	for _, post := range posts {
		refs = append(refs, CollectMedia(post.Attachments)...)
	}
	links := a.Linker.Link(ctx, refs)

	items := make([]models.FeedItem, 0, len(posts))
	for _, post := range posts {
		item, err := AssembleItem(a.Normalizer, subjectID, post, links)
		if err != nil {
			log.WithFields(log.Fields{
				"subject": subjectID,
				"post":    post.ID,
				"error":   err,
			}).Warn("Skipping post")
			continue
		}
		items = append(items, item)
	}
	return items
}
