package models

import (
	"sort"
	"time"
)

// Post is a single upstream post, alive for one synthesis pass
type Post struct {
	ID          string
	CreatedTime string
	Message     string
	Story       string
	Attachments []Attachment
}

// Text returns the message, falling back to the story
func (p Post) Text() string {
	if p.Message != "" {
		return p.Message
	}
	return p.Story
}

// AttachmentKind tags the closed set of attachment variants
type AttachmentKind int

const (
	KindUnsupported AttachmentKind = iota
	KindPhoto
	KindCoverPhoto
	KindVideo
	KindAlbum
)

func (k AttachmentKind) String() string {
	switch k {
	case KindPhoto:
		return "photo"
	case KindCoverPhoto:
		return "cover_photo"
	case KindVideo:
		return "video"
	case KindAlbum:
		return "album"
	default:
		return "unsupported"
	}
}

// Attachment is implemented by Photo, CoverPhoto, Video, Album and Unsupported.
type Attachment interface {
	Kind() AttachmentKind
}

// LeafAttachment is an attachment that can live inside an album.
// Albums hold only leaves, so album nesting stops at one level.
type LeafAttachment interface {
	Attachment
	Target() string
}

// Media is the direct metadata the upstream reports alongside a leaf
type Media struct {
	Src    string
	Width  int
	Height int
}

type Photo struct {
	TargetID string
	Media    Media
}

type CoverPhoto struct {
	TargetID string
	Media    Media
}

type Video struct {
	TargetID string
	Media    Media
	Source   string
}

type Album struct {
	Title    string
	Children []LeafAttachment
}

// Unsupported keeps the upstream type tag of anything we do not render
type Unsupported struct {
	Type string
}

func (Photo) Kind() AttachmentKind       { return KindPhoto }
func (CoverPhoto) Kind() AttachmentKind  { return KindCoverPhoto }
func (Video) Kind() AttachmentKind       { return KindVideo }
func (Album) Kind() AttachmentKind       { return KindAlbum }
func (Unsupported) Kind() AttachmentKind { return KindUnsupported }

func (p Photo) Target() string      { return p.TargetID }
func (c CoverPhoto) Target() string { return c.TargetID }
func (v Video) Target() string      { return v.TargetID }

// FeedItem is one normalized entry, never mutated after creation
type FeedItem struct {
	ID          string
	Title       string
	HTMLBody    string
	Link        string
	PublishedAt time.Time
}

// FeedMetadata describes the subject a feed is generated for
type FeedMetadata struct {
	Title       string
	Description string
	CanonicalID string
	Link        string
	ImageURL    string
	GeneratedAt time.Time
}

// CachedFeed is the unit of cache storage
type CachedFeed struct {
	Metadata FeedMetadata
	Items    []FeedItem
}

// SortItems orders items most recent first. Ties keep their relative order.
func SortItems(items []FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}
