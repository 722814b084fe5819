package facebook

import (
	"context"
	"net/url"
	"strings"

	"feedbridge/content"
	"feedbridge/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// MediaKind selects the media proxy endpoint for a reference
type MediaKind int

const (
	MediaImage MediaKind = iota
	MediaVideo
)

func (k MediaKind) path() string {
	if k == MediaVideo {
		return "video"
	}
	return "image"
}

// MediaRef is one embeddable media item of a post
type MediaRef struct {
	Kind     MediaKind
	TargetID string
}

// CollectMedia flattens attachments into media references in source order.
// Leaves without a target id are dropped, albums contribute their children only.
func CollectMedia(attachments []models.Attachment) []MediaRef {
	var refs []MediaRef
	for _, a := range attachments {
		switch a := a.(type) {
		case models.Photo, models.CoverPhoto, models.Video:
			refs = appendLeaf(refs, a.(models.LeafAttachment))
		case models.Album:
			for _, child := range a.Children {
				refs = appendLeaf(refs, child)
			}
		default:
			// unsupported attachments are skipped
		}
	}
	return refs
}

func appendLeaf(refs []MediaRef, leaf models.LeafAttachment) []MediaRef {
	if leaf.Target() == "" {
		return refs
	}
	kind := MediaImage
	if leaf.Kind() == models.KindVideo {
		kind = MediaVideo
	}
	return append(refs, MediaRef{Kind: kind, TargetID: leaf.Target()})
}

// MediaLinker resolves a batch of references to embeddable URLs
type MediaLinker interface {
	Link(ctx context.Context, refs []MediaRef) map[MediaRef]string
}

// ProxyLinker points every reference at the media proxy. Videos get a static
// placeholder image from the proxy since direct video URLs do not stay valid.
type ProxyLinker struct {
	Base string
}

func (p ProxyLinker) URL(ref MediaRef) string {
	return strings.TrimSuffix(p.Base, "/") + "/" + ref.Kind.path() + "/" + url.PathEscape(ref.TargetID)
}

func (p ProxyLinker) Link(_ context.Context, refs []MediaRef) map[MediaRef]string {
	links := make(map[MediaRef]string, len(refs))
	for _, ref := range refs {
		links[ref] = p.URL(ref)
	}
	return links
}

// BatchResolver looks up direct media URLs for many ids at once
type BatchResolver interface {
	BatchImages(ctx context.Context, ids []string) (map[string]string, error)
	BatchVideos(ctx context.Context, ids []string) (map[string]string, error)
}

// MaxBatchIDs is the Graph API limit for ids per request
const MaxBatchIDs = 50

// GraphLinker resolves references to direct media URLs ahead of rendering,
// one request per chunk of ids. Anything it cannot resolve uses the proxy.
type GraphLinker struct {
	Resolver  BatchResolver
	Fallback  ProxyLinker
	BatchSize int
}

func (g GraphLinker) Link(ctx context.Context, refs []MediaRef) map[MediaRef]string {
	links := g.Fallback.Link(ctx, refs)

	size := g.BatchSize
	if size <= 0 || size > MaxBatchIDs {
		size = MaxBatchIDs
	}

	for _, kind := range []MediaKind{MediaImage, MediaVideo} {
		ids := lo.Uniq(lo.FilterMap(refs, func(r MediaRef, _ int) (string, bool) {
			return r.TargetID, r.Kind == kind
		}))

		for _, chunk := range lo.Chunk(ids, size) {
			var resolved map[string]string
			var err error
			if kind == MediaVideo {
				resolved, err = g.Resolver.BatchVideos(ctx, chunk)
			} else {
				resolved, err = g.Resolver.BatchImages(ctx, chunk)
			}
			if err != nil {
				log.WithFields(log.Fields{
					"kind":  kind.path(),
					"count": len(chunk),
					"error": err,
				}).Warn("Batch media lookup failed, using proxy links")
				continue
			}
			for id, u := range resolved {
				if u != "" {
					links[MediaRef{Kind: kind, TargetID: id}] = u
				}
			}
		}
	}

	return links
}

// EmbedFragments renders one image embed per reference, in order
func EmbedFragments(refs []MediaRef, links map[MediaRef]string) []string {
	fragments := make([]string, 0, len(refs))
	for _, ref := range refs {
		u, ok := links[ref]
		if !ok {
			continue
		}
		fragments = append(fragments, "\n<br><img src=\""+content.EscapeHTML(u)+"\">")
	}
	return fragments
}
