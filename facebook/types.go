package facebook

import (
	"encoding/json"

	"feedbridge/models"
)

// GraphError is the error envelope the Graph API returns in place of a result
type GraphError struct {
	Error *struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

type Image struct {
	Height int    `json:"height"`
	Width  int    `json:"width"`
	Source string `json:"source"`
}

type ImageCollection struct {
	ID     string  `json:"id"`
	Images []Image `json:"images"`
}

type VideoSource struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

type ProfilePicture struct {
	Data struct {
		Height       int    `json:"height"`
		Width        int    `json:"width"`
		IsSilhouette bool   `json:"is_silhouette"`
		URL          string `json:"url"`
	} `json:"data"`
}

type Paging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Next string `json:"next"`
}

type PostPage struct {
	Data   []Post `json:"data"`
	Paging Paging `json:"paging"`
}

type Profile struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	About   string         `json:"about"`
	Link    string         `json:"link"`
	Picture ProfilePicture `json:"picture"`
	Posts   PostPage       `json:"posts"`
}

type Post struct {
	ID           string `json:"id"`
	CreatedTime  string `json:"created_time"`
	Message      string `json:"message"`
	Story        string `json:"story"`
	PermalinkURL string `json:"permalink_url"`
	Attachments  *struct {
		Data []Attachment `json:"data"`
	} `json:"attachments"`
}

type Target struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type AttachmentMedia struct {
	Image struct {
		Height int    `json:"height"`
		Width  int    `json:"width"`
		Src    string `json:"src"`
	} `json:"image"`
	Source string `json:"source"`
}

// Attachment is the raw attachment object. Type decides which fields are meaningful.
type Attachment struct {
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	URL            string          `json:"url"`
	Target         Target          `json:"target"`
	Media          AttachmentMedia `json:"media"`
	Subattachments *struct {
		Data []Attachment `json:"data"`
	} `json:"subattachments"`
}

func (m AttachmentMedia) toModel() models.Media {
	return models.Media{Src: m.Image.Src, Width: m.Image.Width, Height: m.Image.Height}
}

// leaf maps the photo and video type tags onto leaf variants
func (a Attachment) leaf() (models.LeafAttachment, bool) {
	switch a.Type {
	case "photo", "profile_media":
		return models.Photo{TargetID: a.Target.ID, Media: a.Media.toModel()}, true
	case "cover_photo":
		return models.CoverPhoto{TargetID: a.Target.ID, Media: a.Media.toModel()}, true
	case "video_autoplay", "video_direct_response_autoplay", "video_inline":
		return models.Video{TargetID: a.Target.ID, Media: a.Media.toModel(), Source: a.Media.Source}, true
	}
	return nil, false
}

// ToModel converts the raw attachment into the closed variant set.
// Album children that are not leaves (including nested albums) are dropped.
func (a Attachment) ToModel() models.Attachment {
	if leaf, ok := a.leaf(); ok {
		return leaf
	}
	if a.Type == "album" {
		album := models.Album{Title: a.Title}
		if a.Subattachments != nil {
			for _, sub := range a.Subattachments.Data {
				if leaf, ok := sub.leaf(); ok {
					album.Children = append(album.Children, leaf)
				}
			}
		}
		return album
	}
	return models.Unsupported{Type: a.Type}
}

func (p Post) ToModel() models.Post {
	post := models.Post{
		ID:          p.ID,
		CreatedTime: p.CreatedTime,
		Message:     p.Message,
		Story:       p.Story,
	}
	if p.Attachments != nil {
		for _, a := range p.Attachments.Data {
			post.Attachments = append(post.Attachments, a.ToModel())
		}
	}
	return post
}

// decodeGraph unmarshals body into v unless it carries a Graph error envelope
func decodeGraph(body []byte, v any) error {
	var ge GraphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error != nil {
		return graphError(0, ge.Error.Message)
	}
	return json.Unmarshal(body, v)
}
