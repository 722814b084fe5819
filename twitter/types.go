package twitter

// NextData is the payload of the __NEXT_DATA__ script of a Next.js page
type NextData[T any] struct {
	Props struct {
		PageProps T `json:"pageProps"`
	} `json:"props"`
	Page    string            `json:"page"`
	Query   map[string]string `json:"query"`
	BuildID string            `json:"buildId"`
}

type SyndicationProps struct {
	Lang          string   `json:"lang"`
	Timeline      Timeline `json:"timeline"`
	LatestTweetID string   `json:"latest_tweet_id"`
	HeaderProps   struct {
		ScreenName string `json:"screenName"`
	} `json:"headerProps"`
}

type Timeline struct {
	Entries []Entry `json:"entries"`
}

type Entry struct {
	Type      string `json:"type"`
	EntryID   string `json:"entry_id"`
	SortIndex string `json:"sort_index"`
	Content   struct {
		Tweet *Tweet `json:"tweet"`
	} `json:"content"`
}

type URLEntity struct {
	DisplayURL  string `json:"display_url"`
	ExpandedURL string `json:"expanded_url"`
	URL         string `json:"url"`
	Indices     []int  `json:"indices"`
}

type VideoVariant struct {
	Bitrate     int    `json:"bitrate,omitempty"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// MediaEntity covers both photo and video media. Only the fields needed to
// embed a still image are used.
type MediaEntity struct {
	Type          string `json:"type"`
	DisplayURL    string `json:"display_url"`
	ExpandedURL   string `json:"expanded_url"`
	IDStr         string `json:"id_str"`
	MediaKey      string `json:"media_key"`
	MediaURLHTTPS string `json:"media_url_https"`
	URL           string `json:"url"`
	VideoInfo     *struct {
		AspectRatio    []int          `json:"aspect_ratio"`
		DurationMillis int            `json:"duration_millis"`
		Variants       []VideoVariant `json:"variants"`
	} `json:"video_info,omitempty"`
}

type Entities struct {
	URLs  []URLEntity   `json:"urls"`
	Media []MediaEntity `json:"media"`
}

type User struct {
	IDStr                string `json:"id_str"`
	Name                 string `json:"name"`
	ScreenName           string `json:"screen_name"`
	Description          string `json:"description"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
	ProfileBannerURL     string `json:"profile_banner_url"`
}

type Tweet struct {
	IDStr           string   `json:"id_str"`
	CreatedAt       string   `json:"created_at"`
	FullText        string   `json:"full_text"`
	Text            string   `json:"text"`
	Lang            string   `json:"lang"`
	Permalink       string   `json:"permalink"`
	Entities        Entities `json:"entities"`
	User            User     `json:"user"`
	RetweetedStatus *Tweet   `json:"retweeted_status,omitempty"`
}

// IsRetweet reports whether the tweet only re-shares another status
func (t *Tweet) IsRetweet() bool {
	return t.RetweetedStatus != nil
}
