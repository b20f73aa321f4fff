// Package lookup holds the secondary metadata sources used next to the
// extractor: a YouTube Data API search and an OpenGraph page reader.
package lookup

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/jaki95/audio-resolver/internal/domain"
)

var ErrNotFound = errors.New("lookup found nothing")

// Result is the partial metadata a lookup knows about one video.
type Result struct {
	VideoID   string `json:"video_id,omitempty"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Metadata converts r into frozen descriptor metadata. Fields only the
// extractor knows stay empty.
func (r Result) Metadata() domain.Metadata {
	return domain.Metadata{
		Title:      r.Title,
		SourceURL:  r.URL,
		Thumbnail:  r.Thumbnail,
		SampleRate: domain.SampleRate,
		Channels:   domain.Channels,
	}
}

// Searcher finds the best matching video for free-text terms.
type Searcher interface {
	Search(ctx context.Context, terms string) (*Result, error)
}

// PageReader reads metadata from a media page.
type PageReader interface {
	Read(ctx context.Context, pageURL string) (*Result, error)
}

// WatchURL is the canonical page of a YouTube video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// VideoID extracts the YouTube video id from a watch or short link, or
// returns "" when the URL names no video.
func VideoID(sourceURL string) string {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return ""
	}
	if id := u.Query().Get("v"); id != "" {
		return id
	}
	if strings.HasSuffix(u.Hostname(), "youtu.be") {
		return strings.Trim(u.Path, "/")
	}
	return ""
}
