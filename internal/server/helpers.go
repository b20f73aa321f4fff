package server

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/lookup"
	"github.com/jaki95/audio-resolver/internal/progress"
	"github.com/jaki95/audio-resolver/internal/queue"
)

// ImageURL picks the picture shown with a track: the YouTube thumbnail
// derived from the video id when there is one, otherwise the extractor's
// thumbnail.
func ImageURL(md domain.Metadata) string {
	if id := lookup.VideoID(md.SourceURL); id != "" {
		return fmt.Sprintf("https://i3.ytimg.com/vi/%s/hqdefault.jpg", id)
	}
	return md.Thumbnail
}

func announce(md domain.Metadata) Announcement {
	return Announcement{
		Title:     md.Title,
		Artist:    md.Artist,
		SourceURL: md.SourceURL,
		ImageURL:  ImageURL(md),
		Duration:  md.Duration,
		IsLive:    md.IsLive,
	}
}

// pagination reads page and pageSize query parameters
func pagination(c *gin.Context) (int, int) {
	page := 1
	pageSize := queue.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= queue.MaxPageSize {
			pageSize = parsed
		}
	}

	return page, pageSize
}

// progressReader counts bytes read into a tracker
type progressReader struct {
	r       io.Reader
	tracker *progress.Tracker
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.tracker.AddBytes(int64(n))
	return n, err
}
