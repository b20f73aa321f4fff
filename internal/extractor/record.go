package extractor

import (
	"time"

	"github.com/jaki95/audio-resolver/internal/domain"
)

// Record is one decoded result of an extractor run.
type Record struct {
	// URL is the playable resource, or the entry page for flat playlists.
	URL        string
	WebpageURL string
	Headers    map[string]string
	// Filesize is zero when unknown.
	Filesize  int64
	Protocol  string
	Transport domain.Transport
	Metadata  domain.Metadata
}

// output mirrors the fields of one yt-dlp JSON line that we care about.
type output struct {
	Artist      *string           `json:"artist"`
	Album       *string           `json:"album"`
	Channel     *string           `json:"channel"`
	Duration    *float64          `json:"duration"`
	Filesize    *int64            `json:"filesize"`
	HTTPHeaders map[string]string `json:"http_headers"`
	ReleaseDate *string           `json:"release_date"`
	Thumbnail   *string           `json:"thumbnail"`
	Title       *string           `json:"title"`
	Track       *string           `json:"track"`
	UploadDate  *string           `json:"upload_date"`
	Uploader    *string           `json:"uploader"`
	URL         *string           `json:"url"`
	WebpageURL  *string           `json:"webpage_url"`
	Protocol    *string           `json:"protocol"`
}

func (o *output) metadata() domain.Metadata {
	md := domain.Metadata{
		Title:      str(o.Title),
		Artist:     firstOf(o.Artist, o.Uploader),
		Album:      str(o.Album),
		Track:      str(o.Track),
		Date:       firstOf(o.ReleaseDate, o.UploadDate),
		Channel:    str(o.Channel),
		SourceURL:  str(o.WebpageURL),
		Thumbnail:  str(o.Thumbnail),
		SampleRate: domain.SampleRate,
		Channels:   domain.Channels,
	}
	if o.Duration != nil {
		md.Duration = time.Duration(*o.Duration * float64(time.Second))
	} else {
		md.IsLive = true
	}
	return md
}

func (o *output) record() *Record {
	rec := &Record{
		URL:        str(o.URL),
		WebpageURL: str(o.WebpageURL),
		Headers:    o.HTTPHeaders,
		Protocol:   str(o.Protocol),
		Metadata:   o.metadata(),
	}
	if o.Filesize != nil && *o.Filesize > 0 {
		rec.Filesize = *o.Filesize
	}
	rec.Transport = domain.TransportForProtocol(rec.Protocol)
	return rec
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// firstOf returns the first non-empty value.
func firstOf(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}
