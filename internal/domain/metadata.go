package domain

import "time"

// Fixed output format of the audio engine consuming resolved streams.
const (
	SampleRate = 48000
	Channels   = 2
)

// Metadata is the normalized description of one resolved audio item.
// Empty strings mean the extractor did not report the field.
type Metadata struct {
	Title     string        `json:"title,omitempty"`
	Artist    string        `json:"artist,omitempty"`
	Album     string        `json:"album,omitempty"`
	Track     string        `json:"track,omitempty"`
	Date      string        `json:"date,omitempty"`
	Channel   string        `json:"channel,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	IsLive    bool          `json:"is_live,omitempty"` // no duration was reported
	SourceURL string        `json:"source_url,omitempty"`
	Thumbnail string        `json:"thumbnail,omitempty"`

	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
}

// HasDuration reports whether the item has a known length.
func (m Metadata) HasDuration() bool {
	return !m.IsLive
}

// Transport is the closed set of ways resolved audio bytes are delivered.
type Transport int

const (
	// TransportDirect is one continuous HTTP byte range.
	TransportDirect Transport = iota
	// TransportManifest is a segmented HLS playlist.
	TransportManifest
)

func (t Transport) String() string {
	if t == TransportManifest {
		return "hls"
	}
	return "http"
}

// TransportForProtocol maps the extractor's protocol tag onto a Transport.
func TransportForProtocol(protocol string) Transport {
	if protocol == "m3u8_native" {
		return TransportManifest
	}
	return TransportDirect
}
