// Package transport turns a decoded extractor record into a readable audio
// byte stream, hiding whether the bytes come from one HTTP resource or from
// a segmented HLS playlist.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/extractor"
)

// Stream is a resolved audio byte source. Ownership passes to the caller,
// who must Close it.
type Stream interface {
	io.ReadCloser
	Kind() domain.Transport
}

// Builder constructs streams over a shared, read-only HTTP client.
type Builder struct {
	client       *http.Client
	pollInterval time.Duration
}

// NewBuilder creates a builder. A nil client means http.DefaultClient.
func NewBuilder(client *http.Client) *Builder {
	if client == nil {
		client = http.DefaultClient
	}
	return &Builder{client: client}
}

// WithPollInterval fixes how often live HLS playlists are re-fetched.
// By default half the playlist's target duration is used.
func (b *Builder) WithPollInterval(d time.Duration) *Builder {
	b.pollInterval = d
	return b
}

// Build opens the stream described by rec. It performs one network round
// trip to validate the resource before returning.
func (b *Builder) Build(ctx context.Context, rec *extractor.Record) (Stream, error) {
	if rec == nil || rec.URL == "" {
		return nil, fmt.Errorf("%w: record has no resource url", extractor.ErrTransportFailed)
	}

	header := Headers(rec.Headers)

	slog.Debug("Building stream", "transport", rec.Transport.String(), "url", rec.URL)

	switch rec.Transport {
	case domain.TransportManifest:
		return openHLS(ctx, b.client, rec.URL, header, b.pollInterval)
	default:
		return openHTTP(ctx, b.client, rec.URL, header, rec.Filesize)
	}
}

// Headers rebuilds a request header set from extractor key/value pairs.
// Pairs that are not valid HTTP are dropped; only their names are logged.
func Headers(raw map[string]string) http.Header {
	header := make(http.Header, len(raw))
	for name, value := range raw {
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			slog.Warn("Dropping malformed header", "name", fmt.Sprintf("%q", name))
			continue
		}
		header.Set(name, value)
	}
	return header
}

func transportErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", extractor.ErrTransportFailed, fmt.Sprintf(format, args...))
}

func get(ctx context.Context, client *http.Client, url string, header http.Header, rangeStart int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", extractor.ErrTransportFailed, err)
	}
	for name, values := range header {
		req.Header[name] = values
	}
	if rangeStart >= 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", rangeStart))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", extractor.ErrTransportFailed, err)
	}
	return resp, nil
}
