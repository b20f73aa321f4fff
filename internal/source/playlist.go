package source

import (
	"context"
	"log/slog"

	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/extractor"
)

// Playlist expands a playlist URL with a single extractor run. Every entry
// comes back with its metadata already cached, in the order the extractor
// reported them; a stream for an entry is still resolved on demand. One bad
// entry fails the whole playlist.
func (r *Resolver) Playlist(ctx context.Context, url string) ([]*Descriptor, error) {
	query := domain.ByURL(url)

	records, err := extractor.Extract(ctx, r.invoker, extractor.Request{Query: query, Playlist: true})
	if err != nil {
		return nil, err
	}

	descriptors := make([]*Descriptor, 0, len(records))
	for _, rec := range records {
		md := rec.Metadata
		if md.SourceURL == "" {
			md.SourceURL = rec.URL
		}
		descriptors = append(descriptors, r.WithMetadata(domain.ByURL(rec.URL), md))
	}

	slog.Info("Resolved playlist", "url", url, "entries", len(descriptors))
	return descriptors, nil
}
