package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/source"
	"github.com/jaki95/audio-resolver/internal/transport"
)

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.Error("Request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, ErrorResponse{Error: describe(err)})
}

func bindQuery(c *gin.Context) (string, error) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if !domain.ParseQuery(req.Query).IsValid() {
		return "", fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	return req.Query, nil
}

// resolve returns metadata for a query without queueing it
func (s *Server) resolve(c *gin.Context) {
	input, err := bindQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	d := s.resolver.Descriptor(domain.ParseQuery(input))
	md, err := d.AuxMetadata(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(200, gin.H{
		"metadata":     md,
		"announcement": announce(md),
	})
}

// enqueue adds a track or a whole playlist to the queue
func (s *Server) enqueue(c *gin.Context) {
	input, err := bindQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()

	if domain.IsPlaylistURL(input) {
		descriptors, err := s.resolver.Playlist(ctx, input)
		if err != nil {
			s.fail(c, err)
			return
		}

		entries := s.queue.EnqueueAll(descriptors)
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}

		c.JSON(201, EnqueueResponse{
			Message: fmt.Sprintf("Added %d songs to queue", len(ids)),
			Entries: ids,
		})
		return
	}

	d := s.descriptorFor(ctx, domain.ParseQuery(input))
	entry := s.queue.Enqueue(d)

	md, err := s.queue.Prepare(ctx, entry.ID)
	if err != nil {
		s.fail(c, err)
		return
	}

	a := announce(md)
	c.JSON(201, EnqueueResponse{
		Message:      "Added to queue",
		Entries:      []string{entry.ID},
		Announcement: &a,
	})
}

// descriptorFor builds the descriptor for a single-track request. Searches
// issued while the queue is empty try the search API first so playback can
// start without waiting for the extractor's search.
func (s *Server) descriptorFor(ctx context.Context, q domain.Query) *source.Descriptor {
	if s.searcher == nil || q.IsURL() || s.queue.Len() > 0 {
		return s.resolver.Descriptor(q)
	}

	res, err := s.searcher.Search(ctx, q.Value())
	if err != nil {
		slog.Warn("Search fast path failed, using extractor search", "query", q.Value(), "error", err)
		return s.resolver.Descriptor(q)
	}

	slog.Debug("Search fast path hit", "query", q.Value(), "url", res.URL)
	return s.resolver.WithMetadata(domain.ByURL(res.URL), res.Metadata())
}

// listQueue lists queue entries in playback order
func (s *Server) listQueue(c *gin.Context) {
	page, pageSize := pagination(c)
	c.JSON(200, s.queue.List(page, pageSize))
}

// clearQueue drops every entry
func (s *Server) clearQueue(c *gin.Context) {
	n := s.queue.Clear()
	c.JSON(200, gin.H{"message": "Queue cleared", "cleared": n})
}

// nowPlaying returns an entry's metadata, bounded by the playback timeout
func (s *Server) nowPlaying(c *gin.Context) {
	id := c.Param("id")

	md, err := s.queue.NowPlaying(c.Request.Context(), id, s.cfg.Playback.MetadataTimeout)
	if err != nil {
		s.fail(c, err)
		return
	}

	entry, err := s.queue.Get(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(200, NowPlayingResponse{
		ID:           id,
		Announcement: announce(md),
		Progress:     entry.Tracker.State(),
	})
}

// skip removes an entry
func (s *Server) skip(c *gin.Context) {
	if err := s.queue.Remove(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(200, MessageResponse{Message: "Skipped"})
}

// stream sends an entry's audio bytes and drops the entry once they have
// been delivered
func (s *Server) stream(c *gin.Context) {
	id := c.Param("id")

	entry, err := s.queue.Get(id)
	if err != nil {
		s.fail(c, err)
		return
	}

	stream, err := s.queue.Stream(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Header("X-Transport", stream.Kind().String())
	if direct, ok := stream.(*transport.HTTPStream); ok && direct.Len() > 0 {
		c.Header("Content-Length", strconv.FormatInt(direct.Len(), 10))
	}
	c.Status(200)

	n, err := io.Copy(c.Writer, &progressReader{r: stream, tracker: entry.Tracker})
	if err != nil {
		slog.Warn("Stream interrupted", "id", id, "bytes", n, "error", err)
		entry.Tracker.SetError(err)
		if rmErr := s.queue.Remove(id); rmErr != nil {
			slog.Debug("Entry already removed", "id", id)
		}
		return
	}

	if err := s.queue.Finish(id); err != nil {
		slog.Debug("Entry already removed", "id", id)
	}
	slog.Info("Stream delivered", "id", id, "bytes", n)
}
