package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/grafov/m3u8"

	"github.com/jaki95/audio-resolver/internal/domain"
)

const minPollInterval = 500 * time.Millisecond

// HLSStream concatenates the segments of an HLS media playlist. Playlists
// without an end tag are re-fetched until they close or the stream does.
type HLSStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	client *http.Client
	header http.Header

	playlistURL  *url.URL
	pollInterval time.Duration
	fixedPoll    bool

	pending []part
	nextSeq uint64
	ended   bool
	// mapKey identifies the last queued EXT-X-MAP init section
	mapKey string

	segment io.ReadCloser
	closed  bool
}

func openHLS(ctx context.Context, client *http.Client, manifestURL string, header http.Header, poll time.Duration) (*HLSStream, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, transportErr("invalid manifest url %q: %v", manifestURL, err)
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	s := &HLSStream{
		ctx:          streamCtx,
		cancel:       cancel,
		client:       client,
		header:       header,
		playlistURL:  base,
		pollInterval: poll,
		fixedPoll:    poll > 0,
	}

	playlist, listType, err := s.fetchPlaylist(base)
	if err != nil {
		cancel()
		return nil, err
	}

	if listType == m3u8.MASTER {
		variant, err := bestVariant(base, playlist.(*m3u8.MasterPlaylist))
		if err != nil {
			cancel()
			return nil, err
		}
		slog.Debug("Selected HLS variant", "url", variant.String())

		s.playlistURL = variant
		playlist, listType, err = s.fetchPlaylist(variant)
		if err != nil {
			cancel()
			return nil, err
		}
		if listType != m3u8.MEDIA {
			cancel()
			return nil, transportErr("variant %s is not a media playlist", variant)
		}
	}

	media, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok || listType != m3u8.MEDIA {
		cancel()
		return nil, transportErr("%s is not an HLS playlist", manifestURL)
	}

	s.absorb(media)
	if len(s.pending) == 0 && s.ended {
		cancel()
		return nil, transportErr("media playlist %s has no segments", s.playlistURL)
	}

	slog.Debug("Opened HLS stream", "url", s.playlistURL.String(), "segments", len(s.pending), "live", !s.ended)
	return s, nil
}

// part is one fetch of the stream: a media segment or an init section,
// optionally limited to a byte range.
type part struct {
	url    *url.URL
	offset int64
	limit  int64
}

func (p part) header(base http.Header) http.Header {
	if p.limit <= 0 {
		return base
	}
	h := base.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set("Range", fmt.Sprintf("bytes=%d-%d", p.offset, p.offset+p.limit-1))
	return h
}

// bestVariant picks the highest-bandwidth variant of a master playlist.
func bestVariant(base *url.URL, master *m3u8.MasterPlaylist) (*url.URL, error) {
	var best *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil || v.URI == "" {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	if best == nil {
		return nil, transportErr("master playlist %s has no variants", base)
	}

	ref, err := base.Parse(best.URI)
	if err != nil {
		return nil, transportErr("invalid variant uri %q: %v", best.URI, err)
	}
	return ref, nil
}

func (s *HLSStream) fetchPlaylist(u *url.URL) (m3u8.Playlist, m3u8.ListType, error) {
	resp, err := get(s.ctx, s.client, u.String(), s.header, -1)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, transportErr("fetching playlist %s failed with status: %d", u, resp.StatusCode)
	}

	playlist, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return nil, 0, transportErr("parsing playlist %s: %v", u, err)
	}
	return playlist, listType, nil
}

// absorb queues segments not seen before, by media sequence number. An
// init section is queued ahead of the first segment it applies to and again
// whenever it changes.
func (s *HLSStream) absorb(media *m3u8.MediaPlaylist) {
	current := media.Map
	seq := media.SeqNo
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		if seg.Map != nil {
			current = seg.Map
		}
		if seq >= s.nextSeq {
			if current != nil {
				s.queueMap(current)
			}
			if ref, err := s.playlistURL.Parse(seg.URI); err == nil {
				s.pending = append(s.pending, part{url: ref, offset: seg.Offset, limit: seg.Limit})
			} else {
				slog.Warn("Skipping segment with invalid uri", "uri", seg.URI, "error", err)
			}
			s.nextSeq = seq + 1
		}
		seq++
	}

	s.ended = media.Closed
	if !s.fixedPoll {
		s.pollInterval = time.Duration(media.TargetDuration * float64(time.Second) / 2)
		if s.pollInterval < minPollInterval {
			s.pollInterval = minPollInterval
		}
	}
}

func (s *HLSStream) queueMap(m *m3u8.Map) {
	key := fmt.Sprintf("%s@%d+%d", m.URI, m.Offset, m.Limit)
	if m.URI == "" || key == s.mapKey {
		return
	}
	ref, err := s.playlistURL.Parse(m.URI)
	if err != nil {
		slog.Warn("Skipping init section with invalid uri", "uri", m.URI, "error", err)
		return
	}
	s.mapKey = key
	s.pending = append(s.pending, part{url: ref, offset: m.Offset, limit: m.Limit})
}

func (s *HLSStream) Kind() domain.Transport {
	return domain.TransportManifest
}

func (s *HLSStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, errors.New("read from closed stream")
	}

	for {
		if s.segment == nil {
			if err := s.nextSegment(); err != nil {
				return 0, err
			}
		}

		n, err := s.segment.Read(p)
		if errors.Is(err, io.EOF) {
			s.segment.Close()
			s.segment = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		if err != nil {
			return n, transportErr("reading segment: %v", err)
		}
		return n, nil
	}
}

// nextSegment opens the next queued segment, polling live playlists for
// more when the queue runs dry.
func (s *HLSStream) nextSegment() error {
	for len(s.pending) == 0 {
		if s.ended {
			return io.EOF
		}

		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-time.After(s.pollInterval):
		}

		playlist, listType, err := s.fetchPlaylist(s.playlistURL)
		if err != nil {
			return err
		}
		if listType != m3u8.MEDIA {
			return transportErr("playlist %s changed type", s.playlistURL)
		}
		s.absorb(playlist.(*m3u8.MediaPlaylist))
	}

	next := s.pending[0]
	s.pending = s.pending[1:]

	resp, err := get(s.ctx, s.client, next.url.String(), next.header(s.header), -1)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return transportErr("fetching segment %s failed with status: %d", next.url, resp.StatusCode)
	}
	s.segment = resp.Body
	return nil
}

func (s *HLSStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	if s.segment != nil {
		return s.segment.Close()
	}
	return nil
}
