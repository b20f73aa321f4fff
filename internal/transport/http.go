package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jaki95/audio-resolver/internal/domain"
)

// HTTPStream reads one HTTP resource with byte-range requests. Seeking
// drops the current response; the next Read reopens at the new offset.
type HTTPStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	client *http.Client
	url    string
	header http.Header

	body   io.ReadCloser
	offset int64
	length int64 // -1 when unknown
	closed bool
}

func openHTTP(ctx context.Context, client *http.Client, url string, header http.Header, size int64) (*HTTPStream, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &HTTPStream{
		ctx:    streamCtx,
		cancel: cancel,
		client: client,
		url:    url,
		header: header,
		length: -1,
	}
	if size > 0 {
		s.length = size
	}

	// The caller's context only bounds the validation round trip; the body
	// outlives it.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := get(streamCtx, client, url, header, 0)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		cancel()
		return nil, transportErr("fetching %s failed with status: %d", url, resp.StatusCode)
	}

	if s.length < 0 {
		s.length = responseLength(resp)
	}
	s.body = resp.Body

	slog.Debug("Opened HTTP stream", "url", url, "length", s.length)
	return s, nil
}

// responseLength extracts the full resource size from a response to a
// request starting at byte zero.
func responseLength(resp *http.Response) int64 {
	if resp.StatusCode == http.StatusPartialContent {
		cr := resp.Header.Get("Content-Range")
		if idx := strings.LastIndex(cr, "/"); idx != -1 {
			if total, err := strconv.ParseInt(cr[idx+1:], 10, 64); err == nil {
				return total
			}
		}
	}
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	return -1
}

func (s *HTTPStream) Kind() domain.Transport {
	return domain.TransportDirect
}

// Len returns the total size in bytes, or -1 when the server did not say.
func (s *HTTPStream) Len() int64 {
	return s.length
}

func (s *HTTPStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, errors.New("read from closed stream")
	}
	if s.length >= 0 && s.offset >= s.length {
		return 0, io.EOF
	}
	if s.body == nil {
		if err := s.reopen(); err != nil {
			return 0, err
		}
	}

	if s.length >= 0 && int64(len(p)) > s.length-s.offset {
		p = p[:s.length-s.offset]
	}

	n, err := s.body.Read(p)
	s.offset += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, transportErr("reading %s: %v", s.url, err)
	}
	return n, err
}

func (s *HTTPStream) reopen() error {
	resp, err := get(s.ctx, s.client, s.url, s.header, s.offset)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		// Server ignored the range; skip up to the offset ourselves.
		if s.offset > 0 {
			if _, err := io.CopyN(io.Discard, resp.Body, s.offset); err != nil {
				resp.Body.Close()
				return transportErr("skipping to offset %d: %v", s.offset, err)
			}
		}
	default:
		resp.Body.Close()
		return transportErr("fetching %s failed with status: %d", s.url, resp.StatusCode)
	}

	s.body = resp.Body
	return nil
}

func (s *HTTPStream) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.offset + offset
	case io.SeekEnd:
		if s.length < 0 {
			return 0, errors.New("seek from end of stream with unknown length")
		}
		abs = s.length + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}

	if abs != s.offset && s.body != nil {
		s.body.Close()
		s.body = nil
	}
	s.offset = abs
	return abs, nil
}

func (s *HTTPStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	if s.body != nil {
		return s.body.Close()
	}
	return nil
}
