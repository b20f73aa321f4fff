package queue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaki95/audio-resolver/internal/domain"
	"github.com/jaki95/audio-resolver/internal/extractor"
	"github.com/jaki95/audio-resolver/internal/lookup"
	"github.com/jaki95/audio-resolver/internal/progress"
	"github.com/jaki95/audio-resolver/internal/source"
	"github.com/jaki95/audio-resolver/internal/transport"
)

type invokerFunc func(ctx context.Context, req extractor.Request) ([][]byte, error)

func (f invokerFunc) Invoke(ctx context.Context, req extractor.Request) ([][]byte, error) {
	return f(ctx, req)
}

func titleInvoker(calls *atomic.Int32, delay time.Duration) extractor.Invoker {
	return invokerFunc(func(ctx context.Context, req extractor.Request) ([][]byte, error) {
		calls.Add(1)
		time.Sleep(delay)
		line := fmt.Sprintf(`{"url":"https://cdn.example/a","title":"Title of %s","duration":10}`, req.Query.Value())
		return [][]byte{[]byte(line)}, nil
	})
}

func TestEnqueueListAndRemove(t *testing.T) {
	var calls atomic.Int32
	r := source.NewResolver(titleInvoker(&calls, 0), nil)
	q := New(nil)

	first := q.Enqueue(r.Descriptor(domain.BySearch("one", 1)))
	rest := q.EnqueueAll([]*source.Descriptor{
		r.Descriptor(domain.BySearch("two", 1)),
		r.Descriptor(domain.BySearch("three", 1)),
	})
	require.Len(t, rest, 2)
	assert.Equal(t, 3, q.Len())
	assert.NotEqual(t, first.ID, rest[0].ID)

	page := q.List(1, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "one", page.Entries[0].Query)
	assert.Equal(t, "two", page.Entries[1].Query)
	assert.Equal(t, "unresolved", page.Entries[0].State)
	assert.Equal(t, progress.StageQueued, page.Entries[0].Progress.Stage)

	page = q.List(2, 2)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, 2, page.Entries[0].Position)

	assert.Empty(t, q.List(5, 2).Entries)
	assert.Equal(t, DefaultPageSize, q.List(0, 1000).PageSize)

	require.NoError(t, q.Remove(rest[0].ID))
	assert.ErrorIs(t, q.Remove(rest[0].ID), ErrNotFound)
	_, err := q.Get(rest[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	info, err := q.Info(rest[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Position)

	assert.Equal(t, 2, q.Clear())
	assert.Equal(t, 0, q.Len())
	assert.Zero(t, calls.Load())
}

func TestPrepareCachesMetadata(t *testing.T) {
	var calls atomic.Int32
	r := source.NewResolver(titleInvoker(&calls, 0), nil)
	q := New(nil)
	entry := q.Enqueue(r.Descriptor(domain.BySearch("song", 1)))

	md, err := q.Prepare(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Title of song", md.Title)
	assert.Equal(t, progress.StageResolved, entry.Tracker.State().Stage)

	info, err := q.Info(entry.ID)
	require.NoError(t, err)
	require.NotNil(t, info.Metadata)
	assert.Equal(t, "Title of song", info.Metadata.Title)

	_, err = q.Prepare(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPrepareFailureDiscardsEntry(t *testing.T) {
	inv := invokerFunc(func(ctx context.Context, req extractor.Request) ([][]byte, error) {
		return nil, &extractor.ToolError{Program: "yt-dlp", Stderr: "no video formats found"}
	})
	r := source.NewResolver(inv, nil)
	q := New(nil)
	entry := q.Enqueue(r.Descriptor(domain.BySearch("asdkfjasdkfj", 1)))
	next := q.Enqueue(r.Descriptor(domain.BySearch("next", 1)))

	_, err := q.Prepare(context.Background(), entry.ID)
	require.ErrorIs(t, err, extractor.ErrToolFailed)
	assert.Contains(t, err.Error(), "no video formats found")

	_, err = q.Get(entry.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, progress.StageFailed, entry.Tracker.State().Stage)

	// The rest of the queue is untouched.
	_, err = q.Get(next.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())
}

func TestNowPlayingPrefersFastExtractor(t *testing.T) {
	var calls atomic.Int32
	r := source.NewResolver(titleInvoker(&calls, 0), nil)
	pages := &lookup.MockPageReader{ReadFunc: func(ctx context.Context, pageURL string) (*lookup.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	q := New(pages)
	entry := q.Enqueue(r.Descriptor(domain.ByURL("https://www.youtube.com/watch?v=abc")))

	md, err := q.NowPlaying(context.Background(), entry.ID, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Title of https://www.youtube.com/watch?v=abc", md.Title)
}

func TestNowPlayingFallsBackToPageLookup(t *testing.T) {
	var calls atomic.Int32
	r := source.NewResolver(titleInvoker(&calls, 300*time.Millisecond), nil)
	pages := &lookup.MockPageReader{ReadFunc: func(ctx context.Context, pageURL string) (*lookup.Result, error) {
		return &lookup.Result{Title: "From page", URL: pageURL}, nil
	}}
	q := New(pages)
	entry := q.Enqueue(r.Descriptor(domain.ByURL("https://www.youtube.com/watch?v=abc")))

	start := time.Now()
	md, err := q.NowPlaying(context.Background(), entry.ID, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "From page", md.Title)
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	// The abandoned extractor run still lands in the descriptor.
	md, err = entry.Descriptor.AuxMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Title of https://www.youtube.com/watch?v=abc", md.Title)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNowPlayingTimesOutWithoutAlternate(t *testing.T) {
	var calls atomic.Int32
	r := source.NewResolver(titleInvoker(&calls, 200*time.Millisecond), nil)
	q := New(nil)
	entry := q.Enqueue(r.Descriptor(domain.BySearch("slow", 1)))

	_, err := q.NowPlaying(context.Background(), entry.ID, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrNoAlternate)
}

func TestStreamAndFinish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "a.mp3", time.Time{}, bytes.NewReader([]byte("payload")))
	}))
	defer srv.Close()

	inv := invokerFunc(func(ctx context.Context, req extractor.Request) ([][]byte, error) {
		return [][]byte{[]byte(fmt.Sprintf(`{"url":%q,"title":"T"}`, srv.URL))}, nil
	})
	r := source.NewResolver(inv, transport.NewBuilder(srv.Client()))
	q := New(nil)
	entry := q.Enqueue(r.Descriptor(domain.ByURL(srv.URL)))

	stream, err := q.Stream(context.Background(), entry.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, progress.StageStreaming, entry.Tracker.State().Stage)

	require.NoError(t, q.Finish(entry.ID))
	assert.Equal(t, progress.StageComplete, entry.Tracker.State().Stage)
	assert.Equal(t, 0, q.Len())
}

func TestStreamFailureDiscardsEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	inv := invokerFunc(func(ctx context.Context, req extractor.Request) ([][]byte, error) {
		return [][]byte{[]byte(fmt.Sprintf(`{"url":%q}`, srv.URL))}, nil
	})
	q := New(nil)
	entry := q.Enqueue(source.NewResolver(inv, transport.NewBuilder(srv.Client())).Descriptor(domain.ByURL(srv.URL)))

	_, err := q.Stream(context.Background(), entry.ID)
	assert.ErrorIs(t, err, extractor.ErrTransportFailed)
	assert.Equal(t, 0, q.Len())
}

func TestPrepareAbandonedByCallerKeepsEntry(t *testing.T) {
	var calls atomic.Int32
	r := source.NewResolver(titleInvoker(&calls, 100*time.Millisecond), nil)
	q := New(nil)
	entry := q.Enqueue(r.Descriptor(domain.BySearch("song", 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Prepare(ctx, entry.ID)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = q.Get(entry.ID)
	require.NoError(t, err)
	assert.NotEqual(t, progress.StageFailed, entry.Tracker.State().Stage)

	md, err := q.Prepare(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Title of song", md.Title)
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, int32(1), calls.Load())
}

func TestSecondStreamLeavesPlayingEntryAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "a.mp3", time.Time{}, bytes.NewReader([]byte("payload")))
	}))
	defer srv.Close()

	inv := invokerFunc(func(ctx context.Context, req extractor.Request) ([][]byte, error) {
		return [][]byte{[]byte(fmt.Sprintf(`{"url":%q,"title":"T"}`, srv.URL))}, nil
	})
	q := New(nil)
	entry := q.Enqueue(source.NewResolver(inv, transport.NewBuilder(srv.Client())).Descriptor(domain.ByURL(srv.URL)))

	first, err := q.Stream(context.Background(), entry.ID)
	require.NoError(t, err)
	defer first.Close()

	_, err = q.Stream(context.Background(), entry.ID)
	require.ErrorIs(t, err, extractor.ErrUnsupported)

	_, err = q.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StageStreaming, entry.Tracker.State().Stage)

	body, err := io.ReadAll(first)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestNowPlayingBoundsSlowPageLookup(t *testing.T) {
	var calls atomic.Int32
	r := source.NewResolver(titleInvoker(&calls, time.Second), nil)
	pages := &lookup.MockPageReader{ReadFunc: func(ctx context.Context, pageURL string) (*lookup.Result, error) {
		time.Sleep(800 * time.Millisecond)
		return &lookup.Result{Title: "From page", URL: pageURL}, nil
	}}
	q := New(pages)
	entry := q.Enqueue(r.Descriptor(domain.ByURL("https://www.youtube.com/watch?v=abc")))

	start := time.Now()
	_, err := q.NowPlaying(context.Background(), entry.ID, 50*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// A timed-out lookup does not cost the entry its place.
	assert.Equal(t, 1, q.Len())
}
